// Package annotate holds the passes that rewrite annotations and
// decorators in place: the postponed-evaluation future import, unquoted
// forward references, inferred return types and keyword-only attrs classes.
package annotate

import (
	"bytes"
	"regexp"

	"pyshape/internal/engine/cst"
)

const futureImport = "from __future__ import annotations"

var encodingCookie = regexp.MustCompile(`^[ \t\f]*#.*coding[:=][ \t]*[-\w.]+`)

// FutureAnnotations adds "from __future__ import annotations" after the
// shebang, encoding cookie and module docstring. Files that already carry it
// and blank files are left alone.
func FutureAnnotations(src []byte) ([]byte, error) {
	if bytes.Contains(src, []byte(futureImport)) || len(bytes.TrimSpace(src)) == 0 {
		return src, nil
	}
	return cst.Rewrite(src, func(doc *cst.Document) []cst.Edit {
		at := headerEnd(doc)
		if items := doc.ModuleSuite().Items; len(items) > 0 && cst.IsDocstring(items[0].Node) && len(items[0].Tail) == 0 {
			at = max(at, items[0].End)
		}

		nl := doc.Newline
		text := futureImport + nl
		if at == len(doc.Source) && at > 0 && doc.Source[at-1] != '\n' {
			text = nl + text
		}
		if rest := doc.Lines(at, doc.LineEnd(at+1)); len(rest) > 0 && !rest[0].Blank() {
			text += nl
		}
		return []cst.Edit{cst.Insert(at, text)}
	})
}

// headerEnd returns the offset past the shebang and encoding cookie lines.
func headerEnd(doc *cst.Document) int {
	lines := doc.Lines(0, len(doc.Source))
	i := 0
	if len(lines) > 0 && bytes.HasPrefix(doc.Source, []byte("#!")) {
		i = 1
	}
	end := 0
	if i == 1 {
		end = lines[0].End
	}
	for j := i; j < i+2 && j < len(lines); j++ {
		if encodingCookie.MatchString(lines[j].Text) {
			end = lines[j].End
		}
	}
	return end
}
