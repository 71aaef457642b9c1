package relocate

import (
	"log/slog"
	"strings"

	"pyshape/internal/engine/cst"
	"pyshape/internal/shared/util"
)

// Inject returns one insertion per function that needs runtime-local names.
// Pairs the body already imports are skipped.
func Inject(doc *cst.Document, idx *Index, usage *Usage, res *Resolution) []cst.Edit {
	var edits []cst.Edit
	for _, key := range util.SortedStringKeys(res.Localize) {
		fn := usage.Functions[key]
		suite := doc.BodySuite(fn)
		if suite == nil || suite.Inline || len(suite.Items) == 0 {
			slog.Debug("function body cannot take an import", "function", key)
			continue
		}

		byModule := make(map[string][]string)
		for _, name := range res.Localize[key] {
			b := idx.Bindings[name]
			if usage.LocalImports[key][b.pair()] {
				continue
			}
			byModule[b.Module] = append(byModule[b.Module], ImportName{Symbol: b.Symbol, Alias: b.Alias}.String())
		}
		lines := renderGrouped(byModule)
		if len(lines) == 0 {
			continue
		}

		at := suite.Items[0].LeadStart
		var b strings.Builder
		if first := suite.Items[0]; cst.IsDocstring(first.Node) && len(first.Tail) == 0 {
			at = first.End
			if at > 0 && doc.Source[at-1] != '\n' {
				b.WriteString(doc.Newline)
			}
		}
		for _, line := range lines {
			b.WriteString(suite.Indent + line + doc.Newline)
		}
		edits = append(edits, cst.Insert(at, b.String()))
	}
	return edits
}
