package cst

import (
	"sort"

	"pyshape/internal/core/errors"
)

// Edit replaces Source[Start:End] with Text. Start == End inserts.
type Edit struct {
	Start int
	End   int
	Text  string
}

func Replace(start, end int, text string) Edit { return Edit{Start: start, End: end, Text: text} }

func Insert(at int, text string) Edit { return Edit{Start: at, End: at, Text: text} }

func Delete(start, end int) Edit { return Edit{Start: start, End: end} }

// Apply serializes src with edits applied. Edits may be given in any order
// but must not overlap; insertions at the same offset keep their given order
// and land before a replacement starting there.
func Apply(src []byte, edits []Edit) ([]byte, error) {
	if len(edits) == 0 {
		return src, nil
	}
	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End == sorted[i].Start && sorted[j].End != sorted[j].Start
	})

	out := make([]byte, 0, len(src))
	pos := 0
	for _, e := range sorted {
		if e.Start < pos || e.End < e.Start || e.End > len(src) {
			return nil, errors.Newf(errors.CodeEditConflict, "edit [%d,%d) overlaps or exceeds source", e.Start, e.End)
		}
		out = append(out, src[pos:e.Start]...)
		out = append(out, e.Text...)
		pos = e.End
	}
	out = append(out, src[pos:]...)
	return out, nil
}

// Rewrite parses src and applies the edits plan returns. Sources that do
// not parse come back unchanged together with the parse error.
func Rewrite(src []byte, plan func(doc *Document) []Edit) ([]byte, error) {
	doc, err := Parse(src)
	if err != nil {
		return src, err
	}
	defer doc.Close()

	edits := plan(doc)
	if len(edits) == 0 {
		return src, nil
	}
	return Apply(src, edits)
}
