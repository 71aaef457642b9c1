package order

import (
	"strings"

	"pyshape/internal/engine/cst"
	"pyshape/internal/shared/util"
)

// Marker comments opting a block into sorting.
const (
	ConstantsMarker = "pyshape: sort-constants"
	ItemsMarker     = "pyshape: sort-items"
)

// isMarker reports whether a comment line or node text carries marker.
func isMarker(text, marker string) bool {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "#") {
		return false
	}
	return strings.TrimSpace(strings.TrimPrefix(text, "#")) == marker
}

// Constants sorts runs of all-caps assignments that sit directly under the
// sort-constants marker, at module level and in top-level class bodies.
func Constants(src []byte) ([]byte, error) {
	return transform(src, func(doc *cst.Document) []cst.Edit {
		suites := append([]*cst.Suite{doc.ModuleSuite()}, topClasses(doc)...)
		var edits []cst.Edit
		for _, suite := range suites {
			edits = append(edits, sortConstants(doc, suite)...)
		}
		return edits
	})
}

func sortConstants(doc *cst.Document, suite *cst.Suite) []cst.Edit {
	var edits []cst.Edit
	for i := 0; i < len(suite.Items); i++ {
		split, ok := markerEnd(doc, suite.Items[i])
		if !ok || !isConstant(doc, suite.Items[i]) {
			continue
		}
		units := []*unit{{items: []*cst.Item{suite.Items[i]}, split: split}}
		for i+1 < len(suite.Items) {
			next := suite.Items[i+1]
			if !isConstant(doc, next) || hasBlank(doc.Lead(next)) {
				break
			}
			if _, marked := markerEnd(doc, next); marked {
				break
			}
			units = append(units, newUnit(doc, next))
			i++
		}
		keys := make([]sortKey, len(units))
		for j, u := range units {
			keys[j] = sortKey{folded: util.Fold(doc.AssignedName(u.first().Node))}
		}
		if order := keyOrder(keys); !identity(order) {
			edits = append(edits, permute(doc, units, order)...)
		}
	}
	return edits
}

func isConstant(doc *cst.Document, it *cst.Item) bool {
	return len(it.Tail) == 0 && cst.IsUpper(doc.AssignedName(it.Node))
}

// markerEnd returns the end of the marker line when the sort-constants
// marker is among the comments attached to it.
func markerEnd(doc *cst.Document, it *cst.Item) (int, bool) {
	for _, line := range doc.Lines(doc.AttachStart(it), it.Start) {
		if isMarker(line.Text, ConstantsMarker) {
			return line.End, true
		}
	}
	return 0, false
}
