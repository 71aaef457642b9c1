package order

import (
	"strings"

	"pyshape/internal/engine/cst"
	"pyshape/internal/shared/util"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

var specialAttributes = map[string]bool{
	"__slots__":      true,
	"__match_args__": true,
}

const specialInnerClass = "Config"

// ClassAttributes orders each contiguous run of class attributes in every
// top-level class. Attributes are single-target assignments whose name is
// not all caps, plus nested classes.
func ClassAttributes(src []byte) ([]byte, error) {
	return transform(src, func(doc *cst.Document) []cst.Edit {
		var edits []cst.Edit
		for _, suite := range topClasses(doc) {
			dataclass := isDataclass(doc, suite.Owner)
			for _, run := range runs(doc, suite, func(it *cst.Item) bool { return isAttribute(doc, it) }) {
				units := make([]*unit, len(run))
				keys := make([]sortKey, len(run))
				for i, it := range run {
					units[i] = newUnit(doc, it)
					keys[i] = attributeKey(doc, it, dataclass)
				}
				if order := keyOrder(keys); !identity(order) {
					edits = append(edits, permute(doc, units, order)...)
				}
			}
		}
		return edits
	})
}

func isAttribute(doc *cst.Document, it *cst.Item) bool {
	if cst.IsClass(it.Node) {
		return true
	}
	name := doc.AssignedName(it.Node)
	return name != "" && !cst.IsUpper(name)
}

func attributeKey(doc *cst.Document, it *cst.Item, dataclass bool) sortKey {
	if cst.IsClass(it.Node) {
		name := doc.Name(it.Node)
		if name == specialInnerClass {
			return sortKey{}
		}
		return memberRank(name, false, false, dataclass)
	}
	name := doc.AssignedName(it.Node)
	if specialAttributes[name] {
		return sortKey{}
	}
	asg := cst.Assignment(it.Node)
	annotated := asg.ChildByFieldName("type") != nil
	return memberRank(name, annotated, asg.ChildByFieldName("right") != nil, dataclass)
}

// memberRank ranks public before private. In dataclasses annotated fields
// come first, required before defaulted, whatever their visibility.
func memberRank(name string, annotated, hasDefault, dataclass bool) sortKey {
	private := strings.HasPrefix(name, "_")
	rank := 1
	switch {
	case dataclass && annotated && hasDefault:
		rank = 2
	case dataclass && !annotated:
		rank = 3
	}
	if private && (!dataclass || !annotated) {
		rank++
	}
	k := sortKey{rank: rank, folded: util.Fold(strings.TrimLeft(name, "_"))}
	if private {
		k.sub = 1
	}
	return k
}

// isDataclass matches "@dataclass" and "@dataclasses.dataclass", called or
// not.
func isDataclass(doc *cst.Document, class *sitter.Node) bool {
	return hasDecorator(doc, class.Parent(), "dataclass")
}
