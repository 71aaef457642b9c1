package order

import (
	"pyshape/internal/engine/cst"
	"pyshape/internal/shared/util"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

var metadataNames = map[string]bool{
	"__all__":         true,
	"__version__":     true,
	"__author__":      true,
	"__email__":       true,
	"__license__":     true,
	"__copyright__":   true,
	"__title__":       true,
	"__description__": true,
}

// ModuleMetadata groups the module metadata assignments sorted by name after
// the last TYPE_CHECKING block, or failing that after the last import, the
// future import or the module docstring.
func ModuleMetadata(src []byte) ([]byte, error) {
	return transform(src, func(doc *cst.Document) []cst.Edit {
		suite := doc.ModuleSuite()
		var found []int
		for i, it := range suite.Items {
			if len(it.Tail) == 0 && metadataNames[doc.AssignedName(it.Node)] {
				found = append(found, i)
			}
		}
		if len(found) == 0 {
			return nil
		}
		keys := make([]sortKey, len(found))
		for i, p := range found {
			keys[i] = sortKey{folded: util.Fold(doc.AssignedName(suite.Items[p].Node))}
		}
		moved := make([]int, len(found))
		for i, j := range keyOrder(keys) {
			moved[i] = found[j]
		}
		return relocateItems(doc, suite, moved, func(kept []int) int {
			return after(suite, kept,
				func(it *cst.Item) bool { return doc.IsTypeCheckingGuard(it.Node) },
				isImport,
				isFutureImport,
				isLeadingDocstring(suite),
			)
		})
	})
}

// TypeCheckingBlock moves the TYPE_CHECKING blocks, in order, right after
// the last regular import.
func TypeCheckingBlock(src []byte) ([]byte, error) {
	return transform(src, func(doc *cst.Document) []cst.Edit {
		suite := doc.ModuleSuite()
		var guards []int
		for i, it := range suite.Items {
			if len(it.Tail) == 0 && doc.IsTypeCheckingGuard(it.Node) {
				guards = append(guards, i)
			}
		}
		if len(guards) == 0 {
			return nil
		}
		return relocateItems(doc, suite, guards, func(kept []int) int {
			return after(suite, kept, isImport, isFutureImport, isLeadingDocstring(suite))
		})
	})
}

// MainGuard moves every `if __name__ == "__main__":` block to the end of the
// module, keeping their relative order.
func MainGuard(src []byte) ([]byte, error) {
	return transform(src, func(doc *cst.Document) []cst.Edit {
		suite := doc.ModuleSuite()
		var guards []int
		for i, it := range suite.Items {
			if len(it.Tail) == 0 && isMainGuard(doc, it.Node) {
				guards = append(guards, i)
			}
		}
		if len(guards) == 0 {
			return nil
		}
		return relocateItems(doc, suite, guards, func(kept []int) int { return len(kept) })
	})
}

func relocateItems(doc *cst.Document, suite *cst.Suite, moved []int, at func(kept []int) int) []cst.Edit {
	order := gather(len(suite.Items), moved, at)
	if identity(order) {
		return nil
	}
	return permute(doc, unitsOf(doc, suite), order)
}

// after returns the kept position just past the last item matching the
// first anchor predicate that matches anything, or 0.
func after(suite *cst.Suite, kept []int, anchors ...func(*cst.Item) bool) int {
	for _, match := range anchors {
		for i := len(kept) - 1; i >= 0; i-- {
			if match(suite.Items[kept[i]]) {
				return i + 1
			}
		}
	}
	return 0
}

func isLeadingDocstring(suite *cst.Suite) func(*cst.Item) bool {
	return func(it *cst.Item) bool {
		return it == suite.Items[0] && len(it.Tail) == 0 && cst.IsDocstring(it.Node)
	}
}

// isMainGuard matches `if __name__ == "__main__":` with either quote style.
func isMainGuard(doc *cst.Document, n *sitter.Node) bool {
	if n == nil || n.Kind() != "if_statement" {
		return false
	}
	cond := n.ChildByFieldName("condition")
	if cond == nil || cond.Kind() != "comparison_operator" {
		return false
	}
	operands := cst.Code(cond)
	if len(operands) != 2 || operands[0].Kind() != "identifier" || doc.Text(operands[0]) != "__name__" {
		return false
	}
	var op string
	for _, c := range cst.Children(cond) {
		if !c.IsNamed() {
			op = c.Kind()
		}
	}
	if op != "==" {
		return false
	}
	value, ok := doc.StringLiteral(operands[1])
	return ok && value == "__main__"
}
