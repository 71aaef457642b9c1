package order

import (
	"strings"

	"pyshape/internal/engine/cst"
	"pyshape/internal/shared/util"
)

// ModuleFunctions gathers the module-level functions into one sorted block,
// public before private, at the position of the first function. The block
// never lands after the first class or after a main guard.
func ModuleFunctions(src []byte) ([]byte, error) {
	return transform(src, func(doc *cst.Document) []cst.Edit {
		units := sequence(doc, doc.ModuleSuite())
		var fns []int
		for i, u := range units {
			if isFunctionUnit(u) {
				fns = append(fns, i)
			}
		}
		if len(fns) == 0 {
			return nil
		}
		keys := make([]sortKey, len(fns))
		for i, p := range fns {
			name := doc.Name(units[p].first().Node)
			keys[i] = sortKey{private: strings.HasPrefix(name, "_"), folded: util.Fold(name)}
		}
		moved := make([]int, len(fns))
		for i, j := range keyOrder(keys) {
			moved[i] = fns[j]
		}
		order := gather(len(units), moved, func(kept []int) int {
			k := 0
			for k < len(kept) && kept[k] < fns[0] {
				k++
			}
			return clampBefore(doc, units, kept, k, true)
		})
		if identity(order) {
			return nil
		}
		return permute(doc, units, order)
	})
}

// ModuleClasses sorts the module-level classes by name into one block at the
// position of the first class, kept ahead of any main guard.
func ModuleClasses(src []byte) ([]byte, error) {
	return transform(src, func(doc *cst.Document) []cst.Edit {
		suite := doc.ModuleSuite()
		units := unitsOf(doc, suite)
		var classes []int
		for i, it := range suite.Items {
			if cst.IsClass(it.Node) && len(it.Tail) == 0 {
				classes = append(classes, i)
			}
		}
		if len(classes) == 0 {
			return nil
		}
		keys := make([]sortKey, len(classes))
		for i, p := range classes {
			keys[i] = sortKey{folded: util.Fold(doc.Name(suite.Items[p].Node))}
		}
		moved := make([]int, len(classes))
		for i, j := range keyOrder(keys) {
			moved[i] = classes[j]
		}
		order := gather(len(units), moved, func(kept []int) int {
			k := 0
			for k < len(kept) && kept[k] < classes[0] {
				k++
			}
			return clampBefore(doc, units, kept, k, false)
		})
		if identity(order) {
			return nil
		}
		return permute(doc, units, order)
	})
}

func isFunctionUnit(u *unit) bool {
	return cst.IsFunction(u.first().Node) && len(u.last().Tail) == 0
}

// clampBefore lowers k so it does not pass the first main guard among the
// kept units, nor the first class when classes is set.
func clampBefore(doc *cst.Document, units []*unit, kept []int, k int, classes bool) int {
	for i, p := range kept {
		if i >= k {
			break
		}
		n := units[p].first().Node
		if isMainGuard(doc, n) || (classes && cst.IsClass(n)) {
			return i
		}
	}
	return k
}
