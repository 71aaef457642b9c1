package order

import (
	"pyshape/internal/engine/cst"
)

// functionUnits groups the function items of a suite into units. Consecutive
// definitions sharing a name, such as overloads or a property getter followed
// by its setter, form one unit. pos maps each unit to the suite index of its
// first item.
func functionUnits(doc *cst.Document, suite *cst.Suite) (units []*unit, pos []int) {
	for i := 0; i < len(suite.Items); i++ {
		it := suite.Items[i]
		if !cst.IsFunction(it.Node) || len(it.Tail) > 0 {
			continue
		}
		u := newUnit(doc, it)
		name := doc.Name(it.Node)
		for i+1 < len(suite.Items) {
			next := suite.Items[i+1]
			if !cst.IsFunction(next.Node) || len(next.Tail) > 0 || doc.Name(next.Node) != name {
				break
			}
			u.items = append(u.items, next)
			i++
		}
		units = append(units, u)
		pos = append(pos, i+1-len(u.items))
	}
	return units, pos
}

// sequence is a suite seen as a list of units, every non-function item
// standing alone and same-named function runs merged.
func sequence(doc *cst.Document, suite *cst.Suite) []*unit {
	var out []*unit
	fns, pos := functionUnits(doc, suite)
	next := 0
	for i := 0; i < len(suite.Items); {
		if next < len(pos) && pos[next] == i {
			out = append(out, fns[next])
			i += len(fns[next].items)
			next++
			continue
		}
		out = append(out, newUnit(doc, suite.Items[i]))
		i++
	}
	return out
}

// runs returns the maximal runs of consecutive suite items matching match.
// A run also ends before an item whose leading trivia holds a blank line.
func runs(doc *cst.Document, suite *cst.Suite, match func(*cst.Item) bool) [][]*cst.Item {
	var out [][]*cst.Item
	var cur []*cst.Item
	for _, it := range suite.Items {
		ok := match(it) && len(it.Tail) == 0
		if ok && len(cur) > 0 && hasBlank(doc.Lead(it)) {
			out = appendRun(out, cur)
			cur = nil
		}
		if !ok {
			out = appendRun(out, cur)
			cur = nil
			continue
		}
		cur = append(cur, it)
	}
	return appendRun(out, cur)
}

func appendRun(out [][]*cst.Item, run []*cst.Item) [][]*cst.Item {
	if len(run) > 1 {
		out = append(out, run)
	}
	return out
}

func hasBlank(lines []cst.Line) bool {
	for _, l := range lines {
		if l.Blank() {
			return true
		}
	}
	return false
}
