package order

import (
	"sort"
	"strings"

	"pyshape/internal/engine/cst"
)

// unit is a run of consecutive items that moves as one. The text before
// split stays at the unit's position; the rest is the movable body.
type unit struct {
	items []*cst.Item
	split int
	// body overrides the source text of the body when set.
	body string
}

func newUnit(doc *cst.Document, items ...*cst.Item) *unit {
	return &unit{items: items, split: doc.AttachStart(items[0])}
}

func (u *unit) first() *cst.Item { return u.items[0] }

func (u *unit) last() *cst.Item { return u.items[len(u.items)-1] }

func (u *unit) text(doc *cst.Document) string {
	if u.body != "" {
		return u.body
	}
	return doc.Slice(u.split, u.last().End)
}

// unitsOf wraps every item of a suite in its own unit.
func unitsOf(doc *cst.Document, suite *cst.Suite) []*unit {
	out := make([]*unit, len(suite.Items))
	for i, it := range suite.Items {
		out[i] = newUnit(doc, it)
	}
	return out
}

// permute places units[order[i]] at position i. Positions whose unit does
// not change are left alone.
func permute(doc *cst.Document, units []*unit, order []int) []cst.Edit {
	var edits []cst.Edit
	for i, j := range order {
		if i == j && units[i].body == "" {
			continue
		}
		start, end := units[i].split, units[i].last().End
		body := fitEnding(doc, units[j].text(doc), doc.Slice(start, end))
		if body == doc.Slice(start, end) {
			continue
		}
		edits = append(edits, cst.Replace(start, end, body))
	}
	return edits
}

// fitEnding gives body the line ending of the slot it lands in. Only the
// last statement of a file may lack a trailing newline.
func fitEnding(doc *cst.Document, body, slot string) string {
	if strings.HasSuffix(slot, "\n") {
		return cst.EnsureNewline(body, doc.Newline)
	}
	return strings.TrimSuffix(strings.TrimSuffix(body, "\n"), "\r")
}

// identity reports whether order leaves every position in place.
func identity(order []int) bool {
	for i, j := range order {
		if i != j {
			return false
		}
	}
	return true
}

// sortedOrder returns the stable order of n elements under less.
func sortedOrder(n int, less func(a, b int) bool) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return less(order[a], order[b]) })
	return order
}

// gather builds the order that removes the moved positions and reinserts
// them, in the given sequence, before the kept position at index at. An at
// equal to the number of kept positions appends.
func gather(n int, moved []int, at func(kept []int) int) []int {
	isMoved := make(map[int]bool, len(moved))
	for _, m := range moved {
		isMoved[m] = true
	}
	kept := make([]int, 0, n-len(moved))
	for i := 0; i < n; i++ {
		if !isMoved[i] {
			kept = append(kept, i)
		}
	}
	k := at(kept)
	if k < 0 {
		k = 0
	}
	if k > len(kept) {
		k = len(kept)
	}
	order := make([]int, 0, n)
	order = append(order, kept[:k]...)
	order = append(order, moved...)
	order = append(order, kept[k:]...)
	return order
}
