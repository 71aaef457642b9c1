package order

import (
	"strings"

	"pyshape/internal/engine/cst"
	"pyshape/internal/shared/util"
)

// sortKey orders statements by category, then visibility, then name.
// Equal keys keep their source order.
type sortKey struct {
	rank  int
	group int
	// private names sort after public ones of the same rank.
	private bool
	folded  string
	sub     int
}

func (a sortKey) less(b sortKey) bool {
	switch {
	case a.rank != b.rank:
		return a.rank < b.rank
	case a.group != b.group:
		return a.group < b.group
	case a.private != b.private:
		return !a.private
	case a.folded != b.folded:
		return a.folded < b.folded
	}
	return a.sub < b.sub
}

// nameKey compares names case-insensitively with leading underscores
// ignored; the underscore decides visibility instead.
func nameKey(rank int, name string) sortKey {
	return sortKey{
		rank:    rank,
		private: isPrivate(name),
		folded:  util.Fold(strings.TrimLeft(name, "_")),
	}
}

func isPrivate(name string) bool {
	return strings.HasPrefix(name, "_") && !cst.IsDunder(name)
}

func keyOrder(keys []sortKey) []int {
	return sortedOrder(len(keys), func(a, b int) bool { return keys[a].less(keys[b]) })
}
