package order

import (
	"log/slog"
	"strings"

	"pyshape/internal/engine/cst"
	"pyshape/internal/shared/util"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

var iterableKinds = map[string]bool{
	"list":  true,
	"tuple": true,
	"set":   true,
}

// element is one line-owning member of a flagged literal. The slot spans
// [start, end) in whole lines; prefix is the text up to the element's end
// and rest follows its comma.
type element struct {
	node   *sitter.Node
	start  int
	end    int
	comma  bool
	prefix string
	rest   string
}

// IterableItems sorts the elements following a sort-items marker inside a
// list, tuple or set literal, up to the first blank line. Each element must
// own its lines; commas stay with their slot so the literal remains valid.
func IterableItems(src []byte) ([]byte, error) {
	return transform(src, func(doc *cst.Document) []cst.Edit {
		var edits []cst.Edit
		cst.Walk(doc.Root, func(n *sitter.Node) bool {
			if !iterableKinds[n.Kind()] {
				return true
			}
			e := sortIterable(doc, n)
			if len(e) == 0 {
				return true
			}
			edits = append(edits, e...)
			return false
		})
		return edits
	})
}

func sortIterable(doc *cst.Document, lit *sitter.Node) []cst.Edit {
	children := cst.Children(lit)
	marker := -1
	for i, c := range children {
		if c.Kind() == "comment" && isMarker(doc.Text(c), ItemsMarker) {
			marker = i
			break
		}
	}
	if marker < 0 {
		return nil
	}

	var elems []*element
	prevEnd := doc.LineEnd(cst.End(children[marker]))
	for i := marker + 1; i < len(children); i++ {
		c := children[i]
		if !c.IsNamed() || c.Kind() == "comment" {
			continue
		}
		el, ok := lineElement(doc, c, children[i+1:], prevEnd)
		if !ok {
			break
		}
		elems = append(elems, el)
		prevEnd = el.end
	}
	if len(elems) < 2 {
		return nil
	}

	keys := make([]sortKey, len(elems))
	for i, el := range elems {
		keys[i] = sortKey{folded: util.Fold(doc.Text(el.node))}
	}
	order := keyOrder(keys)
	if identity(order) {
		return nil
	}
	var edits []cst.Edit
	for i, j := range order {
		if i == j {
			continue
		}
		text := elems[j].prefix
		if elems[i].comma {
			text += ","
		}
		text += elems[j].rest
		edits = append(edits, cst.Replace(elems[i].start, elems[i].end, text))
	}
	return edits
}

// lineElement measures n as a sortable element beginning after prevEnd.
// Comment lines directly above n belong to it; a blank line or any other
// code sharing its lines ends the sortable run.
func lineElement(doc *cst.Document, n *sitter.Node, following []*sitter.Node, prevEnd int) (*element, bool) {
	start := doc.LineStart(cst.Start(n))
	if !doc.StartsLine(cst.Start(n)) || start < prevEnd {
		slog.Debug("flagged element shares a line, stopping", "row", cst.Row(n))
		return nil, false
	}
	for _, line := range doc.Lines(prevEnd, start) {
		if line.Blank() {
			return nil, false
		}
	}
	start = prevEnd

	el := &element{node: n, start: start}
	restStart := cst.End(n)
	if len(following) > 0 && following[0].Kind() == "," {
		el.comma = true
		restStart = cst.End(following[0])
	}
	el.end = doc.LineEnd(restStart)
	rest := doc.Slice(restStart, el.end)
	if trimmed := strings.TrimSpace(rest); trimmed != "" && !strings.HasPrefix(trimmed, "#") {
		return nil, false
	}
	el.prefix = doc.Slice(start, cst.End(n))
	el.rest = rest
	return el, true
}
