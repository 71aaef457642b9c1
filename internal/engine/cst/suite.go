package cst

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Item is one statement of a suite, measured in whole lines. [LeadStart,
// Start) holds the leading trivia (blank and comment lines); [Start, End)
// holds the statement, its inline comment and any deeper-indented comment
// lines that trail it.
type Item struct {
	Node *sitter.Node
	// Tail holds further statements sharing the last line, as in "a = 1; b = 2".
	Tail []*sitter.Node

	LeadStart int
	Start     int
	End       int
}

// Nodes returns Node followed by Tail.
func (it *Item) Nodes() []*sitter.Node {
	return append([]*sitter.Node{it.Node}, it.Tail...)
}

// Suite is an indented statement sequence: the module body or the body of a
// definition or compound statement.
type Suite struct {
	Owner  *sitter.Node
	Items  []*Item
	Indent string
	// Inline is set when the body shares its header line, as in "def f(): pass".
	Inline bool
}

// ModuleSuite returns the top-level statements.
func (d *Document) ModuleSuite() *Suite {
	return d.buildSuite(d.Root, d.Root, 0)
}

// BodySuite returns the body of a definition or compound statement, or nil
// when n has none.
func (d *Document) BodySuite(n *sitter.Node) *Suite {
	owner := Definition(n)
	body := Body(owner)
	if body == nil {
		return nil
	}
	colon := -1
	for _, c := range Children(owner) {
		if c.Kind() == ":" && End(c) <= Start(body) {
			colon = End(c)
		}
	}
	if colon < 0 {
		return nil
	}
	items := Code(body)
	if len(items) == 0 {
		return &Suite{Owner: owner, Inline: true}
	}
	if d.LineStart(Start(items[0])) < colon {
		s := d.buildSuite(owner, body, d.LineStart(Start(items[0])))
		s.Inline = true
		return s
	}
	return d.buildSuite(owner, body, d.LineEnd(colon))
}

func (d *Document) buildSuite(owner, container *sitter.Node, leadStart int) *Suite {
	s := &Suite{Owner: owner}
	for _, child := range Code(container) {
		start := d.LineStart(Start(child))
		end := d.LineEnd(ContentEnd(child))
		if n := len(s.Items); n > 0 && start < s.Items[n-1].End {
			prev := s.Items[n-1]
			prev.Tail = append(prev.Tail, child)
			if end > prev.End {
				prev.End = end
			}
			continue
		}
		s.Items = append(s.Items, &Item{Node: child, Start: start, End: end})
	}
	if len(s.Items) == 0 {
		return s
	}
	s.Indent = d.Indent(s.Items[0].Start)
	width := indentWidth(s.Indent)

	pos := leadStart
	for i, it := range s.Items {
		it.LeadStart = pos
		limit := len(d.Source)
		if i+1 < len(s.Items) {
			limit = s.Items[i+1].Start
		}
		for _, line := range d.Lines(it.End, limit) {
			if !line.Comment() || line.IndentWidth() <= width {
				break
			}
			it.End = line.End
		}
		pos = it.End
	}
	return s
}

// Lead returns the leading trivia lines of it.
func (d *Document) Lead(it *Item) []Line {
	return d.Lines(it.LeadStart, it.Start)
}

// AttachStart returns the start of the comment lines directly above it with
// no blank line in between.
func (d *Document) AttachStart(it *Item) int {
	lines := d.Lead(it)
	start := it.Start
	for i := len(lines) - 1; i >= 0; i-- {
		if !lines[i].Comment() {
			break
		}
		start = lines[i].Start
	}
	return start
}

// End returns the end of the last item.
func (s *Suite) End() int {
	if len(s.Items) == 0 {
		return 0
	}
	return s.Items[len(s.Items)-1].End
}

// Index returns the position of the item holding n, or -1.
func (s *Suite) Index(n *sitter.Node) int {
	for i, it := range s.Items {
		for _, m := range it.Nodes() {
			if Same(m, n) {
				return i
			}
		}
	}
	return -1
}
