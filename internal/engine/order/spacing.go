package order

import (
	"sort"

	"pyshape/internal/engine/cst"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// gap bounds the run of blank lines starting at a given offset.
type gap struct {
	max  int
	fill bool
}

type gaps map[int]gap

// limit records that the blank run at start holds at most max lines. With
// fill, a missing line is added as well.
func (g gaps) limit(start, max int, fill bool) {
	if cur, ok := g[start]; ok {
		if cur.max < max {
			max = cur.max
		}
		fill = fill || cur.fill
	}
	g[start] = gap{max: max, fill: fill && max > 0}
}

// BlankLines caps and fills blank-line runs at structural anchors. It never
// adds separation next to a comment.
func BlankLines(src []byte) ([]byte, error) {
	return transform(src, func(doc *cst.Document) []cst.Edit {
		g := make(gaps)
		g.limit(0, 0, false)

		module := doc.ModuleSuite()
		if len(module.Items) > 1 && isLeadingDocstring(module)(module.Items[0]) {
			end := module.Items[0].End
			next := module.Items[1]
			fill := !commentFollows(doc, end, next.Start)
			g.limit(end, 1, fill)
		}
		for _, it := range module.Items {
			if cst.IsFunction(it.Node) || cst.IsClass(it.Node) {
				if start, ok := blankRunBefore(doc, it); ok {
					g.limit(start, 2, false)
				}
			}
		}

		cst.Walk(doc.Root, func(n *sitter.Node) bool {
			switch n.Kind() {
			case "function_definition", "class_definition":
			default:
				return true
			}
			suite := doc.BodySuite(n)
			if suite == nil || suite.Inline || len(suite.Items) == 0 {
				return true
			}
			g.limit(suite.Items[0].LeadStart, 0, false)
			for _, it := range suite.Items {
				for _, start := range blankRuns(doc.Lead(it)) {
					g.limit(start, 1, false)
				}
			}
			docstring := len(suite.Items) > 1 && cst.IsDocstring(suite.Items[0].Node)
			switch {
			case n.Kind() == "class_definition":
				if docstring {
					g.limit(suite.Items[0].End, 1, false)
				}
				propertySpacing(doc, g, suite, isDataclass(doc, n))
			case docstring && isSimple(suite.Items[1].Node):
				g.limit(suite.Items[1].LeadStart, 0, false)
			}
			return true
		})
		return g.edits(doc)
	})
}

func (g gaps) edits(doc *cst.Document) []cst.Edit {
	starts := make([]int, 0, len(g))
	for start := range g {
		starts = append(starts, start)
	}
	sort.Ints(starts)

	var edits []cst.Edit
	for _, start := range starts {
		rule := g[start]
		var blank []cst.Line
		for _, line := range doc.Lines(start, len(doc.Source)) {
			if !line.Blank() {
				break
			}
			blank = append(blank, line)
		}
		switch {
		case len(blank) > rule.max:
			edits = append(edits, cst.Delete(blank[rule.max].Start, blank[len(blank)-1].End))
		case rule.fill && len(blank) < rule.max && start < len(doc.Source):
			edits = append(edits, cst.Insert(start, doc.Newline))
		}
	}
	return edits
}

// commentFollows reports whether the first non-blank line in [from, to) is
// a comment.
func commentFollows(doc *cst.Document, from, to int) bool {
	for _, line := range doc.Lines(from, to) {
		if !line.Blank() {
			return line.Comment()
		}
	}
	return false
}

// blankRuns returns the start of every maximal blank run in lines.
func blankRuns(lines []cst.Line) []int {
	var out []int
	for i, line := range lines {
		if line.Blank() && (i == 0 || !lines[i-1].Blank()) {
			out = append(out, line.Start)
		}
	}
	return out
}

// blankRunBefore returns the start of the blank lines directly above the
// attached comments of it.
func blankRunBefore(doc *cst.Document, it *cst.Item) (int, bool) {
	attach := doc.AttachStart(it)
	lines := doc.Lines(it.LeadStart, attach)
	start, ok := attach, false
	for i := len(lines) - 1; i >= 0 && lines[i].Blank(); i-- {
		start, ok = lines[i].Start, true
	}
	return start, ok
}

// propertySpacing sets the blank lines between the attributes ahead of the
// first method. Adjacent attributes sit together, except for one blank line
// where UPPER names give way to lower ones or where the defaulted fields of a
// dataclass start. The first method gets one blank line after an attribute.
func propertySpacing(doc *cst.Document, g gaps, suite *cst.Suite, dataclass bool) {
	first := len(suite.Items)
	for i, it := range suite.Items {
		if cst.IsFunction(it.Node) {
			first = i
			break
		}
	}
	start := 1
	if cst.IsDocstring(suite.Items[0].Node) {
		start = 2
	}
	for i := start; i < first; i++ {
		prev, cur := suite.Items[i-1], suite.Items[i]
		if !isProperty(doc, prev) || !isProperty(doc, cur) {
			continue
		}
		want := 0
		if isUpperAttribute(doc, prev) && isLowerAttribute(doc, cur) {
			want = 1
		}
		if dataclass && !hasDefault(prev) && hasDefault(cur) {
			want = 1
		}
		leadGap(doc, g, cur, want)
	}
	if first < len(suite.Items) && first > 0 && isProperty(doc, suite.Items[first-1]) {
		leadGap(doc, g, suite.Items[first], 1)
	}
}

// leadGap applies want to the leading blank lines of it. Leads holding
// comments are left alone.
func leadGap(doc *cst.Document, g gaps, it *cst.Item, want int) {
	if blankOnly(doc.Lead(it)) {
		g.limit(it.LeadStart, want, true)
	}
}

func blankOnly(lines []cst.Line) bool {
	for _, l := range lines {
		if !l.Blank() {
			return false
		}
	}
	return true
}

// isProperty matches a single-target assignment, annotated or not.
func isProperty(doc *cst.Document, it *cst.Item) bool {
	return len(it.Tail) == 0 && doc.AssignedName(it.Node) != ""
}

// isPlainAttribute matches "name = value" with a single target and no
// annotation.
func isPlainAttribute(doc *cst.Document, it *cst.Item) bool {
	if len(it.Tail) > 0 || doc.AssignedName(it.Node) == "" {
		return false
	}
	asg := cst.Assignment(it.Node)
	return asg.ChildByFieldName("type") == nil && asg.ChildByFieldName("right") != nil
}

func isUpperAttribute(doc *cst.Document, it *cst.Item) bool {
	return isPlainAttribute(doc, it) && cst.IsUpper(doc.AssignedName(it.Node))
}

func isLowerAttribute(doc *cst.Document, it *cst.Item) bool {
	return isPlainAttribute(doc, it) && cst.IsLower(doc.AssignedName(it.Node))
}

// hasDefault reports whether an attribute statement assigns a value.
func hasDefault(it *cst.Item) bool {
	if len(it.Tail) > 0 {
		return false
	}
	asg := cst.Assignment(it.Node)
	return asg != nil && asg.ChildByFieldName("right") != nil
}

// isSimple reports whether n is a one-line statement rather than a
// compound one.
func isSimple(n *sitter.Node) bool {
	switch n.Kind() {
	case "if_statement", "for_statement", "while_statement", "try_statement", "with_statement",
		"match_statement", "function_definition", "class_definition", "decorated_definition":
		return false
	}
	return true
}
