package relocate

import (
	"log/slog"
	"sort"
	"strings"

	"pyshape/internal/engine/cst"
	"pyshape/internal/shared/util"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Rewrite returns the module-level edits of a resolution: pruned import
// statements, the guarded block and stripped annotations.
func Rewrite(doc *cst.Document, idx *Index, res *Resolution) []cst.Edit {
	var edits []cst.Edit
	removed := make(map[*cst.Item]bool)
	for _, stmt := range idx.Statements {
		kept, changed := keptNames(res, stmt)
		switch {
		case !changed:
		case len(stmt.Item.Tail) > 0:
			slog.Debug("import shares its line with other statements, leaving it", "module", stmt.Module)
		case len(kept) == 0:
			removed[stmt.Item] = true
		default:
			start, end := cst.Start(stmt.Node), cst.ContentEnd(stmt.Node)
			edits = append(edits, cst.Replace(start, end, renderImport(doc, stmt, kept)))
		}
	}
	newGuard := len(idx.Guards) == 0 && len(guardImports(idx, res)) > 0
	edits = append(edits, removals(doc, idx.Suite, removed, !newGuard)...)
	edits = append(edits, guardEdits(doc, idx, res)...)
	for _, owner := range res.Strip {
		if e, ok := stripAnnotation(doc, owner); ok {
			edits = append(edits, e)
		}
	}
	return edits
}

// keptNames filters the aliases of stmt. An alias goes whenever its local
// name is dropped, including earlier imports of the same name that the
// live binding shadows.
func keptNames(res *Resolution, stmt *ImportStmt) ([]ImportName, bool) {
	var kept []ImportName
	for _, name := range stmt.Names {
		if res.Dropped(name.Local()) {
			continue
		}
		kept = append(kept, name)
	}
	return kept, len(kept) != len(stmt.Names)
}

// removals deletes emptied statements. A run of removed statements also
// drops its blank-only leading lines when the statement after the run opens
// with its own blank line. With trimTop, a run at the top of the file takes
// the blank lines after it along.
func removals(doc *cst.Document, suite *cst.Suite, removed map[*cst.Item]bool, trimTop bool) []cst.Edit {
	var edits []cst.Edit
	for i := 0; i < len(suite.Items); i++ {
		if !removed[suite.Items[i]] {
			continue
		}
		first := i
		for i+1 < len(suite.Items) && removed[suite.Items[i+1]] {
			i++
		}
		start, end := suite.Items[first].Start, suite.Items[i].End
		if first > 0 && blankOnly(doc.Lead(suite.Items[first])) {
			if i+1 == len(suite.Items) || opensBlank(doc, suite.Items[i+1]) {
				start = suite.Items[first].LeadStart
			}
		}
		if start == 0 && trimTop {
			for _, line := range doc.Lines(end, len(doc.Source)) {
				if !line.Blank() {
					break
				}
				end = line.End
			}
		}
		edits = append(edits, cst.Delete(start, end))
	}
	return edits
}

func blankOnly(lines []cst.Line) bool {
	if len(lines) == 0 {
		return false
	}
	for _, l := range lines {
		if !l.Blank() {
			return false
		}
	}
	return true
}

func opensBlank(doc *cst.Document, it *cst.Item) bool {
	lead := doc.Lead(it)
	return len(lead) > 0 && lead[0].Blank()
}

// renderImport rebuilds a from-import with the kept names. Parenthesized
// multi-line lists keep one name per line along with their comments.
func renderImport(doc *cst.Document, stmt *ImportStmt, kept []ImportName) string {
	var lparen, rparen *sitter.Node
	for _, c := range cst.Children(stmt.Node) {
		switch c.Kind() {
		case "(":
			lparen = c
		case ")":
			rparen = c
		}
	}
	listStart := cst.Start(stmt.Names[0].Node)
	if lparen != nil {
		listStart = cst.Start(lparen)
	}
	prefix := strings.TrimRight(doc.Slice(cst.Start(stmt.Node), listStart), " \t\\\r\n") + " "

	names := make([]string, len(kept))
	for i, k := range kept {
		names[i] = doc.Text(k.Node)
	}
	if lparen == nil || rparen == nil {
		return prefix + strings.Join(names, ", ")
	}
	if cst.Row(lparen) == cst.EndRow(rparen) {
		return prefix + "(" + strings.Join(names, ", ") + ")"
	}

	keep := make(map[uintptr]bool, len(kept))
	for _, k := range kept {
		keep[k.Node.Id()] = true
	}
	base := doc.Indent(cst.Start(stmt.Node))
	inner := base + doc.IndentUnit()
	nl := doc.Newline

	var b strings.Builder
	b.WriteString(prefix + "(" + nl)
	var pending []string
	lastRow, lastKept := cst.Row(lparen), true
	for _, c := range cst.NamedChildren(stmt.Node) {
		if cst.Start(c) <= cst.Start(lparen) || cst.Start(c) >= cst.Start(rparen) {
			continue
		}
		if c.Kind() == "comment" {
			if cst.Row(c) == lastRow {
				if lastKept {
					trimmed := strings.TrimSuffix(b.String(), nl)
					b.Reset()
					b.WriteString(trimmed + "  " + doc.Text(c) + nl)
				}
				continue
			}
			pending = append(pending, inner+doc.Text(c)+nl)
			continue
		}
		lastRow = cst.EndRow(c)
		lastKept = keep[c.Id()]
		if !lastKept {
			pending = pending[:0]
			continue
		}
		for _, p := range pending {
			b.WriteString(p)
		}
		pending = pending[:0]
		b.WriteString(inner + doc.Text(c) + "," + nl)
	}
	for _, p := range pending {
		b.WriteString(p)
	}
	b.WriteString(base + ")")
	return b.String()
}

// guardEdits places the guard imports, appending to the first existing
// TYPE_CHECKING block or creating one after the leading import run.
func guardEdits(doc *cst.Document, idx *Index, res *Resolution) []cst.Edit {
	lines := guardImports(idx, res)
	if len(lines) == 0 {
		return nil
	}
	nl := doc.Newline

	if len(idx.Guards) > 0 {
		suite := doc.BodySuite(idx.Guards[0])
		at := suite.End()
		var b strings.Builder
		if at > 0 && doc.Source[at-1] != '\n' {
			b.WriteString(nl)
		}
		for _, line := range lines {
			b.WriteString(suite.Indent + line + nl)
		}
		return []cst.Edit{cst.Insert(at, b.String())}
	}

	at, afterRun := guardAnchor(doc, idx.Suite)
	var b strings.Builder
	if afterRun && at > 0 && doc.Source[at-1] != '\n' {
		b.WriteString(nl)
	}
	typingImport := !idx.HasGuardSymbol()
	if typingImport {
		b.WriteString("from typing import " + guardSymbol + nl)
	}
	if afterRun || typingImport {
		b.WriteString(nl)
	}
	b.WriteString("if " + guardSymbol + ":" + nl)
	unit := doc.IndentUnit()
	for _, line := range lines {
		b.WriteString(unit + line + nl)
	}
	if !afterRun || !blankFollows(doc, at) {
		b.WriteString(nl)
	}
	return []cst.Edit{cst.Insert(at, b.String())}
}

// guardAnchor returns the insertion offset for a new guarded block and
// whether it follows a docstring or import run.
func guardAnchor(doc *cst.Document, suite *cst.Suite) (int, bool) {
	at, found := 0, false
	for i, it := range suite.Items {
		if i == 0 && cst.IsDocstring(it.Node) {
			at, found = it.End, true
			continue
		}
		if !isImport(it.Node) || len(it.Tail) > 0 {
			if !found {
				return it.Start, false
			}
			return at, true
		}
		at, found = it.End, true
	}
	if !found {
		return len(doc.Source), false
	}
	return at, true
}

func isImport(n *sitter.Node) bool {
	switch n.Kind() {
	case "import_statement", "import_from_statement", "future_import_statement":
		return true
	}
	return false
}

// blankFollows reports whether the line starting at (or after) at is blank.
func blankFollows(doc *cst.Document, at int) bool {
	if at > 0 && at < len(doc.Source) && doc.Source[at-1] != '\n' {
		at = doc.LineEnd(at)
	}
	if at >= len(doc.Source) {
		return true
	}
	lines := doc.Lines(at, doc.LineEnd(at+1))
	return len(lines) > 0 && lines[0].Blank()
}

// guardImports renders one statement per origin module.
func guardImports(idx *Index, res *Resolution) []string {
	byModule := make(map[string][]string)
	for _, name := range res.Guard {
		b := idx.Bindings[name]
		byModule[b.Module] = append(byModule[b.Module], ImportName{Symbol: b.Symbol, Alias: b.Alias}.String())
	}
	return renderGrouped(byModule)
}

func renderGrouped(byModule map[string][]string) []string {
	var out []string
	for _, module := range util.SortedStringKeys(byModule) {
		names := byModule[module]
		sort.SliceStable(names, func(i, j int) bool { return util.FoldLess(names[i], names[j]) })
		out = append(out, "from "+module+" import "+strings.Join(names, ", "))
	}
	return out
}

// stripAnnotation removes the annotation held by a typed parameter or the
// return annotation of a function definition.
func stripAnnotation(doc *cst.Document, owner *sitter.Node) (cst.Edit, bool) {
	switch owner.Kind() {
	case "typed_parameter":
		name := cst.Code(owner)
		if len(name) == 0 {
			return cst.Edit{}, false
		}
		return cst.Replace(cst.Start(owner), cst.End(owner), doc.Text(name[0])), true
	case "typed_default_parameter":
		name, value := owner.ChildByFieldName("name"), owner.ChildByFieldName("value")
		if name == nil || value == nil {
			return cst.Edit{}, false
		}
		return cst.Replace(cst.Start(owner), cst.End(owner), doc.Text(name)+"="+doc.Text(value)), true
	case "function_definition":
		params, ret := owner.ChildByFieldName("parameters"), owner.ChildByFieldName("return_type")
		if params == nil || ret == nil {
			return cst.Edit{}, false
		}
		return cst.Delete(cst.End(params), cst.End(ret)), true
	}
	return cst.Edit{}, false
}
