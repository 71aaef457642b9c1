package annotate

import (
	"unicode"

	"pyshape/internal/engine/cst"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ReturnTypes annotates functions without a return annotation when every
// return agrees on one obvious type: None, bool, str, int, float, or a
// class defined or imported by name at module level. A function without any
// return gets "-> None". Generators and stubs whose body is only "..." are
// skipped.
func ReturnTypes(src []byte) ([]byte, error) {
	return cst.Rewrite(src, func(doc *cst.Document) []cst.Edit {
		bound := knownTypes(doc)
		postponed := hasFutureAnnotations(doc)
		var edits []cst.Edit
		cst.Walk(doc.Root, func(n *sitter.Node) bool {
			if n.Kind() != "function_definition" || n.ChildByFieldName("return_type") != nil {
				return true
			}
			params := n.ChildByFieldName("parameters")
			if params == nil || isStub(n) {
				return true
			}
			// Without postponed evaluation the annotation runs at definition
			// time, so only names bound before the def qualify.
			known := make(map[string]bool, len(bound))
			for name, at := range bound {
				known[name] = postponed || at < cst.Start(n)
			}
			if typ := inferReturn(doc, n, known); typ != "" {
				edits = append(edits, cst.Insert(cst.End(params), " -> "+typ))
			}
			return true
		})
		return edits
	})
}

// knownTypes maps the classes and from-imported names of the module
// namespace to the offset where they become bound.
func knownTypes(doc *cst.Document) map[string]int {
	known := make(map[string]int)
	for _, it := range doc.ModuleSuite().Items {
		for _, n := range it.Nodes() {
			switch {
			case cst.IsClass(n):
				known[doc.Name(n)] = cst.Start(n)
			case n.Kind() == "import_from_statement":
				module := n.ChildByFieldName("module_name")
				for _, c := range cst.Code(n) {
					switch {
					case cst.Same(c, module):
					case c.Kind() == "dotted_name" && len(cst.Code(c)) == 1:
						known[doc.Text(c)] = cst.Start(n)
					case c.Kind() == "aliased_import":
						known[doc.Text(c.ChildByFieldName("alias"))] = cst.Start(n)
					}
				}
			}
		}
	}
	return known
}

// ownStatements walks the body of fn without entering nested scopes.
func ownStatements(fn *sitter.Node, visit func(*sitter.Node)) {
	for _, c := range cst.NamedChildren(cst.Body(fn)) {
		cst.Walk(c, func(n *sitter.Node) bool {
			switch n.Kind() {
			case "function_definition", "class_definition", "lambda", "decorated_definition":
				return false
			}
			visit(n)
			return true
		})
	}
}

func inferReturn(doc *cst.Document, fn *sitter.Node, known map[string]bool) string {
	var returns []*sitter.Node
	generator := false
	vars := make(map[string]string)
	discarded := make(map[string]bool)
	ownStatements(fn, func(n *sitter.Node) {
		switch n.Kind() {
		case "return_statement":
			returns = append(returns, n)
		case "yield":
			generator = true
		case "assignment":
			left, right := n.ChildByFieldName("left"), n.ChildByFieldName("right")
			if left == nil || right == nil || left.Kind() != "identifier" {
				return
			}
			name := doc.Text(left)
			typ := callType(doc, right, known)
			if discarded[name] || typ == "" {
				return
			}
			if prev, ok := vars[name]; ok && prev != typ {
				discarded[name] = true
				delete(vars, name)
				return
			}
			vars[name] = typ
		}
	})
	if generator {
		return ""
	}
	if len(returns) == 0 {
		return "None"
	}

	found := ""
	for _, ret := range returns {
		typ := "None"
		if value := cst.Code(ret); len(value) > 0 {
			typ = exprType(doc, value[0], known, vars)
		}
		if typ == "" || (found != "" && typ != found) {
			return ""
		}
		found = typ
	}
	return found
}

func exprType(doc *cst.Document, n *sitter.Node, known map[string]bool, vars map[string]string) string {
	switch n.Kind() {
	case "none":
		return "None"
	case "true", "false":
		return "bool"
	case "integer":
		return "int"
	case "float":
		return "float"
	case "string":
		if _, ok := doc.StringLiteral(n); ok {
			return "str"
		}
	case "call":
		return callType(doc, n, known)
	case "identifier":
		return vars[doc.Text(n)]
	}
	return ""
}

// callType infers Name(...) and module.Name(...) calls of known,
// capitalized names.
func callType(doc *cst.Document, n *sitter.Node, known map[string]bool) string {
	if n.Kind() != "call" {
		return ""
	}
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	var name string
	switch fn.Kind() {
	case "identifier":
		name = doc.Text(fn)
	case "attribute":
		name = doc.Text(fn.ChildByFieldName("attribute"))
	default:
		return ""
	}
	if !known[name] || !startsUpper(name) {
		return ""
	}
	return name
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

// isStub reports whether the body holds nothing but a docstring and "...".
func isStub(fn *sitter.Node) bool {
	stmts := cst.Code(cst.Body(fn))
	if len(stmts) > 0 && cst.IsDocstring(stmts[0]) {
		stmts = stmts[1:]
	}
	for _, s := range stmts {
		inner := cst.Code(s)
		if s.Kind() != "expression_statement" || len(inner) != 1 || inner[0].Kind() != "ellipsis" {
			return false
		}
	}
	return len(stmts) > 0
}

func hasFutureAnnotations(doc *cst.Document) bool {
	for _, it := range doc.ModuleSuite().Items {
		if it.Node.Kind() != "future_import_statement" {
			continue
		}
		for _, c := range cst.Code(it.Node) {
			if doc.Text(c) == "annotations" {
				return true
			}
		}
	}
	return false
}
