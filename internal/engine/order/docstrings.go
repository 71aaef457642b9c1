package order

import (
	"strings"

	"pyshape/internal/engine/cst"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

var compoundKinds = map[string]bool{
	"function_definition":  true,
	"class_definition":     true,
	"decorated_definition": true,
	"if_statement":         true,
	"for_statement":        true,
	"while_statement":      true,
	"try_statement":        true,
	"with_statement":       true,
	"match_statement":      true,
}

// ModuleDocstring moves the module docstring to the top of the module, below
// any header comments, and normalizes its quotes.
func ModuleDocstring(src []byte) ([]byte, error) {
	return transform(src, func(doc *cst.Document) []cst.Edit {
		return placeDocstring(doc, doc.ModuleSuite())
	})
}

// ClassDocstring does the same for the body of every top-level class.
func ClassDocstring(src []byte) ([]byte, error) {
	return transform(src, func(doc *cst.Document) []cst.Edit {
		var edits []cst.Edit
		for _, suite := range topClasses(doc) {
			edits = append(edits, placeDocstring(doc, suite)...)
		}
		return edits
	})
}

func placeDocstring(doc *cst.Document, suite *cst.Suite) []cst.Edit {
	at := findDocstring(suite)
	if at < 0 {
		return nil
	}
	it := suite.Items[at]
	str := cst.Code(it.Node)[0]
	quoted, changed := normalizeQuotes(doc, str)

	if at == 0 {
		if !changed {
			return nil
		}
		return []cst.Edit{cst.Replace(cst.Start(str), cst.End(str), quoted)}
	}

	units := unitsOf(doc, suite)
	// Comments above the first statement are a header and stay on top.
	units[0].split = suite.Items[0].Start
	if changed {
		d := units[at]
		d.body = doc.Slice(d.split, cst.Start(str)) + quoted + doc.Slice(cst.End(str), it.End)
	}
	return permute(doc, units, gather(len(units), []int{at}, func([]int) int { return 0 }))
}

// findDocstring returns the index of the first bare string statement among
// the leading simple statements of suite, or -1.
func findDocstring(suite *cst.Suite) int {
	for i, it := range suite.Items {
		if compoundKinds[it.Node.Kind()] {
			return -1
		}
		if len(it.Tail) == 0 && cst.IsDocstring(it.Node) {
			return i
		}
	}
	return -1
}

// normalizeQuotes rewrites a single-quoted string literal with double quotes
// when the content allows it. Byte strings and f-strings are left alone.
func normalizeQuotes(doc *cst.Document, str *sitter.Node) (string, bool) {
	if str.Kind() != "string" {
		return "", false
	}
	var head, tail *sitter.Node
	for _, c := range cst.Children(str) {
		switch c.Kind() {
		case "string_start":
			head = c
		case "string_end":
			tail = c
		case "interpolation":
			return "", false
		}
	}
	if head == nil || tail == nil {
		return "", false
	}
	start := doc.Text(head)
	quote := strings.TrimLeft(start, "rRuUbBfF")
	prefix := start[:len(start)-len(quote)]
	if strings.ContainsAny(prefix, "bBfF") {
		return "", false
	}
	content := doc.Slice(cst.End(head), cst.Start(tail))
	switch quote {
	case "'''":
		if strings.Contains(content, `"""`) || strings.HasSuffix(content, `"`) {
			return "", false
		}
		return prefix + `"""` + content + `"""`, true
	case "'":
		if strings.Contains(content, `"`) {
			return "", false
		}
		return prefix + `"` + content + `"`, true
	}
	return "", false
}
