package annotate

import (
	"pyshape/internal/engine/cst"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

var attrsDecorators = map[string]bool{
	"attrs.define": true,
	"attrs.frozen": true,
	"attr.s":       true,
}

// FixAttrs makes @attrs.define, @attrs.frozen and @attr.s classes keyword
// only. A bare decorator gains "(kw_only=True)", a call without kw_only gains
// the keyword, and kw_only=False flips to True.
func FixAttrs(src []byte) ([]byte, error) {
	return cst.Rewrite(src, func(doc *cst.Document) []cst.Edit {
		var edits []cst.Edit
		cst.Walk(doc.Root, func(n *sitter.Node) bool {
			if n.Kind() != "decorator" || !attrsDecorators[doc.DecoratorName(n)] {
				return true
			}
			if e, ok := kwOnly(doc, cst.Code(n)[0]); ok {
				edits = append(edits, e)
			}
			return false
		})
		return edits
	})
}

func kwOnly(doc *cst.Document, expr *sitter.Node) (cst.Edit, bool) {
	if expr.Kind() != "call" {
		return cst.Insert(cst.End(expr), "(kw_only=True)"), true
	}
	args := expr.ChildByFieldName("arguments")
	if args == nil || args.Kind() != "argument_list" {
		return cst.Edit{}, false
	}

	var last *sitter.Node
	for _, arg := range cst.Code(args) {
		last = arg
		if arg.Kind() != "keyword_argument" || doc.Text(arg.ChildByFieldName("name")) != "kw_only" {
			continue
		}
		value := arg.ChildByFieldName("value")
		if value != nil && value.Kind() == "false" {
			return cst.Replace(cst.Start(value), cst.End(value), "True"), true
		}
		return cst.Edit{}, false
	}
	if last == nil {
		return cst.Insert(cst.End(args)-1, "kw_only=True"), true
	}

	// A trailing comma keeps its place at the end of the list.
	for c := last.NextSibling(); c != nil; c = c.NextSibling() {
		if c.Kind() == "," {
			return cst.Insert(cst.End(c), " kw_only=True,"), true
		}
	}
	return cst.Insert(cst.End(last), ", kw_only=True"), true
}
