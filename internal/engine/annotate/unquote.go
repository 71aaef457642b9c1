package annotate

import (
	"strings"

	"pyshape/internal/engine/cst"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// UnquoteAnnotations turns string annotations of parameters, returns,
// variables and type aliases back into expressions. Strings that do not hold
// a single one-line expression are kept.
func UnquoteAnnotations(src []byte) ([]byte, error) {
	return cst.Rewrite(src, func(doc *cst.Document) []cst.Edit {
		var edits []cst.Edit
		cst.Walk(doc.Root, func(n *sitter.Node) bool {
			var ann *sitter.Node
			switch n.Kind() {
			case "typed_parameter", "typed_default_parameter", "assignment":
				ann = n.ChildByFieldName("type")
			case "function_definition":
				ann = n.ChildByFieldName("return_type")
			case "type_alias_statement":
				ann = n.ChildByFieldName("right")
			}
			if e, ok := unquote(doc, ann); ok {
				edits = append(edits, e)
			}
			return true
		})
		return edits
	})
}

func unquote(doc *cst.Document, ann *sitter.Node) (cst.Edit, bool) {
	str := quoted(ann)
	if str == nil {
		return cst.Edit{}, false
	}
	text, ok := doc.StringLiteral(str)
	if !ok {
		return cst.Edit{}, false
	}
	text = strings.TrimSpace(text)
	if text == "" || strings.ContainsAny(text, "\r\n\\") {
		return cst.Edit{}, false
	}
	sub, _, err := cst.ParseExpression(text)
	if err != nil {
		return cst.Edit{}, false
	}
	sub.Close()
	return cst.Replace(cst.Start(str), cst.End(str), text), true
}

// quoted returns the string literal an annotation consists of, or nil.
func quoted(ann *sitter.Node) *sitter.Node {
	if ann == nil {
		return nil
	}
	if ann.Kind() == "type" {
		inner := cst.Code(ann)
		if len(inner) != 1 {
			return nil
		}
		ann = inner[0]
	}
	if ann.Kind() != "string" {
		return nil
	}
	return ann
}
