package cst

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

func Children(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	count := n.ChildCount()
	out := make([]*sitter.Node, 0, count)
	for i := uint(0); i < count; i++ {
		out = append(out, n.Child(i))
	}
	return out
}

func NamedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	count := n.NamedChildCount()
	out := make([]*sitter.Node, 0, count)
	for i := uint(0); i < count; i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}

// Code returns the named children of n that are not comments.
func Code(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for _, c := range NamedChildren(n) {
		if c.Kind() != "comment" {
			out = append(out, c)
		}
	}
	return out
}

// Same reports whether a and b are the same node of one tree.
func Same(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Id() == b.Id()
}

// Definition unwraps a decorated_definition to its class or function node.
func Definition(n *sitter.Node) *sitter.Node {
	if n != nil && n.Kind() == "decorated_definition" {
		if def := n.ChildByFieldName("definition"); def != nil {
			return def
		}
	}
	return n
}

// Decorators returns the decorator nodes of a decorated definition.
func Decorators(n *sitter.Node) []*sitter.Node {
	if n == nil || n.Kind() != "decorated_definition" {
		return nil
	}
	var out []*sitter.Node
	for _, c := range NamedChildren(n) {
		if c.Kind() == "decorator" {
			out = append(out, c)
		}
	}
	return out
}

// DecoratorName returns the dotted callee of a decorator, without call
// arguments: "@functools.wraps(f)" yields "functools.wraps".
func (d *Document) DecoratorName(dec *sitter.Node) string {
	exprs := Code(dec)
	if len(exprs) == 0 {
		return ""
	}
	expr := exprs[0]
	if expr.Kind() == "call" {
		expr = expr.ChildByFieldName("function")
	}
	if expr == nil {
		return ""
	}
	switch expr.Kind() {
	case "identifier", "attribute":
		return strings.Join(strings.Fields(d.Text(expr)), "")
	}
	return ""
}

func IsFunction(n *sitter.Node) bool {
	def := Definition(n)
	return def != nil && def.Kind() == "function_definition"
}

func IsClass(n *sitter.Node) bool {
	def := Definition(n)
	return def != nil && def.Kind() == "class_definition"
}

// Name returns the identifier of a (possibly decorated) definition.
func (d *Document) Name(n *sitter.Node) string {
	def := Definition(n)
	if def == nil {
		return ""
	}
	return d.Text(def.ChildByFieldName("name"))
}

// IsDocstring reports whether stmt is a bare string expression statement.
func IsDocstring(stmt *sitter.Node) bool {
	if stmt == nil || stmt.Kind() != "expression_statement" {
		return false
	}
	inner := Code(stmt)
	if len(inner) != 1 {
		return false
	}
	k := inner[0].Kind()
	return k == "string" || k == "concatenated_string"
}

// Assignment returns the assignment node of a simple assignment statement.
func Assignment(stmt *sitter.Node) *sitter.Node {
	if stmt == nil || stmt.Kind() != "expression_statement" {
		return nil
	}
	inner := Code(stmt)
	if len(inner) != 1 || inner[0].Kind() != "assignment" {
		return nil
	}
	return inner[0]
}

// AssignedName returns the single identifier target of stmt, if stmt is
// "name = value", "name: T" or "name: T = value". Chained and tuple targets
// yield "".
func (d *Document) AssignedName(stmt *sitter.Node) string {
	asg := Assignment(stmt)
	if asg == nil {
		return ""
	}
	left := asg.ChildByFieldName("left")
	if left == nil || left.Kind() != "identifier" {
		return ""
	}
	if right := asg.ChildByFieldName("right"); right != nil && right.Kind() == "assignment" {
		return ""
	}
	return d.Text(left)
}

// StringLiteral returns the unquoted body of a plain string node. Prefixed
// bytes or f-strings and strings containing interpolations yield false.
func (d *Document) StringLiteral(n *sitter.Node) (string, bool) {
	if n == nil || n.Kind() != "string" {
		return "", false
	}
	var b strings.Builder
	for _, c := range Children(n) {
		switch c.Kind() {
		case "string_start":
			prefix := strings.ToLower(strings.TrimRight(d.Text(c), `"'`))
			if strings.ContainsAny(prefix, "bf") {
				return "", false
			}
		case "string_content":
			b.WriteString(d.Text(c))
		case "interpolation":
			return "", false
		}
	}
	return b.String(), true
}

// Walk visits n and its named descendants in pre-order. Returning false from
// fn skips the children of the current node.
func Walk(n *sitter.Node, fn func(*sitter.Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range NamedChildren(n) {
		Walk(c, fn)
	}
}

// Body returns the suite node of a definition or compound statement.
func Body(n *sitter.Node) *sitter.Node {
	def := Definition(n)
	if def == nil {
		return nil
	}
	if body := def.ChildByFieldName("body"); body != nil {
		return body
	}
	return def.ChildByFieldName("consequence")
}

// IsUpper mirrors Python's str.isupper: at least one cased character and no
// lowercase ones.
func IsUpper(s string) bool {
	cased := false
	for _, r := range s {
		if strings.ToLower(string(r)) != strings.ToUpper(string(r)) {
			if strings.ToUpper(string(r)) != string(r) {
				return false
			}
			cased = true
		}
	}
	return cased
}

// IsLower mirrors Python's str.islower.
func IsLower(s string) bool {
	cased := false
	for _, r := range s {
		if strings.ToLower(string(r)) != strings.ToUpper(string(r)) {
			if strings.ToLower(string(r)) != string(r) {
				return false
			}
			cased = true
		}
	}
	return cased
}

// IsDunder reports whether name has the __x__ shape.
func IsDunder(name string) bool {
	return len(name) > 4 && strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__")
}

// IsTypeCheckingGuard reports whether n is "if TYPE_CHECKING:" or
// "if <module>.TYPE_CHECKING:".
func (d *Document) IsTypeCheckingGuard(n *sitter.Node) bool {
	if n == nil || n.Kind() != "if_statement" {
		return false
	}
	cond := n.ChildByFieldName("condition")
	if cond == nil {
		return false
	}
	switch cond.Kind() {
	case "identifier":
		return d.Text(cond) == "TYPE_CHECKING"
	case "attribute":
		return d.Text(cond.ChildByFieldName("attribute")) == "TYPE_CHECKING"
	}
	return false
}
