package relocate

import (
	"strings"

	"pyshape/internal/engine/cst"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// typingModules hold the generic typing facility. Their names always stay at
// module scope.
var typingModules = map[string]bool{
	"typing":            true,
	"typing_extensions": true,
}

const guardSymbol = "TYPE_CHECKING"

// Binding is the origin of one imported local name. An empty Module marks a
// whole-module import that must never be relocated.
type Binding struct {
	LocalName string
	Module    string
	Symbol    string
	Alias     string
	Pinned    bool
}

// ImportName is one alias of a from-import statement.
type ImportName struct {
	Node   *sitter.Node
	Symbol string
	Alias  string
}

func (n ImportName) Local() string {
	if n.Alias != "" {
		return n.Alias
	}
	return n.Symbol
}

func (n ImportName) String() string {
	if n.Alias != "" {
		return n.Symbol + " as " + n.Alias
	}
	return n.Symbol
}

// ImportStmt is a module-level "from m import ..." statement eligible for
// rewriting.
type ImportStmt struct {
	Node   *sitter.Node
	Item   *cst.Item
	Module string
	Names  []ImportName
}

// pair identifies an imported name by origin module and its rendered
// "Symbol [as Alias]" form.
type pair struct {
	Module string
	Name   string
}

func (b *Binding) pair() pair {
	return pair{b.Module, ImportName{Symbol: b.Symbol, Alias: b.Alias}.String()}
}

// Index is the request-scoped import table of one module.
type Index struct {
	Bindings   map[string]*Binding
	Statements []*ImportStmt
	Guards     []*sitter.Node
	GuardPairs map[pair]bool
	Suite      *cst.Suite
}

// BuildIndex scans the module-level import statements of doc. Imports inside
// an existing TYPE_CHECKING block are recorded as guard contents only.
func BuildIndex(doc *cst.Document) *Index {
	idx := &Index{
		Bindings:   make(map[string]*Binding),
		GuardPairs: make(map[pair]bool),
		Suite:      doc.ModuleSuite(),
	}
	for _, item := range idx.Suite.Items {
		for _, node := range item.Nodes() {
			switch node.Kind() {
			case "import_statement":
				idx.indexPlainImport(doc, node)
			case "import_from_statement":
				stmt := parseFromImport(doc, node)
				if stmt == nil {
					continue
				}
				stmt.Item = item
				idx.Statements = append(idx.Statements, stmt)
				for _, name := range stmt.Names {
					idx.Bindings[name.Local()] = &Binding{
						LocalName: name.Local(),
						Module:    stmt.Module,
						Symbol:    name.Symbol,
						Alias:     name.Alias,
						Pinned:    typingModules[stmt.Module],
					}
				}
			case "if_statement":
				if doc.IsTypeCheckingGuard(node) {
					idx.Guards = append(idx.Guards, node)
					idx.collectGuardPairs(doc, node)
				}
			}
		}
	}
	return idx
}

// HasGuardSymbol reports whether TYPE_CHECKING is imported at module level.
func (idx *Index) HasGuardSymbol() bool {
	b, ok := idx.Bindings[guardSymbol]
	return ok && typingModules[b.Module]
}

func (idx *Index) indexPlainImport(doc *cst.Document, node *sitter.Node) {
	for _, name := range cst.Code(node) {
		var local string
		switch name.Kind() {
		case "dotted_name":
			local = strings.SplitN(compact(doc.Text(name)), ".", 2)[0]
		case "aliased_import":
			local = doc.Text(name.ChildByFieldName("alias"))
		default:
			continue
		}
		if local == "" {
			continue
		}
		idx.Bindings[local] = &Binding{LocalName: local, Pinned: true}
	}
}

func (idx *Index) collectGuardPairs(doc *cst.Document, guard *sitter.Node) {
	cst.Walk(cst.Body(guard), func(n *sitter.Node) bool {
		if n.Kind() != "import_from_statement" {
			return true
		}
		if stmt := parseFromImport(doc, n); stmt != nil {
			for _, name := range stmt.Names {
				idx.GuardPairs[pair{stmt.Module, name.String()}] = true
			}
		}
		return false
	})
}

// parseFromImport returns nil for star imports.
func parseFromImport(doc *cst.Document, node *sitter.Node) *ImportStmt {
	moduleNode := node.ChildByFieldName("module_name")
	if moduleNode == nil {
		return nil
	}
	stmt := &ImportStmt{Node: node, Module: compact(doc.Text(moduleNode))}
	for _, child := range cst.Code(node) {
		if cst.Same(child, moduleNode) {
			continue
		}
		switch child.Kind() {
		case "wildcard_import":
			return nil
		case "dotted_name":
			stmt.Names = append(stmt.Names, ImportName{Node: child, Symbol: compact(doc.Text(child))})
		case "aliased_import":
			stmt.Names = append(stmt.Names, ImportName{
				Node:   child,
				Symbol: compact(doc.Text(child.ChildByFieldName("name"))),
				Alias:  doc.Text(child.ChildByFieldName("alias")),
			})
		}
	}
	if len(stmt.Names) == 0 {
		return nil
	}
	return stmt
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}
