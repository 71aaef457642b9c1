package order

import (
	"strings"

	"pyshape/internal/engine/cst"
	"pyshape/internal/shared/util"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// dunderGroups lists the special methods in their conventional order.
var dunderGroups = [][]string{
	{"__new__", "__init__"},
	{"__repr__", "__str__"},
	{"__lt__", "__le__", "__eq__", "__ne__", "__gt__", "__ge__", "__hash__"},
	{"__bool__"},
	{"__getattribute__", "__getattr__", "__setattr__", "__delattr__"},
	{"__len__", "__iter__", "__getitem__", "__setitem__", "__delitem__"},
	{"__call__"},
	{"__enter__", "__exit__", "__aenter__", "__aexit__"},
	{"__await__", "__aiter__", "__anext__"},
	{"__get__", "__set__", "__delete__", "__getstate__", "__setstate__"},
}

var dunderRank = func() map[string]int {
	m := make(map[string]int)
	for g, group := range dunderGroups {
		for i, name := range group {
			m[name] = g*100 + i
		}
	}
	return m
}()

const unknownDunder = 1 << 20

const (
	rankDunder = iota
	rankClassMethod
	rankStaticMethod
	rankProperty
	rankInstance
)

var accessorRank = map[string]int{"getter": 0, "setter": 1, "deleter": 2}

// ClassMethods orders the methods of every top-level class: special methods,
// classmethods, staticmethods, properties, then instance methods. Methods
// fill the slots methods held before, so attributes and nested classes keep
// their positions.
func ClassMethods(src []byte) ([]byte, error) {
	return transform(src, func(doc *cst.Document) []cst.Edit {
		var edits []cst.Edit
		for _, suite := range topClasses(doc) {
			units, _ := functionUnits(doc, suite)
			if len(units) < 2 {
				continue
			}
			keys := make([]sortKey, len(units))
			for i, u := range units {
				keys[i] = methodKey(doc, u.first().Node)
			}
			order := keyOrder(keys)
			if identity(order) {
				continue
			}
			edits = append(edits, permute(doc, units, order)...)
		}
		return edits
	})
}

func methodKey(doc *cst.Document, n *sitter.Node) sortKey {
	name := doc.Name(n)
	if base, accessor := propertyAccessor(doc, n); base != "" {
		return sortKey{
			rank:   rankProperty,
			folded: util.Fold(base),
			sub:    accessorRank[accessor],
		}
	}
	switch {
	case hasDecorator(doc, n, "classmethod"):
		return nameKey(rankClassMethod, name)
	case hasDecorator(doc, n, "staticmethod"):
		return nameKey(rankStaticMethod, name)
	case cst.IsDunder(name):
		group, ok := dunderRank[name]
		if !ok {
			group = unknownDunder
		}
		k := nameKey(rankDunder, name)
		k.group = group
		return k
	}
	return nameKey(rankInstance, name)
}

// propertyAccessor returns the property a method belongs to and its role.
func propertyAccessor(doc *cst.Document, n *sitter.Node) (base, accessor string) {
	if hasDecorator(doc, n, "property") || hasDecorator(doc, n, "cached_property") {
		return doc.Name(n), "getter"
	}
	for _, dec := range cst.Decorators(n) {
		name := doc.DecoratorName(dec)
		head, attr, ok := strings.Cut(name, ".")
		if !ok || strings.Contains(attr, ".") {
			continue
		}
		switch attr {
		case "setter", "deleter", "getter":
			return head, attr
		}
	}
	return "", ""
}

// hasDecorator matches "@name" and "@module.name".
func hasDecorator(doc *cst.Document, n *sitter.Node, name string) bool {
	for _, dec := range cst.Decorators(n) {
		full := doc.DecoratorName(dec)
		if full == name || strings.HasSuffix(full, "."+name) {
			return true
		}
	}
	return false
}
