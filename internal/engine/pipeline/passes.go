package pipeline

import (
	"pyshape/internal/engine/annotate"
	"pyshape/internal/engine/order"
	"pyshape/internal/engine/relocate"
)

// Kind tells built-in passes from external commands.
type Kind int

const (
	Builtin Kind = iota
	External
)

func (k Kind) String() string {
	if k == External {
		return "external"
	}
	return "builtin"
}

// Pass is one entry of the fixed pass sequence.
type Pass struct {
	Key         string
	Kind        Kind
	Description string
	// OptIn passes only run when named in the options.
	OptIn bool

	run func(src []byte) ([]byte, error)
}

// sequence lists every pass in the order they run.
var sequence = []Pass{
	{Key: "remove-unused", Kind: External, Description: "prune unused imports"},
	{Key: "add-future-annotations", run: annotate.FutureAnnotations, OptIn: true, Description: "add from __future__ import annotations"},
	{Key: "unquote-annotations", run: annotate.UnquoteAnnotations, OptIn: true, Description: "turn string annotations into expressions"},
	{Key: "add-return-types", run: annotate.ReturnTypes, OptIn: true, Description: "annotate obvious return types"},
	{Key: "fix-attrs", run: annotate.FixAttrs, OptIn: true, Description: "make attrs classes keyword-only"},
	{Key: "relocate-imports", run: relocate.Relocate, Description: "move imports to where they are used"},
	{Key: "sort-imports", Kind: External, Description: "sort import statements"},
	{Key: "order-module-docstring", run: order.ModuleDocstring, Description: "put the module docstring first"},
	{Key: "order-type-checking-block", run: order.TypeCheckingBlock, Description: "place TYPE_CHECKING blocks after the imports"},
	{Key: "order-module-metadata", run: order.ModuleMetadata, Description: "group and sort __all__, __version__ and friends"},
	{Key: "order-constants", run: order.Constants, Description: "sort constant blocks marked with # " + order.ConstantsMarker},
	{Key: "order-iterable-items", run: order.IterableItems, Description: "sort literal elements marked with # " + order.ItemsMarker},
	{Key: "order-class-docstring", run: order.ClassDocstring, Description: "put class docstrings first"},
	{Key: "order-class-attributes", run: order.ClassAttributes, Description: "sort class attribute runs"},
	{Key: "order-class-methods", run: order.ClassMethods, Description: "order methods by kind, visibility and name"},
	{Key: "order-module-functions", run: order.ModuleFunctions, Description: "sort module-level functions"},
	{Key: "order-module-classes", run: order.ModuleClasses, Description: "sort module-level classes"},
	{Key: "order-main-guard", run: order.MainGuard, Description: "move the __main__ guard to the end"},
	{Key: "modernize-typing", Kind: External, Description: "rewrite legacy typing constructs"},
	{Key: "fstringify", Kind: External, Description: "convert string formatting to f-strings"},
	{Key: "format", Kind: External, Description: "reformat the whole file"},
	{Key: "fix-blank-lines", run: order.BlankLines, Description: "cap and fill blank lines at structural anchors"},
}

var byKey = func() map[string]Pass {
	m := make(map[string]Pass, len(sequence))
	for _, p := range sequence {
		m[p.Key] = p
	}
	return m
}()

// Passes returns the pass sequence.
func Passes() []Pass {
	return append([]Pass(nil), sequence...)
}

// Lookup returns the pass registered under key, accepting snake_case.
func Lookup(key string) (Pass, bool) {
	p, ok := byKey[Normalize(key)]
	return p, ok
}
