// Package order holds the structural reordering passes. Every pass parses
// the module, plans a permutation of statement units and serializes it as
// byte-range edits, so text outside the moved statements is untouched.
package order

import (
	"pyshape/internal/engine/cst"
)

// Pass is one reordering transform over a whole module.
type Pass func(src []byte) ([]byte, error)

// transform runs plan over the parsed src.
func transform(src []byte, plan func(doc *cst.Document) []cst.Edit) ([]byte, error) {
	return cst.Rewrite(src, plan)
}

// topClasses returns the class suites directly under the module.
func topClasses(doc *cst.Document) []*cst.Suite {
	var out []*cst.Suite
	for _, it := range doc.ModuleSuite().Items {
		if !cst.IsClass(it.Node) || len(it.Tail) > 0 {
			continue
		}
		if suite := doc.BodySuite(it.Node); suite != nil && !suite.Inline && len(suite.Items) > 0 {
			out = append(out, suite)
		}
	}
	return out
}

func isImport(it *cst.Item) bool {
	switch it.Node.Kind() {
	case "import_statement", "import_from_statement":
		return true
	}
	return false
}

func isFutureImport(it *cst.Item) bool {
	return it.Node.Kind() == "future_import_statement"
}
