// Package relocate moves module-level imports to the scopes that use them.
// Names used only at call time move into the functions that call them, names
// used only in annotations move under "if TYPE_CHECKING:", and everything
// evaluated at definition time stays where it is.
package relocate

import (
	"log/slog"

	"pyshape/internal/engine/cst"
)

// Relocate runs the relocation stages over src. It returns src itself when
// there is nothing to move.
func Relocate(src []byte) ([]byte, error) {
	doc, err := cst.Parse(src)
	if err != nil {
		return src, err
	}
	defer doc.Close()

	idx := BuildIndex(doc)
	if len(idx.Statements) == 0 {
		return src, nil
	}
	usage := Classify(doc, idx)
	res := Resolve(doc, idx, usage)
	if res.Empty() {
		return src, nil
	}
	slog.Debug("relocation plan",
		"dropped", len(res.drop),
		"guarded", len(res.Guard),
		"functions", len(res.Localize),
		"stripped", len(res.Strip))

	edits := Rewrite(doc, idx, res)
	edits = append(edits, Inject(doc, idx, usage, res)...)
	return cst.Apply(src, edits)
}
