package util

import (
	"golang.org/x/text/cases"
)

// Fold returns the case-folded form of s, used for case-insensitive sort keys.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// FoldLess orders a and b by folded form, falling back to byte order so the
// result is total.
func FoldLess(a, b string) bool {
	fa, fb := Fold(a), Fold(b)
	if fa != fb {
		return fa < fb
	}
	return a < b
}
