package util

import (
	"sort"
	"testing"
)

func TestSortedStringKeys(t *testing.T) {
	t.Parallel()

	m := map[string]int{"b": 2, "a": 1, "c": 3}
	keys := SortedStringKeys(m)
	expected := []string{"a", "b", "c"}
	if len(keys) != len(expected) {
		t.Fatalf("expected %d keys, got %d", len(expected), len(keys))
	}
	for i, key := range expected {
		if keys[i] != key {
			t.Fatalf("expected %q at %d, got %q", key, i, keys[i])
		}
	}

	if got := SortedStringKeys(map[string]bool{}); len(got) != 0 {
		t.Fatalf("expected no keys, got %v", got)
	}
}

func TestFold(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		a, b string
	}{
		{name: "Ascii", a: "Alpha", b: "alpha"},
		{name: "Mixed", a: "MiXeD_Name", b: "mixed_name"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if Fold(tc.a) != Fold(tc.b) {
				t.Fatalf("expected %q and %q to fold equal", tc.a, tc.b)
			}
		})
	}
}

func TestFoldLessIsTotal(t *testing.T) {
	t.Parallel()

	names := []string{"beta", "Alpha", "alpha", "_x", "Beta"}
	sort.SliceStable(names, func(i, j int) bool { return FoldLess(names[i], names[j]) })
	expected := []string{"_x", "Alpha", "alpha", "Beta", "beta"}
	for i := range expected {
		if names[i] != expected[i] {
			t.Fatalf("expected %v, got %v", expected, names)
		}
	}
}
