// Package enginetest runs txtar fixtures against engine transforms.
//
// A fixture holds an "input.py" section and, when the transform changes it,
// a "want.py" section. A fixture without "want.py" expects the input back
// byte-identical.
package enginetest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"
)

// Transform is any source-to-source rewrite under test.
type Transform func(src []byte) ([]byte, error)

type Fixture struct {
	Name  string
	Input []byte
	Want  []byte
}

// Load reads every *.txtar archive under dir.
func Load(t *testing.T, dir string) []Fixture {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join(dir, "*.txtar"))
	require.NoError(t, err)
	require.NotEmpty(t, paths, "no fixtures in %s", dir)

	var out []Fixture
	for _, path := range paths {
		ar, err := txtar.ParseFile(path)
		require.NoError(t, err)
		fx := Fixture{Name: filepath.Base(path[:len(path)-len(".txtar")])}
		for _, f := range ar.Files {
			switch f.Name {
			case "input.py":
				fx.Input = f.Data
			case "want.py":
				fx.Want = f.Data
			}
		}
		require.NotNil(t, fx.Input, "%s: missing input.py", path)
		if fx.Want == nil {
			fx.Want = fx.Input
		}
		out = append(out, fx)
	}
	return out
}

// Run applies fn to every fixture in dir, then applies it again to the
// result and expects no further change.
func Run(t *testing.T, dir string, fn Transform) {
	t.Helper()
	for _, fx := range Load(t, dir) {
		t.Run(fx.Name, func(t *testing.T) {
			Check(t, fn, string(fx.Input), string(fx.Want))
		})
	}
}

// Check asserts fn(input) == want and fn(want) == want.
func Check(t *testing.T, fn Transform, input, want string) {
	t.Helper()
	got, err := fn([]byte(input))
	require.NoError(t, err)
	require.Equal(t, want, string(got))

	again, err := fn(got)
	require.NoError(t, err)
	require.Equal(t, string(got), string(again), "second run changed the output")
}
