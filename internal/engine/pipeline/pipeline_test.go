package pipeline

import (
	"context"
	"strings"
	"testing"

	"pyshape/internal/core/errors"
	"pyshape/internal/engine/external"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequence(t *testing.T) {
	var keys []string
	for _, p := range Passes() {
		keys = append(keys, p.Key)
	}
	assert.Equal(t, []string{
		"remove-unused",
		"add-future-annotations",
		"unquote-annotations",
		"add-return-types",
		"fix-attrs",
		"relocate-imports",
		"sort-imports",
		"order-module-docstring",
		"order-type-checking-block",
		"order-module-metadata",
		"order-constants",
		"order-iterable-items",
		"order-class-docstring",
		"order-class-attributes",
		"order-class-methods",
		"order-module-functions",
		"order-module-classes",
		"order-main-guard",
		"modernize-typing",
		"fstringify",
		"format",
		"fix-blank-lines",
	}, keys)
	for _, p := range Passes() {
		assert.Equal(t, p.Kind == Builtin, p.run != nil, p.Key)
		if p.OptIn {
			assert.Equal(t, Builtin, p.Kind, p.Key)
		}
	}
}

func TestResolve(t *testing.T) {
	t.Run("SnakeCaseAlias", func(t *testing.T) {
		enabled, err := Resolve([]string{"order_class_methods", " Fix-Blank-Lines "})
		require.NoError(t, err)
		assert.Equal(t, map[string]bool{"order-class-methods": true, "fix-blank-lines": true}, enabled)
	})
	t.Run("Unknown", func(t *testing.T) {
		_, err := Resolve([]string{"order-everything"})
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeUnknownOption))
	})
}

func TestApply(t *testing.T) {
	t.Run("Relocation", func(t *testing.T) {
		src := "from pkg import Thing\ndef f() -> Thing:\n    return Thing()\n"
		got, err := Apply([]byte(src), "relocate-imports")
		require.NoError(t, err)
		assert.Equal(t, "def f():\n    from pkg import Thing\n    return Thing()\n", string(got))

		_, err = Apply(got, "relocate-imports")
		assert.ErrorIs(t, err, ErrNoChange)
	})

	t.Run("SeveralPasses", func(t *testing.T) {
		src := `if __name__ == "__main__":
    main()
class B:
    def run(self):
        pass
    def __init__(self):
        pass
class A:
    pass
def main():
    pass
`
		want := `class A:
    pass
class B:
    def __init__(self):
        pass
    def run(self):
        pass
def main():
    pass
if __name__ == "__main__":
    main()
`
		options := []string{"order-class-methods", "order_module_classes", "order-main-guard"}
		got, err := Apply([]byte(src), options...)
		require.NoError(t, err)
		assert.Equal(t, want, string(got))

		_, err = Apply(got, options...)
		assert.ErrorIs(t, err, ErrNoChange)
	})

	t.Run("ParseFailureFailsOpen", func(t *testing.T) {
		_, err := Apply([]byte("def f(:\n"), "order-class-methods", "fix-blank-lines")
		assert.ErrorIs(t, err, ErrNoChange)
	})
}

func TestApplyAllBuiltinsIsStable(t *testing.T) {
	src := `"""Records."""
import os
from pkg import Thing
from other import Thing
from typing import List
import attrs
if __name__ == "__main__":
    make([])


def make(items: List[int]):
    return Thing()
@attrs.define
class Record:
    size: int = 0
    NAME = "r"
    path: "str" = ""
    def describe(self):
        """Join the path."""

        return os.path.join(self.path, self.NAME)
    def __init__(self):
        pass
def helper(value: "Record") -> None:
    print(value)
`
	var options []string
	for _, p := range Passes() {
		if p.Kind == Builtin {
			options = append(options, p.Key)
		}
	}

	got, err := Apply([]byte(src), options...)
	require.NoError(t, err)
	out := string(got)
	assert.Contains(t, out, "from __future__ import annotations")
	assert.Contains(t, out, "@attrs.define(kw_only=True)")
	assert.NotContains(t, out, "from pkg import Thing")
	assert.Contains(t, out, `value: Record`)
	assert.Less(t, strings.Index(out, "def make"), strings.Index(out, `if __name__ == "__main__":`))

	_, err = Apply(got, options...)
	assert.ErrorIs(t, err, ErrNoChange, "second run changed:\n%s", out)
}

func TestRunExternal(t *testing.T) {
	ctx := context.Background()
	src := []byte("x = 1\n")

	t.Run("BoundCommandRunsInSequence", func(t *testing.T) {
		var seen []string
		format := func(_ context.Context, path string, in []byte) ([]byte, error) {
			seen = append(seen, path)
			out := append([]byte(nil), in...)
			return append(out, "\n\n\n\ndef f():\n    pass\n"...), nil
		}
		p, err := New(map[string]external.Transform{"format": format})
		require.NoError(t, err)

		res, err := p.Run(ctx, "a.py", src, []string{"format", "fix-blank-lines"})
		require.NoError(t, err)
		assert.True(t, res.Changed)
		assert.Equal(t, "x = 1\n\n\ndef f():\n    pass\n", string(res.Output))
		assert.Equal(t, []string{"format", "fix-blank-lines"}, res.Applied)
		assert.Equal(t, []string{"a.py"}, seen)
	})

	t.Run("InvalidOutputDiscarded", func(t *testing.T) {
		broken := func(context.Context, string, []byte) ([]byte, error) {
			return []byte("def f(:\n"), nil
		}
		p, err := New(map[string]external.Transform{"fstringify": broken})
		require.NoError(t, err)

		res, err := p.Run(ctx, "a.py", src, []string{"fstringify"})
		require.NoError(t, err)
		assert.False(t, res.Changed)
		require.Len(t, res.Skipped, 1)
		assert.Equal(t, "fstringify", res.Skipped[0].Pass)
		assert.True(t, errors.IsCode(res.Skipped[0].Err, errors.CodeParseFailed))
	})

	t.Run("FailingCommandSkipped", func(t *testing.T) {
		failing := func(context.Context, string, []byte) ([]byte, error) {
			return nil, errors.New(errors.CodeFormatterFailed, "boom")
		}
		p, err := New(map[string]external.Transform{"sort_imports": failing})
		require.NoError(t, err)

		res, err := p.Run(ctx, "a.py", src, []string{"sort-imports"})
		require.NoError(t, err)
		assert.Equal(t, src, res.Output)
		require.Len(t, res.Skipped, 1)
		assert.True(t, errors.IsCode(res.Skipped[0].Err, errors.CodeFormatterFailed))
	})

	t.Run("UnboundCommandSkipped", func(t *testing.T) {
		p, err := New(nil)
		require.NoError(t, err)
		res, err := p.Run(ctx, "a.py", src, []string{"format"})
		require.NoError(t, err)
		require.Len(t, res.Skipped, 1)
		assert.True(t, errors.IsCode(res.Skipped[0].Err, errors.CodeNotSupported))
	})

	t.Run("BuiltinCannotBeBound", func(t *testing.T) {
		_, err := New(map[string]external.Transform{"order-main-guard": nil})
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeUnknownOption))
	})

	t.Run("CanceledContext", func(t *testing.T) {
		p, err := New(nil)
		require.NoError(t, err)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err = p.Run(cctx, "a.py", src, []string{"fix-blank-lines"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
