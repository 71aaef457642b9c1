package order

import (
	"path/filepath"
	"testing"

	"pyshape/internal/core/errors"
	"pyshape/internal/engine/cst"
	"pyshape/internal/engine/enginetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassFixtures(t *testing.T) {
	passes := map[string]Pass{
		"methods":          ClassMethods,
		"attributes":       ClassAttributes,
		"functions":        ModuleFunctions,
		"classes":          ModuleClasses,
		"constants":        Constants,
		"iterables":        IterableItems,
		"metadata":         ModuleMetadata,
		"type_checking":    TypeCheckingBlock,
		"main_guard":       MainGuard,
		"module_docstring": ModuleDocstring,
		"class_docstring":  ClassDocstring,
		"blank_lines":      BlankLines,
	}
	for dir, pass := range passes {
		t.Run(dir, func(t *testing.T) {
			enginetest.Run(t, filepath.Join("testdata", dir), enginetest.Transform(pass))
		})
	}
}

func TestParseFailureIsReturnedUnchanged(t *testing.T) {
	src := []byte("class A:\n    def f(:\n")
	for name, pass := range map[string]Pass{"methods": ClassMethods, "spacing": BlankLines} {
		t.Run(name, func(t *testing.T) {
			got, err := pass(src)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeParseFailed))
			assert.Equal(t, src, got)
		})
	}
}

func TestMissingFinalNewline(t *testing.T) {
	enginetest.Check(t, MainGuard,
		"if __name__ == \"__main__\":\n    run()\nx = 1",
		"x = 1\nif __name__ == \"__main__\":\n    run()")
}

func TestCRLFIsKept(t *testing.T) {
	enginetest.Check(t, ModuleClasses,
		"class B:\r\n    pass\r\n\r\n\r\nclass A:\r\n    pass\r\n",
		"class A:\r\n    pass\r\n\r\n\r\nclass B:\r\n    pass\r\n")
}

func TestSortKeyLess(t *testing.T) {
	tests := []struct {
		name string
		a, b sortKey
		want bool
	}{
		{"RankFirst", nameKey(0, "zeta"), nameKey(1, "alpha"), true},
		{"PublicBeforePrivate", nameKey(1, "zeta"), nameKey(1, "_alpha"), true},
		{"CaseFolded", nameKey(1, "alpha"), nameKey(1, "Beta"), true},
		{"UnderscoresIgnored", nameKey(1, "_b"), nameKey(1, "__c"), true},
		{"DunderIsPublic", nameKey(0, "__init__"), nameKey(0, "_x"), true},
		{"Equal", nameKey(1, "a"), nameKey(1, "A"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.less(tt.b))
		})
	}
}

func TestGather(t *testing.T) {
	t.Run("InsertBeforeKept", func(t *testing.T) {
		order := gather(5, []int{3, 1}, func(kept []int) int { return 1 })
		assert.Equal(t, []int{0, 3, 1, 2, 4}, order)
	})
	t.Run("ClampsToEnd", func(t *testing.T) {
		order := gather(3, []int{0}, func(kept []int) int { return 99 })
		assert.Equal(t, []int{1, 2, 0}, order)
	})
	t.Run("Identity", func(t *testing.T) {
		assert.True(t, identity(gather(3, []int{1}, func([]int) int { return 1 })))
	})
}

func parse(t *testing.T, src string) *cst.Document {
	t.Helper()
	doc, err := cst.Parse([]byte(src))
	require.NoError(t, err)
	t.Cleanup(doc.Close)
	return doc
}

func TestIsMainGuard(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"if __name__ == \"__main__\":\n    pass\n", true},
		{"if __name__ == '__main__':\n    pass\n", true},
		{"if __name__ != \"__main__\":\n    pass\n", false},
		{"if name == \"__main__\":\n    pass\n", false},
		{"if __name__ == \"main\":\n    pass\n", false},
		{"if TYPE_CHECKING:\n    pass\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			doc := parse(t, tt.src)
			assert.Equal(t, tt.want, isMainGuard(doc, doc.ModuleSuite().Items[0].Node))
		})
	}
}

func TestNormalizeQuotes(t *testing.T) {
	tests := []struct {
		src     string
		want    string
		changed bool
	}{
		{`'doc'`, `"doc"`, true},
		{`'''doc'''`, `"""doc"""`, true},
		{`u'doc'`, `u"doc"`, true},
		{`"doc"`, "", false},
		{`'say "hi"'`, "", false},
		{`'''ends with "'''`, "", false},
		{`b'doc'`, "", false},
		{`f'{x}'`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			doc := parse(t, tt.src+"\n")
			str := cst.Code(doc.ModuleSuite().Items[0].Node)[0]
			got, changed := normalizeQuotes(doc, str)
			assert.Equal(t, tt.changed, changed)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMethodKey(t *testing.T) {
	src := `class A:
    @property
    def size(self): ...
    @size.deleter
    def size(self): ...
    @functools.cached_property
    def total(self): ...
    @abc.abstractmethod
    def run(self): ...
    @staticmethod
    def make(): ...
    def __weird__(self): ...
`
	doc := parse(t, src)
	suite := topClasses(doc)[0]
	key := func(i int) sortKey { return methodKey(doc, suite.Items[i].Node) }

	assert.Equal(t, rankProperty, key(0).rank)
	assert.Equal(t, 0, key(0).sub)
	assert.Equal(t, rankProperty, key(1).rank)
	assert.Equal(t, 2, key(1).sub)
	assert.Equal(t, rankProperty, key(2).rank)
	assert.Equal(t, rankInstance, key(3).rank)
	assert.Equal(t, rankStaticMethod, key(4).rank)
	assert.Equal(t, rankDunder, key(5).rank)
	assert.Equal(t, unknownDunder, key(5).group)
}
