package cst

import (
	"testing"

	"pyshape/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *Document {
	t.Helper()
	doc, err := Parse([]byte(src))
	require.NoError(t, err)
	t.Cleanup(doc.Close)
	return doc
}

func TestParse(t *testing.T) {
	t.Run("SyntaxError", func(t *testing.T) {
		_, err := Parse([]byte("def f(:\n"))
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeParseFailed))
	})

	t.Run("DetectsCRLF", func(t *testing.T) {
		doc := parse(t, "x = 1\r\ny = 2\r\n")
		assert.Equal(t, "\r\n", doc.Newline)
	})

	t.Run("PoolReturnsParsers", func(t *testing.T) {
		parse(t, "x = 1\n")
		assert.Equal(t, 0, defaultPool.Stats())
	})
}

func TestParseExpression(t *testing.T) {
	cases := []struct {
		text string
		ok   bool
	}{
		{text: "Thing", ok: true},
		{text: "dict[str, Thing]", ok: true},
		{text: "x = 1", ok: false},
		{text: "a\nb", ok: false},
		{text: "List[", ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			doc, expr, err := ParseExpression(tc.text)
			if !tc.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer doc.Close()
			assert.Equal(t, tc.text, doc.Text(expr))
		})
	}
}

func TestModuleSuite(t *testing.T) {
	src := "# header\n\nimport os\nx = 1; y = 2\n\n\n# attached\ndef f():\n    pass\n    # trailing\n\nz = 3\n"
	doc := parse(t, src)
	suite := doc.ModuleSuite()
	require.Len(t, suite.Items, 4)

	t.Run("LeadingTrivia", func(t *testing.T) {
		first := suite.Items[0]
		assert.Equal(t, 0, first.LeadStart)
		assert.Equal(t, "# header\n\n", doc.Slice(first.LeadStart, first.Start))
		assert.Equal(t, "import os\n", doc.Slice(first.Start, first.End))
	})

	t.Run("SharedLineTail", func(t *testing.T) {
		it := suite.Items[1]
		require.Len(t, it.Tail, 1)
		assert.Equal(t, "y = 2", doc.Text(it.Tail[0]))
		assert.Equal(t, "x = 1; y = 2\n", doc.Slice(it.Start, it.End))
	})

	t.Run("AttachedComment", func(t *testing.T) {
		it := suite.Items[2]
		assert.Equal(t, "\n\n# attached\n", doc.Slice(it.LeadStart, it.Start))
		assert.Equal(t, "# attached\n", doc.Slice(doc.AttachStart(it), it.Start))
	})

	t.Run("TrailingIndentedComment", func(t *testing.T) {
		it := suite.Items[2]
		assert.Equal(t, "def f():\n    pass\n    # trailing\n", doc.Slice(it.Start, it.End))
	})

	t.Run("Index", func(t *testing.T) {
		assert.Equal(t, 1, suite.Index(suite.Items[1].Tail[0]))
		assert.Equal(t, 3, suite.Index(suite.Items[3].Node))
	})
}

func TestBodySuite(t *testing.T) {
	t.Run("Indented", func(t *testing.T) {
		doc := parse(t, "class A:  # note\n    \"\"\"Doc.\"\"\"\n\n    x = 1\n")
		suite := doc.BodySuite(doc.ModuleSuite().Items[0].Node)
		require.NotNil(t, suite)
		assert.False(t, suite.Inline)
		assert.Equal(t, "    ", suite.Indent)
		require.Len(t, suite.Items, 2)
		assert.True(t, IsDocstring(suite.Items[0].Node))
		assert.Equal(t, "\n", doc.Slice(suite.Items[1].LeadStart, suite.Items[1].Start))
	})

	t.Run("Inline", func(t *testing.T) {
		doc := parse(t, "def f(): return 1\n")
		suite := doc.BodySuite(doc.ModuleSuite().Items[0].Node)
		require.NotNil(t, suite)
		assert.True(t, suite.Inline)
	})

	t.Run("Decorated", func(t *testing.T) {
		doc := parse(t, "@dec\ndef f():\n\tpass\n")
		item := doc.ModuleSuite().Items[0]
		assert.True(t, IsFunction(item.Node))
		assert.Equal(t, "f", doc.Name(item.Node))
		assert.Equal(t, "dec", doc.DecoratorName(Decorators(item.Node)[0]))
		suite := doc.BodySuite(item.Node)
		require.NotNil(t, suite)
		assert.Equal(t, "\t", suite.Indent)
		assert.Equal(t, "\t", doc.IndentUnit())
	})
}

func TestApply(t *testing.T) {
	src := []byte("abcdef")

	t.Run("OrderIndependent", func(t *testing.T) {
		out, err := Apply(src, []Edit{Replace(4, 6, "XY"), Insert(0, ">"), Delete(1, 2)})
		require.NoError(t, err)
		assert.Equal(t, ">acdXY", string(out))
	})

	t.Run("InsertBeforeReplaceAtSameOffset", func(t *testing.T) {
		out, err := Apply(src, []Edit{Replace(2, 3, "C"), Insert(2, "+")})
		require.NoError(t, err)
		assert.Equal(t, "ab+Cdef", string(out))
	})

	t.Run("Overlap", func(t *testing.T) {
		_, err := Apply(src, []Edit{Replace(0, 3, ""), Replace(2, 4, "")})
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeEditConflict))
	})

	t.Run("NoEdits", func(t *testing.T) {
		out, err := Apply(src, nil)
		require.NoError(t, err)
		assert.Equal(t, src, out)
	})
}

func TestNodeHelpers(t *testing.T) {
	doc := parse(t, "X = 'a'\nY: int = b'x'\nZ = W = 1\nv = f'{x}'\n")
	items := doc.ModuleSuite().Items

	t.Run("AssignedName", func(t *testing.T) {
		assert.Equal(t, "X", doc.AssignedName(items[0].Node))
		assert.Equal(t, "Y", doc.AssignedName(items[1].Node))
		assert.Equal(t, "", doc.AssignedName(items[2].Node))
	})

	t.Run("StringLiteral", func(t *testing.T) {
		value, ok := doc.StringLiteral(Assignment(items[0].Node).ChildByFieldName("right"))
		assert.True(t, ok)
		assert.Equal(t, "a", value)
		_, ok = doc.StringLiteral(Assignment(items[1].Node).ChildByFieldName("right"))
		assert.False(t, ok)
		_, ok = doc.StringLiteral(Assignment(items[3].Node).ChildByFieldName("right"))
		assert.False(t, ok)
	})

	t.Run("IsUpper", func(t *testing.T) {
		assert.True(t, IsUpper("MAX_SIZE"))
		assert.True(t, IsUpper("A1"))
		assert.False(t, IsUpper("_1"))
		assert.False(t, IsUpper("Max"))
	})

	t.Run("IsLower", func(t *testing.T) {
		assert.True(t, IsLower("_private_name"))
		assert.True(t, IsLower("x1"))
		assert.False(t, IsLower("__"))
		assert.False(t, IsLower("camelCase"))
	})

	t.Run("IsDunder", func(t *testing.T) {
		assert.True(t, IsDunder("__init__"))
		assert.False(t, IsDunder("__"))
		assert.False(t, IsDunder("_private"))
	})
}
