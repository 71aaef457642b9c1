package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter(t *testing.T) {
	f, err := NewFilter([]string{".venv*", "__pycache__"}, []string{"*_pb2.py", "conftest.py"})
	require.NoError(t, err)

	assert.True(t, f.SkipDir("/repo/.venv311"))
	assert.True(t, f.SkipDir("/repo/pkg/__pycache__"))
	assert.False(t, f.SkipDir("/repo/pkg"))

	assert.True(t, f.Accept("/repo/pkg/mod.py"))
	assert.True(t, f.Accept("/repo/pkg/MOD.PY"))
	assert.False(t, f.Accept("/repo/pkg/mod.pyi"))
	assert.False(t, f.Accept("/repo/pkg/api_pb2.py"))
	assert.False(t, f.Accept("/repo/conftest.py"))
}

func TestNewFilterRejectsBadPattern(t *testing.T) {
	_, err := NewFilter(nil, []string{"[unclosed"})
	assert.Error(t, err)
}

func TestHasWildcard(t *testing.T) {
	assert.True(t, HasWildcard("*.py"))
	assert.False(t, HasWildcard("conftest.py"))
}
