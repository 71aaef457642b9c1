package helpers

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniqueScanRoots(t *testing.T) {
	root := t.TempDir()
	got := UniqueScanRoots([]string{filepath.Join(root, "b"), filepath.Join(root, "a", ".."), root, filepath.Join(root, "b") + "/"})
	assert.Equal(t, []string{root, filepath.Join(root, "b")}, got)
}

func TestFindContainingRoot(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")

	got, err := FindContainingRoot(filepath.Join(src, "pkg", "mod.py"), []string{filepath.Join(root, "tests"), src})
	require.NoError(t, err)
	assert.Equal(t, src, got)

	_, err = FindContainingRoot(filepath.Join(root, "srcx", "mod.py"), []string{src})
	assert.Error(t, err)
}

func TestDisplayPath(t *testing.T) {
	assert.Equal(t, filepath.Join("pkg", "mod.py"), DisplayPath("/repo/pkg/mod.py", "/repo"))
	assert.Equal(t, "/other/mod.py", DisplayPath("/other/mod.py", "/repo"))
	assert.Equal(t, "/repo/mod.py", DisplayPath("/repo/mod.py", ""))
}
