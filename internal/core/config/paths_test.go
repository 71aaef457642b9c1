package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePaths(t *testing.T) {
	t.Run("DetectedRoot", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, "pyproject.toml"), nil, 0o644))
		sub := filepath.Join(root, "pkg", "inner")
		require.NoError(t, os.MkdirAll(sub, 0o755))

		cfg := Default()
		cfg.Paths = []string{"src", "tests"}
		got, err := ResolvePaths(cfg, sub)
		require.NoError(t, err)
		assert.Equal(t, filepath.Clean(root), got.ProjectRoot)
		assert.Equal(t, []string{filepath.Join(root, "src"), filepath.Join(root, "tests")}, got.Targets)
		assert.Equal(t, filepath.Join(root, ".pyshape", "cache.db"), got.CachePath)
	})
	t.Run("AbsoluteOverrides", func(t *testing.T) {
		root := t.TempDir()
		cache := filepath.Join(root, "elsewhere", "c.db")
		cfg := Default()
		cfg.Root = root
		cfg.Cache.Path = cache
		got, err := ResolvePaths(cfg, "/")
		require.NoError(t, err)
		assert.Equal(t, filepath.Clean(root), got.ProjectRoot)
		assert.Equal(t, cache, got.CachePath)
	})
	t.Run("EmptyCwd", func(t *testing.T) {
		_, err := ResolvePaths(Default(), " ")
		assert.Error(t, err)
	})
}

func TestFind(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	assert.Empty(t, Find(sub))

	path := writeConfig(t, root, "")
	assert.Equal(t, path, Find(sub))
}
