package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"pyshape/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *SQLiteCache {
	t.Helper()
	c, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCaches(t *testing.T) {
	impls := map[string]func(t *testing.T) ports.CleanCache{
		"sqlite": func(t *testing.T) ports.CleanCache { return newTestCache(t) },
		"memory": func(t *testing.T) ports.CleanCache { return NewMemory() },
	}
	fp := Fingerprint([]string{"relocate-imports"}, nil)

	for name, open := range impls {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := open(t)
			key := Key("/src/a.py", []byte("x = 1\n"), fp)

			hit, err := c.Lookup(ctx, key)
			require.NoError(t, err)
			assert.False(t, hit)

			require.NoError(t, c.Record(ctx, key, ports.CacheEntry{RunID: "r1", Options: []string{"relocate-imports"}}))
			hit, err = c.Lookup(ctx, key)
			require.NoError(t, err)
			assert.True(t, hit)

			edited := Key("/src/a.py", []byte("x = 2\n"), fp)
			hit, err = c.Lookup(ctx, edited)
			require.NoError(t, err)
			assert.False(t, hit, "a content change is a miss")

			other := Key("/src/a.py", []byte("x = 1\n"), Fingerprint([]string{"fix-blank-lines"}, nil))
			hit, err = c.Lookup(ctx, other)
			require.NoError(t, err)
			assert.False(t, hit, "another option set is a miss")

			require.NoError(t, c.Record(ctx, edited, ports.CacheEntry{RunID: "r2"}))
			hit, err = c.Lookup(ctx, key)
			require.NoError(t, err)
			assert.False(t, hit, "the newer content replaces the old row")

			n, err := c.Clear(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)
			hit, err = c.Lookup(ctx, edited)
			require.NoError(t, err)
			assert.False(t, hit)
		})
	}
}

func TestSQLiteCachePersistsAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	key := Key("/src/a.py", []byte("pass\n"), "fp")

	c, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, c.Record(context.Background(), key, ports.CacheEntry{}))
	require.NoError(t, c.Close())

	c, err = OpenSQLite(path)
	require.NoError(t, err)
	defer c.Close()
	hit, err := c.Lookup(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestSQLiteCachePrune(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, c.Record(ctx, Key("/a.py", nil, "fp"), ports.CacheEntry{CheckedAt: old}))
	require.NoError(t, c.Record(ctx, Key("/b.py", nil, "fp"), ports.CacheEntry{}))

	n, err := c.Prune(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	hit, err := c.Lookup(ctx, Key("/b.py", nil, "fp"))
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestOpenSQLiteRejectsBadPaths(t *testing.T) {
	_, err := OpenSQLite(" ")
	assert.Error(t, err)
	_, err = OpenSQLite(t.TempDir())
	assert.Error(t, err)
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]string{"format", "relocate-imports"}, map[string][]string{"format": {"ruff", "format", "-"}})
	b := Fingerprint([]string{"relocate-imports", "format"}, map[string][]string{"format": {"ruff", "format", "-"}})
	c := Fingerprint([]string{"relocate-imports", "format"}, map[string][]string{"format": {"black", "-"}})
	assert.Equal(t, a, b, "option order does not matter")
	assert.NotEqual(t, a, c, "the bound command matters")
}
