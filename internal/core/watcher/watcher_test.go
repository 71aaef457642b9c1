package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"pyshape/internal/core/config/helpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFilter(t *testing.T) *helpers.Filter {
	t.Helper()
	f, err := helpers.NewFilter([]string{"exclude_dir"}, []string{"*_pb2.py"})
	require.NoError(t, err)
	return f
}

func startWatcher(t *testing.T, dir string) (*Watcher, chan []string) {
	t.Helper()
	changed := make(chan []string, 8)
	w, err := NewWatcher(50*time.Millisecond, newFilter(t), func(paths []string) {
		changed <- paths
	})
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	require.NoError(t, w.Watch([]string{dir}))
	return w, changed
}

func waitFor(t *testing.T, changed chan []string, want string) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case paths := <-changed:
			for _, p := range paths {
				if p == want {
					return
				}
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func expectQuiet(t *testing.T, changed chan []string, wait time.Duration) {
	t.Helper()
	select {
	case paths := <-changed:
		t.Fatalf("unexpected change: %v", paths)
	case <-time.After(wait):
	}
}

func TestNewWatcherRejectsMissingArguments(t *testing.T) {
	w, err := NewWatcher(time.Millisecond, newFilter(t), nil)
	assert.ErrorIs(t, err, os.ErrInvalid)
	assert.Nil(t, w)

	_, err = NewWatcher(time.Millisecond, nil, func([]string) {})
	assert.ErrorIs(t, err, os.ErrInvalid)
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	_, changed := startWatcher(t, dir)

	t.Run("PythonFile", func(t *testing.T) {
		path := filepath.Join(dir, "mod.py")
		require.NoError(t, os.WriteFile(path, []byte("x = 1\n"), 0o644))
		waitFor(t, changed, path)
	})

	t.Run("IgnoredFiles", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "api_pb2.py"), []byte("x = 1\n"), 0o644))
		expectQuiet(t, changed, 300*time.Millisecond)
	})

	t.Run("NewDirectory", func(t *testing.T) {
		sub := filepath.Join(dir, "pkg")
		require.NoError(t, os.MkdirAll(sub, 0o755))
		nested := filepath.Join(sub, "nested.py")
		require.NoError(t, os.WriteFile(nested, []byte("y = 2\n"), 0o644))
		waitFor(t, changed, nested)
	})

	t.Run("ExcludedDirectory", func(t *testing.T) {
		sub := filepath.Join(dir, "exclude_dir")
		require.NoError(t, os.MkdirAll(sub, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(sub, "skip.py"), []byte("z = 3\n"), 0o644))
		expectQuiet(t, changed, 300*time.Millisecond)
	})
}

func TestWatcherRenameTriggersChange(t *testing.T) {
	dir := t.TempDir()
	_, changed := startWatcher(t, dir)

	oldPath := filepath.Join(dir, "old.txt")
	newPath := filepath.Join(dir, "new.py")
	require.NoError(t, os.WriteFile(oldPath, []byte("x = 1\n"), 0o644))
	require.NoError(t, os.Rename(oldPath, newPath))
	waitFor(t, changed, newPath)
}
