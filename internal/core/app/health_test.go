package app

import (
	"context"
	"testing"

	"pyshape/internal/data/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck(t *testing.T) {
	t.Run("BeforeAnyRun", func(t *testing.T) {
		a := newApp(t, ModeCheck, cache.NewMemory())
		status := NewHealthService(a).Check(context.Background())
		assert.Equal(t, "up", status.Status)
		assert.Equal(t, "none", status.Components["last_run"])
		assert.Equal(t, "ok", status.Components["cache"])
		assert.Equal(t, "check", status.Components["mode"])
	})

	t.Run("WithoutCache", func(t *testing.T) {
		a := newApp(t, ModeWrite, nil)
		status := NewHealthService(a).Check(context.Background())
		assert.Equal(t, "disabled", status.Components["cache"])
	})

	t.Run("DegradedAfterFailure", func(t *testing.T) {
		root := writeTree(t, map[string]string{"a.py": messy})
		a := newApp(t, ModeCheck, nil)
		a.SetEngine(failingEngine{})
		files, err := a.Discover([]string{root})
		require.NoError(t, err)
		_, err = a.Run(context.Background(), files, nil)
		require.NoError(t, err)

		status := NewHealthService(a).Check(context.Background())
		assert.Equal(t, "degraded", status.Status)
		assert.Contains(t, status.Components["last_run"], "1 failed")
	})
}
