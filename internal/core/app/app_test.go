package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"pyshape/internal/core/config"
	"pyshape/internal/core/errors"
	"pyshape/internal/core/ports"
	"pyshape/internal/data/cache"
	"pyshape/internal/engine/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	messy = "from pkg import Thing\ndef f() -> Thing:\n    return Thing()\n"
	tidy  = "def f():\n    from pkg import Thing\n    return Thing()\n"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func newApp(t *testing.T, mode Mode, clean ports.CleanCache) *App {
	t.Helper()
	cfg := config.Default()
	cfg.Options = []string{"relocate-imports"}
	cfg.Exclude.Files = []string{"*_pb2.py"}
	cfg.Run.Workers = 2
	engine, err := pipeline.New(nil)
	require.NoError(t, err)
	a, err := New(cfg, engine, clean, mode)
	require.NoError(t, err)
	return a
}

type recordingProgress struct {
	mu      sync.Mutex
	total   int
	reports []ports.FileReport
	done    bool
}

func (p *recordingProgress) Start(total int) { p.total = total }

func (p *recordingProgress) File(r ports.FileReport) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports = append(p.reports, r)
}

func (p *recordingProgress) Done() { p.done = true }

func TestDiscover(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.py":                 "",
		"pkg/b.py":             "",
		"pkg/api_pb2.py":       "",
		"pkg/readme.txt":       "",
		".venv/lib/site.py":    "",
		"pkg/__pycache__/c.py": "",
		"scripts/tool_pb2.py":  "",
	})
	a := newApp(t, ModeCheck, nil)

	files, err := a.Discover([]string{root, filepath.Join(root, "pkg"), filepath.Join(root, "scripts", "tool_pb2.py")})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.py"),
		filepath.Join(root, "pkg", "b.py"),
		filepath.Join(root, "scripts", "tool_pb2.py"),
	}, files)

	_, err = a.Discover([]string{filepath.Join(root, "missing")})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeIO))
}

func TestRunWrite(t *testing.T) {
	root := writeTree(t, map[string]string{"messy.py": messy, "tidy.py": tidy})
	a := newApp(t, ModeWrite, cache.NewMemory())
	files, err := a.Discover([]string{root})
	require.NoError(t, err)

	progress := &recordingProgress{}
	summary, err := a.Run(context.Background(), files, progress)
	require.NoError(t, err)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 1, summary.Count(ports.OutcomeChanged))
	assert.Equal(t, 1, summary.Count(ports.OutcomeClean))
	assert.False(t, summary.Failed())
	assert.Equal(t, 2, progress.total)
	assert.Len(t, progress.reports, 2)
	assert.True(t, progress.done)

	got, err := os.ReadFile(filepath.Join(root, "messy.py"))
	require.NoError(t, err)
	assert.Equal(t, tidy, string(got))

	changed := summary.Changed()
	require.Len(t, changed, 1)
	assert.Equal(t, []string{"relocate-imports"}, changed[0].Applied)
	assert.Equal(t, messy, string(changed[0].Before))

	t.Run("SecondRunIsCached", func(t *testing.T) {
		again, err := a.Run(context.Background(), files, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, again.Count(ports.OutcomeCached))
	})

	t.Run("OptionChangeMissesCache", func(t *testing.T) {
		cfg := config.Default()
		cfg.Options = []string{"relocate-imports", "fix-blank-lines"}
		require.NoError(t, a.Reconfigure(cfg))
		again, err := a.Run(context.Background(), files, nil)
		require.NoError(t, err)
		assert.Zero(t, again.Count(ports.OutcomeCached))
	})
}

func TestRunCheckLeavesFiles(t *testing.T) {
	root := writeTree(t, map[string]string{"messy.py": messy})
	clean := cache.NewMemory()
	a := newApp(t, ModeCheck, clean)
	path := filepath.Join(root, "messy.py")

	for i := 0; i < 2; i++ {
		summary, err := a.Run(context.Background(), []string{path}, nil)
		require.NoError(t, err)
		require.Len(t, summary.Reports, 1)
		assert.Equal(t, ports.OutcomeChanged, summary.Reports[0].Outcome, "a dirty file is never cached")
		assert.Equal(t, tidy, string(summary.Reports[0].After))
	}

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, messy, string(got))
}

type failingEngine struct{}

func (failingEngine) Run(context.Context, string, []byte, []string) (*pipeline.Result, error) {
	return nil, errors.New(errors.CodeInternal, "boom")
}

func TestRunReportsFailures(t *testing.T) {
	root := writeTree(t, map[string]string{"a.py": "x = 1\n"})
	cfg := config.Default()
	a, err := New(cfg, failingEngine{}, nil, ModeWrite)
	require.NoError(t, err)

	summary, err := a.Run(context.Background(), []string{filepath.Join(root, "a.py"), filepath.Join(root, "gone.py")}, nil)
	require.NoError(t, err)
	require.Len(t, summary.Reports, 2)
	assert.True(t, summary.Failed())
	assert.Equal(t, 2, summary.Count(ports.OutcomeFailed))
	assert.True(t, errors.IsCode(summary.Reports[0].Err, errors.CodeInternal))
	assert.True(t, errors.IsCode(summary.Reports[1].Err, errors.CodeIO))
}

func TestRunCanceled(t *testing.T) {
	root := writeTree(t, map[string]string{"a.py": messy})
	a := newApp(t, ModeCheck, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := a.Run(ctx, []string{filepath.Join(root, "a.py")}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, summary.Reports)
}

func TestNewRejectsNilEngine(t *testing.T) {
	_, err := New(config.Default(), nil, nil, ModeWrite)
	assert.Error(t, err)
}

func TestWriteFileKeepsMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.py")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o755))

	require.NoError(t, writeFile(path, []byte("new\n")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new\n", string(got))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary file is left behind")
}

func TestWatch(t *testing.T) {
	root := writeTree(t, nil)
	a := newApp(t, ModeWrite, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runs := make(chan *Summary, 4)
	done := make(chan error, 1)
	go func() { done <- a.Watch(ctx, []string{root}, nil, func(s *Summary) { runs <- s }) }()
	time.Sleep(200 * time.Millisecond)

	path := filepath.Join(root, "mod.py")
	require.NoError(t, os.WriteFile(path, []byte(messy), 0o644))

	select {
	case s := <-runs:
		require.Len(t, s.Reports, 1)
		assert.Equal(t, ports.OutcomeChanged, s.Reports[0].Outcome)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for a watch run")
	}

	// The rewrite itself does not trigger another run.
	select {
	case s := <-runs:
		t.Fatalf("unexpected run: %+v", s.Reports)
	case <-time.After(700 * time.Millisecond):
	}

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, tidy, string(got))

	cancel()
	require.NoError(t, <-done)
}

type memoryHistory struct {
	mu   sync.Mutex
	runs map[string][]ports.RunRecord
}

func (h *memoryHistory) SaveRun(projectKey string, run ports.RunRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.runs == nil {
		h.runs = make(map[string][]ports.RunRecord)
	}
	h.runs[projectKey] = append(h.runs[projectKey], run)
	return nil
}

func (h *memoryHistory) LoadRuns(projectKey string, _ time.Time, _ int) ([]ports.RunRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.runs[projectKey], nil
}

func (h *memoryHistory) Close() error { return nil }

func TestRunRecordsHistory(t *testing.T) {
	root := writeTree(t, map[string]string{"a.py": messy, "b.py": tidy})
	a := newApp(t, ModeCheck, nil)
	h := &memoryHistory{}
	a.SetHistory(h, "proj")

	files, err := a.Discover([]string{root})
	require.NoError(t, err)
	summary, err := a.Run(context.Background(), files, nil)
	require.NoError(t, err)

	runs, err := h.LoadRuns("proj", time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, summary.RunID, runs[0].RunID)
	assert.Equal(t, "check", runs[0].Mode)
	assert.Equal(t, 2, runs[0].Files)
	assert.Equal(t, 1, runs[0].Changed)
	assert.Equal(t, []string{"relocate-imports"}, runs[0].Options)

	_, err = a.Run(context.Background(), nil, nil)
	require.NoError(t, err)
	runs, _ = h.LoadRuns("proj", time.Time{}, 0)
	assert.Len(t, runs, 1, "empty runs are not recorded")
}
