// Package app drives the engine over a tree of Python files: discovery,
// the clean-file cache, concurrent processing and writing results back.
package app

import (
	"fmt"
	"sync"

	"pyshape/internal/core/config"
	"pyshape/internal/core/config/helpers"
	"pyshape/internal/core/ports"
	"pyshape/internal/core/watcher"
	"pyshape/internal/data/cache"
)

// Mode selects what happens to files the engine changes.
type Mode int

const (
	// ModeWrite rewrites changed files in place.
	ModeWrite Mode = iota
	// ModeCheck only reports files that would change.
	ModeCheck
	// ModeDiff reports files that would change with their new content.
	ModeDiff
)

func (m Mode) String() string {
	switch m {
	case ModeCheck:
		return "check"
	case ModeDiff:
		return "diff"
	}
	return "write"
}

type App struct {
	cache ports.CleanCache
	mode  Mode

	history    ports.RunHistory
	projectKey string

	mu          sync.RWMutex
	engine      ports.Engine
	cfg         *config.Config
	filter      *helpers.Filter
	fingerprint string
	watcher     *watcher.Watcher
	last        *Summary
}

// New wires an App. A nil cache disables caching.
func New(cfg *config.Config, engine ports.Engine, clean ports.CleanCache, mode Mode) (*App, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine must not be nil")
	}
	a := &App{engine: engine, cache: clean, mode: mode}
	if err := a.Reconfigure(cfg); err != nil {
		return nil, err
	}
	return a, nil
}

// Reconfigure swaps the active configuration. Runs in flight keep the one
// they started with.
func (a *App) Reconfigure(cfg *config.Config) error {
	filter, err := helpers.NewFilter(cfg.Exclude.Dirs, cfg.Exclude.Files)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg = cfg
	a.filter = filter
	a.fingerprint = cache.Fingerprint(cfg.Options, cfg.External.Commands)
	if a.watcher != nil {
		a.watcher.SetFilter(filter)
		a.watcher.SetDebounce(cfg.Watch.Debounce)
	}
	return nil
}

// SetEngine replaces the engine, e.g. when external commands change.
func (a *App) SetEngine(engine ports.Engine) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.engine = engine
}

func (a *App) Mode() Mode { return a.mode }

// SetHistory records a summary row per run under projectKey.
func (a *App) SetHistory(history ports.RunHistory, projectKey string) {
	a.history = history
	a.projectKey = projectKey
}

type snapshot struct {
	engine      ports.Engine
	cfg         *config.Config
	filter      *helpers.Filter
	fingerprint string
}

func (a *App) snapshot() snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return snapshot{engine: a.engine, cfg: a.cfg, filter: a.filter, fingerprint: a.fingerprint}
}
