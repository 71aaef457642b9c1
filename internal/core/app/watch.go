package app

import (
	"context"
	"log/slog"

	"pyshape/internal/core/app/helpers"
	"pyshape/internal/core/ports"
	"pyshape/internal/core/watcher"
)

// Watch re-runs the engine over Python files under paths whenever their
// content changes, until ctx is done. onRun sees every finished run.
func (a *App) Watch(ctx context.Context, paths []string, progress ports.Progress, onRun func(*Summary)) error {
	snap := a.snapshot()
	roots := helpers.UniqueScanRoots(paths)

	var w *watcher.Watcher
	w, err := watcher.NewWatcher(snap.cfg.Watch.Debounce, snap.filter, func(changed []string) {
		summary, err := a.Run(ctx, changed, progress)
		if err != nil {
			slog.Debug("watch run interrupted", "error", err)
		}
		if summary == nil {
			return
		}
		for _, r := range summary.Reports {
			if r.Outcome == ports.OutcomeChanged && a.mode == ModeWrite {
				w.Remember(r.Path, r.After)
			}
		}
		if onRun != nil {
			onRun(summary)
		}
	})
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Watch(roots); err != nil {
		return err
	}
	a.mu.Lock()
	a.watcher = w
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.watcher = nil
		a.mu.Unlock()
	}()

	slog.Info("watching for changes", "paths", roots, "debounce", snap.cfg.Watch.Debounce)
	<-ctx.Done()
	return nil
}
