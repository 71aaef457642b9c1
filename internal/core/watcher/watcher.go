// Package watcher reports Python sources whose content changed on disk.
package watcher

import (
	"crypto/sha256"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"pyshape/internal/core/config/helpers"
	"pyshape/internal/shared/observability"

	"github.com/fsnotify/fsnotify"
)

type Watcher struct {
	fsWatcher  *fsnotify.Watcher
	debounce   time.Duration
	filter     *helpers.Filter
	onChange   func([]string)
	callbackMu sync.Mutex

	pending   map[string]struct{}
	hashes    map[string][sha256.Size]byte
	pendingMu sync.Mutex
	timer     *time.Timer
}

func NewWatcher(debounce time.Duration, filter *helpers.Filter, onChange func([]string)) (*Watcher, error) {
	if onChange == nil || filter == nil {
		return nil, os.ErrInvalid
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher: fsw,
		debounce:  debounce,
		filter:    filter,
		onChange:  onChange,
		pending:   make(map[string]struct{}),
		hashes:    make(map[string][sha256.Size]byte),
	}, nil
}

func (w *Watcher) SetDebounce(debounce time.Duration) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.debounce = debounce
}

// SetFilter swaps the exclusion filter, e.g. after a config reload.
func (w *Watcher) SetFilter(filter *helpers.Filter) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.filter = filter
}

// Remember records content as the known state of path, so that the write
// which produced it does not come back as a change.
func (w *Watcher) Remember(path string, content []byte) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.hashes[path] = sha256.Sum256(content)
}

// Watch adds every non-excluded directory below paths and starts the event
// loop. Paths naming files watch their directory.
func (w *Watcher) Watch(paths []string) error {
	for _, path := range paths {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			path = filepath.Dir(path)
		}
		if err := w.watchRecursive(path); err != nil {
			return err
		}
	}

	go w.run()
	return nil
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.currentFilter().SkipDir(path) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) currentFilter() *helpers.Filter {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	return w.filter
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()

			if event.Op&fsnotify.Create == fsnotify.Create {
				info, err := os.Stat(event.Name)
				if err == nil && info.IsDir() {
					if !w.currentFilter().SkipDir(event.Name) {
						if err := w.watchRecursive(event.Name); err != nil {
							slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
						} else {
							w.enqueueExistingFiles(event.Name)
						}
					}
					continue
				}
			}

			if !w.currentFilter().Accept(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.scheduleChange(event.Name)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[path] = struct{}{}

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flushChanges)
}

// flushChanges hands the pending paths whose content differs from the last
// seen state to the callback. Paths that no longer exist are dropped.
func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	pending := w.pending
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	paths := make([]string, 0, len(pending))
	for path := range pending {
		content, err := os.ReadFile(path)
		if err != nil {
			w.forget(path)
			continue
		}
		sum := sha256.Sum256(content)
		w.pendingMu.Lock()
		prev, seen := w.hashes[path]
		w.hashes[path] = sum
		w.pendingMu.Unlock()
		if seen && prev == sum {
			continue
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)

	if len(paths) > 0 {
		w.callbackMu.Lock()
		defer w.callbackMu.Unlock()
		w.onChange(paths)
	}
}

func (w *Watcher) forget(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	delete(w.hashes, path)
}

func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsWatcher.Close()
}

func (w *Watcher) enqueueExistingFiles(root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if w.currentFilter().Accept(path) {
			w.scheduleChange(path)
		}
		return nil
	})
}
