// Package watcher reports debounced file system changes for the workspace
// directory and for individual input files (tag feed, config).
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"xplore/internal/engine/workspace"
	"xplore/internal/shared/observability"
)

type Watcher struct {
	fsWatcher  *fsnotify.Watcher
	debounce   time.Duration
	excluder   *workspace.Excluder
	onChange   func([]string)
	callbackMu sync.Mutex

	mu       sync.Mutex
	treeDirs map[string]bool
	files    map[string]bool

	pending   map[string]time.Time
	pendingMu sync.Mutex
	timer     *time.Timer
}

// NewWatcher returns a watcher that calls onChange with the set of changed
// paths once no new event has arrived for debounce. A nil excluder watches
// everything.
func NewWatcher(debounce time.Duration, excluder *workspace.Excluder, onChange func([]string)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsWatcher: fsw,
		debounce:  debounce,
		excluder:  excluder,
		onChange:  onChange,
		treeDirs:  make(map[string]bool),
		files:     make(map[string]bool),
		pending:   make(map[string]time.Time),
	}, nil
}

// WatchTree watches every non-excluded directory below each root.
func (w *Watcher) WatchTree(roots ...string) error {
	for _, root := range roots {
		if err := w.watchRecursive(root); err != nil {
			return err
		}
	}
	return nil
}

// WatchFiles watches individual files. Their parent directories are watched
// so atomic saves (write to temp, rename over) are seen.
func (w *Watcher) WatchFiles(paths ...string) error {
	for _, p := range paths {
		abs := filepath.Clean(p)
		w.mu.Lock()
		w.files[abs] = true
		w.mu.Unlock()
		if err := w.fsWatcher.Add(filepath.Dir(abs)); err != nil {
			return err
		}
	}
	return nil
}

// Run dispatches events until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()
			w.handle(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)

		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	name := filepath.Clean(event.Name)

	w.mu.Lock()
	explicit := w.files[name]
	inTree := w.treeDirs[filepath.Dir(name)]
	w.mu.Unlock()

	if !explicit && !inTree {
		return
	}

	if inTree && event.Op&fsnotify.Create == fsnotify.Create {
		info, err := os.Stat(name)
		if err == nil && info.IsDir() {
			if w.excluder.Dir(filepath.Base(name)) {
				return
			}
			if err := w.watchRecursive(name); err != nil {
				slog.Warn("failed to watch new directory", "path", name, "error", err)
			}
			w.scheduleChange(name)
			return
		}
	}

	if !explicit && w.excluder.File(filepath.Base(name)) {
		return
	}

	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
		w.scheduleChange(name)
	}
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.excluder.Dir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsWatcher.Add(path); err != nil {
			return err
		}
		w.mu.Lock()
		w.treeDirs[filepath.Clean(path)] = true
		w.mu.Unlock()
		return nil
	})
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[path] = time.Now()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flushChanges)
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]time.Time)
	w.pendingMu.Unlock()

	if len(paths) > 0 {
		w.callbackMu.Lock()
		defer w.callbackMu.Unlock()
		w.onChange(paths)
	}
}

func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsWatcher.Close()
}
