// Package watch re-runs learning when the examples directory changes.
// Bursts of file events (editor saves, git checkouts) are debounced
// into a single trigger.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for the directory to
// settle before triggering.
const DefaultDebounce = 500 * time.Millisecond

// Watcher triggers a callback when example files change.
type Watcher struct {
	dir      string
	debounce time.Duration
	trigger  func()

	fsw *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer
}

// New creates a watcher over a directory of example files. The trigger
// runs on the watcher's goroutine after each settled burst of changes.
func New(dir string, debounce time.Duration, trigger func()) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	return &Watcher{
		dir:      dir,
		debounce: debounce,
		trigger:  trigger,
		fsw:      fsw,
	}, nil
}

// Run processes events until the context is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.Close()

	slog.Info("watching examples", "dir", w.dir, "debounce", w.debounce)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", "dir", w.dir, "error", err)
		}
	}
}

// Close stops the watcher and cancels any pending trigger.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
	return w.fsw.Close()
}

// handle arms (or re-arms) the debounce timer for a relevant event.
func (w *Watcher) handle(event fsnotify.Event) {
	if !relevant(event) {
		return
	}

	slog.Debug("example change", "path", event.Name, "op", event.Op)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.trigger)
}

// relevant keeps only content-changing events on example files.
func relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	switch filepath.Ext(event.Name) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
