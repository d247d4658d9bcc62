// Package watch notices hand edits of the local state file and asks the
// bootstrapper to reload it.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/lobserver/internal/logfields"
)

// DefaultDebounce collapses bursts of editor writes into one reload.
const DefaultDebounce = 500 * time.Millisecond

// Reloader re-reads the active backend. *bootstrap.Bootstrapper satisfies it.
type Reloader interface {
	Reload(ctx context.Context) (bool, error)
}

// FileWatcher monitors one document file and triggers debounced reloads.
type FileWatcher struct {
	path     string
	reloader Reloader
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger

	stopOnce   sync.Once
	stopChan   chan struct{}
	reloadChan chan struct{}
	done       sync.WaitGroup
}

// NewFileWatcher creates a watcher for path. A non-positive debounce uses DefaultDebounce.
func NewFileWatcher(path string, reloader Reloader, debounce time.Duration, logger *slog.Logger) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to resolve state path: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &FileWatcher{
		path:       absPath,
		reloader:   reloader,
		watcher:    watcher,
		debounce:   debounce,
		logger:     logger,
		stopChan:   make(chan struct{}),
		reloadChan: make(chan struct{}, 1),
	}, nil
}

// Start watches the file's directory. Atomic saves replace the file, so
// watching the file itself would lose track of it after the first rename.
func (w *FileWatcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch state directory %s: %w", dir, err)
	}

	w.logger.Info("Starting state file watcher", logfields.Path(w.path))

	w.done.Add(2)
	go w.watchLoop(ctx)
	go w.reloadLoop(ctx)
	return nil
}

// Stop ends both loops and closes the fsnotify watcher. It is safe to call twice.
func (w *FileWatcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		w.logger.Info("Stopping state file watcher")
		close(w.stopChan)
		err = w.watcher.Close()
		w.done.Wait()
	})
	return err
}

func (w *FileWatcher) watchLoop(ctx context.Context) {
	defer w.done.Done()
	name := filepath.Base(w.path)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			switch {
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create), event.Has(fsnotify.Rename):
				w.logger.Debug("State file change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
				w.trigger()
			case event.Has(fsnotify.Remove):
				w.logger.Warn("State file removed", logfields.Path(event.Name))
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("State file watcher error", logfields.Error(err))
		}
	}
}

func (w *FileWatcher) reloadLoop(ctx context.Context) {
	defer w.done.Done()
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-w.stopChan:
			timer.Stop()
			return
		case <-w.reloadChan:
			// Reset never delivers a stale tick since Go 1.23.
			timer.Reset(w.debounce)
		case <-timer.C:
			w.reload(ctx)
		}
	}
}

func (w *FileWatcher) trigger() {
	select {
	case w.reloadChan <- struct{}{}:
	default:
	}
}

func (w *FileWatcher) reload(ctx context.Context) {
	changed, err := w.reloader.Reload(ctx)
	if err != nil {
		w.logger.Error("Failed to reload state file", logfields.Path(w.path), logfields.Error(err))
		return
	}
	if changed {
		w.logger.Info("State reloaded after external edit", logfields.Path(w.path))
	}
}
