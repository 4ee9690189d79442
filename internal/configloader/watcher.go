package configloader

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/jonesrussell/north-cloud/suggester/internal/logger"
)

// Invalidator drops cached state.
type Invalidator interface {
	Invalidate()
}

// Watcher invalidates a loader when the configuration file changes. It
// watches the parent directory so editors that replace the file are seen.
type Watcher struct {
	path    string
	target  Invalidator
	log     logger.Logger
	watcher *fsnotify.Watcher
}

// NewWatcher starts watching path.
func NewWatcher(path string, target Invalidator, log logger.Logger) (*Watcher, error) {
	abs, absErr := filepath.Abs(path)
	if absErr != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, absErr)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if addErr := w.Add(filepath.Dir(abs)); addErr != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), addErr)
	}

	return &Watcher{path: abs, target: target, log: log, watcher: w}, nil
}

// Run processes events until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
				w.log.Debug("Task configuration changed", logger.String("op", ev.Op.String()))
				w.target.Invalidate()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("Config watcher error", logger.Error(err))
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
