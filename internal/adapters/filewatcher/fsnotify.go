// Package filewatcher provides file system monitoring adapters.
package filewatcher

import (
	"context"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/0xcro3dile/cfohelper-go/internal/domain/ports"
)

var _ ports.FileWatcher = (*FSNotifyWatcher)(nil)

// DefaultExtensions are the knowledge file types watched when none are given.
var DefaultExtensions = []string{".txt", ".md"}

// FSNotifyWatcher implements ports.FileWatcher using fsnotify.
type FSNotifyWatcher struct {
	watcher    *fsnotify.Watcher
	extensions []string
	logger     *zap.Logger

	stopOnce sync.Once
	stopErr  error
}

// NewFSNotifyWatcher creates a new file watcher.
func NewFSNotifyWatcher(extensions []string, logger *zap.Logger) (*FSNotifyWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	normalized := make([]string, len(extensions))
	for i, ext := range extensions {
		normalized[i] = strings.ToLower(ext)
	}

	return &FSNotifyWatcher{
		watcher:    w,
		extensions: normalized,
		logger:     logger.Named("filewatcher"),
	}, nil
}

// Watch starts monitoring the directory and emits events.
// The channel closes when ctx is done or the watcher is stopped.
func (w *FSNotifyWatcher) Watch(ctx context.Context, dir string) (<-chan ports.FileEvent, error) {
	if err := w.watcher.Add(dir); err != nil {
		return nil, err
	}
	w.logger.Info("watching directory", zap.String("dir", dir), zap.Strings("extensions", w.extensions))

	events := make(chan ports.FileEvent, 100)

	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !w.watched(event.Name) {
					continue
				}

				var op ports.FileOperation
				switch {
				case event.Has(fsnotify.Create):
					op = ports.FileCreated
				case event.Has(fsnotify.Write):
					op = ports.FileModified
				case event.Has(fsnotify.Remove):
					op = ports.FileDeleted
				default:
					continue
				}

				select {
				case events <- ports.FileEvent{Path: event.Name, Operation: op}:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("watch error", zap.Error(err))
			}
		}
	}()

	return events, nil
}

// Stop closes the underlying watcher. It is safe to call more than once.
func (w *FSNotifyWatcher) Stop() error {
	w.stopOnce.Do(func() {
		w.stopErr = w.watcher.Close()
	})
	return w.stopErr
}

// watched reports whether path is a knowledge file. Hidden files and
// editor lock or backup files are skipped.
func (w *FSNotifyWatcher) watched(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") || strings.HasSuffix(name, "~") {
		return false
	}
	return slices.Contains(w.extensions, strings.ToLower(filepath.Ext(name)))
}
