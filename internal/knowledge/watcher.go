package knowledge

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a Store whenever its graph file changes on disk.
type Watcher struct {
	store       *Store
	watcher     *fsnotify.Watcher
	doneCh      chan struct{}
	debounceDur time.Duration
	stopOnce    sync.Once
}

// NewWatcher creates a watcher for the store's graph file.
func NewWatcher(store *Store) (*Watcher, error) {
	if store.Path() == "" {
		return nil, fmt.Errorf("knowledge graph has no backing file to watch")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Editors replace files on save, so watch the directory rather than the file.
	if err := w.Add(filepath.Dir(store.Path())); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", store.Path(), err)
	}

	return &Watcher{
		store:       store,
		watcher:     w,
		doneCh:      make(chan struct{}),
		debounceDur: 250 * time.Millisecond,
	}, nil
}

// Run processes file events until ctx is canceled or Close is called.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.doneCh)

	target := filepath.Clean(w.store.Path())
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounceDur)
			} else {
				timer.Reset(w.debounceDur)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			_ = w.store.Reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.store.logger.Warn("knowledge graph watcher error", "error", err)
		}
	}
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		err = w.watcher.Close()
	})
	return err
}

// Done is closed once Run has returned.
func (w *Watcher) Done() <-chan struct{} {
	return w.doneCh
}
