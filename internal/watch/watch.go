// Package watch reports changes to a source file so front-ends can refresh.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"

	"github.com/pacta-app/tableview/internal/tableview"
	"github.com/pacta-app/tableview/pkg/logger"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 200 * time.Millisecond

// Watcher watches one file. The parent directory is watched so that
// editors which replace the file by rename are still seen.
type Watcher struct {
	mu      sync.Mutex
	watcher *fsnotify.Watcher
	path    string
	changes chan struct{}
	pending *tableview.Debouncer
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
	log     logr.Logger
}

// New creates a watcher for path. Call Start to begin delivering changes.
func New(path string, debounce time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if debounce < 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		watcher: fw,
		path:    filepath.Clean(abs),
		changes: make(chan struct{}, 1),
		pending: tableview.NewDebouncer(debounce),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
		log:     logr.Discard(),
	}, nil
}

// Path is the watched file.
func (w *Watcher) Path() string { return w.path }

// Changes delivers one value per debounced burst of changes. Bursts that
// arrive while a value is still unread are merged into it.
func (w *Watcher) Changes() <-chan struct{} { return w.changes }

// Start begins watching. It does not block.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	w.log = logger.FromContext(ctx).WithName("watch").WithValues("path", w.path)
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", w.path, err)
	}
	w.running = true
	go w.run(ctx)
	w.log.V(1).Info("watching")
	return nil
}

// Stop ends the watch and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		_ = w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.pending.Cancel()
	if err := w.watcher.Close(); err != nil {
		w.log.Error(err, "closing watcher")
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error(err, "watch error")
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if filepath.Clean(ev.Name) != w.path {
		return
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
		return
	}
	w.log.V(1).Info("file event", "op", ev.Op.String())
	w.pending.Debounce(w.notify)
}

func (w *Watcher) notify() {
	select {
	case w.changes <- struct{}{}:
	default:
	}
}
