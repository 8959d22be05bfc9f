package content

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rebuildup/my-web-2025-sub006/pkg/infrastructure/logging"
)

// ChangeHandler is invoked once per settled burst of changes to a type's file
type ChangeHandler func(ctx context.Context, t Type)

// Watcher watches a FileSource directory and reports which content types changed
type Watcher struct {
	watcher  *fsnotify.Watcher
	dir      string
	debounce time.Duration
	handler  ChangeHandler
	logger   *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	debounceTimer map[Type]*time.Timer
	debounceMu    sync.Mutex
}

// NewWatcher creates a watcher for dir. Start must be called to begin delivering changes.
func NewWatcher(dir string, debounce time.Duration, handler ChangeHandler, logger *logging.Logger) (*Watcher, error) {
	if handler == nil {
		return nil, fmt.Errorf("change handler is required")
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	return &Watcher{
		watcher:       watcher,
		dir:           dir,
		debounce:      debounce,
		handler:       handler,
		logger:        logger.WithComponent("content.watcher"),
		debounceTimer: make(map[Type]*time.Timer),
	}, nil
}

// Start begins processing file events until ctx is done or Stop is called
func (w *Watcher) Start(ctx context.Context) {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.eventLoop()
	w.logger.WithField("dir", w.dir).Info("watching content directory")
}

// Stop stops the watcher and cancels pending notifications
func (w *Watcher) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	err := w.watcher.Close()
	w.wg.Wait()

	w.debounceMu.Lock()
	for t, timer := range w.debounceTimer {
		timer.Stop()
		delete(w.debounceTimer, t)
	}
	w.debounceMu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// eventLoop turns fsnotify events into debounced per-type notifications
func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFsEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("file watcher error")
		}
	}
}

func (w *Watcher) handleFsEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	t, ok := TypeForPath(event.Name)
	if !ok {
		return
	}

	// Editors often write a file in several steps; wait for the burst to settle
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if timer, exists := w.debounceTimer[t]; exists {
		timer.Stop()
	}
	op := event.Op.String()
	var timer *time.Timer
	timer = time.AfterFunc(w.debounce, func() {
		w.debounceMu.Lock()
		self := timer
		w.debounceMu.Unlock()
		w.fire(t, self, op)
	})
	w.debounceTimer[t] = timer
}

// fire delivers a settled change. A timer that lost the race with its
// replacement leaves the newer entry in place so Stop can still cancel it.
func (w *Watcher) fire(t Type, timer *time.Timer, op string) {
	w.debounceMu.Lock()
	if w.debounceTimer[t] == timer {
		delete(w.debounceTimer, t)
	}
	w.debounceMu.Unlock()

	if w.ctx.Err() != nil {
		return
	}
	w.logger.WithFields(map[string]interface{}{
		"type":  string(t),
		"event": op,
	}).Debug("content changed")
	w.handler(w.ctx, t)
}
