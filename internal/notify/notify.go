package notify

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Notifier watches one directory for filesystem events and coalesces bursts
// into a single refresh callback per quiet period. Every raw event resets
// the pending timer for its directory (cancel-and-replace), so exactly one
// refresh fires after the last event in a burst.
//
// The timer map is keyed by directory path even though only one directory is
// watched at a time; switching directories tears down the previous watch.
type Notifier struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	watched  string
	debounce time.Duration
	pending  map[string]*time.Timer
	closed   bool

	onRefresh func(directory string)
	logger    *slog.Logger
}

// New creates a Notifier and starts its event loop. The returned error
// indicates the platform watch could not be established; callers degrade to
// no automatic refresh in that case.
func New(debounce time.Duration, onRefresh func(directory string), logger *slog.Logger) (*Notifier, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	n := &Notifier{
		watcher:   watcher,
		debounce:  debounce,
		pending:   make(map[string]*time.Timer),
		onRefresh: onRefresh,
		logger:    logger,
	}
	go n.loop()
	return n, nil
}

// Watch arms the notifier for a directory, tearing down any previous watch.
func (n *Notifier) Watch(directory string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.watched != "" {
		if err := n.watcher.Remove(n.watched); err != nil {
			n.logger.Debug("Failed to remove previous watch", "dir", n.watched, "error", err)
		}
		n.cancelPendingLocked(n.watched)
		n.watched = ""
	}

	if err := n.watcher.Add(directory); err != nil {
		return err
	}
	n.watched = directory
	n.logger.Debug("Watch armed", "dir", directory)
	return nil
}

// Close tears down the watch and cancels any pending refresh.
func (n *Notifier) Close() error {
	n.mu.Lock()
	n.closed = true
	for dir, timer := range n.pending {
		timer.Stop()
		delete(n.pending, dir)
	}
	n.mu.Unlock()
	return n.watcher.Close()
}

// PendingCount reports the number of directories with a refresh pending.
// Primarily useful for tests.
func (n *Notifier) PendingCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.pending)
}

func (n *Notifier) loop() {
	for {
		select {
		case event, ok := <-n.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				n.bump(event)
			}
		case err, ok := <-n.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors degrade the refresh, never the engine.
			n.logger.Warn("Filesystem watch error", "error", err)
		}
	}
}

// bump resets the debounce timer for the directory an event belongs to.
func (n *Notifier) bump(event fsnotify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed || n.watched == "" {
		return
	}

	dir := event.Name
	if dir != n.watched {
		dir = filepath.Dir(event.Name)
	}
	if dir != n.watched {
		return
	}

	n.logger.Debug("Filesystem event", "event", event.String(), "dir", dir)
	n.cancelPendingLocked(dir)
	n.pending[dir] = time.AfterFunc(n.debounce, func() {
		n.fire(dir)
	})
}

// fire runs when a quiet period elapses after the last event.
func (n *Notifier) fire(dir string) {
	n.mu.Lock()
	delete(n.pending, dir)
	closed := n.closed
	n.mu.Unlock()

	// Callback runs outside the lock to avoid deadlocks with callers that
	// re-enter the notifier.
	if !closed && n.onRefresh != nil {
		n.onRefresh(dir)
	}
}

// cancelPendingLocked stops and removes a pending timer. Caller holds the lock.
func (n *Notifier) cancelPendingLocked(dir string) {
	if timer, ok := n.pending[dir]; ok {
		timer.Stop()
		delete(n.pending, dir)
	}
}
