// Package watch drives watch-mode re-runs: an fsnotify.Watcher debounces
// filesystem events into batches, and a Resolver turns a batch of
// changed paths into the root test files that need re-collecting, using
// the Module Graph's reverse-import index.
package watch

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

// DefaultDebounce is how long the Watcher waits after the last event in
// a burst before flushing a batch — long enough to absorb a save-all,
// short enough that a re-run still feels immediate.
const DefaultDebounce = 1500 * time.Millisecond

// eventQueueDepth bounds the Events channel. A consumer slower than the
// debounce window applies backpressure by blocking flush's send rather
// than a batch being silently dropped.
const eventQueueDepth = 100

// Event is one debounced batch of filesystem changes. ID tags the batch
// so the watch loop's log lines for one re-run can be told apart from
// another's.
type Event struct {
	ID    string
	Paths []string
}

// Watcher recursively watches a set of root directories and emits
// debounced batches of changed file paths.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	events   chan Event

	mu      sync.Mutex
	pending map[string]bool
	timer   *time.Timer
	done    chan struct{}
	closed  bool
	sending sync.WaitGroup
}

// New returns a Watcher that debounces bursts of events for window
// before emitting a batch. A zero window uses DefaultDebounce.
func New(window time.Duration) (*Watcher, error) {
	if window <= 0 {
		window = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		debounce: window,
		events:   make(chan Event, eventQueueDepth),
		pending:  map[string]bool{},
		done:     make(chan struct{}),
	}

	go w.loop()

	return w, nil
}

// Add recursively registers root and every non-ignored subdirectory
// beneath it with the underlying fsnotify watcher.
func (w *Watcher) Add(root string) error {
	if err := w.fsw.Add(root); err != nil {
		return err
	}

	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() || path == root {
			return nil
		}

		if shouldIgnoreDir(d.Name()) {
			return filepath.SkipDir
		}

		return w.fsw.Add(path)
	})
}

// Events returns the channel of debounced change batches.
func (w *Watcher) Events() <-chan Event { return w.events }

// Close stops watching and the debounce timer, and closes Events.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()

		return nil
	}

	w.closed = true

	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	err := w.fsw.Close()
	close(w.done)
	w.sending.Wait()
	close(w.events)

	return err
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}

			if shouldIgnorePath(event.Name) {
				continue
			}

			w.mu.Lock()
			w.pending[event.Name] = true

			if w.timer != nil {
				w.timer.Stop()
			}

			w.timer = time.AfterFunc(w.debounce, w.flush)
			w.mu.Unlock()

		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}

		case <-w.done:
			return
		}
	}
}

// flush hands the pending batch to events, blocking if the consumer is
// behind — backpressure, not a dropped batch. The send itself happens
// outside w.mu so a slow consumer can't block Close from acquiring the
// lock; sending tracks in-flight sends so Close can wait for them to
// settle (via done) before closing events out from under one.
func (w *Watcher) flush() {
	w.mu.Lock()

	if w.closed || len(w.pending) == 0 {
		w.mu.Unlock()

		return
	}

	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}

	w.pending = map[string]bool{}

	w.sending.Add(1)
	w.mu.Unlock()
	defer w.sending.Done()

	select {
	case w.events <- Event{ID: uuid.NewString(), Paths: paths}:
	case <-w.done:
	}
}

func shouldIgnoreDir(name string) bool {
	switch name {
	case ".git", "node_modules", "dist", "build", ".cache":
		return true
	default:
		return false
	}
}

// shouldIgnorePath filters out editor swap/backup files and other
// transient writes that are not real source changes — a save in vim
// touches a "~"-suffixed backup and a numbered atomic-write temp file
// before the real file, neither of which should trigger a re-run.
func shouldIgnorePath(path string) bool {
	base := filepath.Base(path)

	if shouldIgnoreDir(base) {
		return true
	}

	if strings.HasSuffix(base, "~") {
		return true
	}

	if strings.HasPrefix(base, ".") && (strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swo") || strings.HasSuffix(base, ".swn")) {
		return true
	}

	if strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}

	if _, err := strconv.Atoi(base); err == nil {
		return true // vim's numbered atomic-write probe file, e.g. "4913"
	}

	return false
}
