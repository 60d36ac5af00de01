// Package watcher reports settled changes to marker files so sessions can reload
// them. A file only produces an event once its size and modification time stop
// changing for the settle delay, which hides partial writes and editor save dances.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors files, or every file in a directory, for changes.
type Watcher struct {
	logger  *slog.Logger
	opts    Options
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	files   map[string]bool // individually watched files
	dirs    map[string]bool // directories watched for all their files
	known   map[string]bool // files that existed at the last settled check
	pending map[string]*pendingEvent
	closed  bool

	events   chan Event
	errors   chan error
	done     chan struct{}
	stopOnce sync.Once
}

// pendingEvent tracks a file that may still be changing.
type pendingEvent struct {
	exists  bool
	size    int64
	modTime time.Time
	timer   *time.Timer
}

// New creates a watcher. Call Start to begin delivering events.
func New(logger *slog.Logger, opts Options) (*Watcher, error) {
	opts.setDefaults()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	return &Watcher{
		logger:  logger,
		opts:    opts,
		watcher: fw,
		files:   make(map[string]bool),
		dirs:    make(map[string]bool),
		known:   make(map[string]bool),
		pending: make(map[string]*pendingEvent),
		events:  make(chan Event, 16),
		errors:  make(chan error, 4),
		done:    make(chan struct{}),
	}, nil
}

// Watch adds a file or a directory. Files are watched through their parent
// directory so that replace-by-rename saves are seen.
func (w *Watcher) Watch(path string) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat path: %w", err)
	}

	dir := path
	if !info.IsDir() {
		dir = filepath.Dir(path)
	}
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if info.IsDir() {
		w.dirs[path] = true
		entries, err := os.ReadDir(path)
		if err != nil {
			return fmt.Errorf("read dir: %w", err)
		}
		for _, e := range entries {
			if !e.IsDir() {
				w.known[filepath.Join(path, e.Name())] = true
			}
		}
	} else {
		w.files[path] = true
		w.known[path] = true
	}

	w.logger.Debug("watching", "path", path, "dir", info.IsDir())
	return nil
}

// Start delivers events until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.done:
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			select {
			case w.errors <- err:
			default:
				w.logger.Warn("watcher error dropped", "error", err)
			}
		}
	}
}

// Events returns settled file events. The channel is never closed.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns errors reported by the underlying notifier.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Stop cancels pending checks and releases the notifier. Safe to call twice.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)

		w.mu.Lock()
		w.closed = true
		for _, p := range w.pending {
			p.timer.Stop()
		}
		clear(w.pending)
		w.mu.Unlock()

		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) relevant(path string) bool {
	if w.opts.shouldIgnore(path) {
		return false
	}
	return w.files[path] || w.dirs[filepath.Dir(path)]
}

// handle starts or restarts settling for any change to a relevant path. Removes
// and renames settle too: an editor replacing the file shows up as a modify.
func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op == fsnotify.Chmod {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || !w.relevant(ev.Name) {
		return
	}
	w.startSettlingLocked(ev.Name)
}

func (w *Watcher) startSettlingLocked(path string) {
	p, ok := w.pending[path]
	if ok {
		p.timer.Stop()
	} else {
		p = &pendingEvent{}
		w.pending[path] = p
	}
	p.exists, p.size, p.modTime = stat(path)
	p.timer = time.AfterFunc(w.opts.SettleDelay, func() { w.checkSettled(path) })
}

func (w *Watcher) checkSettled(path string) {
	w.mu.Lock()
	p, ok := w.pending[path]
	if w.closed || !ok {
		w.mu.Unlock()
		return
	}

	exists, size, modTime := stat(path)
	if exists != p.exists || size != p.size || !modTime.Equal(p.modTime) {
		p.exists, p.size, p.modTime = exists, size, modTime
		p.timer = time.AfterFunc(w.opts.SettleDelay, func() { w.checkSettled(path) })
		w.mu.Unlock()
		return
	}
	delete(w.pending, path)

	wasKnown := w.known[path]
	w.known[path] = exists
	w.mu.Unlock()

	var ev Event
	switch {
	case exists && wasKnown:
		ev = Event{Type: EventModified, Path: path, Size: size, ModTime: modTime}
	case exists:
		ev = Event{Type: EventAdded, Path: path, Size: size, ModTime: modTime}
	case wasKnown:
		ev = Event{Type: EventRemoved, Path: path}
	default:
		return
	}

	w.logger.Debug("file settled", "path", path, "type", ev.Type.String())
	select {
	case w.events <- ev:
	case <-w.done:
	}
}

// stat returns existence, size and mtime of a regular file. Directories count as
// missing.
func stat(path string) (bool, int64, time.Time) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false, 0, time.Time{}
	}
	return true, info.Size(), info.ModTime()
}
