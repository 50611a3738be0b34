package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"cronjob-trigger/pkg/logging"
)

// Observer recursively watches a directory tree and emits an Event for
// every change below it.
//
// fsnotify only watches single directories, so the Observer adds a watch
// for every directory it discovers, both during the initial scan and when
// directories are created later. It keeps track of the entries it has seen
// so that removals can be reported as file or directory removals.
type Observer struct {
	mu sync.RWMutex

	// root is the watched directory, cleaned
	root string

	// ignoreInitial suppresses the events of the initial scan
	ignoreInitial bool

	// watcher is the fsnotify watcher instance
	watcher *fsnotify.Watcher

	// entries maps every known path to whether it is a directory
	entries map[string]bool

	// ready is closed once the initial scan has completed
	ready chan struct{}

	// stopCh signals shutdown
	stopCh chan struct{}

	// done is closed when the processing goroutine exits
	done chan struct{}

	// running indicates if the observer is active
	running bool
}

// Option configures an Observer.
type Option func(*Observer)

// WithIgnoreInitial controls whether entries found by the initial scan are
// reported.
func WithIgnoreInitial(ignore bool) Option {
	return func(o *Observer) {
		o.ignoreInitial = ignore
	}
}

// New creates an Observer for root. Nothing is watched until Start.
func New(root string, opts ...Option) *Observer {
	o := &Observer{
		root:    filepath.Clean(root),
		entries: make(map[string]bool),
		ready:   make(chan struct{}),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Root returns the watched directory.
func (o *Observer) Root() string {
	return o.root
}

// Start verifies the root and begins watching. Errors returned here are
// fatal: the root is missing, unreadable, not a directory, or cannot be
// watched. Everything after Start (the initial scan included) runs in a
// background goroutine that sends to events until ctx is cancelled or Stop
// is called; events is never closed by the Observer.
func (o *Observer) Start(ctx context.Context, events chan<- Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return nil
	}

	info, err := os.Stat(o.root)
	if err != nil {
		return fmt.Errorf("cannot watch %s: %w", o.root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("cannot watch %s: not a directory", o.root)
	}
	if _, err := os.ReadDir(o.root); err != nil {
		return fmt.Errorf("cannot watch %s: %w", o.root, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	if err := watcher.Add(o.root); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("cannot watch %s: %w", o.root, err)
	}

	o.watcher = watcher
	o.entries[o.root] = true
	o.running = true

	go o.run(ctx, events)

	return nil
}

// Ready is closed once the initial scan has completed.
func (o *Observer) Ready() <-chan struct{} {
	return o.ready
}

// Watched returns the directories currently being watched, sorted.
func (o *Observer) Watched() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var dirs []string
	for path, isDir := range o.entries {
		if isDir {
			dirs = append(dirs, path)
		}
	}
	sort.Strings(dirs)
	return dirs
}

// Stop stops watching and waits for the processing goroutine to exit. It is
// safe to call more than once.
func (o *Observer) Stop() error {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return nil
	}
	o.running = false
	close(o.stopCh)
	watcher := o.watcher
	o.mu.Unlock()

	<-o.done

	if err := watcher.Close(); err != nil {
		return fmt.Errorf("failed to close filesystem watcher: %w", err)
	}
	logging.Info("Watcher", "Stopped watching %s", o.root)
	return nil
}

func (o *Observer) run(ctx context.Context, events chan<- Event) {
	defer close(o.done)

	emit := func(ev Event) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		case <-o.stopCh:
			return false
		}
	}

	initial := emit
	if o.ignoreInitial {
		initial = func(Event) bool { return true }
	}
	if !o.scan(o.root, initial) {
		return
	}
	close(o.ready)

	for {
		select {
		case <-ctx.Done():
			return

		case <-o.stopCh:
			return

		case event, ok := <-o.watcher.Events:
			if !ok {
				return
			}
			if !o.handleFsEvent(event, emit) {
				return
			}

		case err, ok := <-o.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("Watcher", err, "Watcher error")
		}
	}
}

// scan walks dir, watching every directory and reporting every entry below
// it. Unreadable entries are logged and skipped. It returns false when
// emitting was aborted by shutdown.
func (o *Observer) scan(dir string, emit func(Event) bool) bool {
	aborted := false

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.Warn("Watcher", "Skipping %s: %v", path, err)
			if d != nil && d.IsDir() && path != dir {
				return fs.SkipDir
			}
			return nil
		}

		if path == dir {
			return nil
		}

		if d.IsDir() {
			if err := o.watcher.Add(path); err != nil {
				logging.Warn("Watcher", "Cannot watch %s: %v", path, err)
				return fs.SkipDir
			}
			if !o.remember(path, true) {
				return nil
			}
			if !emit(Event{Kind: KindDirAdded, Path: path}) {
				aborted = true
				return fs.SkipAll
			}
			return nil
		}

		if !o.remember(path, false) {
			return nil
		}
		if !emit(Event{Kind: KindAdded, Path: path}) {
			aborted = true
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		logging.Warn("Watcher", "Scan of %s incomplete: %v", dir, err)
	}
	return !aborted
}

// remember records path and reports whether it was new.
func (o *Observer) remember(path string, isDir bool) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, known := o.entries[path]; known {
		o.entries[path] = isDir
		return false
	}
	o.entries[path] = isDir
	return true
}

// forget removes path and, for directories, everything below it. It
// reports whether path was known and whether it was a directory.
func (o *Observer) forget(path string) (known, isDir bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	isDir, known = o.entries[path]
	if !known {
		return false, false
	}
	delete(o.entries, path)

	if isDir {
		prefix := path + string(filepath.Separator)
		for p := range o.entries {
			if strings.HasPrefix(p, prefix) {
				delete(o.entries, p)
			}
		}
	}
	return true, isDir
}

// handleFsEvent translates one fsnotify event. It returns false when
// emitting was aborted by shutdown.
func (o *Observer) handleFsEvent(event fsnotify.Event, emit func(Event) bool) bool {
	path := filepath.Clean(event.Name)

	switch {
	case event.Has(fsnotify.Create):
		info, err := os.Lstat(path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				logging.Warn("Watcher", "Cannot stat %s: %v", path, err)
			}
			return true
		}

		if info.IsDir() {
			if err := o.watcher.Add(path); err != nil {
				logging.Warn("Watcher", "Cannot watch %s: %v", path, err)
				return true
			}
			if o.remember(path, true) {
				if !emit(Event{Kind: KindDirAdded, Path: path}) {
					return false
				}
			}
			// Entries created before the watch was in place only show up here.
			return o.scan(path, emit)
		}

		if !o.remember(path, false) {
			return true
		}
		return emit(Event{Kind: KindAdded, Path: path})

	case event.Has(fsnotify.Write):
		// A write to a path we never saw created still means the file exists.
		if o.remember(path, false) {
			return emit(Event{Kind: KindAdded, Path: path})
		}
		return emit(Event{Kind: KindModified, Path: path})

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		known, isDir := o.forget(path)
		if !known {
			return true
		}
		if isDir {
			// fsnotify drops watches of removed directories itself; a
			// renamed directory keeps its watch until removed here.
			_ = o.watcher.Remove(path)
			return emit(Event{Kind: KindDirRemoved, Path: path})
		}
		return emit(Event{Kind: KindRemoved, Path: path})
	}

	// Chmod carries no content change.
	return true
}
