// Package watch feeds local file changes into the sync engine.
//
// The OS watch is not recursive, so the watcher keeps its own tree of watched
// directories and extends it whenever a new directory appears.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/joe/gosync/internal/syncengine"
)

// Exported constants.
const (
	// DefaultDebounce is the quiet period before a pass is requested.
	DefaultDebounce = 500 * time.Millisecond
)

// Exported variables.
var (
	ErrWatcherClosed = errors.New("watcher closed")
	ErrDirNotExist   = errors.New("directory to watch does not exist")
)

// PassRequester starts a sync pass unless one is already running.
// *syncengine.Engine implements it.
type PassRequester interface {
	RequestPass(ctx context.Context) bool
}

// Watcher adds changed files under root to the pending set and asks for a pass.
// It never touches the remote session itself.
type Watcher struct {
	Debounce time.Duration
	Filter   syncengine.FileFilter
	Logger   *slog.Logger

	root      string
	pending   *syncengine.PendingSet
	requester PassRequester
	fsw       *fsnotify.Watcher

	mu     sync.Mutex
	tree   map[string]struct{}
	timer  *time.Timer
	closed bool
}

// New creates a Watcher for root. Call Start to begin watching.
func New(root string, pending *syncengine.PendingSet, requester PassRequester) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Watcher{
		Debounce:  DefaultDebounce,
		Logger:    slog.Default(),
		root:      filepath.Clean(root),
		pending:   pending,
		requester: requester,
		fsw:       fsw,
		tree:      make(map[string]struct{}),
	}, nil
}

// Start watches root and all of its current subdirectories. Files already
// present are not marked pending; the first pass reconciles them.
func (w *Watcher) Start() error {
	info, err := os.Stat(w.root)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrDirNotExist, w.root)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}

	_, err = w.addSubtreeLocked(w.root, false)

	return err
}

// Run handles events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger().Info("watching for changes", "dir", w.root)

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return ErrWatcherClosed
			}

			w.handleEvent(ctx, event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return ErrWatcherClosed
			}

			w.logger().Warn("file watcher error", "error", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// AddSubtree watches dir and every directory below it, and marks the regular
// files found there as pending. It returns the number of files marked.
func (w *Watcher) AddSubtree(dir string) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, ErrWatcherClosed
	}

	return w.addSubtreeLocked(filepath.Clean(dir), true)
}

// RemoveSubtree stops watching dir and everything below it.
func (w *Watcher) RemoveSubtree(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.removeSubtreeLocked(filepath.Clean(dir))
}

// Watched returns the watched directories, sorted.
func (w *Watcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	dirs := make([]string, 0, len(w.tree))
	for dir := range w.tree {
		dirs = append(dirs, dir)
	}

	sort.Strings(dirs)

	return dirs
}

// Close stops the watcher and any pending pass request. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true

	if w.timer != nil {
		w.timer.Stop()
	}

	return w.fsw.Close()
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		w.onChange(ctx, event)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.RemoveSubtree(event.Name)
	}
}

func (w *Watcher) onChange(ctx context.Context, event fsnotify.Event) {
	info, err := os.Stat(event.Name)
	if err != nil {
		// Gone again before we looked; nothing to send.
		w.logger().Debug("changed path vanished", "path", event.Name, "error", err)

		return
	}

	if info.IsDir() {
		if !event.Has(fsnotify.Create) {
			return
		}

		seeded, err := w.AddSubtree(event.Name)
		if err != nil {
			w.logger().Warn("failed to watch new directory", "dir", event.Name, "error", err)
		}

		if seeded > 0 {
			w.schedule(ctx)
		}

		return
	}

	if !info.Mode().IsRegular() || !w.include(event.Name) {
		return
	}

	if w.pending.Add(event.Name) {
		w.logger().Debug("file pending", "path", event.Name)
	}

	w.schedule(ctx)
}

func (w *Watcher) addSubtreeLocked(dir string, seed bool) (int, error) {
	seeded := 0

	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk dir: %w", err)
		}

		if entry.IsDir() {
			if _, watched := w.tree[path]; watched {
				return nil
			}

			if err := w.fsw.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}

			w.tree[path] = struct{}{}
			w.logger().Debug("watch added", "dir", path)

			return nil
		}

		if seed && entry.Type().IsRegular() && w.include(path) && w.pending.Add(path) {
			seeded++
		}

		return nil
	})

	return seeded, err
}

func (w *Watcher) removeSubtreeLocked(dir string) {
	prefix := dir + string(filepath.Separator)

	for watched := range w.tree {
		if watched != dir && !strings.HasPrefix(watched, prefix) {
			continue
		}

		// The OS usually drops the watch itself when the directory goes away.
		if err := w.fsw.Remove(watched); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
			w.logger().Debug("failed to remove watch", "dir", watched, "error", err)
		}

		delete(w.tree, watched)
		w.logger().Debug("watch removed", "dir", watched)
	}
}

// schedule requests a pass once events have been quiet for the debounce period.
func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.Debounce, func() {
		if ctx.Err() != nil {
			return
		}

		if !w.requester.RequestPass(ctx) {
			// The running pass or the next one reconciles the pending files.
			w.logger().Debug("pass already running, request dropped", "pending", w.pending.Len())
		}
	})
}

func (w *Watcher) include(path string) bool {
	if w.Filter == nil {
		return true
	}

	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return true
	}

	return w.Filter.ShouldInclude(filepath.ToSlash(rel))
}

func (w *Watcher) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}

	return slog.Default()
}
