// Package watch reruns a callback when WBS inputs change on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period before the handler runs.
const DefaultDebounce = 250 * time.Millisecond

var (
	// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
	ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

	// ErrNoPaths is returned when nothing was given to watch.
	ErrNoPaths = errors.New("no paths to watch")
)

// Handler receives the sorted set of paths that changed during one
// debounce window.
type Handler func(ctx context.Context, changed []string) error

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration

	// Ignore lists paths that never trigger the handler, such as the
	// file the handler itself writes.
	Ignore []string

	Logger *zap.Logger
}

// target is one watched input: a file, matched by name inside its parent,
// or a directory whose *.json entries are matched.
type target struct {
	dir  string
	file string // empty for directory targets
}

// Watcher watches outline files and fragment directories.
type Watcher struct {
	targets  []target
	ignore   map[string]bool
	debounce time.Duration
	handler  Handler
	logger   *zap.Logger
	fs       *fsnotify.Watcher
}

// New creates a watcher over paths. Files are watched through their parent
// directory so editors that replace files on save are still seen.
func New(paths []string, handler Handler, opts Options) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, ErrNoPaths
	}
	w := &Watcher{
		ignore:   make(map[string]bool),
		debounce: opts.Debounce,
		handler:  handler,
		logger:   opts.Logger,
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.logger == nil {
		w.logger = zap.NewNop()
	}
	for _, p := range opts.Ignore {
		if abs, err := filepath.Abs(p); err == nil {
			w.ignore[abs] = true
		}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	w.fs = fw

	dirs := make(map[string]bool)
	for _, p := range paths {
		t, err := newTarget(p)
		if err != nil {
			_ = fw.Close()
			return nil, err
		}
		w.targets = append(w.targets, t)
		if dirs[t.dir] {
			continue
		}
		if err := fw.Add(t.dir); err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("watching %s: %w", t.dir, err)
		}
		dirs[t.dir] = true
	}
	return w, nil
}

func newTarget(p string) (target, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return target{}, fmt.Errorf("resolving %s: %w", p, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return target{}, fmt.Errorf("stat %s: %w", p, err)
	}
	if info.IsDir() {
		return target{dir: abs}, nil
	}
	return target{dir: filepath.Dir(abs), file: filepath.Base(abs)}, nil
}

// matches reports whether an event on path concerns a watched input.
func (w *Watcher) matches(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil || w.ignore[abs] {
		return false
	}
	dir, base := filepath.Dir(abs), filepath.Base(abs)
	for _, t := range w.targets {
		if t.dir != dir {
			continue
		}
		if t.file == "" && strings.EqualFold(filepath.Ext(base), ".json") {
			return true
		}
		if t.file != "" && t.file == base {
			return true
		}
	}
	return false
}

// Run blocks until ctx is done, invoking the handler once per burst of
// changes. Handler errors are logged and watching continues.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	pending := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod || !w.matches(ev.Name) {
				continue
			}
			w.logger.Debug("input changed", zap.String("path", ev.Name), zap.Stringer("op", ev.Op))
			pending[ev.Name] = true
			timer.Reset(w.debounce)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))

		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			pending = make(map[string]bool)

			if err := w.handler(ctx, changed); err != nil {
				w.logger.Warn("rerun failed", zap.Strings("changed", changed), zap.Error(err))
			}
		}
	}
}

// Close releases the watcher without running it.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
