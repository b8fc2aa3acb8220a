package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aymanbagabas/go-udiff"
	"github.com/fsnotify/fsnotify"

	"github.com/macropower/hermitlink/pkg/buildenv"
	"github.com/macropower/hermitlink/pkg/deptree"
	"github.com/macropower/hermitlink/pkg/log"
)

// ErrNothingToWatch is returned by [Watcher.Run] when the pipeline skips the
// build because the target OS does not match.
var ErrNothingToWatch = errors.New("target os does not match, nothing to watch")

// DefaultSettle is how long the [Watcher] waits for a burst of events to
// end before rebuilding.
const DefaultSettle = 250 * time.Millisecond

// Watcher reruns a [Pipeline] whenever one of its rebuild triggers changes
// on disk. Runs never overlap.
type Watcher struct {
	pipeline *Pipeline
	watcher  *fsnotify.Watcher
	onRun    func(*Result, error)
	dirs     map[string]struct{}
	files    map[string]struct{}
	trees    []string
	current  []string
	settle   time.Duration
}

// WatcherOpt configures a [Watcher].
type WatcherOpt func(*Watcher)

// WithSettle sets the quiet period after the last event before a rebuild.
func WithSettle(d time.Duration) WatcherOpt {
	return func(w *Watcher) {
		w.settle = d
	}
}

// WithOnRun sets a function called after every run.
func WithOnRun(fn func(*Result, error)) WatcherOpt {
	return func(w *Watcher) {
		w.onRun = fn
	}
}

// NewWatcher creates a [Watcher] for p. Call [Watcher.Close] when done.
func NewWatcher(p *Pipeline, opts ...WatcherOpt) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		pipeline: p,
		watcher:  fw,
		dirs:     make(map[string]struct{}),
		files:    make(map[string]struct{}),
		settle:   DefaultSettle,
	}
	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Run builds once, then rebuilds on every change until ctx is canceled.
// A failed build is logged and does not stop the loop. Run only returns an
// error when the rebuild triggers cannot be determined at all.
func (w *Watcher) Run(ctx context.Context, cfg *buildenv.Config) error {
	err := w.rebuild(ctx, cfg)
	if err != nil {
		return err
	}

	var (
		pending bool
		timer   = time.NewTimer(w.settle)
	)
	timer.Stop()

	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}

			// Ignore events that are not related to file content changes.
			if evt.Has(fsnotify.Chmod) {
				continue
			}

			if !w.isWatched(evt.Name) {
				continue
			}

			log.WithContext(ctx).DebugContext(ctx, "rebuild trigger changed",
				slog.String("event", evt.String()),
			)

			pending = true

			timer.Reset(w.settle)

		case <-timer.C:
			if !pending {
				continue
			}

			pending = false

			err := w.rebuild(ctx, cfg)
			if err != nil {
				log.WithContext(ctx).ErrorContext(ctx, "update watchers", slog.Any("err", err))
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}

			log.WithContext(ctx).ErrorContext(ctx, "watch", slog.Any("err", err))
		}
	}
}

// Close releases the underlying file watches.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	if err != nil {
		return fmt.Errorf("close watcher: %w", err)
	}

	return nil
}

func (w *Watcher) rebuild(ctx context.Context, cfg *buildenv.Config) error {
	logger := log.WithContext(ctx)

	res, runErr := w.pipeline.Run(ctx, cfg)
	if w.onRun != nil {
		defer w.onRun(res, runErr)
	}

	var (
		set *deptree.WatchSet
		err error
	)

	switch {
	case runErr == nil && res.Skipped:
		return ErrNothingToWatch
	case runErr == nil:
		set = res.Watch
	default:
		logger.ErrorContext(ctx, "build failed", slog.Any("err", runErr))

		// Keep watching whatever the sources currently declare.
		set, err = w.pipeline.Watch(ctx, cfg)
		if err != nil {
			return err
		}
	}

	next := set.Strings()
	if w.current != nil {
		diff := udiff.Unified("before", "after",
			strings.Join(w.current, "\n")+"\n",
			strings.Join(next, "\n")+"\n",
		)
		if diff != "" {
			logger.InfoContext(ctx, "rebuild triggers changed", slog.String("diff", diff))
		}
	}

	w.current = next

	w.removeWatchers(ctx)

	return w.addWatchers(ctx, set.Paths())
}

func (w *Watcher) addWatchers(ctx context.Context, paths []string) error {
	for _, path := range paths {
		info, err := os.Stat(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// Watch the parent so the file is picked up once it is created.
			w.files[path] = struct{}{}

			err = w.addDir(filepath.Dir(path))
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}

		case err != nil:
			return fmt.Errorf("stat %q: %w", path, err)

		case info.IsDir():
			w.trees = append(w.trees, path)

			err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.IsDir() {
					return nil
				}

				return w.addDir(p)
			})
			if err != nil {
				return fmt.Errorf("walk %q: %w", path, err)
			}

		default:
			w.files[path] = struct{}{}

			err = w.addDir(filepath.Dir(path))
			if err != nil {
				return err
			}
		}
	}

	log.WithContext(ctx).DebugContext(ctx, "added file watchers",
		slog.Int("dirs", len(w.dirs)),
		slog.Int("files", len(w.files)),
		slog.Int("trees", len(w.trees)),
	)

	return nil
}

func (w *Watcher) addDir(dir string) error {
	if _, ok := w.dirs[dir]; ok {
		return nil
	}

	err := w.watcher.Add(dir)
	if err != nil {
		return fmt.Errorf("add path to watcher: %w", err)
	}

	w.dirs[dir] = struct{}{}

	return nil
}

func (w *Watcher) removeWatchers(ctx context.Context) {
	logger := log.WithContext(ctx)

	for dir := range w.dirs {
		err := w.watcher.Remove(dir)
		if err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
			logger.ErrorContext(ctx, "remove path from watcher", slog.Any("err", err))
		}
	}

	clear(w.dirs)
	clear(w.files)
	w.trees = w.trees[:0]
}

func (w *Watcher) isWatched(name string) bool {
	if _, ok := w.files[name]; ok {
		return true
	}

	for _, tree := range w.trees {
		if name == tree || strings.HasPrefix(name, tree+string(filepath.Separator)) {
			return true
		}
	}

	return false
}
