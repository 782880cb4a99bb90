package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hyperjump/trendlens/pkg/utils"
)

const defaultDebounce = 400 * time.Millisecond

// SourceWatcher calls onChange after any of the watched source files is
// created, written or renamed into place. Bursts of events are debounced
// into one call, and calls never overlap. Run waits for an in-flight call
// before returning, so a SourceWatcher runs once.
type SourceWatcher struct {
	files    map[string]bool
	onChange func(ctx context.Context)
	debounce time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
	pending sync.WaitGroup
	running sync.Mutex
}

// WatchOption configures a SourceWatcher.
type WatchOption func(*SourceWatcher)

// WithWatchLogger sets a logger for debug output.
func WithWatchLogger(l *zap.Logger) WatchOption {
	return func(w *SourceWatcher) { w.logger = l }
}

// WithDebounce sets the quiet period before onChange runs.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *SourceWatcher) { w.debounce = d }
}

// NewSourceWatcher watches paths; empty paths are ignored.
func NewSourceWatcher(paths []string, onChange func(ctx context.Context), opts ...WatchOption) (*SourceWatcher, error) {
	w := &SourceWatcher{
		files:    make(map[string]bool),
		onChange: onChange,
		debounce: defaultDebounce,
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		w.files[filepath.Clean(abs)] = true
	}
	if len(w.files) == 0 {
		return nil, fmt.Errorf("no source files to watch")
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = utils.LoggerOrNop(w.logger)
	return w, nil
}

// Run watches until ctx is cancelled. Parent directories are watched so
// editors that replace files atomically are still noticed.
func (w *SourceWatcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	dirs := make(map[string]bool)
	for f := range w.files {
		dirs[filepath.Dir(f)] = true
	}
	for d := range dirs {
		if err := fw.Add(d); err != nil {
			return fmt.Errorf("watch %s: %w", d, err)
		}
		w.logger.Debug("watching directory", zap.String("path", d))
	}

	defer w.stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Debug("watcher error", zap.Error(err))
		}
	}
}

func (w *SourceWatcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	if !w.files[filepath.Clean(ev.Name)] {
		return
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
		return
	}
	w.logger.Debug("source changed", zap.String("op", ev.Op.String()), zap.String("path", ev.Name))

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil && w.timer.Stop() {
		w.pending.Done()
	}
	w.pending.Add(1)
	w.timer = time.AfterFunc(w.debounce, func() {
		defer w.pending.Done()
		w.running.Lock()
		defer w.running.Unlock()
		if ctx.Err() != nil {
			return
		}
		w.onChange(ctx)
	})
}

// stop cancels a pending call and waits for a running one to finish.
func (w *SourceWatcher) stop() {
	w.mu.Lock()
	w.stopped = true
	if w.timer != nil && w.timer.Stop() {
		w.pending.Done()
	}
	w.mu.Unlock()
	w.pending.Wait()
}
