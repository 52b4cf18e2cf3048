package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"subgen/internal/logging"
	"subgen/internal/media"
	"subgen/internal/pipeline"
	"subgen/internal/textutil"
)

// DefaultSettleDelay is how long a new file's size must stay unchanged before
// it is processed.
const DefaultSettleDelay = 500 * time.Millisecond

const queueSize = 64

// Handler processes one detected video file.
type Handler func(ctx context.Context, path string) error

// IntoRunner runs the pipeline into a chosen directory.
// *pipeline.Pipeline satisfies it.
type IntoRunner interface {
	RunInto(ctx context.Context, input, outputDir string) (pipeline.Result, error)
}

// PipelineHandler returns a handler that writes each video's artifacts to
// <outputDir>/<sanitized stem>.
func PipelineHandler(runner IntoRunner, outputDir string) Handler {
	return func(ctx context.Context, path string) error {
		_, err := runner.RunInto(ctx, path, OutputDirFor(outputDir, path))
		return err
	}
}

// OutputDirFor returns the per-video output directory for path.
func OutputDirFor(outputDir, path string) string {
	ref := media.VideoReference{Path: path}
	return filepath.Join(outputDir, textutil.SanitizeFileName(ref.Stem()))
}

// Watcher reports Create events for video files in one directory.
type Watcher struct {
	dir      string
	handler  Handler
	logger   *slog.Logger
	settle   time.Duration
	existing bool
	fs       *fsnotify.Watcher

	mu     sync.Mutex
	queued map[string]struct{}
}

// Option customizes a Watcher.
type Option func(*Watcher)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) { w.logger = logging.NewComponentLogger(logger, "watch") }
}

// WithSettleDelay overrides DefaultSettleDelay.
func WithSettleDelay(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

// WithExisting queues the videos already present in the directory at start.
func WithExisting(enabled bool) Option {
	return func(w *Watcher) { w.existing = enabled }
}

// New starts watching dir. Call Run to process events and Close when done.
func New(dir string, handler Handler, opts ...Option) (*Watcher, error) {
	if handler == nil {
		return nil, errors.New("watch: handler required")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch directory: %s is not a directory", dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	w := &Watcher{dir: dir, handler: handler, logger: logging.NewNop(), settle: DefaultSettleDelay, fs: fsw, queued: make(map[string]struct{})}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

// Run processes events until ctx ends, returning ctx.Err(). Files are handled
// sequentially in detection order; a handler error is logged and does not
// stop the watch.
func (w *Watcher) Run(ctx context.Context) error {
	queue := make(chan string, queueSize)
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.work(ctx, queue)
	}()
	defer func() {
		close(queue)
		<-done
	}()

	w.logger.Info("watching for new videos",
		logging.Event("watch_start"),
		logging.String("directory", w.dir),
	)

	enqueue := func(path string) bool {
		if !w.mark(path) {
			return true
		}
		select {
		case queue <- path:
			return true
		case <-ctx.Done():
			return false
		}
	}

	if w.existing {
		entries, err := os.ReadDir(w.dir)
		if err != nil {
			return fmt.Errorf("list watch directory: %w", err)
		}
		for _, entry := range entries {
			if entry.Type().IsRegular() && media.IsVideoFile(entry.Name()) {
				if !enqueue(filepath.Join(w.dir, entry.Name())) {
					return ctx.Err()
				}
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watch stopped", logging.Event("watch_stop"))
			return ctx.Err()
		case event, ok := <-w.fs.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			if !media.IsVideoFile(event.Name) {
				w.logger.Debug("ignoring non-video file", logging.String("path", event.Name))
				continue
			}
			w.logger.Info("new video detected", logging.VideoFile(event.Name))
			if !enqueue(event.Name) {
				return ctx.Err()
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.logger.Warn("watcher error",
				logging.Error(err),
				logging.Event("watch_error"),
				logging.String(logging.FieldErrorHint, "events may have been dropped; restart the watch to rescan"),
			)
		}
	}
}

// mark records path as queued and reports whether it was not already.
func (w *Watcher) mark(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.queued[path]; ok {
		return false
	}
	w.queued[path] = struct{}{}
	return true
}

func (w *Watcher) work(ctx context.Context, queue <-chan string) {
	for path := range queue {
		w.process(ctx, path)
		w.mu.Lock()
		delete(w.queued, path)
		w.mu.Unlock()
	}
}

func (w *Watcher) process(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	if err := w.waitStable(ctx, path); err != nil {
		if ctx.Err() == nil {
			w.logger.Warn("skipping video", logging.VideoFile(path), logging.Error(err))
		}
		return
	}
	if err := w.handler(ctx, path); err != nil && ctx.Err() == nil {
		w.logger.Error("video processing failed",
			logging.VideoFile(path),
			logging.Error(err),
			logging.Event("watch_failure"),
		)
	}
}

// waitStable blocks until the file's size is non-zero and unchanged across
// one settle interval.
func (w *Watcher) waitStable(ctx context.Context, path string) error {
	var last int64 = -1
	timer := time.NewTimer(w.settle)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("%s is not a regular file", path)
		}
		size := info.Size()
		if size > 0 && size == last {
			return nil
		}
		last = size
		timer.Reset(w.settle)
	}
}
