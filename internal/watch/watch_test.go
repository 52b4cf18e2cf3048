package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"subgen/internal/pipeline"
)

func startWatcher(t *testing.T, dir string, handler Handler, opts ...Option) (context.CancelFunc, <-chan error) {
	t.Helper()
	w, err := New(dir, handler, append([]Option{WithSettleDelay(10 * time.Millisecond)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	return cancel, done
}

func TestWatcherProcessesNewVideos(t *testing.T) {
	dir := t.TempDir()
	seen := make(chan string, 4)
	cancel, done := startWatcher(t, dir, func(_ context.Context, path string) error {
		seen <- path
		return errors.New("handler errors are logged only")
	})

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	video := filepath.Join(dir, "Clip One.MKV")
	if err := os.WriteFile(video, []byte("video bytes"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case got := <-seen:
		if got != video {
			t.Fatalf("expected %s, got %s", video, got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("video was not processed")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if len(seen) != 0 {
		t.Fatalf("unexpected extra events: %d", len(seen))
	}
}

func TestWatcherQueuesExistingVideos(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "old.mp4")
	if err := os.WriteFile(existing, []byte("video"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	seen := make(chan string, 1)
	cancel, _ := startWatcher(t, dir, func(_ context.Context, path string) error {
		seen <- path
		return nil
	}, WithExisting(true))
	defer cancel()

	select {
	case got := <-seen:
		if got != existing {
			t.Fatalf("expected %s, got %s", existing, got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("existing video was not processed")
	}
}

func TestNewRejectsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "f.mp4")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(file, func(context.Context, string) error { return nil }); err == nil {
		t.Fatal("expected error for non-directory")
	}
}

type recordingRunner struct {
	input, dir string
}

func (r *recordingRunner) RunInto(_ context.Context, input, dir string) (pipeline.Result, error) {
	r.input, r.dir = input, dir
	return pipeline.Result{}, nil
}

func TestPipelineHandlerUsesPerVideoDirectory(t *testing.T) {
	runner := &recordingRunner{}
	if err := PipelineHandler(runner, "/out")(context.Background(), "/in/My Movie.mp4"); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if runner.input != "/in/My Movie.mp4" {
		t.Fatalf("unexpected input %q", runner.input)
	}
	if runner.dir != OutputDirFor("/out", "/in/My Movie.mp4") || filepath.Dir(runner.dir) != "/out" {
		t.Fatalf("unexpected output dir %q", runner.dir)
	}
}
