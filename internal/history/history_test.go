package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"subgen/internal/media"
	"subgen/internal/pipeline"
	"subgen/internal/services"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenReopensExistingLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	if err := store.Begin(ctx, Run{ID: "abc", Input: "x", State: "resolving", StartedAt: time.Now()}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	_ = store.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	runs, err := reopened.List(ctx, 0)
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected persisted run, got %v err=%v", runs, err)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = store.Close()

	if _, err := Open(path); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}

func TestRecorderTracksSuccessfulRun(t *testing.T) {
	store := openStore(t)
	rec := NewRecorder(store, "whisperx", "base", nil)
	ctx := context.Background()
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	res := pipeline.Result{RunID: "run-1", Input: "clip"}
	rec.Transition(ctx, pipeline.Event{RunID: "run-1", Input: "clip", To: pipeline.StateResolving, At: start, Result: res})
	res.Video = media.VideoReference{Path: "/v/clip.mp4"}
	rec.Transition(ctx, pipeline.Event{RunID: "run-1", From: pipeline.StateResolving, To: pipeline.StateExtracting, At: start.Add(time.Second), Result: res})
	res.AudioPath = "/out/extracted_audio.wav"
	res.SubtitlePath = "/out/subtitles.srt"
	res.Segments = make([]media.Segment, 3)
	rec.Transition(ctx, pipeline.Event{RunID: "run-1", From: pipeline.StateSerializing, To: pipeline.StateDone, At: start.Add(time.Minute), Result: res})

	run, err := store.Get(ctx, "run")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if run.State != "done" || run.VideoPath != "/v/clip.mp4" || run.SegmentCount != 3 || run.Engine != "whisperx" {
		t.Fatalf("unexpected run %+v", run)
	}
	if run.Duration() != time.Minute {
		t.Fatalf("unexpected duration %v", run.Duration())
	}
	transitions, err := store.Transitions(ctx, "run-1")
	if err != nil || len(transitions) != 3 {
		t.Fatalf("expected 3 transitions, got %v err=%v", transitions, err)
	}
	if transitions[0].From != "" || transitions[2].To != "done" {
		t.Fatalf("unexpected transitions %+v", transitions)
	}
}

func TestRecorderStoresFailureDetails(t *testing.T) {
	store := openStore(t)
	rec := NewRecorder(store, "whispercpp", "", nil)
	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()

	rec.Transition(ctx, pipeline.Event{RunID: "run-2", Input: "clip", To: pipeline.StateResolving, At: now})
	cancel()
	cause := services.Wrap(services.ErrTranscription, "transcribing", "whispercpp", "engine failed", nil)
	res := pipeline.Result{RunID: "run-2", State: pipeline.StateFailed, FailedStage: pipeline.StateTranscribing}
	rec.Transition(ctx, pipeline.Event{
		RunID:  "run-2",
		From:   pipeline.StateTranscribing,
		To:     pipeline.StateFailed,
		At:     now.Add(time.Second),
		Err:    &pipeline.StageError{Stage: pipeline.StateTranscribing, Err: cause},
		Result: res,
	})

	run, err := store.Get(context.Background(), "run-2")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if run.State != "failed" || run.FailedStage != "transcribing" || run.ErrorKind != services.ErrTranscription.Error() {
		t.Fatalf("unexpected failure record %+v", run)
	}
	if run.ErrorMessage == "" || run.FinishedAt.IsZero() {
		t.Fatalf("expected message and finish time, got %+v", run)
	}
}

func TestListGetPruneClear(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"aaa111", "aaa222", "bbb333"} {
		if err := store.Begin(ctx, Run{ID: id, Input: id, State: "done", StartedAt: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("Begin: %v", err)
		}
		if err := store.AddTransition(ctx, id, Transition{To: "resolving", At: base}); err != nil {
			t.Fatalf("AddTransition: %v", err)
		}
	}

	runs, err := store.List(ctx, 2)
	if err != nil || len(runs) != 2 || runs[0].ID != "bbb333" {
		t.Fatalf("unexpected list %+v err=%v", runs, err)
	}
	if _, err := store.Get(ctx, "aaa"); err == nil {
		t.Fatal("expected ambiguous prefix error")
	}
	if _, err := store.Get(ctx, "zzz"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if run, err := store.Get(ctx, "bbb"); err != nil || run.ID != "bbb333" {
		t.Fatalf("expected prefix match, got %+v err=%v", run, err)
	}

	removed, err := store.Prune(ctx, 1)
	if err != nil || removed != 2 {
		t.Fatalf("expected 2 pruned, got %d err=%v", removed, err)
	}
	if transitions, _ := store.Transitions(ctx, "aaa111"); len(transitions) != 0 {
		t.Fatalf("expected cascaded transitions, got %v", transitions)
	}

	cleared, err := store.Clear(ctx)
	if err != nil || cleared != 1 {
		t.Fatalf("expected 1 cleared, got %d err=%v", cleared, err)
	}
}

func TestUpdateUnknownRun(t *testing.T) {
	store := openStore(t)
	if err := store.Update(context.Background(), Run{ID: "ghost", State: "done"}); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRecorderAsPipelineObserver(t *testing.T) {
	var _ pipeline.Observer = (*Recorder)(nil)
}
