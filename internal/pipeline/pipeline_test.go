package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"subgen/internal/media"
	"subgen/internal/outputlock"
	"subgen/internal/services"
	"subgen/internal/srt"
)

type fakeResolver struct {
	path  string
	err   error
	calls int
}

func (f *fakeResolver) Resolve(context.Context, string) (media.VideoReference, error) {
	f.calls++
	if f.err != nil {
		return media.VideoReference{}, f.err
	}
	return media.VideoReference{Path: f.path}, nil
}

type fakeExtractor struct {
	err   error
	calls int
}

func (f *fakeExtractor) Extract(_ context.Context, ref media.VideoReference, dir string) (media.AudioTrack, error) {
	f.calls++
	if f.err != nil {
		return media.AudioTrack{}, f.err
	}
	path := filepath.Join(dir, "extracted_audio.wav")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return media.AudioTrack{}, err
	}
	return media.AudioTrack{Path: path, Source: ref}, os.WriteFile(path, []byte("RIFF"), 0o644)
}

type fakeTranscriber struct {
	segments []media.Segment
	err      error
	calls    int
	gotPath  string
}

func (f *fakeTranscriber) Name() string                     { return "fake" }
func (f *fakeTranscriber) Model() string                    { return "tiny" }
func (f *fakeTranscriber) Initialize(context.Context) error { return nil }
func (f *fakeTranscriber) Ready() bool                      { return true }
func (f *fakeTranscriber) Transcribe(_ context.Context, track media.AudioTrack) ([]media.Segment, error) {
	f.calls++
	f.gotPath = track.Path
	return f.segments, f.err
}

type countingSerializer struct {
	inner *srt.Serializer
	calls int
}

func (c *countingSerializer) Serialize(ctx context.Context, segments []media.Segment, dir string) (srt.File, error) {
	c.calls++
	return c.inner.Serialize(ctx, segments, dir)
}

type harness struct {
	resolver    *fakeResolver
	extractor   *fakeExtractor
	transcriber *fakeTranscriber
	serializer  *countingSerializer
	events      []Event
	outDir      string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{
		resolver:    &fakeResolver{path: "/videos/clip.mp4"},
		extractor:   &fakeExtractor{},
		transcriber: &fakeTranscriber{segments: []media.Segment{{Start: 0, End: 1.2, Text: "Hi"}, {Start: 1.2, End: 3.5, Text: "there "}}},
		serializer:  &countingSerializer{inner: srt.NewSerializer(nil)},
		outDir:      filepath.Join(t.TempDir(), "output"),
	}
}

func (h *harness) pipeline(t *testing.T, mutate ...func(*Options)) *Pipeline {
	t.Helper()
	opts := Options{
		Resolver:    h.resolver,
		Extractor:   h.extractor,
		Transcriber: h.transcriber,
		Serializer:  h.serializer,
		OutputDir:   h.outDir,
		Observers: []Observer{ObserverFunc(func(_ context.Context, e Event) {
			h.events = append(h.events, e)
		})},
		NewRunID: func() string { return "run-1" },
	}
	for _, m := range mutate {
		m(&opts)
	}
	p, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestRunSuccess(t *testing.T) {
	h := newHarness(t)
	res, err := h.pipeline(t).Run(context.Background(), "clip")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State != StateDone || res.RunID != "run-1" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.SubtitlePath != filepath.Join(h.outDir, srt.FileName) {
		t.Fatalf("unexpected subtitle path %q", res.SubtitlePath)
	}
	if h.transcriber.gotPath != res.AudioPath {
		t.Fatalf("transcriber got %q, audio at %q", h.transcriber.gotPath, res.AudioPath)
	}
	cues, err := srt.ReadFile(res.SubtitlePath)
	if err != nil || len(cues) != 2 || cues[1].Text != "there" {
		t.Fatalf("unexpected subtitles %+v err=%v", cues, err)
	}

	want := []State{StateResolving, StateExtracting, StateTranscribing, StateSerializing, StateDone}
	if len(h.events) != len(want) {
		t.Fatalf("expected %d transitions, got %d", len(want), len(h.events))
	}
	for i, e := range h.events {
		if e.To != want[i] {
			t.Fatalf("transition %d: got %s want %s", i, e.To, want[i])
		}
		if i > 0 && e.From != want[i-1] {
			t.Fatalf("transition %d: from %s want %s", i, e.From, want[i-1])
		}
	}
}

func TestRunTranscriptionFailureLeavesAudio(t *testing.T) {
	h := newHarness(t)
	cause := services.Wrap(services.ErrTranscription, "transcribing", "fake", "engine failed", errors.New("boom"))
	h.transcriber.err = cause

	res, err := h.pipeline(t).Run(context.Background(), "clip")

	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StateTranscribing {
		t.Fatalf("expected transcribing stage error, got %v", err)
	}
	if !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected transcription marker, got %v", err)
	}
	if res.State != StateFailed || res.FailedStage != StateTranscribing {
		t.Fatalf("unexpected result state %s/%s", res.State, res.FailedStage)
	}
	if h.serializer.calls != 0 {
		t.Fatal("serializer must not run after a failed stage")
	}
	if _, err := os.Stat(filepath.Join(h.outDir, srt.FileName)); !os.IsNotExist(err) {
		t.Fatalf("expected no subtitle file, stat err=%v", err)
	}
	data, err := os.ReadFile(res.AudioPath)
	if err != nil || string(data) != "RIFF" {
		t.Fatalf("expected audio untouched, got %q err=%v", data, err)
	}
	last := h.events[len(h.events)-1]
	if last.To != StateFailed || last.From != StateTranscribing || last.Err == nil {
		t.Fatalf("unexpected final event %+v", last)
	}
}

func TestRunFailsAtEachStage(t *testing.T) {
	cases := []struct {
		stage  State
		marker error
		setup  func(*harness, error)
	}{
		{StateResolving, services.ErrNotFound, func(h *harness, err error) { h.resolver.err = err }},
		{StateExtracting, services.ErrExtraction, func(h *harness, err error) { h.extractor.err = err }},
	}
	for _, tc := range cases {
		t.Run(string(tc.stage), func(t *testing.T) {
			h := newHarness(t)
			tc.setup(h, services.Wrap(tc.marker, string(tc.stage), "", "fail", nil))

			_, err := h.pipeline(t).Run(context.Background(), "clip")
			stage, ok := FailedStage(err)
			if !ok || stage != tc.stage || !errors.Is(err, tc.marker) {
				t.Fatalf("unexpected error %v", err)
			}
			if h.transcriber.calls != 0 {
				t.Fatal("transcriber must not run")
			}
		})
	}
}

func TestRunSerializationFailure(t *testing.T) {
	h := newHarness(t)
	blocked := filepath.Join(t.TempDir(), "blocked")
	if err := os.WriteFile(blocked, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	// A regular file where the subtitle directory should be breaks only the
	// final write.
	broken := serializerFunc(func(ctx context.Context, segments []media.Segment, _ string) (srt.File, error) {
		return srt.NewSerializer(nil).Serialize(ctx, segments, filepath.Join(blocked, "sub"))
	})

	res, err := h.pipeline(t, func(o *Options) { o.Serializer = broken }).Run(context.Background(), "clip")
	if stage, _ := FailedStage(err); stage != StateSerializing || !errors.Is(err, services.ErrSerialization) {
		t.Fatalf("expected serialization failure, got %v", err)
	}
	if len(res.Segments) != 2 {
		t.Fatalf("expected transcript kept on the failed result, got %d segments", len(res.Segments))
	}
}

type serializerFunc func(context.Context, []media.Segment, string) (srt.File, error)

func (f serializerFunc) Serialize(ctx context.Context, s []media.Segment, dir string) (srt.File, error) {
	return f(ctx, s, dir)
}

func TestRunCancelledBetweenStages(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	p := h.pipeline(t)
	p.opts.Observers = append(p.opts.Observers, ObserverFunc(func(_ context.Context, e Event) {
		if e.To == StateTranscribing {
			cancel()
		}
	}))

	_, err := p.Run(ctx, "clip")
	stage, _ := FailedStage(err)
	if stage != StateTranscribing || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation at transcribing, got %v", err)
	}
	if h.transcriber.calls != 0 {
		t.Fatal("transcriber must not start after cancellation")
	}
}

func TestRunHonoursOutputLock(t *testing.T) {
	h := newHarness(t)
	held, err := outputlock.Acquire(h.outDir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer held.Release()

	_, err = h.pipeline(t, func(o *Options) { o.LockOutput = true }).Run(context.Background(), "clip")
	if !errors.Is(err, outputlock.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if h.resolver.calls != 0 || len(h.events) != 0 {
		t.Fatal("no stage may start while the output directory is locked")
	}
}

func TestRunIntoUsesGivenDirectory(t *testing.T) {
	h := newHarness(t)
	dir := filepath.Join(t.TempDir(), "per-video")
	res, err := h.pipeline(t).RunInto(context.Background(), "clip", dir)
	if err != nil {
		t.Fatalf("RunInto: %v", err)
	}
	if filepath.Dir(res.SubtitlePath) != dir || filepath.Dir(res.AudioPath) != dir {
		t.Fatalf("expected artifacts in %s, got %+v", dir, res)
	}
}

func TestNewValidatesOptions(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error for empty options")
	}
}

func TestStateHelpers(t *testing.T) {
	if StateResolving.next() != StateExtracting || StateSerializing.next() != StateDone {
		t.Fatal("unexpected state ordering")
	}
	if !StateDone.Terminal() || !StateFailed.Terminal() || StateExtracting.Terminal() {
		t.Fatal("unexpected terminal states")
	}
	err := &StageError{Stage: StateExtracting, Err: services.ErrExtraction}
	if err.Error() != "extracting failed: audio extraction failed" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
