package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"subgen/internal/logging"
	"subgen/internal/media"
	"subgen/internal/outputlock"
	"subgen/internal/services"
	"subgen/internal/srt"
	"subgen/internal/transcribe"
)

// Resolver maps user input to a video file.
type Resolver interface {
	Resolve(ctx context.Context, input string) (media.VideoReference, error)
}

// Extractor writes the audio track of a video into a directory.
type Extractor interface {
	Extract(ctx context.Context, ref media.VideoReference, outputDir string) (media.AudioTrack, error)
}

// Serializer writes segments as a subtitle file into a directory.
type Serializer interface {
	Serialize(ctx context.Context, segments []media.Segment, outputDir string) (srt.File, error)
}

// Event describes one state transition.
type Event struct {
	RunID string
	Input string
	From  State
	To    State
	At    time.Time
	// Err is set when To is StateFailed.
	Err error
	// Result is the run so far; complete when To is terminal.
	Result Result
}

// Observer receives every transition of a run, in order.
type Observer interface {
	Transition(ctx context.Context, event Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, event Event)

// Transition implements Observer.
func (f ObserverFunc) Transition(ctx context.Context, event Event) { f(ctx, event) }

// Result is the outcome of one run. On failure it holds whatever the earlier
// stages produced.
type Result struct {
	RunID        string
	Input        string
	Video        media.VideoReference
	AudioPath    string
	SubtitlePath string
	Segments     []media.Segment
	State        State
	// FailedStage is set when State is StateFailed.
	FailedStage State
	Err         error
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Duration returns the wall time of a finished run.
func (r Result) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Options wires a Pipeline.
type Options struct {
	Resolver    Resolver
	Extractor   Extractor
	Transcriber transcribe.Service
	Serializer  Serializer
	OutputDir   string
	// LockOutput takes an advisory lock on the output directory for the
	// duration of a run.
	LockOutput bool
	Logger     *slog.Logger
	Observers  []Observer
	// NewRunID overrides run id generation.
	NewRunID func() string
}

// Pipeline runs the stages in order. It is not safe for concurrent use; each
// run shares the fixed output file names.
type Pipeline struct {
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// New validates opts and returns a pipeline.
func New(opts Options) (*Pipeline, error) {
	switch {
	case opts.Resolver == nil:
		return nil, errors.New("pipeline: resolver required")
	case opts.Extractor == nil:
		return nil, errors.New("pipeline: extractor required")
	case opts.Transcriber == nil:
		return nil, errors.New("pipeline: transcriber required")
	case opts.Serializer == nil:
		return nil, errors.New("pipeline: serializer required")
	case strings.TrimSpace(opts.OutputDir) == "":
		return nil, errors.New("pipeline: output directory required")
	}
	if opts.NewRunID == nil {
		opts.NewRunID = func() string { return uuid.NewString() }
	}
	return &Pipeline{
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "pipeline"),
		now:    time.Now,
	}, nil
}

// OutputDir returns the default output directory.
func (p *Pipeline) OutputDir() string { return p.opts.OutputDir }

// Run processes input into the default output directory.
func (p *Pipeline) Run(ctx context.Context, input string) (Result, error) {
	return p.RunInto(ctx, input, p.opts.OutputDir)
}

// RunInto processes input into outputDir. A failed stage yields a
// *StageError; a held output lock yields outputlock.ErrLocked before any
// stage starts.
func (p *Pipeline) RunInto(ctx context.Context, input, outputDir string) (Result, error) {
	runID := p.opts.NewRunID()
	ctx = services.WithRunID(ctx, runID)
	res := Result{RunID: runID, Input: input, StartedAt: p.now()}

	if p.opts.LockOutput {
		lock, err := outputlock.Acquire(outputDir)
		if err != nil {
			return res, err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				logging.WithContext(ctx, p.logger).Warn("output lock release failed", logging.Error(err))
			}
		}()
	}

	logging.WithContext(ctx, p.logger).Info("run started",
		logging.Event("run_start"),
		logging.String("input", input),
		logging.String("output_dir", outputDir),
		logging.String("engine", p.opts.Transcriber.Name()),
	)

	steps := map[State]func(context.Context) error{
		StateResolving: func(ctx context.Context) error {
			ref, err := p.opts.Resolver.Resolve(ctx, input)
			res.Video = ref
			return err
		},
		StateExtracting: func(ctx context.Context) error {
			track, err := p.opts.Extractor.Extract(ctx, res.Video, outputDir)
			res.AudioPath = track.Path
			return err
		},
		StateTranscribing: func(ctx context.Context) error {
			segments, err := p.opts.Transcriber.Transcribe(ctx, media.AudioTrack{Path: res.AudioPath, Source: res.Video})
			res.Segments = segments
			return err
		},
		StateSerializing: func(ctx context.Context) error {
			file, err := p.opts.Serializer.Serialize(ctx, res.Segments, outputDir)
			res.SubtitlePath = file.Path
			return err
		},
	}

	state := StateResolving
	res.State = state
	p.emit(ctx, Event{RunID: runID, Input: input, To: state, At: res.StartedAt, Result: res})

	for !state.Terminal() {
		stageCtx := logging.WithStage(ctx, string(state))
		err := ctx.Err()
		if err == nil {
			err = p.runStage(stageCtx, state, &res, steps[state])
		}
		if err != nil {
			return p.fail(ctx, &res, state, err)
		}
		next := state.next()
		res.State = next
		if next == StateDone {
			res.FinishedAt = p.now()
		}
		p.emit(ctx, Event{RunID: runID, Input: input, From: state, To: next, At: p.now(), Result: res})
		state = next
	}

	logging.WithContext(ctx, p.logger).Info("run completed",
		logging.Event("run_complete"),
		logging.VideoFile(res.Video.Path),
		logging.AudioFile(res.AudioPath),
		logging.SubtitleFile(res.SubtitlePath),
		logging.SegmentCount(len(res.Segments)),
		logging.Elapsed(res.Duration()),
	)
	return res, nil
}

func (p *Pipeline) runStage(ctx context.Context, state State, res *Result, step func(context.Context) error) error {
	logger := logging.WithContext(ctx, p.logger)
	logger.Info("stage started", logging.Event("stage_start"))
	started := p.now()
	if err := step(ctx); err != nil {
		return err
	}
	attrs := []logging.Attr{
		logging.Event("stage_complete"),
		logging.Elapsed(p.now().Sub(started)),
	}
	switch state {
	case StateResolving:
		attrs = append(attrs, logging.VideoFile(res.Video.Path))
	case StateExtracting:
		attrs = append(attrs, logging.AudioFile(res.AudioPath))
	case StateTranscribing:
		attrs = append(attrs, logging.SegmentCount(len(res.Segments)))
	case StateSerializing:
		attrs = append(attrs, logging.SubtitleFile(res.SubtitlePath))
	}
	logger.Info("stage completed", logging.Args(attrs...)...)
	return nil
}

func (p *Pipeline) fail(ctx context.Context, res *Result, stage State, cause error) (Result, error) {
	stageErr := &StageError{Stage: stage, Err: cause}
	res.State = StateFailed
	res.FailedStage = stage
	res.Err = stageErr
	res.FinishedAt = p.now()

	details := services.Details(cause)
	attrs := []logging.Attr{
		logging.Event("stage_failure"),
		logging.String("error_kind", details.Kind),
		logging.String("error_message", details.Message),
		logging.Error(cause),
	}
	if hint := hintFor(details.Marker); hint != "" {
		attrs = append(attrs, logging.String(logging.FieldErrorHint, hint))
	}
	logging.WithContext(logging.WithStage(ctx, string(stage)), p.logger).Error("stage failed", logging.Args(attrs...)...)

	p.emit(ctx, Event{RunID: res.RunID, Input: res.Input, From: stage, To: StateFailed, At: res.FinishedAt, Err: stageErr, Result: *res})
	return *res, stageErr
}

func (p *Pipeline) emit(ctx context.Context, event Event) {
	for _, observer := range p.opts.Observers {
		if observer != nil {
			observer.Transition(ctx, event)
		}
	}
}

// hintFor suggests a next step for common failures.
func hintFor(marker error) string {
	switch marker {
	case services.ErrNotFound:
		return "check the path, or run subgen diagnose <path>"
	case services.ErrExtraction:
		return "verify the file plays and has an audio track (ffprobe)"
	case services.ErrModelUnavailable:
		return "check transcription.model / whispercpp_model, then run subgen doctor"
	case services.ErrMissingDependency:
		return "run subgen doctor to list missing tools"
	case services.ErrSerialization:
		return "check that the output directory is writable"
	}
	return ""
}
