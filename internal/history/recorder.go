package history

import (
	"context"
	"log/slog"

	"subgen/internal/logging"
	"subgen/internal/pipeline"
	"subgen/internal/services"
)

// Recorder writes pipeline transitions to the ledger. It satisfies
// pipeline.Observer; write failures are logged and otherwise ignored.
type Recorder struct {
	store  *Store
	engine string
	model  string
	logger *slog.Logger
}

// NewRecorder returns a recorder tagging runs with the engine and model.
func NewRecorder(store *Store, engine, model string, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:  store,
		engine: engine,
		model:  model,
		logger: logging.NewComponentLogger(logger, "history"),
	}
}

// Transition implements pipeline.Observer.
func (r *Recorder) Transition(ctx context.Context, event pipeline.Event) {
	if r == nil || r.store == nil {
		return
	}
	// Recording must outlive a cancelled run so the failure is kept.
	ctx = context.WithoutCancel(ctx)

	if event.From == "" {
		err := r.store.Begin(ctx, Run{
			ID:        event.RunID,
			Input:     event.Input,
			Engine:    r.engine,
			Model:     r.model,
			State:     string(event.To),
			StartedAt: event.At,
		})
		if err != nil {
			r.warn(ctx, "record run start", err)
			return
		}
	} else if err := r.store.Update(ctx, runFromResult(event)); err != nil {
		r.warn(ctx, "record run update", err)
	}

	if err := r.store.AddTransition(ctx, event.RunID, Transition{
		From: string(event.From),
		To:   string(event.To),
		At:   event.At,
	}); err != nil {
		r.warn(ctx, "record transition", err)
	}
}

func runFromResult(event pipeline.Event) Run {
	res := event.Result
	run := Run{
		ID:           event.RunID,
		VideoPath:    res.Video.Path,
		AudioPath:    res.AudioPath,
		SubtitlePath: res.SubtitlePath,
		State:        string(event.To),
		SegmentCount: len(res.Segments),
	}
	if event.To.Terminal() {
		run.FinishedAt = event.At
	}
	if event.To == pipeline.StateFailed {
		run.FailedStage = string(res.FailedStage)
		cause := event.Err
		if stageErr, ok := cause.(*pipeline.StageError); ok {
			cause = stageErr.Err
		}
		details := services.Details(cause)
		run.ErrorKind = details.Kind
		run.ErrorMessage = details.Message
	}
	return run
}

func (r *Recorder) warn(ctx context.Context, action string, err error) {
	logging.WithContext(ctx, r.logger).Warn("history write failed",
		logging.String("action", action),
		logging.String("database", r.store.Path()),
		logging.Error(err),
	)
}
