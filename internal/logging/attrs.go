package logging

import (
	"context"
	"log/slog"
	"time"
)

// Structured field keys shared across subgen. Console output renders them
// with friendly labels at info level and raw keys at debug.
const (
	FieldComponent    = "component"
	FieldRunID        = "run_id"
	FieldStage        = "stage"
	FieldEventType    = "event_type"
	FieldErrorHint    = "error_hint"
	FieldVideoFile    = "video_file"
	FieldAudioFile    = "audio_file"
	FieldSubtitleFile = "subtitle_file"
	FieldSegmentCount = "segment_count"
	FieldElapsed      = "elapsed"
)

type Attr = slog.Attr

func Any(key string, value any) Attr                { return slog.Any(key, value) }
func Bool(key string, value bool) Attr              { return slog.Bool(key, value) }
func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }
func Float64(key string, value float64) Attr        { return slog.Float64(key, value) }
func Int(key string, value int) Attr                { return slog.Int(key, value) }
func String(key string, value string) Attr          { return slog.String(key, value) }

// Event tags a lifecycle record such as stage_start or run_complete.
func Event(name string) Attr { return slog.String(FieldEventType, name) }

func VideoFile(path string) Attr    { return slog.String(FieldVideoFile, path) }
func AudioFile(path string) Attr    { return slog.String(FieldAudioFile, path) }
func SubtitleFile(path string) Attr { return slog.String(FieldSubtitleFile, path) }
func SegmentCount(n int) Attr       { return slog.Int(FieldSegmentCount, n) }
func Elapsed(d time.Duration) Attr  { return slog.Duration(FieldElapsed, d) }

// Error records err under the "error" key; a nil error is logged as "<nil>"
// rather than dropped.
func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// Args adapts attrs to the ...any parameter of slog.Logger methods.
func Args(attrs ...Attr) []any {
	out := make([]any, len(attrs))
	for i := range attrs {
		out[i] = attrs[i]
	}
	return out
}

// NewComponentLogger tags logger with a component name shown in brackets on
// console output. A nil logger yields a discarding one.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(slog.String(FieldComponent, component))
}

func NewNop() *slog.Logger { return slog.New(discardHandler{}) }

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h discardHandler) WithGroup(string) slog.Handler           { return h }
