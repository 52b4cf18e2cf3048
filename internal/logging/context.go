package logging

import (
	"context"
	"log/slog"

	"subgen/internal/services"
)

// ContextFields returns the run_id and stage attributes carried by ctx.
func ContextFields(ctx context.Context) []slog.Attr {
	scope := services.ScopeFrom(ctx)
	var fields []slog.Attr
	if scope.RunID != "" {
		fields = append(fields, slog.String(FieldRunID, scope.RunID))
	}
	if scope.Stage != "" {
		fields = append(fields, slog.String(FieldStage, scope.Stage))
	}
	return fields
}

// WithContext binds the run scope of ctx to logger so every record it emits
// carries run_id and stage.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if fields := ContextFields(ctx); len(fields) > 0 {
		return logger.With(Args(fields...)...)
	}
	return logger
}

// WithStage tags ctx with a stage name for later WithContext calls.
func WithStage(ctx context.Context, stage string) context.Context {
	return services.WithStage(ctx, stage)
}
