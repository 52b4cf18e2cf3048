package services

import "context"

// Scope identifies the pipeline run and stage a context belongs to.
type Scope struct {
	RunID string
	Stage string
}

type scopeKey struct{}

// ScopeFrom returns the scope carried by ctx. The zero Scope means none.
func ScopeFrom(ctx context.Context) Scope {
	if ctx == nil {
		return Scope{}
	}
	scope, _ := ctx.Value(scopeKey{}).(Scope)
	return scope
}

// WithScope overlays the non-empty fields of scope onto whatever ctx already
// carries.
func WithScope(ctx context.Context, scope Scope) context.Context {
	current := ScopeFrom(ctx)
	merged := current
	if scope.RunID != "" {
		merged.RunID = scope.RunID
	}
	if scope.Stage != "" {
		merged.Stage = scope.Stage
	}
	if merged == current {
		return ctx
	}
	return context.WithValue(ctx, scopeKey{}, merged)
}

// WithRunID tags ctx with a pipeline run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	return WithScope(ctx, Scope{RunID: id})
}

// WithStage tags ctx with the stage currently executing.
func WithStage(ctx context.Context, stage string) context.Context {
	return WithScope(ctx, Scope{Stage: stage})
}
