package main

import (
	"context"
	"fmt"

	"subgen/internal/deps"
	"subgen/internal/extract"
	"subgen/internal/history"
	"subgen/internal/logging"
	"subgen/internal/pipeline"
	"subgen/internal/resolver"
	"subgen/internal/srt"
	"subgen/internal/transcribe"
)

// pipelineEnv holds a ready pipeline and the resources it borrows.
type pipelineEnv struct {
	pipeline *pipeline.Pipeline
	resolver *resolver.Resolver
	history  *history.Store
}

func (e *pipelineEnv) Close() error {
	if e == nil || e.history == nil {
		return nil
	}
	return e.history.Close()
}

// buildPipeline checks external programs, initializes the transcription
// engine and wires every stage. chooser may be nil for non-interactive use.
func (c *commandContext) buildPipeline(ctx context.Context, chooser resolver.Chooser) (*pipelineEnv, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}

	if _, err := deps.Check(cfg); err != nil {
		return nil, err
	}

	svc, err := transcribe.New(cfg, transcribe.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if err := svc.Initialize(ctx); err != nil {
		return nil, err
	}

	env := &pipelineEnv{resolver: resolver.NewFromConfig(cfg, chooser, logger)}
	opts := pipeline.Options{
		Resolver:    env.resolver,
		Extractor:   extract.NewFromConfig(cfg, logger),
		Transcriber: svc,
		Serializer:  srt.NewSerializer(logger),
		OutputDir:   cfg.Paths.OutputDir,
		LockOutput:  cfg.Output.Lock,
		Logger:      logger,
	}

	if cfg.History.Enabled {
		store, err := history.Open(cfg.Paths.HistoryDB)
		if err != nil {
			logger.Warn("run history unavailable",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "set history.enabled = false to silence this warning"),
			)
		} else {
			env.history = store
			opts.Observers = append(opts.Observers, history.NewRecorder(store, svc.Name(), svc.Model(), logger))
		}
	}

	env.pipeline, err = pipeline.New(opts)
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	return env, nil
}
