package main

import (
	"github.com/spf13/cobra"

	"subgen/internal/diagnose"
	"subgen/internal/logging"
	"subgen/internal/prompt"
	"subgen/internal/session"
)

func newSessionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Prompt for video paths and generate subtitles until you quit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, ctx)
		},
	}
}

func runSession(cmd *cobra.Command, ctx *commandContext) error {
	runCtx, stop := signalContext(cmd)
	defer stop()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	console := prompt.NewConsole(cmd.InOrStdin(), cmd.OutOrStdout(), prompt.WithLogger(logger))
	env, err := ctx.buildPipeline(runCtx, console)
	if err != nil {
		return err
	}
	defer env.Close()

	// Corrections only look at the file system, so ffprobe is not needed.
	diagnoser := diagnose.New(nil, cfg.SearchRoots())
	s := session.New(console, env.pipeline,
		session.WithLogger(logger),
		session.WithCorrections(func(input string) []string {
			return diagnoser.Diagnose(runCtx, input).Suggestions
		}),
	)

	summary, err := s.Loop(runCtx)
	logger.Info("session ended",
		logging.Event("session_end"),
		logging.Int("runs", summary.Runs),
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("failed", summary.Failed),
	)
	return err
}
