package main

import (
	"github.com/spf13/cobra"

	"subgen/internal/prompt"
	"subgen/internal/resolver"
	"subgen/internal/session"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var nonInteractive bool

	cmd := &cobra.Command{
		Use:   "run <video>",
		Short: "Generate subtitles for one video and exit",
		Long: "Resolve the argument to a video file, extract its audio, transcribe it and\n" +
			"write extracted_audio.wav and subtitles.srt to the output directory.\n" +
			"The argument may be a file, a directory or part of a file name.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signalContext(cmd)
			defer stop()

			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			var chooser resolver.Chooser
			if !nonInteractive {
				chooser = prompt.NewConsole(cmd.InOrStdin(), cmd.OutOrStdout(), prompt.WithLogger(logger))
			}

			env, err := ctx.buildPipeline(runCtx, chooser)
			if err != nil {
				return err
			}
			defer env.Close()

			result, err := env.pipeline.Run(runCtx, args[0])
			if err != nil {
				return err
			}
			session.PrintResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&nonInteractive, "non-interactive", false, "Fail instead of prompting when several videos match")
	return cmd
}
