package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"subgen/internal/config"
	"subgen/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var existing bool
	var settle time.Duration

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Generate subtitles for every video added to a directory",
		Long: "Watch a directory and process each new video file in turn. Artifacts go to\n" +
			"<output_dir>/<video name>/ so runs do not overwrite each other.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			dir, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}

			env, err := ctx.buildPipeline(runCtx, nil)
			if err != nil {
				return err
			}
			defer env.Close()

			w, err := watch.New(dir, watch.PipelineHandler(env.pipeline, cfg.Paths.OutputDir),
				watch.WithLogger(logger),
				watch.WithExisting(existing),
				watch.WithSettleDelay(settle),
			)
			if err != nil {
				return err
			}
			defer w.Close()

			if err := w.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&existing, "existing", false, "Also process videos already in the directory")
	cmd.Flags().DurationVar(&settle, "settle", watch.DefaultSettleDelay, "How long a new file must stop growing before it is processed")
	return cmd
}
