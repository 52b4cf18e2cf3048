package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"subgen/internal/prompt"
	"subgen/internal/resolver"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var nonInteractive bool

	cmd := &cobra.Command{
		Use:   "resolve <input>",
		Short: "Show which video file an input resolves to",
		Args:  cobra.ExactArgs(1),
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
			out := cmd.OutOrStdout()
			var chooser resolver.Chooser
			if !nonInteractive {
				chooser = prompt.NewConsole(cmd.InOrStdin(), out, prompt.WithLogger(logger))
			}

			ref, strategy, err := resolver.NewFromConfig(cfg, chooser, logger).ResolveWithStrategy(runCtx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Resolved: %s\n", ref.Path)
			fmt.Fprintf(out, "Strategy: %s\n", strategy)
			return nil
		},
	}

	cmd.Flags().BoolVar(&nonInteractive, "non-interactive", false, "Fail instead of prompting when several videos match")
	return cmd
}
