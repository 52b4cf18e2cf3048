package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"subgen/internal/deps"
	"subgen/internal/preflight"
	"subgen/internal/prompt"
	"subgen/internal/transcribe"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external programs, directories and models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			configPath := ctx.configPath
			if !ctx.configExists {
				configPath += " (not found, defaults in use)"
			}
			fmt.Fprintf(out, "Config: %s\n", configPath)
			svc, err := transcribe.New(cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Engine: %s (model %s)\n", svc.Name(), svc.Model())
			fmt.Fprintf(out, "History: %s\n\n", yesNo(cfg.History.Enabled))

			statuses := deps.Lookup(deps.Requirements(cfg))
			rows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				rows = append(rows, []string{status.Name, statusMark(out, status.Available, status.Optional), status.Summary()})
			}
			fmt.Fprintln(out, prompt.RenderTable([]string{"Dependency", "Status", "Detail"}, rows, nil))

			results := preflight.RunAll(cfg)
			rows = rows[:0]
			for _, result := range results {
				rows = append(rows, []string{result.Name, statusMark(out, result.Passed, false), result.Detail})
			}
			fmt.Fprintln(out, prompt.RenderTable([]string{"Check", "Status", "Detail"}, rows, nil))

			depErr := deps.Ensure(statuses)
			failed := preflight.Failed(results)
			switch {
			case depErr != nil:
				return depErr
			case len(failed) > 0:
				return fmt.Errorf("%d preflight check(s) failed", len(failed))
			}
			fmt.Fprintln(out, "All checks passed.")
			return nil
		},
	}
}
