package main

import (
	"errors"
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"

	"subgen/internal/diagnose"
	"subgen/internal/media/ffprobe"
	"subgen/internal/prompt"
)

func newDiagnoseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose <path>",
		Short: "Explain why a video file cannot be opened",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signalContext(cmd)
			defer stop()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			var prober ffprobe.Prober
			if _, err := exec.LookPath(cfg.FFmpeg.FFprobeBinary); err == nil {
				prober = ffprobe.Inspector{Binary: cfg.FFmpeg.FFprobeBinary}
			} else {
				fmt.Fprintf(out, "ffprobe (%s) not found; skipping media inspection\n", cfg.FFmpeg.FFprobeBinary)
			}

			report := diagnose.New(prober, cfg.SearchRoots()).Diagnose(runCtx, args[0])
			fmt.Fprintf(out, "Attempted path:    %s\n", report.Path)
			fmt.Fprintf(out, "Current user:      %s\n", report.User)
			fmt.Fprintf(out, "Working directory: %s\n", report.WorkingDir)

			checks := report.Checks()
			rows := make([][]string, 0, len(checks))
			for _, check := range checks {
				rows = append(rows, []string{check.Name, statusMark(out, check.Passed, false), check.Detail})
			}
			fmt.Fprintln(out, prompt.RenderTable([]string{"Check", "Status", "Detail"}, rows, nil))

			if !report.Exists {
				if len(report.Suggestions) == 0 {
					fmt.Fprintln(out, "No similarly named files found.")
				} else {
					fmt.Fprintln(out, "Possible corrections:")
					for _, path := range report.Suggestions {
						fmt.Fprintf(out, "  %s\n", path)
					}
				}
			}
			if !report.OK() {
				return errors.New("file is not usable as input")
			}
			fmt.Fprintln(out, "File looks usable.")
			return nil
		},
	}
}
