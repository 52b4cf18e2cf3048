package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"subgen/internal/history"
	"subgen/internal/prompt"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List previous runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				runs, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				printRuns(cmd.OutOrStdout(), runs)
				return nil
			})
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 for all)")

	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryClearCommand(ctx))
	historyCmd.AddCommand(newHistoryPruneCommand(ctx))
	return historyCmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run and its state transitions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				run, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				transitions, err := store.Transitions(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				printRun(cmd.OutOrStdout(), run, transitions)
				return nil
			})
		},
	}
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s)\n", removed)
				return nil
			})
		},
	}
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				removed, err := store.Prune(cmd.Context(), keep)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s), kept up to %d\n", removed, keep)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 50, "Number of newest runs to keep")
	return cmd
}

func withHistory(ctx *commandContext, fn func(*history.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg.Paths.HistoryDB)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func printRuns(out io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		video := run.VideoPath
		if video == "" {
			video = run.Input
		} else {
			video = filepath.Base(video)
		}
		state := run.State
		if run.FailedStage != "" {
			state += " (" + run.FailedStage + ")"
		}
		rows = append(rows, []string{
			shortID(run.ID),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			state,
			video,
			strconv.Itoa(run.SegmentCount),
			formatElapsed(run.Duration()),
		})
	}
	fmt.Fprintln(out, prompt.RenderTable(
		[]string{"ID", "Started", "State", "Video", "Segments", "Elapsed"},
		rows,
		[]prompt.Alignment{prompt.AlignLeft, prompt.AlignLeft, prompt.AlignLeft, prompt.AlignLeft, prompt.AlignRight, prompt.AlignRight},
	))
}

func printRun(out io.Writer, run history.Run, transitions []history.Transition) {
	fields := [][2]string{
		{"Run", run.ID},
		{"Input", run.Input},
		{"Video", run.VideoPath},
		{"Audio", run.AudioPath},
		{"Subtitles", run.SubtitlePath},
		{"Engine", run.Engine + " / " + run.Model},
		{"State", run.State},
		{"Segments", strconv.Itoa(run.SegmentCount)},
		{"Started", run.StartedAt.Local().Format(time.RFC3339)},
		{"Elapsed", formatElapsed(run.Duration())},
	}
	if run.FailedStage != "" {
		fields = append(fields,
			[2]string{"Failed stage", run.FailedStage},
			[2]string{"Error kind", run.ErrorKind},
			[2]string{"Error", run.ErrorMessage},
		)
	}
	for _, field := range fields {
		if field[1] == "" {
			continue
		}
		fmt.Fprintf(out, "%-13s %s\n", field[0]+":", field[1])
	}
	if len(transitions) == 0 {
		return
	}
	rows := make([][]string, 0, len(transitions))
	for _, t := range transitions {
		from := t.From
		if from == "" {
			from = "-"
		}
		rows = append(rows, []string{t.At.Local().Format("15:04:05.000"), from, t.To})
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, prompt.RenderTable([]string{"At", "From", "To"}, rows, nil))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatElapsed(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(100 * time.Millisecond).String()
}
