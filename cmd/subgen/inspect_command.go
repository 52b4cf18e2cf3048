package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"subgen/internal/config"
	"subgen/internal/media/ffprobe"
	"subgen/internal/prompt"
	"subgen/internal/services"
	"subgen/internal/srt"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var videoPath string

	cmd := &cobra.Command{
		Use:   "inspect <file.srt>",
		Short: "Validate a SubRip file and summarize its cues",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			cues, err := srt.ReadFile(path)
			if err != nil {
				return services.Wrap(services.ErrSerialization, "inspect", "read", path, err)
			}

			var videoSeconds float64
			if video := strings.TrimSpace(videoPath); video != "" {
				result, err := ffprobe.Inspect(cmd.Context(), cfg.FFmpeg.FFprobeBinary, video)
				if err != nil {
					return services.Wrap(services.ErrExternalTool, "inspect", "ffprobe", video, err)
				}
				videoSeconds = result.DurationSeconds()
			}

			out := cmd.OutOrStdout()
			rows := [][]string{{"File", path}, {"Cues", strconv.Itoa(len(cues))}}
			if len(cues) > 0 {
				var longest srt.Cue
				var words int
				for _, cue := range cues {
					if cue.Duration() > longest.Duration() {
						longest = cue
					}
					words += len(strings.Fields(cue.Text))
				}
				rows = append(rows,
					[]string{"First cue", srt.FormatMillis(cues[0].Start)},
					[]string{"Last cue end", srt.FormatMillis(cues[len(cues)-1].End)},
					[]string{"Longest cue", fmt.Sprintf("#%d (%s)", longest.Index, srt.FormatMillis(longest.Duration()))},
					[]string{"Words", strconv.Itoa(words)},
				)
			}
			if videoSeconds > 0 {
				rows = append(rows, []string{"Video duration", srt.FormatTimestamp(videoSeconds)})
			}
			fmt.Fprintln(out, prompt.RenderTable([]string{"Field", "Value"}, rows, nil))

			issues := srt.Check(cues, videoSeconds)
			if len(issues) == 0 {
				fmt.Fprintln(out, "No issues found.")
				return nil
			}
			fmt.Fprintln(out, "Issues:")
			for _, issue := range issues {
				fmt.Fprintf(out, "  - %s\n", issue)
			}
			return fmt.Errorf("%d issue(s) found in %s", len(issues), path)
		},
	}

	cmd.Flags().StringVar(&videoPath, "video", "", "Compare the last cue with this video's duration")
	return cmd
}
