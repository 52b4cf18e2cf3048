package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"subgen/internal/logging"
	"subgen/internal/pipeline"
	"subgen/internal/prompt"
	"subgen/internal/services"
)

// Prompt is printed before every path entry.
const Prompt = "Enter full path to video file (or 'quit' to exit): "

// Runner runs one pipeline invocation. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, input string) (pipeline.Result, error)
}

// Summary counts what happened during a session.
type Summary struct {
	Runs      int
	Succeeded int
	Failed    int
}

// Session drives the loop. The console is shared with the resolver so
// selection prompts and path prompts read from the same input.
type Session struct {
	console     *prompt.Console
	runner      Runner
	logger      *slog.Logger
	corrections func(input string) []string
}

// Option customizes a Session.
type Option func(*Session)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logging.NewComponentLogger(logger, "session") }
}

// WithCorrections registers a lookup for existing files the user may have
// meant; it is consulted when an entry cannot be resolved.
func WithCorrections(fn func(input string) []string) Option {
	return func(s *Session) { s.corrections = fn }
}

// New builds a session over console and runner.
func New(console *prompt.Console, runner Runner, opts ...Option) *Session {
	s := &Session{console: console, runner: runner, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Loop runs until the user quits or input is exhausted, which both return a
// nil error. Cancelling ctx returns ctx.Err(). A failed run is reported and
// the loop continues.
func (s *Session) Loop(ctx context.Context) (Summary, error) {
	var summary Summary
	out := s.console.Out()
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		line, err := s.console.ReadLine(ctx, Prompt)
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Exiting.")
				return summary, nil
			}
			return summary, err
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if prompt.IsQuitWord(input) {
			fmt.Fprintln(out, "Exiting.")
			return summary, nil
		}

		summary.Runs++
		result, err := s.runner.Run(ctx, input)
		if err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			summary.Failed++
			s.reportFailure(out, input, err)
			continue
		}
		summary.Succeeded++
		PrintResult(out, result)
	}
}

func (s *Session) reportFailure(out io.Writer, input string, err error) {
	cause := err
	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		cause = stageErr.Err
	}
	details := services.Details(cause)
	s.logger.Debug("session entry failed",
		logging.String("input", input),
		logging.String("error_kind", details.Kind),
		logging.Error(err),
	)

	switch {
	case errors.Is(err, services.ErrNotFound):
		fmt.Fprintln(out, "Could not find a valid video file.")
		fmt.Fprintln(out, "Suggestions:")
		fmt.Fprintln(out, "  1. Provide the full path to the video file")
		fmt.Fprintln(out, "  2. Make sure the file exists and is readable")
		fmt.Fprintln(out, "  3. Check the file extension (mp4, avi, mkv, mov, wmv)")
		if s.corrections != nil {
			if found := s.corrections(input); len(found) > 0 {
				fmt.Fprintln(out, "Possible corrections:")
				for _, path := range found {
					fmt.Fprintf(out, "  %s\n", path)
				}
			}
		}
	case errors.Is(err, services.ErrSelectionAborted):
		fmt.Fprintln(out, "Selection cancelled.")
	default:
		if stage, ok := pipeline.FailedStage(err); ok {
			fmt.Fprintf(out, "Subtitle generation failed while %s: %s\n", stage, details.Message)
		} else {
			fmt.Fprintf(out, "Subtitle generation failed: %s\n", details.Message)
		}
	}
}

// PrintResult writes the artifact paths of a finished run.
func PrintResult(out io.Writer, result pipeline.Result) {
	fmt.Fprintf(out, "Selected video file: %s\n", result.Video.Path)
	fmt.Fprintf(out, "Audio extracted to: %s\n", result.AudioPath)
	fmt.Fprintf(out, "Subtitles generated at: %s\n", result.SubtitlePath)
	fmt.Fprintf(out, "Subtitle generation completed: %d segments in %s\n",
		len(result.Segments), result.Duration().Round(10*time.Millisecond))
}
