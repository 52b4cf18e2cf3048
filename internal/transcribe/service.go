package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"subgen/internal/config"
	"subgen/internal/media"
	"subgen/internal/services"
)

const stageName = "transcribing"

// Service converts audio into transcript segments.
type Service interface {
	// Name identifies the backend in logs and run history.
	Name() string
	// Initialize checks the engine and model. It fails with
	// services.ErrMissingDependency or services.ErrModelUnavailable.
	Initialize(ctx context.Context) error
	// Model names the speech model, as recorded in run history.
	Model() string
	// Ready reports whether Initialize succeeded.
	Ready() bool
	// Transcribe returns segments ordered by start time.
	Transcribe(ctx context.Context, track media.AudioTrack) ([]media.Segment, error)
}

// Runner executes an external command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Option customizes a backend.
type Option func(*options)

type options struct {
	runner Runner
	logger *slog.Logger
	tmpDir string
}

// WithRunner replaces the command runner.
func WithRunner(runner Runner) Option {
	return func(o *options) { o.runner = runner }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithScratchDir sets where per-call engine output is written. Defaults to
// the system temp directory.
func WithScratchDir(dir string) Option {
	return func(o *options) { o.tmpDir = dir }
}

// New selects the backend configured by transcription.engine.
func New(cfg *config.Config, opts ...Option) (Service, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "new", "config required", nil)
	}
	t := cfg.Transcription
	switch t.Engine {
	case config.EngineWhisperX, "":
		return NewWhisperX(WhisperXConfig{
			Model:       t.Model,
			Language:    t.Language,
			CUDAEnabled: t.CUDAEnabled,
			VADMethod:   t.VADMethod,
			HFToken:     t.HFToken,
		}, opts...), nil
	case config.EngineWhisperCPP:
		return NewWhisperCPP(WhisperCPPConfig{
			Binary:   t.WhisperCPPBinary,
			Model:    t.WhisperCPPModel,
			Language: t.Language,
			Threads:  t.Threads,
		}, opts...), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, stageName, "new", fmt.Sprintf("unknown engine %q", t.Engine), nil)
	}
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.runner == nil {
		o.runner = execRunner(nil)
	}
	return o
}

// execRunner runs commands with the current environment plus extraEnv.
func execRunner(extraEnv []string) Runner {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
		if len(extraEnv) > 0 {
			cmd.Env = append(os.Environ(), extraEnv...)
		}
		output, err := cmd.CombinedOutput()
		if err != nil {
			return output, fmt.Errorf("%s: %w: %s", filepath.Base(name), err, lastLines(string(output), 5))
		}
		return output, nil
	}
}

// lastLines keeps engine failures readable; both engines print progress
// before the actual error.
func lastLines(output string, n int) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

func checkTrack(track media.AudioTrack) error {
	if strings.TrimSpace(track.Path) == "" {
		return errors.New("audio path required")
	}
	info, err := os.Stat(track.Path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", track.Path)
	}
	return nil
}

// finish trims text and enforces segment ordering. Nothing partial is
// returned on a violation.
func finish(segments []media.Segment) ([]media.Segment, error) {
	for i := range segments {
		segments[i].Text = strings.TrimSpace(segments[i].Text)
	}
	if err := media.ValidateSegments(segments); err != nil {
		return nil, services.Wrap(services.ErrTranscription, stageName, "validate output", "", err)
	}
	return segments, nil
}

func notReady(name string) error {
	return services.Wrap(services.ErrModelUnavailable, stageName, name, "service not initialized", nil)
}

func runFailure(ctx context.Context, name string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return services.Wrap(services.ErrTranscription, stageName, name, "interrupted", ctxErr)
	}
	return services.Wrap(services.ErrTranscription, stageName, name, "engine failed", err)
}

func scratchDir(base, pattern string) (string, func(), error) {
	dir, err := os.MkdirTemp(base, pattern)
	if err != nil {
		return "", func() {}, err
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}
