package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"subgen/internal/config"
	"subgen/internal/logging"
	"subgen/internal/media"
	"subgen/internal/media/ffprobe"
	"subgen/internal/services"
)

// AudioFileName is the fixed name of the extracted track inside the output
// directory. Each run overwrites the previous file.
const AudioFileName = "extracted_audio.wav"

const stageName = "extracting"

// Runner executes an external command. Tests substitute fakes.
type Runner func(ctx context.Context, name string, args ...string) error

// Extractor runs ffmpeg, optionally probing the source first so files without
// audio fail before ffmpeg is started.
type Extractor struct {
	ffmpeg string
	prober ffprobe.Prober
	probe  bool
	runner Runner
	logger *slog.Logger
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithRunner replaces the command runner.
func WithRunner(runner Runner) Option {
	return func(e *Extractor) {
		if runner != nil {
			e.runner = runner
		}
	}
}

// WithProber sets the prober used for the pre-check. A nil prober disables it.
func WithProber(prober ffprobe.Prober) Option {
	return func(e *Extractor) {
		e.prober = prober
		e.probe = prober != nil
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) { e.logger = logging.NewComponentLogger(logger, "extract") }
}

// New builds an extractor around the given ffmpeg binary with no probe.
func New(ffmpegBinary string, opts ...Option) *Extractor {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	e := &Extractor{ffmpeg: ffmpegBinary, runner: runCommand, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewFromConfig wires the configured ffmpeg and ffprobe binaries.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Extractor {
	opts := []Option{WithLogger(logger)}
	if cfg.FFmpeg.ProbeBeforeExtract {
		opts = append(opts, WithProber(ffprobe.Inspector{Binary: cfg.FFmpeg.FFprobeBinary}))
	}
	return New(cfg.FFmpeg.FFmpegBinary, opts...)
}

// Extract writes <outputDir>/extracted_audio.wav from the first audio stream
// of ref.
func (e *Extractor) Extract(ctx context.Context, ref media.VideoReference, outputDir string) (media.AudioTrack, error) {
	if strings.TrimSpace(ref.Path) == "" {
		return media.AudioTrack{}, services.Wrap(services.ErrExtraction, stageName, "validate", "video path required", nil)
	}
	if strings.TrimSpace(outputDir) == "" {
		return media.AudioTrack{}, services.Wrap(services.ErrExtraction, stageName, "validate", "output directory required", nil)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return media.AudioTrack{}, services.Wrap(services.ErrExtraction, stageName, "ensure output dir", outputDir, err)
	}
	logger := logging.WithContext(ctx, e.logger)

	if e.probe {
		probe, err := e.prober.Inspect(ctx, ref.Path)
		if err != nil {
			return media.AudioTrack{}, services.Wrap(services.ErrExtraction, stageName, "ffprobe", ref.Name(), err)
		}
		stream, ok := probe.FirstAudioStream()
		if !ok {
			return media.AudioTrack{}, services.Wrap(services.ErrExtraction, stageName, "ffprobe", "no audio stream in "+ref.Name(), nil)
		}
		logger.Debug("audio stream selected",
			logging.Int("stream_index", stream.Index),
			logging.String("codec", stream.CodecName),
			logging.Int("channels", stream.Channels),
			logging.String("language", stream.Language()),
			logging.Float64("duration_seconds", probe.DurationSeconds()),
		)
	}

	dest := filepath.Join(outputDir, AudioFileName)
	if err := e.runner(ctx, e.ffmpeg, BuildArgs(ref.Path, dest)...); err != nil {
		return media.AudioTrack{}, services.Wrap(services.ErrExtraction, stageName, "ffmpeg", ref.Name(), err)
	}
	info, err := os.Stat(dest)
	if err != nil {
		return media.AudioTrack{}, services.Wrap(services.ErrExtraction, stageName, "verify output", dest, err)
	}
	if info.Size() == 0 {
		return media.AudioTrack{}, services.Wrap(services.ErrExtraction, stageName, "verify output", dest+" is empty", nil)
	}
	logger.Debug("audio extracted", logging.AudioFile(dest), logging.Int("size_bytes", int(info.Size())))
	return media.AudioTrack{Path: dest, Source: ref}, nil
}

// BuildArgs returns the ffmpeg arguments converting the first audio stream of
// source into mono 16 kHz signed 16-bit PCM at dest.
func BuildArgs(source, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-map", "0:a:0",
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", filepath.Base(name), err, strings.TrimSpace(string(output)))
	}
	return nil
}
