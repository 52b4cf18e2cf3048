package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"subgen/internal/language"
	"subgen/internal/logging"
	"subgen/internal/media"
	"subgen/internal/services"
)

// DefaultWhisperCPPBinary is the CLI name shipped by current whisper.cpp builds.
const DefaultWhisperCPPBinary = "whisper-cli"

// WhisperCPPConfig captures runtime settings for whisper.cpp.
type WhisperCPPConfig struct {
	Binary   string
	Model    string // path to a ggml model file
	Language string
	Threads  int
}

// WhisperCPP transcribes with the whisper.cpp CLI.
type WhisperCPP struct {
	cfg    WhisperCPPConfig
	opts   options
	logger *slog.Logger
	binary string
	ready  bool
}

// NewWhisperCPP constructs an uninitialized whisper.cpp backend.
func NewWhisperCPP(cfg WhisperCPPConfig, opts ...Option) *WhisperCPP {
	o := buildOptions(opts)
	if strings.TrimSpace(cfg.Binary) == "" {
		cfg.Binary = DefaultWhisperCPPBinary
	}
	return &WhisperCPP{cfg: cfg, opts: o, logger: logging.NewComponentLogger(o.logger, "whispercpp")}
}

// Name implements Service.
func (w *WhisperCPP) Name() string { return "whispercpp" }

// Model implements Service with the model file's base name.
func (w *WhisperCPP) Model() string {
	if strings.TrimSpace(w.cfg.Model) == "" {
		return ""
	}
	return filepath.Base(w.cfg.Model)
}

// Ready implements Service.
func (w *WhisperCPP) Ready() bool { return w.ready }

// Initialize resolves the binary and checks that the model file exists.
func (w *WhisperCPP) Initialize(context.Context) error {
	w.ready = false
	path, err := exec.LookPath(w.cfg.Binary)
	if err != nil {
		return services.Wrap(services.ErrMissingDependency, stageName, "initialize", w.cfg.Binary+" not found", err)
	}
	if strings.TrimSpace(w.cfg.Model) == "" {
		return services.Wrap(services.ErrModelUnavailable, stageName, "initialize", "model path not configured", nil)
	}
	info, err := os.Stat(w.cfg.Model)
	if err != nil {
		return services.Wrap(services.ErrModelUnavailable, stageName, "initialize", w.cfg.Model, err)
	}
	if info.IsDir() || info.Size() == 0 {
		return services.Wrap(services.ErrModelUnavailable, stageName, "initialize", w.cfg.Model+" is not a model file", nil)
	}
	w.binary = path
	w.ready = true
	return nil
}

// Transcribe implements Service.
func (w *WhisperCPP) Transcribe(ctx context.Context, track media.AudioTrack) ([]media.Segment, error) {
	if !w.ready {
		return nil, notReady(w.Name())
	}
	if err := checkTrack(track); err != nil {
		return nil, services.Wrap(services.ErrTranscription, stageName, w.Name(), "audio input", err)
	}
	dir, cleanup, err := scratchDir(w.opts.tmpDir, "subgen-whispercpp-")
	if err != nil {
		return nil, services.Wrap(services.ErrTranscription, stageName, w.Name(), "scratch dir", err)
	}
	defer cleanup()

	prefix := filepath.Join(dir, "transcript")
	logging.WithContext(ctx, w.logger).Debug("launching whisper.cpp",
		logging.String("model", w.cfg.Model),
		logging.String("language", language.DisplayName(w.cfg.Language)),
		logging.Int("threads", w.cfg.Threads),
	)
	if _, err := w.opts.runner(ctx, w.binary, w.buildArgs(track.Path, prefix)...); err != nil {
		return nil, runFailure(ctx, w.Name(), err)
	}

	segments, err := loadWhisperCPPSegments(prefix + ".json")
	if err != nil {
		return nil, services.Wrap(services.ErrTranscription, stageName, w.Name(), "read output", err)
	}
	return finish(segments)
}

func (w *WhisperCPP) buildArgs(wavPath, outPrefix string) []string {
	lang := language.ToISO2(w.cfg.Language)
	if lang == "" {
		// whisper.cpp defaults to English rather than detection.
		lang = language.Auto
	}
	args := []string{
		"-m", w.cfg.Model,
		"-f", wavPath,
		"-l", lang,
		"-oj",
		"-of", outPrefix,
	}
	if w.cfg.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(w.cfg.Threads))
	}
	return args
}

// whisper.cpp writes offsets in milliseconds under "transcription"; some
// wrappers emit WhisperX-style "segments" in seconds instead.
type whisperCPPPayload struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func loadWhisperCPPSegments(path string) ([]media.Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var payload whisperCPPPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse whisper.cpp json: %w", err)
	}
	if len(payload.Transcription) > 0 {
		segments := make([]media.Segment, 0, len(payload.Transcription))
		for _, item := range payload.Transcription {
			segments = append(segments, media.Segment{
				Start: float64(item.Offsets.From) / 1000,
				End:   float64(item.Offsets.To) / 1000,
				Text:  item.Text,
			})
		}
		return segments, nil
	}
	segments := make([]media.Segment, 0, len(payload.Segments))
	for _, item := range payload.Segments {
		segments = append(segments, media.Segment{Start: item.Start, End: item.End, Text: item.Text})
	}
	return segments, nil
}
