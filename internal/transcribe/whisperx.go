package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"subgen/internal/language"
	"subgen/internal/logging"
	"subgen/internal/media"
	"subgen/internal/services"
)

// WhisperX invocation settings.
const (
	UVXCommand        = "uvx"
	DefaultModel      = "base"
	CUDAIndexURL      = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL      = "https://pypi.org/simple"
	BatchSize         = "4"
	ChunkSize         = "15"
	VADOnset          = "0.08"
	VADOffset         = "0.07"
	BeamSize          = "10"
	BestOf            = "10"
	Temperature       = "0.0"
	Patience          = "1.0"
	SegmentResolution = "sentence"
	OutputFormat      = "json"
	CPUDevice         = "cpu"
	CUDADevice        = "cuda"
	CPUComputeType    = "float32"
	VADMethodPyannote = "pyannote"
	VADMethodSilero   = "silero"
)

// Torch 2.6 flipped torch.load to weights_only, which breaks pyannote and
// WhisperX checkpoints.
const torchLegacyLoadEnv = "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1"

// WhisperXConfig captures runtime settings for WhisperX.
type WhisperXConfig struct {
	// Binary is the uvx launcher; empty means "uvx" on PATH.
	Binary      string
	Model       string
	Language    string
	CUDAEnabled bool
	// VADMethod is "silero" or "pyannote". Pyannote needs HFToken.
	VADMethod string
	HFToken   string
}

// WhisperX transcribes through `uvx whisperx`.
type WhisperX struct {
	cfg    WhisperXConfig
	opts   options
	logger *slog.Logger
	binary string
	ready  bool
}

// NewWhisperX constructs an uninitialized WhisperX backend.
func NewWhisperX(cfg WhisperXConfig, opts ...Option) *WhisperX {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.runner == nil {
		o.runner = execRunner(whisperXEnv())
	}
	if strings.TrimSpace(cfg.Binary) == "" {
		cfg.Binary = UVXCommand
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	if strings.TrimSpace(cfg.VADMethod) == "" {
		cfg.VADMethod = VADMethodSilero
	}
	return &WhisperX{cfg: cfg, opts: o, logger: logging.NewComponentLogger(o.logger, "whisperx")}
}

func whisperXEnv() []string {
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") != "" {
		return nil
	}
	return []string{torchLegacyLoadEnv}
}

// Name implements Service.
func (w *WhisperX) Name() string { return "whisperx" }

// Ready implements Service.
func (w *WhisperX) Ready() bool { return w.ready }

// Model implements Service.
func (w *WhisperX) Model() string { return w.cfg.Model }

// VADMethod returns the voice activity detector in effect.
func (w *WhisperX) VADMethod() string { return w.cfg.VADMethod }

// Initialize resolves the uvx launcher. Pyannote without a Hugging Face
// token falls back to silero rather than failing mid-run.
func (w *WhisperX) Initialize(ctx context.Context) error {
	w.ready = false
	path, err := exec.LookPath(w.cfg.Binary)
	if err != nil {
		return services.Wrap(services.ErrMissingDependency, stageName, "initialize", w.cfg.Binary+" not found", err)
	}
	w.binary = path
	if strings.ContainsAny(w.cfg.Model, `/\`) {
		if _, err := os.Stat(w.cfg.Model); err != nil {
			return services.Wrap(services.ErrModelUnavailable, stageName, "initialize", w.cfg.Model, err)
		}
	}
	if w.cfg.VADMethod == VADMethodPyannote && strings.TrimSpace(w.cfg.HFToken) == "" {
		logging.WithContext(ctx, w.logger).Warn("pyannote VAD needs a Hugging Face token; using silero",
			logging.Event("vad_fallback"),
			logging.String(logging.FieldErrorHint, "set HF_TOKEN or transcription.hf_token"),
		)
		w.cfg.VADMethod = VADMethodSilero
	}
	w.ready = true
	return nil
}

// Transcribe implements Service.
func (w *WhisperX) Transcribe(ctx context.Context, track media.AudioTrack) ([]media.Segment, error) {
	if !w.ready {
		return nil, notReady(w.Name())
	}
	if err := checkTrack(track); err != nil {
		return nil, services.Wrap(services.ErrTranscription, stageName, w.Name(), "audio input", err)
	}
	outDir, cleanup, err := scratchDir(w.opts.tmpDir, "subgen-whisperx-")
	if err != nil {
		return nil, services.Wrap(services.ErrTranscription, stageName, w.Name(), "scratch dir", err)
	}
	defer cleanup()

	logger := logging.WithContext(ctx, w.logger)
	args := w.buildArgs(track.Path, outDir)
	logger.Debug("launching whisperx",
		logging.String("model", w.cfg.Model),
		logging.Bool("cuda", w.cfg.CUDAEnabled),
		logging.String("vad_method", w.cfg.VADMethod),
		logging.String("language", language.DisplayName(w.cfg.Language)),
	)
	if _, err := w.opts.runner(ctx, w.binary, args...); err != nil {
		return nil, runFailure(ctx, w.Name(), err)
	}

	base := strings.TrimSuffix(filepath.Base(track.Path), filepath.Ext(track.Path))
	segments, err := loadWhisperXSegments(filepath.Join(outDir, base+".json"))
	if err != nil {
		return nil, services.Wrap(services.ErrTranscription, stageName, w.Name(), "read output", err)
	}
	return finish(segments)
}

func (w *WhisperX) buildArgs(source, outputDir string) []string {
	args := make([]string, 0, 40)
	if w.cfg.CUDAEnabled {
		args = append(args, "--index-url", CUDAIndexURL, "--extra-index-url", PypiIndexURL)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}
	args = append(args,
		"whisperx",
		source,
		"--model", w.cfg.Model,
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
		"--chunk_size", ChunkSize,
		"--vad_onset", VADOnset,
		"--vad_offset", VADOffset,
		"--beam_size", BeamSize,
		"--best_of", BestOf,
		"--temperature", Temperature,
		"--patience", Patience,
		"--vad_method", w.cfg.VADMethod,
	)
	if w.cfg.VADMethod == VADMethodPyannote && w.cfg.HFToken != "" {
		args = append(args, "--hf_token", w.cfg.HFToken)
	}
	if lang := language.ToISO2(w.cfg.Language); lang != "" {
		args = append(args, "--language", lang)
	}
	if w.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}
	return args
}

type whisperXPayload struct {
	Segments []struct {
		Text  string  `json:"text"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"segments"`
}

func loadWhisperXSegments(path string) ([]media.Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var payload whisperXPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse whisperx json: %w", err)
	}
	segments := make([]media.Segment, 0, len(payload.Segments))
	for _, seg := range payload.Segments {
		segments = append(segments, media.Segment{Start: seg.Start, End: seg.End, Text: seg.Text})
	}
	return segments, nil
}
