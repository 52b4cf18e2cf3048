package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"subgen/internal/config"
	"subgen/internal/media"
	"subgen/internal/services"
)

func stubBinary(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func audioTrack(t *testing.T) media.AudioTrack {
	t.Helper()
	path := filepath.Join(t.TempDir(), "extracted_audio.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return media.AudioTrack{Path: path}
}

func argAfter(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func TestNewSelectsBackend(t *testing.T) {
	cfg := config.Default()
	svc, err := New(&cfg)
	if err != nil || svc.Name() != "whisperx" {
		t.Fatalf("expected whisperx, got %v err=%v", svc, err)
	}
	if svc.Model() != cfg.Transcription.Model {
		t.Fatalf("expected model %q, got %q", cfg.Transcription.Model, svc.Model())
	}

	cfg.Transcription.Engine = config.EngineWhisperCPP
	cfg.Transcription.WhisperCPPModel = "/models/ggml-small.en.bin"
	svc, err = New(&cfg)
	if err != nil || svc.Name() != "whispercpp" {
		t.Fatalf("expected whispercpp, got %v err=%v", svc, err)
	}
	if svc.Model() != "ggml-small.en.bin" {
		t.Fatalf("expected model file name, got %q", svc.Model())
	}

	cfg.Transcription.Engine = "vosk"
	if _, err := New(&cfg); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestTranscribeBeforeInitializeFails(t *testing.T) {
	for _, svc := range []Service{NewWhisperX(WhisperXConfig{}), NewWhisperCPP(WhisperCPPConfig{})} {
		if svc.Ready() {
			t.Fatalf("%s should not be ready before Initialize", svc.Name())
		}
		_, err := svc.Transcribe(context.Background(), audioTrack(t))
		if !errors.Is(err, services.ErrModelUnavailable) {
			t.Fatalf("%s: expected model unavailable, got %v", svc.Name(), err)
		}
	}
}

func TestInitializeMissingBinary(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	for _, svc := range []Service{
		NewWhisperX(WhisperXConfig{Binary: missing}),
		NewWhisperCPP(WhisperCPPConfig{Binary: missing, Model: "m.bin"}),
	} {
		err := svc.Initialize(context.Background())
		if !errors.Is(err, services.ErrMissingDependency) {
			t.Fatalf("%s: expected missing dependency, got %v", svc.Name(), err)
		}
		if svc.Ready() {
			t.Fatalf("%s: must not be ready after failed init", svc.Name())
		}
	}
}

func TestWhisperCPPInitializeRequiresModelFile(t *testing.T) {
	bin := stubBinary(t, "whisper-cli")
	for _, model := range []string{"", filepath.Join(t.TempDir(), "missing.bin"), t.TempDir()} {
		svc := NewWhisperCPP(WhisperCPPConfig{Binary: bin, Model: model})
		if err := svc.Initialize(context.Background()); !errors.Is(err, services.ErrModelUnavailable) {
			t.Fatalf("model %q: expected model unavailable, got %v", model, err)
		}
	}
}

func TestWhisperXTranscribe(t *testing.T) {
	bin := stubBinary(t, "uvx")
	var gotArgs []string
	runner := func(_ context.Context, name string, args ...string) ([]byte, error) {
		if name != bin {
			t.Fatalf("unexpected binary %q", name)
		}
		gotArgs = args
		payload := `{"segments":[
			{"text":" Hello there. ","start":0.0,"end":1.5,"words":[]},
			{"text":"General Kenobi.","start":1.5,"end":3.25}
		]}`
		return nil, os.WriteFile(filepath.Join(argAfter(args, "--output_dir"), "extracted_audio.json"), []byte(payload), 0o644)
	}
	svc := NewWhisperX(WhisperXConfig{Binary: bin, Model: "small", Language: "English"}, WithRunner(runner), WithScratchDir(t.TempDir()))
	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	segments, err := svc.Transcribe(context.Background(), audioTrack(t))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(segments) != 2 || segments[0].Text != "Hello there." || segments[1].End != 3.25 {
		t.Fatalf("unexpected segments %+v", segments)
	}

	joined := strings.Join(gotArgs, " ")
	for _, fragment := range []string{"whisperx", "--model small", "--language en", "--device cpu", "--compute_type float32", "--vad_method silero", "--output_format json"} {
		if !strings.Contains(joined, fragment) {
			t.Fatalf("expected %q in %q", fragment, joined)
		}
	}
	if strings.Contains(joined, "--hf_token") {
		t.Fatal("hf token must only be passed for pyannote")
	}
}

func TestWhisperXArgsCUDAAndPyannote(t *testing.T) {
	svc := NewWhisperX(WhisperXConfig{CUDAEnabled: true, VADMethod: VADMethodPyannote, HFToken: "tok"})
	joined := strings.Join(svc.buildArgs("/a.wav", "/out"), " ")
	for _, fragment := range []string{"--index-url " + CUDAIndexURL, "--extra-index-url " + PypiIndexURL, "--device cuda", "--vad_method pyannote", "--hf_token tok"} {
		if !strings.Contains(joined, fragment) {
			t.Fatalf("expected %q in %q", fragment, joined)
		}
	}
	if strings.Contains(joined, "--language") {
		t.Fatal("auto language must not pass --language")
	}
}

func TestWhisperXPyannoteWithoutTokenFallsBack(t *testing.T) {
	svc := NewWhisperX(WhisperXConfig{Binary: stubBinary(t, "uvx"), VADMethod: VADMethodPyannote})
	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if svc.VADMethod() != VADMethodSilero {
		t.Fatalf("expected silero fallback, got %q", svc.VADMethod())
	}
}

func TestWhisperCPPTranscribeMillisecondOffsets(t *testing.T) {
	bin := stubBinary(t, "whisper-cli")
	model := filepath.Join(t.TempDir(), "ggml-base.bin")
	if err := os.WriteFile(model, []byte("ggml"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	var gotArgs []string
	runner := func(_ context.Context, _ string, args ...string) ([]byte, error) {
		gotArgs = args
		payload := `{"transcription":[
			{"offsets":{"from":0,"to":1500},"text":" Hello world"},
			{"offsets":{"from":1500,"to":3000},"text":""}
		]}`
		return nil, os.WriteFile(argAfter(args, "-of")+".json", []byte(payload), 0o644)
	}
	svc := NewWhisperCPP(WhisperCPPConfig{Binary: bin, Model: model, Threads: 4}, WithRunner(runner), WithScratchDir(t.TempDir()))
	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	segments, err := svc.Transcribe(context.Background(), audioTrack(t))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	want := []media.Segment{{Start: 0, End: 1.5, Text: "Hello world"}, {Start: 1.5, End: 3, Text: ""}}
	if len(segments) != len(want) || segments[0] != want[0] || segments[1] != want[1] {
		t.Fatalf("unexpected segments %+v", segments)
	}
	if argAfter(gotArgs, "-l") != "auto" || argAfter(gotArgs, "-t") != "4" || argAfter(gotArgs, "-m") != model {
		t.Fatalf("unexpected args %v", gotArgs)
	}
}

func TestTranscribeRejectsUnorderedSegments(t *testing.T) {
	bin := stubBinary(t, "uvx")
	runner := func(_ context.Context, _ string, args ...string) ([]byte, error) {
		payload := `{"segments":[{"text":"b","start":2,"end":3},{"text":"a","start":1,"end":2}]}`
		return nil, os.WriteFile(filepath.Join(argAfter(args, "--output_dir"), "extracted_audio.json"), []byte(payload), 0o644)
	}
	svc := NewWhisperX(WhisperXConfig{Binary: bin}, WithRunner(runner))
	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	segments, err := svc.Transcribe(context.Background(), audioTrack(t))
	if !errors.Is(err, services.ErrTranscription) || segments != nil {
		t.Fatalf("expected transcription error and no segments, got %v %v", segments, err)
	}
}

func TestTranscribeEngineFailure(t *testing.T) {
	bin := stubBinary(t, "uvx")
	runner := func(context.Context, string, ...string) ([]byte, error) {
		return []byte("CUDA out of memory"), errors.New("exit status 1")
	}
	svc := NewWhisperX(WhisperXConfig{Binary: bin}, WithRunner(runner))
	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := svc.Transcribe(context.Background(), audioTrack(t)); !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected transcription error, got %v", err)
	}
}

func TestTranscribeCancelled(t *testing.T) {
	bin := stubBinary(t, "uvx")
	ctx, cancel := context.WithCancel(context.Background())
	runner := func(ctx context.Context, _ string, _ ...string) ([]byte, error) {
		cancel()
		return nil, ctx.Err()
	}
	svc := NewWhisperX(WhisperXConfig{Binary: bin}, WithRunner(runner))
	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	_, err := svc.Transcribe(ctx, audioTrack(t))
	if !errors.Is(err, services.ErrTranscription) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled transcription, got %v", err)
	}
}

func TestWhisperCPPWithStubScript(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "whisper-cli")
	script := `#!/bin/sh
while [ $# -gt 0 ]; do
  if [ "$1" = "-of" ]; then prefix="$2"; fi
  shift
done
printf '{"transcription":[{"offsets":{"from":250,"to":1000},"text":" hi"}]}' > "$prefix.json"
`
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	model := filepath.Join(dir, "model.bin")
	if err := os.WriteFile(model, []byte("ggml"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}

	svc := NewWhisperCPP(WhisperCPPConfig{Binary: bin, Model: model})
	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	segments, err := svc.Transcribe(context.Background(), audioTrack(t))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(segments) != 1 || segments[0].Start != 0.25 || segments[0].Text != "hi" {
		t.Fatalf("unexpected segments %+v", segments)
	}
}

func TestLoadWhisperCPPSegmentsAcceptsSecondsFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := os.WriteFile(path, []byte(`{"segments":[{"start":1.25,"end":2,"text":"x"}]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	segments, err := loadWhisperCPPSegments(path)
	if err != nil || len(segments) != 1 || segments[0].Start != 1.25 {
		t.Fatalf("unexpected %+v err=%v", segments, err)
	}
}
