package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"subgen/internal/config"
	"subgen/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	videoDir   string
}

// setupCLITestEnv writes a config whose external programs are stub scripts:
// ffprobe reports one audio stream, ffmpeg writes a tiny WAV header and
// whisper-cli emits two segments.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	for _, key := range []string{config.EnvOutputDir, config.EnvEngine, config.EnvModel, config.EnvLanguage, config.EnvLogLevel} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := testsupport.NewConfig(t, testsupport.WithWhisperCPP())
	base := testsupport.BaseDir(cfg)
	bin := filepath.Join(base, "bin")
	cfg.FFmpeg.FFprobeBinary = testsupport.WriteScript(t, filepath.Join(bin, "ffprobe"),
		`printf '{"streams":[{"index":0,"codec_type":"audio","codec_name":"aac"}],"format":{"format_name":"mov,mp4","duration":"4.0"}}'`+"\n")
	cfg.FFmpeg.FFmpegBinary = testsupport.WriteScript(t, filepath.Join(bin, "ffmpeg"),
		"for last; do :; done\nprintf 'RIFF' > \"$last\"\n")
	cfg.Transcription.WhisperCPPBinary = testsupport.WriteScript(t, filepath.Join(bin, "whisper-cli"), `while [ $# -gt 0 ]; do
  if [ "$1" = "-of" ]; then prefix="$2"; fi
  shift
done
printf '{"transcription":[{"offsets":{"from":250,"to":1000},"text":" hi"},{"offsets":{"from":1000,"to":2500},"text":" there"}]}' > "$prefix.json"
`)
	cfg.Logging.Level = "error"

	videoDir := filepath.Join(base, "videos")
	cfg.Resolver.SearchRoots = []string{videoDir}
	testsupport.WriteVideo(t, filepath.Join(videoDir, "Holiday Trip.mp4"), 128)

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	configPath := filepath.Join(base, "config.toml")
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base, videoDir: videoDir}
}

func (e *cliTestEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	return runCLI(t, stdin, append([]string{"--config", e.configPath}, args...))
}

func runCLI(t *testing.T, stdin string, args []string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}
