package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"subgen/internal/config"
)

// Option adjusts the fixture built by NewConfig.
type Option func(*fixture)

type fixture struct {
	t    testing.TB
	base string
	cfg  config.Config
}

// NewConfig returns defaults rooted in a per-test temp directory: output,
// logs and history.db all live under it. The working directory is not
// searched, so tests only see the roots they add.
func NewConfig(t testing.TB, opts ...Option) *config.Config {
	t.Helper()

	f := &fixture{t: t, base: t.TempDir(), cfg: config.Default()}
	f.cfg.Paths.OutputDir = f.path("output")
	f.cfg.Paths.LogDir = f.path("logs")
	f.cfg.Paths.HistoryDB = f.path("state", "history.db")
	f.cfg.Resolver.SearchRoots = nil
	f.cfg.Resolver.IncludeWorkingDir = false

	for _, opt := range opts {
		opt(f)
	}
	return &f.cfg
}

func (f *fixture) path(parts ...string) string {
	return filepath.Join(append([]string{f.base}, parts...)...)
}

// WithSearchRoots replaces the resolver search roots.
func WithSearchRoots(roots ...string) Option {
	return func(f *fixture) { f.cfg.Resolver.SearchRoots = roots }
}

// WithWhisperCPP switches to the whisper.cpp engine backed by a small
// placeholder model file, enough to satisfy validation and preflight.
func WithWhisperCPP() Option {
	return func(f *fixture) {
		model := f.path("models", "ggml-base.bin")
		WriteFile(f.t, model, 64)
		f.cfg.Transcription.Engine = config.EngineWhisperCPP
		f.cfg.Transcription.WhisperCPPModel = model
	}
}

// WithStubbedBinaries installs `exit 0` scripts under <base>/bin, puts that
// directory first on PATH for the rest of the test and points the matching
// config fields at the scripts. With no names it stubs ffmpeg, ffprobe and
// whatever the configured engine launches.
func WithStubbedBinaries(names ...string) Option {
	return func(f *fixture) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe", f.cfg.EngineBinary()}
		}
		bin := f.path("bin")
		targets := map[string]*string{
			"ffmpeg":                             &f.cfg.FFmpeg.FFmpegBinary,
			"ffprobe":                            &f.cfg.FFmpeg.FFprobeBinary,
			f.cfg.Transcription.WhisperCPPBinary: &f.cfg.Transcription.WhisperCPPBinary,
		}
		for _, name := range names {
			script := WriteScript(f.t, filepath.Join(bin, name), "exit 0\n")
			if field, ok := targets[name]; ok {
				*field = script
			}
		}
		f.t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the temp directory NewConfig rooted cfg in.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputDir)
}
