package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains output and bookkeeping locations.
type Paths struct {
	OutputDir string `toml:"output_dir" yaml:"output_dir"`
	LogDir    string `toml:"log_dir" yaml:"log_dir"`
	HistoryDB string `toml:"history_db" yaml:"history_db"`
}

// Resolver controls where fuzzy file searches look.
type Resolver struct {
	SearchRoots       []string `toml:"search_roots" yaml:"search_roots"`
	IncludeWorkingDir bool     `toml:"include_working_dir" yaml:"include_working_dir"`
	// MaxDepth bounds the recursive walk below each root; 0 means unlimited.
	MaxDepth int `toml:"max_depth" yaml:"max_depth"`
}

// FFmpeg contains media tool settings.
type FFmpeg struct {
	FFmpegBinary       string `toml:"ffmpeg_binary" yaml:"ffmpeg_binary"`
	FFprobeBinary      string `toml:"ffprobe_binary" yaml:"ffprobe_binary"`
	ProbeBeforeExtract bool   `toml:"probe_before_extract" yaml:"probe_before_extract"`
}

// Transcription selects and tunes the speech-to-text backend.
type Transcription struct {
	Engine           string `toml:"engine" yaml:"engine"`
	Model            string `toml:"model" yaml:"model"`
	Language         string `toml:"language" yaml:"language"`
	CUDAEnabled      bool   `toml:"cuda_enabled" yaml:"cuda_enabled"`
	VADMethod        string `toml:"vad_method" yaml:"vad_method"`
	HFToken          string `toml:"hf_token" yaml:"hf_token"`
	WhisperCPPBinary string `toml:"whispercpp_binary" yaml:"whispercpp_binary"`
	WhisperCPPModel  string `toml:"whispercpp_model" yaml:"whispercpp_model"`
	Threads          int    `toml:"threads" yaml:"threads"`
}

// Output contains settings for the shared output directory.
type Output struct {
	// Lock makes a run refuse to start while another run holds the output directory.
	Lock bool `toml:"lock" yaml:"lock"`
}

// History toggles the SQLite run ledger.
type History struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" yaml:"format"`
	Level  string `toml:"level" yaml:"level"`
}

// Config encapsulates all configuration values for subgen.
//
// Configuration sections by subsystem:
//   - Paths: output directory, log directory, history database
//   - Resolver: fuzzy search roots and depth
//   - FFmpeg: extraction and probing binaries
//   - Transcription: engine selection, model, language, device
//   - Output: advisory output directory lock
//   - History: run ledger toggle
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths" yaml:"paths"`
	Resolver      Resolver      `toml:"resolver" yaml:"resolver"`
	FFmpeg        FFmpeg        `toml:"ffmpeg" yaml:"ffmpeg"`
	Transcription Transcription `toml:"transcription" yaml:"transcription"`
	Output        Output        `toml:"output" yaml:"output"`
	History       History       `toml:"history" yaml:"history"`
	Logging       Logging       `toml:"logging" yaml:"logging"`
}

// DefaultConfigPath returns ~/.config/subgen/config.toml, expanded.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigRelativePath)
}

// projectConfigNames are checked in the working directory when neither an
// explicit path nor the per-user file exists.
var projectConfigNames = []string{"subgen.toml", "subgen.yaml", "subgen.yml"}

// Load reads configuration from path, or from the first default location that
// exists, then applies SUBGEN_* environment overrides, expands paths and
// validates. It returns the config, the path it settled on and whether that
// file existed. A missing file is not an error: defaults are used.
func Load(path string) (*Config, string, bool, error) {
	resolved, exists, err := locateConfig(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	cfg.applyEnv()
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

// decodeFile picks the YAML decoder for .yaml/.yml and TOML otherwise. An
// empty YAML document leaves the defaults untouched.
func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.NewDecoder(file).Decode(cfg)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	default:
		err = toml.NewDecoder(file).Decode(cfg)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func locateConfig(explicit string) (string, bool, error) {
	if explicit != "" {
		expanded, err := expandPath(explicit)
		if err != nil {
			return "", false, err
		}
		found, err := isRegularFile(expanded)
		return expanded, found, err
	}

	userPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	candidates := []string{userPath}
	for _, name := range projectConfigNames {
		abs, err := filepath.Abs(name)
		if err != nil {
			return "", false, err
		}
		candidates = append(candidates, abs)
	}
	for _, candidate := range candidates {
		if found, _ := isRegularFile(candidate); found {
			return candidate, true, nil
		}
	}
	return userPath, false, nil
}

func isRegularFile(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("stat config: %w", err)
	default:
		return !info.IsDir(), nil
	}
}

// EnsureDirectories creates the output, log, and history directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.OutputDir, c.Paths.LogDir}
	if c.History.Enabled && strings.TrimSpace(c.Paths.HistoryDB) != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.HistoryDB))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// EngineBinary returns the executable the configured transcription engine runs.
func (c *Config) EngineBinary() string {
	if c.Transcription.Engine == EngineWhisperCPP {
		return c.Transcription.WhisperCPPBinary
	}
	return "uvx"
}

// SearchRoots returns the ordered fuzzy search roots, working directory first
// when enabled.
func (c *Config) SearchRoots() []string {
	roots := make([]string, 0, len(c.Resolver.SearchRoots)+1)
	seen := make(map[string]struct{}, len(c.Resolver.SearchRoots)+1)
	add := func(root string) {
		if root == "" {
			return
		}
		if _, ok := seen[root]; ok {
			return
		}
		seen[root] = struct{}{}
		roots = append(roots, root)
	}
	if c.Resolver.IncludeWorkingDir {
		if wd, err := os.Getwd(); err == nil {
			add(wd)
		}
	}
	for _, root := range c.Resolver.SearchRoots {
		add(root)
	}
	return roots
}

// expandPath resolves a leading "~" or "~/" against the home directory and
// makes the result absolute. Empty stays empty.
func expandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") || strings.HasPrefix(value, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, strings.TrimLeft(value[1:], `/\`))
	}
	abs, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return abs, nil
}

// ExpandPath applies the same "~" and absolute-path rules Load uses, for
// paths that arrive on the command line.
func ExpandPath(value string) (string, error) {
	return expandPath(value)
}

// SampleConfig returns the embedded, commented sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes the sample configuration to path, creating parents.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
