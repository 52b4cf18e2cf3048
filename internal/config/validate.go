package config

import (
	"errors"
	"fmt"

	"subgen/internal/language"
	"subgen/internal/services"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	checks := []func() error{
		c.validatePaths,
		c.validateResolver,
		c.validateTranscription,
		c.validateLogging,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return services.Wrap(services.ErrConfiguration, "config", "validate", "", err)
		}
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.History.Enabled && c.Paths.HistoryDB == "" {
		return errors.New("paths.history_db must be set when history.enabled is true")
	}
	return nil
}

func (c *Config) validateResolver() error {
	if c.Resolver.MaxDepth < 0 {
		return errors.New("resolver.max_depth must be >= 0")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	switch c.Transcription.Engine {
	case EngineWhisperX:
		switch c.Transcription.VADMethod {
		case "silero", "pyannote":
		default:
			return fmt.Errorf("transcription.vad_method: unsupported value %q (use silero or pyannote)", c.Transcription.VADMethod)
		}
	case EngineWhisperCPP:
		if c.Transcription.WhisperCPPModel == "" {
			return errors.New("transcription.whispercpp_model must be set when transcription.engine is whispercpp")
		}
	default:
		return fmt.Errorf("transcription.engine: unsupported value %q (use whisperx or whispercpp)", c.Transcription.Engine)
	}
	if !language.Valid(c.Transcription.Language) {
		return fmt.Errorf("transcription.language: unrecognized value %q", c.Transcription.Language)
	}
	if c.Transcription.Threads < 0 {
		return errors.New("transcription.threads must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
