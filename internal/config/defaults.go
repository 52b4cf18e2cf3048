package config

const (
	defaultOutputDir          = "output"
	defaultLogDir             = "~/.local/share/subgen/logs"
	defaultHistoryDB          = "~/.local/share/subgen/history.db"
	defaultFFmpegBinary       = "ffmpeg"
	defaultFFprobeBinary      = "ffprobe"
	defaultEngine             = EngineWhisperX
	defaultModel              = "base"
	defaultVADMethod          = "silero"
	defaultWhisperCPPBinary   = "whisper-cli"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultConfigRelativePath = "~/.config/subgen/config.toml"
)

// Supported transcription engines.
const (
	EngineWhisperX   = "whisperx"
	EngineWhisperCPP = "whispercpp"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			HistoryDB: defaultHistoryDB,
		},
		Resolver: Resolver{
			IncludeWorkingDir: true,
		},
		FFmpeg: FFmpeg{
			FFmpegBinary:       defaultFFmpegBinary,
			FFprobeBinary:      defaultFFprobeBinary,
			ProbeBeforeExtract: true,
		},
		Transcription: Transcription{
			Engine:           defaultEngine,
			Model:            defaultModel,
			VADMethod:        defaultVADMethod,
			WhisperCPPBinary: defaultWhisperCPPBinary,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
