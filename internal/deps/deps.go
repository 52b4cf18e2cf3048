// Package deps checks that the external programs subgen drives are installed.
// Nothing is ever installed on the user's behalf.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"subgen/internal/config"
	"subgen/internal/services"
)

// Requirement is one external program the configured pipeline executes.
// Optional programs are reported but never block a run.
type Requirement struct {
	Name     string
	Command  string
	Purpose  string
	Optional bool
}

// Status is a Requirement after a PATH lookup.
type Status struct {
	Requirement
	Available bool
	Path      string
	Detail    string
}

// Summary is the resolved path when available, otherwise why not.
func (s Status) Summary() string {
	if s.Available {
		return s.Path
	}
	return s.Detail
}

// Lookup resolves every requirement against PATH, preserving order.
func Lookup(reqs []Requirement) []Status {
	statuses := make([]Status, len(reqs))
	for i, req := range reqs {
		req.Command = strings.TrimSpace(req.Command)
		statuses[i] = lookup(req)
	}
	return statuses
}

func lookup(req Requirement) Status {
	status := Status{Requirement: req}
	if req.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	path, err := exec.LookPath(req.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", req.Command)
		return status
	}
	status.Available, status.Path = true, path
	return status
}

// Requirements lists ffmpeg, ffprobe and the engine launcher for cfg.
// ffprobe is optional unless probe_before_extract is on.
func Requirements(cfg *config.Config) []Requirement {
	engine := Requirement{Name: "uvx", Command: cfg.EngineBinary(), Purpose: "Required for WhisperX transcription"}
	if cfg.Transcription.Engine == config.EngineWhisperCPP {
		engine = Requirement{Name: "whisper.cpp", Command: cfg.EngineBinary(), Purpose: "Required for whisper.cpp transcription"}
	}
	return []Requirement{
		{Name: "FFmpeg", Command: cfg.FFmpeg.FFmpegBinary, Purpose: "Required for audio extraction"},
		{
			Name:     "FFprobe",
			Command:  cfg.FFmpeg.FFprobeBinary,
			Purpose:  "Checks for an audio stream before extraction; used by diagnose",
			Optional: !cfg.FFmpeg.ProbeBeforeExtract,
		},
		engine,
	}
}

// Ensure returns services.ErrMissingDependency naming every required
// program that is unavailable. Optional ones are ignored.
func Ensure(statuses []Status) error {
	var missing []string
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s.Name+" ("+s.Detail+")")
		}
	}
	if len(missing) > 0 {
		return services.Wrap(services.ErrMissingDependency, "startup", "check binaries", strings.Join(missing, ", "), nil)
	}
	return nil
}

// Check looks up Requirements(cfg) and applies Ensure.
func Check(cfg *config.Config) ([]Status, error) {
	statuses := Lookup(Requirements(cfg))
	return statuses, Ensure(statuses)
}
