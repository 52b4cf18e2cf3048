package srt

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"subgen/internal/logging"
	"subgen/internal/media"
	"subgen/internal/services"
)

// FileName is the fixed name of the subtitle file inside the output
// directory.
const FileName = "subtitles.srt"

const stageName = "serializing"

// File describes a written subtitle file.
type File struct {
	Path     string
	CueCount int
}

// Serializer writes subtitle files.
type Serializer struct {
	logger *slog.Logger
}

// NewSerializer returns a serializer. A nil logger discards output.
func NewSerializer(logger *slog.Logger) *Serializer {
	return &Serializer{logger: logging.NewComponentLogger(logger, "srt")}
}

// Serialize writes <outputDir>/subtitles.srt. The file is written to a
// temporary name first and renamed into place, so a failed write leaves any
// previous file intact.
func (s *Serializer) Serialize(ctx context.Context, segments []media.Segment, outputDir string) (File, error) {
	if outputDir == "" {
		return File{}, services.Wrap(services.ErrSerialization, stageName, "validate", "output directory required", nil)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return File{}, services.Wrap(services.ErrSerialization, stageName, "ensure output dir", outputDir, err)
	}
	cues := BuildCues(segments)
	content := Render(cues)
	dest := filepath.Join(outputDir, FileName)

	tmp, err := os.CreateTemp(outputDir, "."+FileName+".*")
	if err != nil {
		return File{}, services.Wrap(services.ErrSerialization, stageName, "create", dest, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		return File{}, services.Wrap(services.ErrSerialization, stageName, "write", dest, err)
	}
	if err := tmp.Close(); err != nil {
		return File{}, services.Wrap(services.ErrSerialization, stageName, "close", dest, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return File{}, services.Wrap(services.ErrSerialization, stageName, "chmod", dest, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return File{}, services.Wrap(services.ErrSerialization, stageName, "rename", dest, err)
	}

	logging.WithContext(ctx, s.logger).Debug("subtitles written",
		logging.SubtitleFile(dest),
		logging.Int("cue_count", len(cues)),
	)
	return File{Path: dest, CueCount: len(cues)}, nil
}

// ReadFile parses the subtitle file at path.
func ReadFile(path string) ([]Cue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}
