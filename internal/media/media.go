package media

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// VideoExtensions lists the recognized container extensions, lower case with
// the leading dot.
var VideoExtensions = []string{".mp4", ".avi", ".mkv", ".mov", ".wmv"}

// IsVideoFile reports whether path carries a recognized extension. Matching is
// case-insensitive.
func IsVideoFile(path string) bool {
	return slices.Contains(VideoExtensions, strings.ToLower(filepath.Ext(path)))
}

// VideoReference is an absolute path to an existing regular file.
type VideoReference struct {
	Path string
}

// NewVideoReference verifies path and returns its absolute, cleaned form.
// Symlinks are followed for the check; dangling links and directories are
// rejected.
func NewVideoReference(path string) (VideoReference, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return VideoReference{}, errors.New("video reference: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return VideoReference{}, fmt.Errorf("video reference: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return VideoReference{}, fmt.Errorf("video reference: %w", err)
	}
	if !info.Mode().IsRegular() {
		return VideoReference{}, fmt.Errorf("video reference: %s is not a regular file", abs)
	}
	return VideoReference{Path: abs}, nil
}

// Name returns the file name of the video.
func (v VideoReference) Name() string {
	return filepath.Base(v.Path)
}

// Stem returns the file name without its extension.
func (v VideoReference) Stem() string {
	name := v.Name()
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func (v VideoReference) String() string {
	return v.Path
}

// AudioTrack is the standalone audio file extracted from a video.
type AudioTrack struct {
	Path   string
	Source VideoReference
}

// Segment is one time-coded span of transcript text. Times are seconds from
// the start of the audio.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// ValidateSegments checks that starts are non-negative and non-decreasing and
// that no segment ends before it starts. Zero-length segments are allowed.
func ValidateSegments(segments []Segment) error {
	prevStart := 0.0
	for i, seg := range segments {
		switch {
		case seg.Start < 0:
			return fmt.Errorf("segment %d: negative start %.3f", i, seg.Start)
		case seg.End < seg.Start:
			return fmt.Errorf("segment %d: end %.3f before start %.3f", i, seg.End, seg.Start)
		case i > 0 && seg.Start < prevStart:
			return fmt.Errorf("segment %d: start %.3f before previous start %.3f", i, seg.Start, prevStart)
		}
		prevStart = seg.Start
	}
	return nil
}
