package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// Result is the subset of `ffprobe -show_format -show_streams` output subgen
// reads.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

type Stream struct {
	Index     int               `json:"index"`
	CodecName string            `json:"codec_name"`
	CodecType string            `json:"codec_type"`
	Channels  int               `json:"channels"`
	Tags      map[string]string `json:"tags"`
}

type Format struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
}

// Prober inspects media files. Inspector satisfies it; tests substitute fakes.
type Prober interface {
	Inspect(ctx context.Context, path string) (Result, error)
}

// Inspector runs a specific ffprobe binary.
type Inspector struct {
	Binary string
}

// Inspect implements Prober.
func (i Inspector) Inspect(ctx context.Context, path string) (Result, error) {
	return Inspect(ctx, i.Binary, path)
}

// Inspect runs binary (ffprobe when empty) against path. A failed run
// carries ffprobe's stderr, which usually names the real problem.
func Inspect(ctx context.Context, binary, path string) (Result, error) {
	if strings.TrimSpace(path) == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}
	if binary = strings.TrimSpace(binary); binary == "" {
		binary = "ffprobe"
	}

	var stderr strings.Builder
	cmd := exec.CommandContext(ctx, binary,
		"-v", "error", "-hide_banner",
		"-show_format", "-show_streams",
		"-of", "json", "--", path)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return Parse(out)
}

// Parse decodes ffprobe JSON output.
func Parse(data []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// StreamsOfType returns the streams whose codec_type matches, in container
// order.
func (r Result) StreamsOfType(codecType string) []Stream {
	var matched []Stream
	for _, s := range r.Streams {
		if strings.EqualFold(s.CodecType, codecType) {
			matched = append(matched, s)
		}
	}
	return matched
}

func (r Result) VideoStreamCount() int { return len(r.StreamsOfType("video")) }

func (r Result) AudioStreamCount() int { return len(r.StreamsOfType("audio")) }

// FirstAudioStream returns the stream extraction maps by default.
func (r Result) FirstAudioStream() (Stream, bool) {
	if audio := r.StreamsOfType("audio"); len(audio) > 0 {
		return audio[0], true
	}
	return Stream{}, false
}

// DurationSeconds returns the container duration: 0 when ffprobe omitted it,
// NaN when it reported something unparseable.
func (r Result) DurationSeconds() float64 {
	raw := strings.TrimSpace(r.Format.Duration)
	if raw == "" {
		return 0
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return math.NaN()
	}
	return seconds
}

// Language returns the stream's language tag, lower-cased.
func (s Stream) Language() string {
	for _, key := range []string{"language", "LANGUAGE", "lang"} {
		if value := strings.TrimSpace(s.Tags[key]); value != "" {
			return strings.ToLower(value)
		}
	}
	return ""
}
