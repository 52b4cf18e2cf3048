package srt

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"subgen/internal/media"
)

// Cue is one numbered subtitle block. Start and End are milliseconds.
type Cue struct {
	Index int
	Start int64
	End   int64
	Text  string
}

// Millis rounds seconds to the nearest millisecond. Negative input clamps to 0.
func Millis(seconds float64) int64 {
	if seconds <= 0 || math.IsNaN(seconds) {
		return 0
	}
	return int64(seconds*1000 + 0.5)
}

// FormatTimestamp renders seconds as HH:MM:SS,mmm.
func FormatTimestamp(seconds float64) string {
	return FormatMillis(Millis(seconds))
}

// FormatMillis renders a millisecond offset as HH:MM:SS,mmm. Hours are not
// capped at 99.
func FormatMillis(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	hours := ms / 3_600_000
	ms %= 3_600_000
	minutes := ms / 60_000
	ms %= 60_000
	secs := ms / 1_000
	millis := ms % 1_000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// ParseTimestamp reads HH:MM:SS,mmm (a '.' separator is accepted) into
// milliseconds.
func ParseTimestamp(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	if hours < 0 || minutes < 0 || minutes > 59 || seconds < 0 || seconds > 59 || millis < 0 || millis > 999 {
		return 0, fmt.Errorf("timestamp out of range %q", value)
	}
	return int64(hours)*3_600_000 + int64(minutes)*60_000 + int64(seconds)*1_000 + int64(millis), nil
}

// BuildCues converts segments to cues, one per segment in order.
func BuildCues(segments []media.Segment) []Cue {
	cues := make([]Cue, 0, len(segments))
	for i, seg := range segments {
		start := Millis(seg.Start)
		end := Millis(seg.End)
		if seg.End > seg.Start && end <= start {
			end = start + 1
		}
		cues = append(cues, Cue{
			Index: i + 1,
			Start: start,
			End:   end,
			Text:  cleanText(seg.Text),
		})
	}
	return cues
}

// cleanText trims the text and drops blank lines, which would otherwise end
// the cue early for any SRT reader.
func cleanText(text string) string {
	text = strings.ToValidUTF8(text, "\uFFFD")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// Render serializes cues in SubRip form with LF line endings. Every block,
// including the last, is followed by a blank line.
func Render(cues []Cue) string {
	var b strings.Builder
	for _, cue := range cues {
		b.WriteString(strconv.Itoa(cue.Index))
		b.WriteByte('\n')
		b.WriteString(FormatMillis(cue.Start))
		b.WriteString(" --> ")
		b.WriteString(FormatMillis(cue.End))
		b.WriteByte('\n')
		b.WriteString(cue.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}

// Duration returns the cue length.
func (c Cue) Duration() int64 { return c.End - c.Start }
