package srt

import (
	"fmt"
	"math"
)

// Issue codes reported by Check.
const (
	IssueEmpty            = "empty_subtitle_file"
	IssueIndexSequence    = "index_sequence"
	IssueInvertedTiming   = "inverted_timing"
	IssueStartOrder       = "start_order"
	IssueDurationMismatch = "duration_mismatch"
)

// Check reports structural problems in cues. When videoSeconds is positive
// the last cue end is compared with it; a gap over 10 minutes, or a cue past
// the end of the video, is reported as a mismatch.
func Check(cues []Cue, videoSeconds float64) []string {
	if len(cues) == 0 {
		return []string{IssueEmpty}
	}
	var issues []string
	var prevStart, last int64
	for i, cue := range cues {
		if cue.Index != i+1 {
			issues = append(issues, fmt.Sprintf("%s: cue %d has index %d", IssueIndexSequence, i+1, cue.Index))
		}
		if cue.End < cue.Start {
			issues = append(issues, fmt.Sprintf("%s: cue %d", IssueInvertedTiming, cue.Index))
		}
		if i > 0 && cue.Start < prevStart {
			issues = append(issues, fmt.Sprintf("%s: cue %d", IssueStartOrder, cue.Index))
		}
		prevStart = cue.Start
		if cue.End > last {
			last = cue.End
		}
	}
	if videoSeconds > 0 {
		delta := videoSeconds - float64(last)/1000
		if delta > 600 || delta < -1 {
			issues = append(issues, fmt.Sprintf("%s: delta=%.1fs", IssueDurationMismatch, math.Abs(delta)))
		}
	}
	return issues
}
