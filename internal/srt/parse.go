package srt

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Parse reads SubRip content. CRLF endings and a UTF-8 byte order mark are
// tolerated; a cue with no text lines is returned with empty Text.
func Parse(r io.Reader) ([]Cue, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	const (
		wantIndex = iota
		wantTiming
		wantText
	)
	var (
		cues   []Cue
		cur    Cue
		text   []string
		state  = wantIndex
		lineNo int
	)
	flush := func() {
		cur.Text = strings.Join(text, "\n")
		cues = append(cues, cur)
		cur, text = Cue{}, nil
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\uFEFF")
		}
		switch state {
		case wantIndex:
			if strings.TrimSpace(line) == "" {
				continue
			}
			index, err := strconv.Atoi(strings.TrimSpace(line))
			if err != nil {
				return nil, fmt.Errorf("srt line %d: invalid cue index %q", lineNo, line)
			}
			cur.Index = index
			state = wantTiming
		case wantTiming:
			start, end, err := parseTiming(line)
			if err != nil {
				return nil, fmt.Errorf("srt line %d: %w", lineNo, err)
			}
			cur.Start, cur.End = start, end
			state = wantText
		case wantText:
			if strings.TrimSpace(line) == "" {
				flush()
				state = wantIndex
				continue
			}
			text = append(text, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	switch state {
	case wantTiming:
		return nil, fmt.Errorf("srt line %d: cue %d has no timing line", lineNo, cur.Index)
	case wantText:
		flush()
	}
	return cues, nil
}

func parseTiming(line string) (int64, int64, error) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid timing line %q", line)
	}
	start, err := ParseTimestamp(parts[0])
	if err != nil {
		return 0, 0, err
	}
	// Position settings may follow the end time.
	endField := strings.Fields(parts[1])
	if len(endField) == 0 {
		return 0, 0, fmt.Errorf("invalid timing line %q", line)
	}
	end, err := ParseTimestamp(endField[0])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}
