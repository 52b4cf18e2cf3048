package prompt

import (
	"strconv"
	"strings"
)

// State is a step of the selection loop.
type State int

const (
	AwaitingInput State = iota
	Validating
	Accepted
	Rejected
	Cancelled
)

func (s State) String() string {
	switch s {
	case AwaitingInput:
		return "awaiting_input"
	case Validating:
		return "validating"
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsQuitWord reports whether input is one of the words that end a prompt.
func IsQuitWord(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "q", "quit", "exit":
		return true
	}
	return false
}

// Evaluate validates one line of input against a list of count options and
// returns the resulting state. On Accepted the 0-based index is returned.
func Evaluate(input string, count int) (State, int) {
	trimmed := strings.TrimSpace(input)
	if IsQuitWord(trimmed) {
		return Cancelled, -1
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil || n < 1 || n > count {
		return Rejected, -1
	}
	return Accepted, n - 1
}
