package pipeline

import (
	"errors"
	"fmt"
)

// State is a position in the run state machine.
type State string

const (
	StateResolving    State = "resolving"
	StateExtracting   State = "extracting"
	StateTranscribing State = "transcribing"
	StateSerializing  State = "serializing"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// Stages lists the working states in execution order.
var Stages = []State{StateResolving, StateExtracting, StateTranscribing, StateSerializing}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// next returns the state that follows s on success.
func (s State) next() State {
	for i, stage := range Stages {
		if stage == s && i+1 < len(Stages) {
			return Stages[i+1]
		}
	}
	return StateDone
}

// StageError records which stage failed and why. It unwraps to the cause, so
// errors.Is matches the services markers.
type StageError struct {
	Stage State
	Err   error
}

func (e *StageError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// FailedStage returns the stage recorded in err, if any.
func FailedStage(err error) (State, bool) {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage, true
	}
	return "", false
}
