// Package pipeline sequences the three external design stages with
// fail-fast semantics and an explicit state machine, so the abort and
// hand-off contract is testable in isolation from the real ML processes.
package pipeline

import "fmt"

// State is the orchestrator's position in the linear three-stage run.
type State string

const (
	NotStarted    State = "not_started"
	Stage1Running State = "stage1_running"
	Stage1Done    State = "stage1_done"
	Stage2Running State = "stage2_running"
	Stage2Done    State = "stage2_done"
	Stage3Running State = "stage3_running"
	Completed     State = "completed"
	Failed        State = "failed"
)

// IsTerminal reports whether the state ends a run.
func IsTerminal(s State) bool {
	return s == Completed || s == Failed
}

// allowedTransition encodes the strictly linear lifecycle. Any running
// state may move to Failed; nothing leaves a terminal state.
func allowedTransition(from, to State) bool {
	switch from {
	case NotStarted:
		return to == Stage1Running
	case Stage1Running:
		return to == Stage1Done || to == Failed
	case Stage1Done:
		// A generation-only run completes here.
		return to == Stage2Running || to == Completed || to == Failed
	case Stage2Running:
		return to == Stage2Done || to == Failed
	case Stage2Done:
		return to == Stage3Running || to == Failed
	case Stage3Running:
		return to == Completed || to == Failed
	default:
		return false
	}
}

// transition validates and applies a state change. An invalid transition is
// an orchestrator bug, surfaced as an error rather than a panic.
func transition(cur *State, to State) error {
	if !allowedTransition(*cur, to) {
		return fmt.Errorf("pipeline: disallowed transition %s -> %s", *cur, to)
	}
	*cur = to
	return nil
}
