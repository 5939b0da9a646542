package graph

// State is the lifecycle state of a Test.
type State int

const (
	StatePending State = iota
	StateRunning
	StateSuccess
	StateFailure
	StateSkipped
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateSuccess:
		return "success"
	case StateFailure:
		return "failure"
	case StateSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the state is final.
func (s State) IsTerminal() bool {
	switch s {
	case StateSuccess, StateFailure, StateSkipped:
		return true
	default:
		return false
	}
}

func isAllowedTransition(from, to State) bool {
	switch from {
	case StatePending:
		return to == StateRunning || to == StateSkipped
	case StateRunning:
		return to == StateSuccess || to == StateFailure
	default:
		return false
	}
}
