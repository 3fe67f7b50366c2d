package leaderboard

// RunState is the lifecycle stage of a single leaderboard run.
type RunState int

const (
	// StateInactive means no run is in progress.
	StateInactive RunState = iota
	// StateActive means the start condition fired and the run is being tracked.
	StateActive
	// StateSubmitting means the score was handed to the submitter and the
	// server round trip is outstanding.
	StateSubmitting
	// StateSubmitted means the server response was merged.
	StateSubmitted
)

func (s RunState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateSubmitting:
		return "submitting"
	case StateSubmitted:
		return "submitted"
	default:
		return "inactive"
	}
}

// legal lists every transition outside of a forced reset.
var legal = map[RunState][]RunState{
	StateInactive:   {StateActive},
	StateActive:     {StateInactive, StateSubmitting},
	StateSubmitting: {StateSubmitted, StateInactive},
	StateSubmitted:  {StateInactive},
}

func canTransition(from, to RunState) bool {
	for _, s := range legal[from] {
		if s == to {
			return true
		}
	}
	return false
}
