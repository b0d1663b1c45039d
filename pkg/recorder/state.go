package recorder

// State is a recording session lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateRecording
	StateFinishing
	StateCompleted
	StateCancelled
	StateFailed

	// stateStarting is held while Start opens the writer.
	stateStarting
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateFinishing:
		return "finishing"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	case stateStarting:
		return "starting"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions can leave s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}
