package session

import "fmt"

// State is the lifecycle phase of a recording session. Transitions:
//
//	Idle → Countdown → Recording ⇄ Paused → Stopping → Finalized
//
// Failed is reachable from any active state. Finalized and Failed are
// terminal.
type State int

const (
	StateIdle State = iota
	StateCountdown
	StateRecording
	StatePaused
	StateStopping
	StateFinalized
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCountdown:
		return "countdown"
	case StateRecording:
		return "recording"
	case StatePaused:
		return "paused"
	case StateStopping:
		return "stopping"
	case StateFinalized:
		return "finalized"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Active reports whether the session still owns running resources.
func (s State) Active() bool {
	switch s {
	case StateCountdown, StateRecording, StatePaused, StateStopping:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateFinalized || s == StateFailed
}
