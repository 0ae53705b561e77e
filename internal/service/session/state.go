// Package session provides the listening-session controller that wraps the
// transcript accumulator.
package session

import "fmt"

// State is the lifecycle state of the listening session.
type State int

const (
	// StateIdle - Created, never started.
	StateIdle State = iota
	// StateStarting - Start issued, waiting for the engine to confirm.
	StateStarting
	// StateListening - Engine capturing, batches are applied.
	StateListening
	// StateError - Engine reported a delivery error; the stop path follows immediately.
	StateError
	// StateStopped - Stopped by the user, an error or a failed restart. Transcript retained.
	StateStopped
	// StateUnsupported - No recognition capability. Terminal.
	StateUnsupported
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateStarting:
		return "STARTING"
	case StateListening:
		return "LISTENING"
	case StateError:
		return "ERROR"
	case StateStopped:
		return "STOPPED"
	case StateUnsupported:
		return "UNSUPPORTED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsActive returns true while a session is starting or listening.
func (s State) IsActive() bool {
	return s == StateStarting || s == StateListening
}

// CanStart returns true if a user-initiated start is allowed from s.
func (s State) CanStart() bool {
	return s == StateIdle || s == StateStopped || s == StateError
}
