package domain

import "time"

// State is the supervisor lifecycle state.
type State string

const (
	StateIdle     State = "idle"     // No module loaded
	StateLoaded   State = "loaded"   // Module accepted by the gate, not running
	StatePlaying  State = "playing"  // Run session active
	StatePaused   State = "paused"   // Run session active, module told to pause
	StateStopping State = "stopping" // Cancellation requested, awaiting Run
	StateFaulted  State = "faulted"  // Last session failed or a gated hot-swap was rejected
	StateStuck    State = "stuck"    // Run ignored cancellation past the stop timeout
)

// States lists every state in declaration order.
var States = []State{
	StateIdle,
	StateLoaded,
	StatePlaying,
	StatePaused,
	StateStopping,
	StateFaulted,
	StateStuck,
}

// Active reports whether a run session exists in s.
func (s State) Active() bool {
	return s == StatePlaying || s == StatePaused
}

// Index returns the position of s in States, or -1.
func (s State) Index() int {
	for i, v := range States {
		if v == s {
			return i
		}
	}
	return -1
}

// Status is a read-only snapshot of one supervisor.
type Status struct {
	HostID      string    `json:"host_id"`
	State       State     `json:"state"`
	Module      string    `json:"module,omitempty"`
	Digest      string    `json:"digest,omitempty"`
	SessionID   string    `json:"session_id,omitempty"`
	Generation  uint64    `json:"generation"`
	LastError   string    `json:"last_error,omitempty"`
	Diagnostics int       `json:"diagnostics"`
	UpdatedAt   time.Time `json:"updated_at"`
}
