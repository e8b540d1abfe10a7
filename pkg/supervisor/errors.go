package supervisor

import (
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/livehost/pkg/diagnostic"
	"github.com/aretw0/livehost/pkg/domain"
)

var (
	// ErrInvalidTransition is returned when an operation is not allowed in the current state.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrNoModule is returned when Load is given an empty handle without fatal diagnostics.
	ErrNoModule = errors.New("no module")

	// ErrDiagnosticsGate is returned when a build carries fatal diagnostics.
	ErrDiagnosticsGate = errors.New("build has fatal diagnostics")

	// ErrStuckModule is returned when Run does not return within the stop timeout.
	ErrStuckModule = errors.New("module did not honor cancellation")

	// ErrModuleFault is returned when a module errors or panics.
	ErrModuleFault = errors.New("module fault")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("supervisor closed")
)

// TransitionError reports an operation attempted from a state that does not allow it.
type TransitionError struct {
	Op    string
	State domain.State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s while %s", ErrInvalidTransition, e.Op, e.State)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// GateError carries the fatal diagnostic that blocked a load.
type GateError struct {
	Module string
	First  diagnostic.Error
	Count  int // number of fatal records
}

func (e *GateError) Error() string {
	return fmt.Sprintf("%s: %s (%d fatal)", ErrDiagnosticsGate, e.First, e.Count)
}

func (e *GateError) Unwrap() error {
	return ErrDiagnosticsGate
}

// StuckError reports a session that kept running past its stop deadline.
type StuckError struct {
	Module    string
	SessionID string
	Waited    time.Duration
}

func (e *StuckError) Error() string {
	return fmt.Sprintf("%s: %q still running after %s", ErrStuckModule, e.Module, e.Waited)
}

func (e *StuckError) Unwrap() error {
	return ErrStuckModule
}

// FaultError wraps the error or panic that ended a session.
type FaultError struct {
	Module string
	Phase  string // "run", "pause" or "resume"
	Cause  error
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("%s: %q failed in %s: %v", ErrModuleFault, e.Module, e.Phase, e.Cause)
}

// Unwrap exposes both the sentinel and the cause to errors.Is.
func (e *FaultError) Unwrap() []error {
	return []error{ErrModuleFault, e.Cause}
}
