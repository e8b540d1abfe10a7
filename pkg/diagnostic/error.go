package diagnostic

import (
	"cmp"
	"fmt"
	"strings"
)

// Kind is a free-form diagnostic category such as "error" or "warning".
type Kind string

const (
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
	// KindFault marks a module that failed while running.
	KindFault Kind = "fault"
	// KindStuck marks a module that ignored cancellation.
	KindStuck Kind = "stuck"
)

// DefaultFatalKinds are the kinds that block a module from being loaded.
var DefaultFatalKinds = []Kind{KindError, "fatal"}

// Fatal reports whether k is one of DefaultFatalKinds (case-insensitive).
func (k Kind) Fatal() bool {
	return k.In(DefaultFatalKinds)
}

// In reports whether k matches any of kinds, ignoring case.
func (k Kind) In(kinds []Kind) bool {
	for _, candidate := range kinds {
		if strings.EqualFold(string(k), string(candidate)) {
			return true
		}
	}
	return false
}

// Error is a diagnostic record. It is a value type; copies are independent.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Span    Span   `json:"span"`
}

// New builds a diagnostic record.
func New(kind Kind, message string, span Span) Error {
	return Error{Kind: kind, Message: message, Span: span}
}

// Errorf builds an "error" diagnostic with a formatted message.
func Errorf(span Span, format string, args ...any) Error {
	return New(KindError, fmt.Sprintf(format, args...), span)
}

// Warningf builds a "warning" diagnostic with a formatted message.
func Warningf(span Span, format string, args ...any) Error {
	return New(KindWarning, fmt.Sprintf(format, args...), span)
}

// Compare orders records by span, then kind, then message.
func (e Error) Compare(other Error) int {
	if c := e.Span.Compare(other.Span); c != 0 {
		return c
	}
	if c := cmp.Compare(e.Kind, other.Kind); c != 0 {
		return c
	}
	return cmp.Compare(e.Message, other.Message)
}

// Less reports whether e sorts before other.
func (e Error) Less(other Error) bool {
	return e.Compare(other) < 0
}

// String renders "KIND (span): message".
func (e Error) String() string {
	return fmt.Sprintf("%s (%s): %s", strings.ToUpper(string(e.Kind)), e.Span.String(), e.Message)
}

// Error lets a diagnostic travel as a Go error.
func (e Error) Error() string {
	return e.String()
}
