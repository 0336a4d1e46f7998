package models

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrorKind classifies failures raised by the playback engine
type ErrorKind int

const (
	// KindValidation indicates invalid clip parameters rejected before any state change
	KindValidation ErrorKind = iota
	// KindMediaUnavailable indicates a decoded element had no frame ready for a render tick
	KindMediaUnavailable
	// KindPlaybackRefused indicates a decoded element or output refused to start or stop
	KindPlaybackRefused
	// KindDecodeFailure indicates the import pipeline could not produce a playable handle
	KindDecodeFailure
)

// String returns the string representation of ErrorKind
func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindMediaUnavailable:
		return "media_unavailable"
	case KindPlaybackRefused:
		return "playback_refused"
	case KindDecodeFailure:
		return "decode_failure"
	default:
		return "unknown"
	}
}

// ErrorSeverity represents how loudly an engine error should be reported
type ErrorSeverity int

const (
	// SeverityInfo is expected churn such as a frame not being buffered yet
	SeverityInfo ErrorSeverity = iota
	// SeverityWarning is a per-clip failure that does not stop the rest of the engine
	SeverityWarning
	// SeverityError is a failure surfaced to the caller
	SeverityError
)

// String returns the string representation of ErrorSeverity
func (s ErrorSeverity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// EngineError is a classified engine failure
type EngineError struct {
	Kind        ErrorKind
	Severity    ErrorSeverity
	Op          string
	ClipID      uuid.UUID
	Message     string
	Cause       error
	Recoverable bool
}

// NewEngineError creates an EngineError whose severity and recoverability follow from kind
func NewEngineError(kind ErrorKind, op string, clipID uuid.UUID, message string, cause error) *EngineError {
	severity, recoverable := classifyKindAttributes(kind)
	return &EngineError{
		Kind:        kind,
		Severity:    severity,
		Op:          op,
		ClipID:      clipID,
		Message:     message,
		Cause:       cause,
		Recoverable: recoverable,
	}
}

// Error implements the error interface
func (e *EngineError) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, e.Message)
	if e.ClipID != uuid.Nil {
		msg += fmt.Sprintf(" (clip %s)", e.ClipID)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Cause)
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// classifyKindAttributes returns severity and recoverability for an error kind
func classifyKindAttributes(kind ErrorKind) (ErrorSeverity, bool) {
	switch kind {
	case KindValidation:
		return SeverityError, false // Caller must fix the input
	case KindMediaUnavailable:
		return SeverityInfo, true // Retried on the next tick
	case KindPlaybackRefused:
		return SeverityWarning, true // Sibling clips keep playing
	case KindDecodeFailure:
		return SeverityError, false // Never reaches the registry
	default:
		return SeverityError, false
	}
}

// IsKind reports whether err is an EngineError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr.Kind == kind
	}
	return false
}
