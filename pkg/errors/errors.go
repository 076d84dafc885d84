package errors

import "fmt"

// ErrorType classifies the failures the extraction pipeline can hit
type ErrorType string

const (
	ErrorTypeConfig       ErrorType = "config"
	ErrorTypeConnectivity ErrorType = "connectivity"
	ErrorTypePersistence  ErrorType = "persistence"
	ErrorTypeCorruptState ErrorType = "corrupt_state"
	ErrorTypeUnsupported  ErrorType = "unsupported"
	ErrorTypeUnknown      ErrorType = "unknown"
)

// Error carries the failure classification alongside the underlying cause
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewConfig reports an invalid configuration value. Fatal: no state is mutated.
func NewConfig(msg string) *Error {
	return &Error{Type: ErrorTypeConfig, Message: msg}
}

// NewConnectivity reports a failed fetch against the source system.
func NewConnectivity(msg string, err error) *Error {
	return &Error{Type: ErrorTypeConnectivity, Message: msg, Err: err}
}

// NewPersistence reports a failed write of an output file.
func NewPersistence(msg string, err error) *Error {
	return &Error{Type: ErrorTypePersistence, Message: msg, Err: err}
}

// NewCorruptState reports an unreadable checkpoint. The caller must treat this
// as absence-with-warning and never resume from the invalid data.
func NewCorruptState(msg string, err error) *Error {
	return &Error{Type: ErrorTypeCorruptState, Message: msg, Err: err}
}

// NewUnsupported reports an unrecognized granularity or output format.
func NewUnsupported(msg string) *Error {
	return &Error{Type: ErrorTypeUnsupported, Message: msg}
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeConnectivity:
		return true
	case ErrorTypeConfig, ErrorTypePersistence, ErrorTypeCorruptState, ErrorTypeUnsupported:
		return false
	default:
		return false
	}
}
