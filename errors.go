package sentra

import (
	"errors"
	"fmt"
)

// Stable error codes carried by the typed errors below. Callers that
// log or report errors across service boundaries key off these rather
// than message text.
const (
	CodeConnectionError = "REDIS_2001"
	CodeSentinelError   = "REDIS_2002"
	CodeInitError       = "REDIS_2003"
)

var (
	// ErrNoConnection is returned when the borrow timeout elapses.
	ErrNoConnection = errors.New("no connection available in pool")

	// ErrUnknownCommand is returned when a command outside the
	// supported surface is dispatched. Unknown commands are rejected
	// rather than routed, as their key positions cannot be rewritten.
	ErrUnknownCommand = errors.New("command is not in the supported command surface")

	// ErrRoleMismatch is returned when a command is added to a
	// pipeline bound to the opposite endpoint role.
	ErrRoleMismatch = errors.New("command classification does not match pipeline role")

	// ErrPipelineClosed is returned when a pipeline is used after it
	// has run or been discarded.
	ErrPipelineClosed = errors.New("pipeline is closed")
)

type (
	// InitError indicates invalid construction-time configuration. It
	// is never retryable - the configuration must be fixed.
	InitError struct {
		Message string
	}

	// SentinelError indicates a control-plane failure: the sentinel
	// quorum was unreachable or reported no endpoint for the requested
	// role. The client does not retry resolution internally beyond the
	// single attempt; callers may retry.
	SentinelError struct {
		Message string
		Cause   error
	}

	// ConnectionError indicates a data-plane failure: a data endpoint
	// was unreachable both before and after the single internal
	// re-resolve-and-reconnect attempt.
	ConnectionError struct {
		Message string
		Cause   error
	}
)

func newInitError(format string, args ...interface{}) *InitError {
	return &InitError{Message: fmt.Sprintf(format, args...)}
}

func (e *InitError) Error() string {
	return fmt.Sprintf("%s: %s", CodeInitError, e.Message)
}

func newSentinelError(cause error, format string, args ...interface{}) *SentinelError {
	return &SentinelError{Message: fmt.Sprintf(format, args...), Cause: cause}
}

func (e *SentinelError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%s)", CodeSentinelError, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", CodeSentinelError, e.Message)
}

func (e *SentinelError) Unwrap() error {
	return e.Cause
}

func newConnectionError(cause error, format string, args ...interface{}) *ConnectionError {
	return &ConnectionError{Message: fmt.Sprintf(format, args...), Cause: cause}
}

func (e *ConnectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%s)", CodeConnectionError, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", CodeConnectionError, e.Message)
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}
