package session

import (
	"errors"
	"fmt"
)

// Session errors.
var (
	// ErrTerminated indicates the engine was closed or could not respawn.
	ErrTerminated = errors.New("session terminated")

	// ErrSessionReset indicates the call was interrupted by Reset.
	ErrSessionReset = errors.New("session was reset")

	// ErrInvalidDelay indicates a negative wait.
	ErrInvalidDelay = errors.New("invalid delay")

	// ErrApproval indicates the approver failed to reach a decision.
	ErrApproval = errors.New("approval failed")
)

// OperationError records the engine operation and session an error came from.
type OperationError struct {
	Op      string // Operation name (e.g., "send", "reset", "resize")
	Session string // Session id, if one was live
	Err     error  // Underlying error
}

func newOpError(op, session string, err error) *OperationError {
	return &OperationError{Op: op, Session: session, Err: err}
}

func (e *OperationError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Op
	if e.Session != "" {
		msg = fmt.Sprintf("%s [session %s]", msg, e.Session)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is implements errors.Is for OperationError.
// Matches both the wrapper itself and the wrapped error.
func (e *OperationError) Is(target error) bool {
	if e == nil {
		return false
	}
	if t, ok := target.(*OperationError); ok {
		return e == t
	}
	return errors.Is(e.Err, target)
}
