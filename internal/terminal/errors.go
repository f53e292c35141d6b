package terminal

import "errors"

// Sentinel errors for the terminal package.
var (
	// ErrSpawnFailed is returned when the child process could not be started.
	ErrSpawnFailed = errors.New("spawn failed")

	// ErrProcessExited is returned when writing to a process that has already exited.
	ErrProcessExited = errors.New("process has exited")

	// ErrWriteFailed is returned when the OS rejected a write to the PTY.
	// Writes are never retried blindly after this error.
	ErrWriteFailed = errors.New("write to PTY failed")

	// ErrInvalidSize is returned when terminal size is invalid.
	ErrInvalidSize = errors.New("invalid terminal size")

	// ErrPTYNotSupported is returned when PTY is not supported on this platform.
	ErrPTYNotSupported = errors.New("PTY not supported on this platform")
)
