package app

import (
	"errors"
	"fmt"

	"github.com/slekup/big-brain/internal/engine"
)

// Application errors.
var (
	// ErrClosed indicates an operation after Shutdown.
	ErrClosed = errors.New("application closed")

	// ErrNotEditable indicates an edit request on a read-only field. The
	// field is served by a preview, which has no editing surface.
	ErrNotEditable = engine.ErrNotEditable

	// ErrSessionNotFound indicates an unknown session ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionOpen indicates a second session on the same record field.
	ErrSessionOpen = errors.New("field already has a session")

	// ErrNoFile indicates a record that was not loaded from a file.
	ErrNoFile = errors.New("record has no file")
)

// OperationError represents an error that occurred during a specific operation.
type OperationError struct {
	Op     string // Operation name (e.g., "open", "save", "dispatch")
	Target string // Record or session the operation applied to
	Err    error
}

func (e *OperationError) Error() string {
	msg := e.Op
	if e.Target != "" {
		msg = fmt.Sprintf("%s %s", e.Op, e.Target)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// InitError represents an initialization error.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return "init " + e.Component + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}
