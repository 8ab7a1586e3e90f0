package script

import (
	"errors"
	"fmt"
)

// Errors returned by the runner.
var (
	// ErrTooManyCommands is returned when a macro queues more commands
	// than the runner allows.
	ErrTooManyCommands = errors.New("macro queued too many commands")

	// ErrTimeout is returned when a macro runs past its deadline.
	ErrTimeout = errors.New("macro timed out")
)

// Error reports a failure raised while the Lua code ran.
type Error struct {
	Name string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("macro %s: %v", e.Name, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
