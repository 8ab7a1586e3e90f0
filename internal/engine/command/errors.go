package command

import (
	"errors"
	"fmt"
)

var (
	// ErrRefused marks a command whose preconditions did not hold.
	ErrRefused = errors.New("command refused")

	// ErrUnknownCommand indicates a name with no registered command.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrCommandPanic indicates a command that panicked. The transaction it
	// was building must be discarded.
	ErrCommandPanic = errors.New("command panicked")
)

// Refusal is the normal outcome of a command that cannot apply to the
// current state. It never comes with a partial change.
type Refusal struct {
	Command string
	Reason  string
	Err     error
}

// Error implements error.
func (r *Refusal) Error() string {
	if r.Command == "" {
		return "refused: " + r.Reason
	}
	return fmt.Sprintf("%s refused: %s", r.Command, r.Reason)
}

// Unwrap exposes ErrRefused and the underlying cause.
func (r *Refusal) Unwrap() []error {
	if r.Err == nil {
		return []error{ErrRefused}
	}
	return []error{ErrRefused, r.Err}
}

func refuse(format string, args ...any) error {
	return &Refusal{Reason: fmt.Sprintf(format, args...)}
}

// IsRefused reports whether err is a refusal.
func IsRefused(err error) bool {
	return errors.Is(err, ErrRefused)
}
