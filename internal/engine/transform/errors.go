package transform

import (
	"errors"
	"fmt"
)

// ErrStepFailed is wrapped by every step application failure.
var ErrStepFailed = errors.New("step failed")

// StepError reports a step whose preconditions did not hold.
type StepError struct {
	Step   Step
	Reason string
}

// Error implements error.
func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s", e.Step, e.Reason)
}

// Unwrap returns ErrStepFailed.
func (e *StepError) Unwrap() error { return ErrStepFailed }

func fail(s Step, format string, args ...any) error {
	return &StepError{Step: s, Reason: fmt.Sprintf(format, args...)}
}
