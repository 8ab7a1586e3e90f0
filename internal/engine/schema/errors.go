package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/slekup/big-brain/internal/engine/model"
	"github.com/slekup/big-brain/internal/engine/wire"
)

// ErrSchema is wrapped by every *SchemaError.
var ErrSchema = errors.New("schema violation")

// Violation is a single validation failure.
type Violation struct {
	// Path locates the offending value, e.g. /content/1/content/0/marks/0.
	Path    string
	Message string
	Value   any
}

// Error implements error.
func (v *Violation) Error() string {
	if v.Path == "" {
		return v.Message
	}
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// SchemaError collects violations found in one tree.
type SchemaError struct {
	Violations []*Violation
}

// Error implements error.
func (e *SchemaError) Error() string {
	switch len(e.Violations) {
	case 0:
		return "no schema violations"
	case 1:
		return "schema: " + e.Violations[0].Error()
	}
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Error()
	}
	return fmt.Sprintf("schema: %d violations:\n  - %s", len(e.Violations), strings.Join(msgs, "\n  - "))
}

// Unwrap returns ErrSchema.
func (e *SchemaError) Unwrap() error { return ErrSchema }

// Add records a violation.
func (e *SchemaError) Add(path, message string) {
	e.Violations = append(e.Violations, &Violation{Path: path, Message: message})
}

// AddWithValue records a violation with the offending value.
func (e *SchemaError) AddWithValue(path, message string, value any) {
	e.Violations = append(e.Violations, &Violation{Path: path, Message: message, Value: value})
}

// Merge appends the violations of other.
func (e *SchemaError) Merge(other *SchemaError) {
	if other != nil {
		e.Violations = append(e.Violations, other.Violations...)
	}
}

// HasViolations reports whether anything was recorded.
func (e *SchemaError) HasViolations() bool { return len(e.Violations) > 0 }

// AsError returns nil when there are no violations.
func (e *SchemaError) AsError() error {
	if !e.HasViolations() {
		return nil
	}
	return e
}

// ViolationsAt returns the violations recorded for path.
func (e *SchemaError) ViolationsAt(path string) []*Violation {
	var out []*Violation
	for _, v := range e.Violations {
		if v.Path == path {
			out = append(out, v)
		}
	}
	return out
}

// asSchemaError converts decode and build failures into a *SchemaError.
func asSchemaError(err error) error {
	if err == nil {
		return nil
	}
	var se *SchemaError
	if errors.As(err, &se) {
		return se
	}
	out := &SchemaError{}
	var shape *wire.ShapeError
	var build *model.BuildError
	switch {
	case errors.As(err, &shape):
		out.Add(shape.Location, shape.Err.Error())
	case errors.As(err, &build):
		out.Add(build.Path, build.Err.Error())
	default:
		out.Add("", err.Error())
	}
	return out
}

// Warning describes content dropped while loading under PolicyDrop.
type Warning struct {
	Path    string
	Message string
}

// String renders the warning.
func (w Warning) String() string {
	if w.Path == "" {
		return w.Message
	}
	return w.Path + ": " + w.Message
}
