package catalog

import (
	"errors"
	"fmt"
)

// ErrConfig is the sentinel wrapped by every catalog construction failure.
var ErrConfig = errors.New("catalog configuration error")

// ErrInvalidAttr is wrapped by attribute check failures.
var ErrInvalidAttr = errors.New("invalid attribute value")

// ConfigError describes a descriptor that cannot be registered or compiled.
type ConfigError struct {
	// Type is the descriptor name, empty for catalog-wide problems.
	Type string
	// Field names the descriptor field at fault (content, attrs.level, ...).
	Field   string
	Message string
}

// Error implements error.
func (e *ConfigError) Error() string {
	switch {
	case e.Type == "":
		return fmt.Sprintf("catalog: %s", e.Message)
	case e.Field == "":
		return fmt.Sprintf("catalog: %s: %s", e.Type, e.Message)
	default:
		return fmt.Sprintf("catalog: %s.%s: %s", e.Type, e.Field, e.Message)
	}
}

// Unwrap returns ErrConfig.
func (e *ConfigError) Unwrap() error { return ErrConfig }

func configErr(typ, field, format string, args ...any) *ConfigError {
	return &ConfigError{Type: typ, Field: field, Message: fmt.Sprintf(format, args...)}
}

// AttrError reports an attribute value rejected by its type or validator.
type AttrError struct {
	Attr   string
	Value  any
	Reason string
}

// Error implements error.
func (e *AttrError) Error() string {
	return fmt.Sprintf("attribute %q: %s (got %v)", e.Attr, e.Reason, e.Value)
}

// Unwrap returns ErrInvalidAttr.
func (e *AttrError) Unwrap() error { return ErrInvalidAttr }
