package engine

import (
	"fmt"
	"time"

	"github.com/slekup/big-brain/internal/engine/command"
	"github.com/slekup/big-brain/internal/engine/guard"
	"github.com/slekup/big-brain/internal/engine/history"
	"github.com/slekup/big-brain/internal/logging"
)

// Default configuration values.
const (
	DefaultLimit          = guard.DefaultLimit
	DefaultHistoryDepth   = history.DefaultMaxEntries
	DefaultCoalesceWindow = history.DefaultCoalesceWindow
	DefaultCoalesceMaxOps = history.DefaultCoalesceMaxOps
)

// Option configures an Editor during creation.
type Option func(*Editor)

// WithContent sets the initial serialized document. Invalid content fails
// New.
func WithContent(data []byte) Option {
	return func(e *Editor) {
		e.initContent = data
	}
}

// WithLimit sets the character limit. Zero refuses any text; a negative
// limit fails New.
func WithLimit(limit int) Option {
	return func(e *Editor) {
		if limit < 0 {
			e.optErr = fmt.Errorf("%w: negative limit %d", ErrInvalidOption, limit)
			return
		}
		e.guard.Limit = limit
	}
}

// WithCharCounting sets what counts as one character for the limit.
func WithCharCounting(c guard.Counting) Option {
	return func(e *Editor) {
		e.guard.Counting = c
	}
}

// WithHistoryDepth sets the maximum number of undo entries.
func WithHistoryDepth(depth int) Option {
	return func(e *Editor) {
		if depth > 0 {
			e.historyDepth = depth
		}
	}
}

// WithCoalesceWindow sets how close together typing must be to merge into
// one undo entry, and how many transactions one entry may absorb. A zero
// window disables merging.
func WithCoalesceWindow(window time.Duration, maxOps int) Option {
	return func(e *Editor) {
		if window >= 0 {
			e.coalesceWindow = window
		}
		if maxOps > 0 {
			e.coalesceMaxOps = maxOps
		}
	}
}

// WithClock sets the time source used to stamp transactions.
func WithClock(now func() time.Time) Option {
	return func(e *Editor) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithCommands sets the command registry the catalog is bound against.
func WithCommands(r *command.Registry) Option {
	return func(e *Editor) {
		if r != nil {
			e.baseCommands = r
		}
	}
}

// WithEditable marks the instance editable or not. An editor cannot be
// created read-only; New fails with ErrNotEditable.
func WithEditable(editable bool) Option {
	return func(e *Editor) {
		e.editable = editable
	}
}
