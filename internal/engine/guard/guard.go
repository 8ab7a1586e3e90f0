// Package guard enforces the per-instance content limit.
package guard

import (
	"errors"
	"fmt"

	"github.com/rivo/uniseg"

	"github.com/slekup/big-brain/internal/engine/model"
)

// DefaultLimit is the character limit when none is configured.
const DefaultLimit = 2000

// ErrLimitExceeded is wrapped by every LimitError.
var ErrLimitExceeded = errors.New("content limit exceeded")

// Counting selects what counts as one character.
type Counting int

const (
	// Runes counts Unicode code points.
	Runes Counting = iota
	// Graphemes counts user-perceived characters.
	Graphemes
)

// String returns the counting mode name.
func (c Counting) String() string {
	if c == Graphemes {
		return "graphemes"
	}
	return "runes"
}

// ParseCounting maps "runes" or "graphemes" to a Counting.
func ParseCounting(s string) (Counting, error) {
	switch s {
	case "", "runes":
		return Runes, nil
	case "graphemes":
		return Graphemes, nil
	}
	return Runes, fmt.Errorf("unknown character counting %q", s)
}

// LimitError reports a refused transaction.
type LimitError struct {
	Limit  int
	Before int
	After  int
}

// Error implements error.
func (e *LimitError) Error() string {
	return fmt.Sprintf("%v: %d characters, limit %d", ErrLimitExceeded, e.After, e.Limit)
}

// Unwrap returns ErrLimitExceeded.
func (e *LimitError) Unwrap() error { return ErrLimitExceeded }

// Unset is passed to New when no limit was configured.
const Unset = -1

// Guard checks documents against a character limit. A zero Limit admits no
// text at all.
type Guard struct {
	Limit    int
	Counting Counting
}

// New returns a guard with limit. Unset, or any negative limit, selects
// DefaultLimit; zero is a real limit.
func New(limit int, counting Counting) Guard {
	if limit < 0 {
		limit = DefaultLimit
	}
	return Guard{Limit: limit, Counting: counting}
}

// Count returns the number of characters in the text of doc. Only text
// nodes count; block boundaries and leaf nodes do not.
func (g Guard) Count(doc *model.Node) int {
	n := 0
	doc.Descendants(func(c *model.Node, _ int, _ *model.Node, _ int) bool {
		if c.IsText() {
			if g.Counting == Graphemes {
				n += uniseg.GraphemeClusterCount(c.Text())
			} else {
				n += c.TextLength()
			}
		}
		return true
	})
	return n
}

// Check refuses a change from before to after that ends over the limit
// while growing the count. Shrinking an over-limit document is allowed.
func (g Guard) Check(before, after *model.Node) error {
	limit := g.Limit
	a := g.Count(after)
	if a <= limit {
		return nil
	}
	b := g.Count(before)
	if a <= b {
		return nil
	}
	return &LimitError{Limit: limit, Before: b, After: a}
}

// Remaining returns how many characters may still be added to doc.
func (g Guard) Remaining(doc *model.Node) int {
	return max(g.Limit-g.Count(doc), 0)
}
