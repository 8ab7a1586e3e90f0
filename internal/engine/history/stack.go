package history

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/slekup/big-brain/internal/engine/cursor"
	"github.com/slekup/big-brain/internal/engine/model"
	"github.com/slekup/big-brain/internal/engine/transform"
)

// Common errors for history operations.
var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
	ErrReplayFailed  = errors.New("history entry could not be replayed")
)

// Defaults.
const (
	DefaultMaxEntries     = 1000
	DefaultCoalesceWindow = 500 * time.Millisecond
	DefaultCoalesceMaxOps = 100
)

// CommitFunc commits an undo or redo transaction. An error leaves the
// history unchanged.
type CommitFunc func(tx *transform.Transaction) error

// History manages undo/redo state for one editor instance.
type History struct {
	mu sync.Mutex

	undoStack []*entry
	redoStack []*entry

	// Grouping state
	grouping bool
	group    *entry

	// Coalescing state
	broken bool

	// Configuration
	maxEntries int
	window     time.Duration
	maxOps     int
}

// New creates a history holding at most maxEntries undo entries.
func New(maxEntries int) *History {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &History{
		maxEntries: maxEntries,
		window:     DefaultCoalesceWindow,
		maxOps:     DefaultCoalesceMaxOps,
	}
}

// SetCoalescing configures typing coalescing. A zero window disables it.
func (h *History) SetCoalescing(window time.Duration, maxOps int) {
	if maxOps <= 0 {
		maxOps = DefaultCoalesceMaxOps
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.window = window
	h.maxOps = maxOps
}

// Record adds a committed transaction. Transactions that do not change the
// document are ignored. The redo stack is cleared.
func (h *History) Record(tx *transform.Transaction) {
	if !tx.DocChanged() {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.redoStack = nil
	defer func() { h.broken = false }()

	if h.grouping {
		if h.group == nil {
			h.group = newEntry(tx)
		} else {
			h.group.merge(tx)
		}
		return
	}
	if top := h.top(); top != nil && h.coalesces(top, tx) {
		top.merge(tx)
		return
	}
	h.pushLocked(newEntry(tx))
}

func (h *History) top() *entry {
	if len(h.undoStack) == 0 {
		return nil
	}
	return h.undoStack[len(h.undoStack)-1]
}

func (h *History) coalesces(top *entry, tx *transform.Transaction) bool {
	if h.broken || h.window <= 0 {
		return false
	}
	if top.kind != transform.KindInsertText || tx.Kind() != transform.KindInsertText {
		return false
	}
	if top.count >= h.maxOps || tx.Time().Sub(top.time) >= h.window {
		return false
	}
	start := tx.StartSelection()
	return start.IsEmpty() && top.after.IsEmpty() && start.Equal(top.after)
}

// pushLocked adds an entry without acquiring the lock.
func (h *History) pushLocked(e *entry) {
	h.undoStack = append(h.undoStack, e)

	// Enforce max entries
	if len(h.undoStack) > h.maxEntries {
		excess := len(h.undoStack) - h.maxEntries
		h.undoStack = h.undoStack[excess:]
	}
}

// Break ends the current typing run so the next insertion starts a new
// entry.
func (h *History) Break() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broken = true
}

// apply replays e on doc as a transaction of the given kind.
func apply(e *entry, doc *model.Node, sel cursor.Selection, kind transform.Kind) (*transform.Transaction, error) {
	tx := transform.New(doc, sel, nil)
	tx.SetKind(kind)
	for _, s := range e.steps {
		if err := tx.Step(s); err != nil {
			return nil, err
		}
	}
	tx.SetSelection(e.sel)
	return tx, nil
}

// Undo reverts the last entry on doc and hands the transaction to commit.
// The lock is released while commit runs.
func (h *History) Undo(doc *model.Node, sel cursor.Selection, commit CommitFunc) error {
	return h.move(&h.undoStack, &h.redoStack, ErrNothingToUndo, transform.KindUndo, doc, sel, commit)
}

// Redo reapplies the last undone entry.
func (h *History) Redo(doc *model.Node, sel cursor.Selection, commit CommitFunc) error {
	return h.move(&h.redoStack, &h.undoStack, ErrNothingToRedo, transform.KindRedo, doc, sel, commit)
}

func (h *History) move(from, to *[]*entry, empty error, kind transform.Kind, doc *model.Node, sel cursor.Selection, commit CommitFunc) error {
	h.mu.Lock()
	if len(*from) == 0 {
		h.mu.Unlock()
		return empty
	}
	e := (*from)[len(*from)-1]
	*from = (*from)[:len(*from)-1]
	h.mu.Unlock()

	restore := func() {
		h.mu.Lock()
		*from = append(*from, e)
		h.mu.Unlock()
	}
	var inverse []transform.Step
	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("%w: %v", ErrReplayFailed, p)
			}
		}()
		tx, err := apply(e, doc, sel, kind)
		if err != nil {
			return err
		}
		inverse = tx.Inverse()
		return commit(tx)
	}()
	if err != nil {
		restore()
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	*to = append(*to, &entry{
		steps: inverse,
		sel:   e.after,
		after: e.sel,
		kind:  e.kind,
		time:  e.time,
		count: e.count,
	})
	h.broken = true
	return nil
}

// CanUndo returns true if undo is available.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undoStack) > 0
}

// CanRedo returns true if redo is available.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redoStack) > 0
}

// UndoCount returns the number of undo entries available.
func (h *History) UndoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undoStack)
}

// RedoCount returns the number of redo entries available.
func (h *History) RedoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redoStack)
}

// PeekUndo describes the next undo entry without removing it.
func (h *History) PeekUndo() (Info, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.undoStack) == 0 {
		return Info{}, false
	}
	return h.undoStack[len(h.undoStack)-1].info(), true
}

// PeekRedo describes the next redo entry without removing it.
func (h *History) PeekRedo() (Info, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.redoStack) == 0 {
		return Info{}, false
	}
	return h.redoStack[len(h.redoStack)-1].info(), true
}

// Clear removes all undo/redo history.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.undoStack = nil
	h.redoStack = nil
	h.grouping = false
	h.group = nil
	h.broken = false
}

// SetMaxEntries changes the maximum number of undo entries.
// If the current stack is larger, oldest entries are removed.
func (h *History) SetMaxEntries(n int) {
	if n <= 0 {
		n = DefaultMaxEntries
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.maxEntries = n
	if len(h.undoStack) > n {
		h.undoStack = h.undoStack[len(h.undoStack)-n:]
	}
}

// MaxEntries returns the maximum number of undo entries.
func (h *History) MaxEntries() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.maxEntries
}
