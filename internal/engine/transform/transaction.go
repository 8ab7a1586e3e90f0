package transform

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slekup/big-brain/internal/engine/cursor"
	"github.com/slekup/big-brain/internal/engine/model"
)

// Kind labels what a transaction does. History coalesces consecutive
// KindInsertText transactions; every other kind is its own undo unit.
type Kind string

const (
	KindEdit       Kind = "edit"
	KindInsertText Kind = "insertText"
	KindDelete     Kind = "delete"
	KindFormat     Kind = "format"
	KindStructure  Kind = "structure"
	KindSelection  Kind = "selection"
	KindUndo       Kind = "undo"
	KindRedo       Kind = "redo"
)

// Transaction is a sequence of steps applied to a starting document.
type Transaction struct {
	id   ulid.ULID
	time time.Time
	kind Kind

	before *model.Node
	doc    *model.Node
	steps  []Step
	docs   []*model.Node
	maps   Mapping

	startSel     cursor.Selection
	selection    cursor.Selection
	selectionSet bool

	storedMarks    []*model.Mark
	storedMarksSet bool

	meta map[string]any
}

// New starts a transaction over doc with the current selection and stored marks.
func New(doc *model.Node, sel cursor.Selection, storedMarks []*model.Mark) *Transaction {
	return &Transaction{
		id:          ulid.Make(),
		time:        time.Now(),
		kind:        KindEdit,
		before:      doc,
		doc:         doc,
		startSel:    sel,
		selection:   sel,
		storedMarks: storedMarks,
	}
}

// ID identifies the transaction.
func (tr *Transaction) ID() ulid.ULID { return tr.id }

// Time is when the transaction was created.
func (tr *Transaction) Time() time.Time { return tr.time }

// SetTime overrides the creation time.
func (tr *Transaction) SetTime(t time.Time) { tr.time = t }

// Kind returns the transaction label.
func (tr *Transaction) Kind() Kind { return tr.kind }

// SetKind sets the transaction label.
func (tr *Transaction) SetKind(k Kind) { tr.kind = k }

// Before returns the starting document.
func (tr *Transaction) Before() *model.Node { return tr.before }

// Doc returns the current document.
func (tr *Transaction) Doc() *model.Node { return tr.doc }

// Steps returns the applied steps.
func (tr *Transaction) Steps() []Step { return tr.steps }

// DocChanged reports whether any step was applied.
func (tr *Transaction) DocChanged() bool { return len(tr.steps) > 0 }

// Mapping returns the combined position map.
func (tr *Transaction) Mapping() *Mapping { return &tr.maps }

// Step applies s. On failure the transaction is unchanged.
func (tr *Transaction) Step(s Step) error {
	doc, err := s.Apply(tr.doc)
	if err != nil {
		return err
	}
	tr.docs = append(tr.docs, tr.doc)
	tr.steps = append(tr.steps, s)
	tr.doc = doc
	m := s.Map()
	tr.maps.Append(m)
	tr.selection = tr.selection.Map(m).Clamp(doc.ContentSize())
	tr.storedMarks, tr.storedMarksSet = nil, false
	return nil
}

// Inverse returns steps that undo the transaction, in application order.
func (tr *Transaction) Inverse() []Step {
	out := make([]Step, 0, len(tr.steps))
	for i := len(tr.steps) - 1; i >= 0; i-- {
		out = append(out, tr.steps[i].Invert(tr.docs[i]))
	}
	return out
}

// StartSelection returns the selection the transaction started with.
func (tr *Transaction) StartSelection() cursor.Selection { return tr.startSel }

// Selection returns the selection mapped through every step, or the one set
// explicitly after the last step.
func (tr *Transaction) Selection() cursor.Selection { return tr.selection }

// SetSelection replaces the selection, clamped to the document.
func (tr *Transaction) SetSelection(sel cursor.Selection) {
	tr.selection = sel.Clamp(tr.doc.ContentSize())
	tr.selectionSet = true
	tr.storedMarks, tr.storedMarksSet = nil, false
}

// SelectionSet reports whether SetSelection was called.
func (tr *Transaction) SelectionSet() bool { return tr.selectionSet }

// StoredMarks returns the marks the next typed text will get, if set.
func (tr *Transaction) StoredMarks() []*model.Mark { return tr.storedMarks }

// StoredMarksSet reports whether SetStoredMarks was called after the
// last step or selection change.
func (tr *Transaction) StoredMarksSet() bool { return tr.storedMarksSet }

// SetStoredMarks sets the marks for the next typed text. nil clears them.
func (tr *Transaction) SetStoredMarks(marks []*model.Mark) {
	tr.storedMarks = marks
	tr.storedMarksSet = true
}

// Meta returns a metadata value.
func (tr *Transaction) Meta(key string) any { return tr.meta[key] }

// SetMeta attaches metadata.
func (tr *Transaction) SetMeta(key string, v any) {
	if tr.meta == nil {
		tr.meta = make(map[string]any)
	}
	tr.meta[key] = v
}
