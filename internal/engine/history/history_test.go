package history

import (
	"errors"
	"testing"
	"time"

	"github.com/slekup/big-brain/internal/engine/catalog"
	"github.com/slekup/big-brain/internal/engine/cursor"
	"github.com/slekup/big-brain/internal/engine/model"
	"github.com/slekup/big-brain/internal/engine/transform"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// editor is the minimal state a history works against in these tests.
type editor struct {
	doc *model.Node
	sel cursor.Selection
}

func newEditor(text string) *editor {
	b := model.NewBuilder(catalog.MustDefault())
	p := b.P()
	if text != "" {
		p = b.P(b.Text(text))
	}
	return &editor{doc: b.Doc(p), sel: cursor.At(1)}
}

func (e *editor) commit(tx *transform.Transaction) error {
	e.doc, e.sel = tx.Doc(), tx.Selection()
	return nil
}

// typeText inserts text at the cursor as a typing transaction at time at.
func (e *editor) typeText(t *testing.T, h *History, text string, at time.Time) {
	t.Helper()
	tx := transform.New(e.doc, e.sel, nil)
	tx.SetKind(transform.KindInsertText)
	tx.SetTime(at)
	pos := e.sel.Head
	if err := tx.InsertText(text, pos, pos, nil); err != nil {
		t.Fatalf("InsertText: %v", err)
	}
	tx.SetSelection(cursor.At(pos + len([]rune(text))))
	_ = e.commit(tx)
	h.Record(tx)
}

func (e *editor) text() string { return e.doc.TextContent() }

func TestUndoRedo(t *testing.T) {
	h := New(0)
	e := newEditor("a")
	e.sel = cursor.At(2)

	e.typeText(t, h, "b", t0)
	if e.text() != "ab" {
		t.Fatalf("text = %q", e.text())
	}
	if err := h.Undo(e.doc, e.sel, e.commit); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if e.text() != "a" || !e.sel.Equal(cursor.At(2)) {
		t.Errorf("after undo: %q %s", e.text(), e.sel)
	}
	if !h.CanRedo() || h.CanUndo() {
		t.Errorf("CanUndo = %v, CanRedo = %v", h.CanUndo(), h.CanRedo())
	}
	if err := h.Redo(e.doc, e.sel, e.commit); err != nil {
		t.Fatalf("Redo: %v", err)
	}
	if e.text() != "ab" || !e.sel.Equal(cursor.At(3)) {
		t.Errorf("after redo: %q %s", e.text(), e.sel)
	}
}

func TestEmptyStacks(t *testing.T) {
	h := New(0)
	e := newEditor("a")
	if err := h.Undo(e.doc, e.sel, e.commit); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Undo = %v", err)
	}
	if err := h.Redo(e.doc, e.sel, e.commit); !errors.Is(err, ErrNothingToRedo) {
		t.Errorf("Redo = %v", err)
	}
}

func TestCoalescing(t *testing.T) {
	tests := []struct {
		name    string
		second  time.Time
		brk     bool
		entries int
	}{
		{"within window", t0.Add(100 * time.Millisecond), false, 1},
		{"after window", t0.Add(time.Second), false, 2},
		{"after break", t0.Add(100 * time.Millisecond), true, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(0)
			e := newEditor("")
			e.typeText(t, h, "a", t0)
			if tt.brk {
				h.Break()
			}
			e.typeText(t, h, "b", tt.second)
			if got := h.UndoCount(); got != tt.entries {
				t.Fatalf("UndoCount = %d, want %d", got, tt.entries)
			}
			for h.CanUndo() {
				if err := h.Undo(e.doc, e.sel, e.commit); err != nil {
					t.Fatalf("Undo: %v", err)
				}
			}
			if e.text() != "" {
				t.Errorf("text after undoing everything = %q", e.text())
			}
		})
	}
}

func TestCoalescingRequiresAdjacentCursor(t *testing.T) {
	h := New(0)
	e := newEditor("xy")
	e.typeText(t, h, "a", t0)
	e.sel = cursor.At(4)
	e.typeText(t, h, "b", t0.Add(10*time.Millisecond))
	if got := h.UndoCount(); got != 2 {
		t.Errorf("UndoCount = %d, want 2", got)
	}
}

func TestCoalescingMaxOps(t *testing.T) {
	h := New(0)
	h.SetCoalescing(DefaultCoalesceWindow, 3)
	e := newEditor("")
	for i := 0; i < 5; i++ {
		e.typeText(t, h, "a", t0.Add(time.Duration(i)*time.Millisecond))
	}
	if got := h.UndoCount(); got != 2 {
		t.Errorf("UndoCount = %d, want 2", got)
	}
	if info, ok := h.PeekUndo(); !ok || info.Merged != 2 {
		t.Errorf("PeekUndo = %+v, %v", info, ok)
	}
}

func TestRecordClearsRedo(t *testing.T) {
	h := New(0)
	e := newEditor("")
	e.typeText(t, h, "a", t0)
	if err := h.Undo(e.doc, e.sel, e.commit); err != nil {
		t.Fatal(err)
	}
	e.typeText(t, h, "b", t0.Add(time.Second))
	if h.CanRedo() {
		t.Error("redo survived a new edit")
	}
}

func TestFailedCommitRestoresEntry(t *testing.T) {
	h := New(0)
	e := newEditor("")
	e.typeText(t, h, "a", t0)

	boom := errors.New("boom")
	err := h.Undo(e.doc, e.sel, func(*transform.Transaction) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("Undo = %v", err)
	}
	if h.UndoCount() != 1 || h.CanRedo() {
		t.Errorf("stacks changed: undo %d, redo %d", h.UndoCount(), h.RedoCount())
	}
}

func TestMaxEntries(t *testing.T) {
	h := New(2)
	h.SetCoalescing(0, 0)
	e := newEditor("")
	for i := 0; i < 4; i++ {
		e.typeText(t, h, "a", t0)
	}
	if got := h.UndoCount(); got != 2 {
		t.Errorf("UndoCount = %d, want 2", got)
	}
	h.SetMaxEntries(1)
	if got := h.UndoCount(); got != 1 {
		t.Errorf("UndoCount after shrink = %d, want 1", got)
	}
}

func TestGroup(t *testing.T) {
	h := New(0)
	e := newEditor("")
	func() {
		defer h.GroupScope().End()
		e.typeText(t, h, "a", t0)
		e.typeText(t, h, "b", t0.Add(time.Hour))
		if !h.IsGrouping() {
			t.Error("not grouping inside scope")
		}
	}()
	if got := h.UndoCount(); got != 1 {
		t.Fatalf("UndoCount = %d, want 1", got)
	}
	if err := h.Undo(e.doc, e.sel, e.commit); err != nil {
		t.Fatal(err)
	}
	if e.text() != "" {
		t.Errorf("text = %q", e.text())
	}
}

func TestSelectionOnlyIgnored(t *testing.T) {
	h := New(0)
	e := newEditor("a")
	tx := transform.New(e.doc, e.sel, nil)
	tx.SetSelection(cursor.At(2))
	h.Record(tx)
	if h.CanUndo() {
		t.Error("selection change was recorded")
	}
}

func TestClear(t *testing.T) {
	h := New(0)
	e := newEditor("")
	e.typeText(t, h, "a", t0)
	h.Clear()
	if h.CanUndo() || h.CanRedo() {
		t.Error("Clear left entries")
	}
}
