package transform

import (
	"errors"
	"testing"

	"github.com/slekup/big-brain/internal/engine/catalog"
	"github.com/slekup/big-brain/internal/engine/cursor"
	"github.com/slekup/big-brain/internal/engine/model"
)

func builder() model.Builder {
	return model.NewBuilder(catalog.MustDefault())
}

// undo applies the inverse of tr to its result.
func undo(t *testing.T, tr *Transaction) *model.Node {
	t.Helper()
	doc := tr.Doc()
	for _, s := range tr.Inverse() {
		var err error
		doc, err = s.Apply(doc)
		if err != nil {
			t.Fatalf("inverse %s: %v", s, err)
		}
	}
	return doc
}

func checkRoundTrip(t *testing.T, tr *Transaction) {
	t.Helper()
	if got := undo(t, tr); !got.Eq(tr.Before()) {
		t.Errorf("inverse produced %s, want %s", got, tr.Before())
	}
}

func TestStepMap(t *testing.T) {
	tests := []struct {
		name    string
		m       StepMap
		pos     int
		assoc   int
		want    int
		deleted bool
	}{
		{"before deletion", NewStepMap(3, 2, 0), 2, 1, 2, false},
		{"inside deletion", NewStepMap(3, 2, 0), 4, 1, 3, true},
		{"after deletion", NewStepMap(3, 2, 0), 6, 1, 4, false},
		{"insert right", NewStepMap(3, 0, 2), 3, 1, 5, false},
		{"insert left", NewStepMap(3, 0, 2), 3, -1, 3, false},
		{"inverted insert", NewStepMap(3, 0, 2).Invert(), 5, 1, 3, false},
		{"empty", EmptyMap, 7, 1, 7, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, deleted := tt.m.MapResult(tt.pos, tt.assoc)
			if got != tt.want || deleted != tt.deleted {
				t.Errorf("MapResult(%d, %d) = %d, %v; want %d, %v", tt.pos, tt.assoc, got, deleted, tt.want, tt.deleted)
			}
		})
	}
}

func TestInsertText(t *testing.T) {
	b := builder()
	doc := b.Doc(b.P(b.Text("hello")))
	tr := New(doc, cursor.At(6), nil)

	if err := tr.InsertText("!", 6, 6, nil); err != nil {
		t.Fatalf("InsertText: %v", err)
	}
	if got := tr.Doc().TextContent(); got != "hello!" {
		t.Errorf("text = %q", got)
	}
	if got := tr.Selection(); !got.Equal(cursor.At(7)) {
		t.Errorf("selection = %s, want Cursor(7)", got)
	}
	if tr.Doc().Child(0).ChildCount() != 1 {
		t.Errorf("text runs not merged: %s", tr.Doc())
	}
	checkRoundTrip(t, tr)
}

func TestInsertTextDropsDisallowedMarks(t *testing.T) {
	b := builder()
	doc := b.Doc(b.Node("codeBlock", nil, b.Text("x")))
	tr := New(doc, cursor.At(2), nil)

	if err := tr.InsertText("y", 2, 2, []*model.Mark{b.Mark("bold", nil)}); err != nil {
		t.Fatalf("InsertText: %v", err)
	}
	if marks := tr.Doc().Child(0).Child(0).Marks(); len(marks) != 0 {
		t.Errorf("code block text got marks %v", marks)
	}
}

func TestDelete(t *testing.T) {
	b := builder()
	tests := []struct {
		name     string
		doc      *model.Node
		from, to int
		want     *model.Node
	}{
		{
			name: "within paragraph",
			doc:  b.Doc(b.P(b.Text("hello"))),
			from: 2, to: 4,
			want: b.Doc(b.P(b.Text("hlo"))),
		},
		{
			name: "across paragraphs",
			doc:  b.Doc(b.P(b.Text("hello")), b.P(b.Text("world"))),
			from: 3, to: 10,
			want: b.Doc(b.P(b.Text("herld"))),
		},
		{
			name: "across three blocks",
			doc:  b.Doc(b.P(b.Text("ab")), b.H(2, b.Text("cd")), b.P(b.Text("ef"))),
			from: 2, to: 10,
			want: b.Doc(b.P(b.Text("af"))),
		},
		{
			name: "out of a blockquote",
			doc:  b.Doc(b.Node("blockquote", nil, b.P(b.Text("ab"))), b.P(b.Text("cd"))),
			from: 3, to: 8,
			want: b.Doc(b.Node("blockquote", nil, b.P(b.Text("ad")))),
		},
		{
			name: "whole paragraph",
			doc:  b.Doc(b.P(b.Text("ab")), b.P(b.Text("cd"))),
			from: 0, to: 4,
			want: b.Doc(b.P(b.Text("cd"))),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New(tt.doc, cursor.Range(tt.from, tt.to), nil)
			if err := tr.Delete(tt.from, tt.to); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if !tr.Doc().Eq(tt.want) {
				t.Errorf("got %s, want %s", tr.Doc(), tt.want)
			}
			checkRoundTrip(t, tr)
		})
	}
}

func TestFailedStepLeavesTransaction(t *testing.T) {
	b := builder()
	doc := b.Doc(b.P(b.Text("hello")), b.P(b.Text("world")))
	tr := New(doc, cursor.At(1), nil)

	err := tr.Step(&ReplaceStep{From: 3, To: 10})
	if !errors.Is(err, ErrStepFailed) {
		t.Fatalf("err = %v, want ErrStepFailed", err)
	}
	var se *StepError
	if !errors.As(err, &se) || se.Reason == "" {
		t.Errorf("err = %#v, want *StepError with a reason", err)
	}
	if tr.DocChanged() || tr.Doc() != doc {
		t.Error("failed step changed the transaction")
	}
}

func TestMarks(t *testing.T) {
	b := builder()
	bold := b.Mark("bold", nil)
	code := b.Mark("code", nil)

	t.Run("add", func(t *testing.T) {
		tr := New(b.Doc(b.P(b.Text("hello"))), cursor.Range(2, 4), nil)
		if err := tr.AddMark(2, 4, bold); err != nil {
			t.Fatal(err)
		}
		want := b.Doc(b.P(b.Text("h"), b.Text("el", bold), b.Text("lo")))
		if !tr.Doc().Eq(want) {
			t.Errorf("got %s, want %s", tr.Doc(), want)
		}
		checkRoundTrip(t, tr)
	})

	t.Run("add is idempotent", func(t *testing.T) {
		tr := New(b.Doc(b.P(b.Text("hello", bold))), cursor.Range(1, 6), nil)
		if err := tr.AddMark(1, 6, bold); err != nil {
			t.Fatal(err)
		}
		if tr.DocChanged() {
			t.Errorf("steps = %v, want none", tr.Steps())
		}
	})

	t.Run("exclusive mark replaces others", func(t *testing.T) {
		tr := New(b.Doc(b.P(b.Text("hello", bold))), cursor.Range(1, 6), nil)
		if err := tr.AddMark(1, 6, code); err != nil {
			t.Fatal(err)
		}
		want := b.Doc(b.P(b.Text("hello", code)))
		if !tr.Doc().Eq(want) {
			t.Errorf("got %s, want %s", tr.Doc(), want)
		}
		checkRoundTrip(t, tr)
	})

	t.Run("same type other attrs", func(t *testing.T) {
		red := b.Mark("textStyle", map[string]any{"color": "#ff0000"})
		blue := b.Mark("textStyle", map[string]any{"color": "#0000ff"})
		tr := New(b.Doc(b.P(b.Text("ab", red))), cursor.Range(1, 3), nil)
		if err := tr.AddMark(1, 3, blue); err != nil {
			t.Fatal(err)
		}
		want := b.Doc(b.P(b.Text("ab", blue)))
		if !tr.Doc().Eq(want) {
			t.Errorf("got %s, want %s", tr.Doc(), want)
		}
		checkRoundTrip(t, tr)
	})

	t.Run("remove across paragraphs", func(t *testing.T) {
		doc := b.Doc(b.P(b.Text("ab", bold)), b.P(b.Text("c"), b.Text("d", bold)))
		tr := New(doc, cursor.Range(1, 8), nil)
		if err := tr.RemoveMark(1, 8, bold.Type()); err != nil {
			t.Fatal(err)
		}
		want := b.Doc(b.P(b.Text("ab")), b.P(b.Text("cd")))
		if !tr.Doc().Eq(want) {
			t.Errorf("got %s, want %s", tr.Doc(), want)
		}
		checkRoundTrip(t, tr)
	})

	t.Run("remove step requires the mark", func(t *testing.T) {
		doc := b.Doc(b.P(b.Text("ab")))
		if _, err := (&RemoveMarkStep{From: 1, To: 3, Mark: bold}).Apply(doc); !errors.Is(err, ErrStepFailed) {
			t.Errorf("err = %v, want ErrStepFailed", err)
		}
	})
}

func TestSplitJoin(t *testing.T) {
	b := builder()
	doc := b.Doc(b.P(b.Text("hello")))

	tr := New(doc, cursor.At(3), nil)
	if err := tr.Split(3, 1); err != nil {
		t.Fatal(err)
	}
	want := b.Doc(b.P(b.Text("he")), b.P(b.Text("llo")))
	if !tr.Doc().Eq(want) {
		t.Fatalf("split got %s, want %s", tr.Doc(), want)
	}
	if got := tr.Selection(); !got.Equal(cursor.At(5)) {
		t.Errorf("selection after split = %s, want Cursor(5)", got)
	}
	checkRoundTrip(t, tr)

	if err := tr.Join(4, 1); err != nil {
		t.Fatal(err)
	}
	if !tr.Doc().Eq(doc) {
		t.Errorf("join got %s, want %s", tr.Doc(), doc)
	}

	t.Run("typed split", func(t *testing.T) {
		heading := b.Catalog().MustNode("heading")
		tr := New(b.Doc(b.H(1, b.Text("ab"))), cursor.At(3), nil)
		if err := tr.Split(3, 1, NodeSpec{Type: b.Catalog().MustNode("paragraph")}); err != nil {
			t.Fatal(err)
		}
		want := b.Doc(b.H(1, b.Text("ab")), b.P())
		if !tr.Doc().Eq(want) {
			t.Errorf("got %s, want %s", tr.Doc(), want)
		}
		if tr.Doc().Child(0).Type() != heading {
			t.Error("left side lost its type")
		}
		checkRoundTrip(t, tr)
	})

	t.Run("nested split", func(t *testing.T) {
		item := func(s string) *model.Node { return b.Node("listItem", nil, b.P(b.Text(s))) }
		list := b.Doc(b.Node("bulletList", nil, item("abcd")))
		tr := New(list, cursor.At(5), nil)
		if err := tr.Split(5, 2); err != nil {
			t.Fatal(err)
		}
		want := b.Doc(b.Node("bulletList", nil, item("ab"), item("cd")))
		if !tr.Doc().Eq(want) {
			t.Errorf("got %s, want %s", tr.Doc(), want)
		}
		checkRoundTrip(t, tr)
	})

	t.Run("join without siblings", func(t *testing.T) {
		if _, err := (&JoinStep{Pos: 0, Depth: 1}).Apply(doc); !errors.Is(err, ErrStepFailed) {
			t.Errorf("err = %v, want ErrStepFailed", err)
		}
	})
}

func TestSetBlockType(t *testing.T) {
	b := builder()
	cat := b.Catalog()
	bold := b.Mark("bold", nil)

	t.Run("heading", func(t *testing.T) {
		doc := b.Doc(b.P(b.Text("a")), b.P(b.Text("b")))
		tr := New(doc, cursor.Range(1, 5), nil)
		if err := tr.SetBlockType(1, 5, cat.MustNode("heading"), map[string]any{"level": 2}); err != nil {
			t.Fatal(err)
		}
		want := b.Doc(b.H(2, b.Text("a")), b.H(2, b.Text("b")))
		if !tr.Doc().Eq(want) {
			t.Errorf("got %s, want %s", tr.Doc(), want)
		}
		checkRoundTrip(t, tr)
	})

	t.Run("code block clears inline content", func(t *testing.T) {
		doc := b.Doc(b.P(b.Text("a", bold), b.Node("hardBreak", nil), b.Text("b")))
		cb := cat.MustNode("codeBlock")
		tr := New(doc, cursor.At(1), nil)
		if err := tr.SetBlockType(1, 1, cb, cb.DefaultAttrs()); err != nil {
			t.Fatal(err)
		}
		got := tr.Doc().Child(0)
		if got.Type() != cb || got.TextContent() != "a\nb" || got.ChildCount() != 1 {
			t.Errorf("got %s, want codeBlock(\"a\\nb\")", got)
		}
		if len(got.Child(0).Marks()) != 0 {
			t.Errorf("marks kept in code block: %v", got.Child(0).Marks())
		}
		checkRoundTrip(t, tr)
	})

	t.Run("leaf mismatch", func(t *testing.T) {
		doc := b.Doc(b.P(b.Text("a")))
		err := New(doc, cursor.At(1), nil).SetNodeMarkup(0, cat.MustNode("horizontalRule"), nil)
		if !errors.Is(err, ErrStepFailed) {
			t.Errorf("err = %v, want ErrStepFailed", err)
		}
	})
}

func TestStoredMarksReset(t *testing.T) {
	b := builder()
	bold := b.Mark("bold", nil)
	doc := b.Doc(b.P(b.Text("ab")))

	tr := New(doc, cursor.At(2), []*model.Mark{bold})
	if got := tr.StoredMarks(); len(got) != 1 || tr.StoredMarksSet() {
		t.Fatalf("initial stored marks = %v, set = %v", got, tr.StoredMarksSet())
	}
	tr.SetStoredMarks(nil)
	if !tr.StoredMarksSet() {
		t.Error("SetStoredMarks not recorded")
	}
	if err := tr.InsertText("c", 2, 2, nil); err != nil {
		t.Fatal(err)
	}
	if tr.StoredMarks() != nil || tr.StoredMarksSet() {
		t.Error("step kept stored marks")
	}

	tr.SetSelection(cursor.At(99))
	if got := tr.Selection(); !got.Equal(cursor.At(tr.Doc().ContentSize())) {
		t.Errorf("selection not clamped: %s", got)
	}
}

func TestMappingThroughTransaction(t *testing.T) {
	b := builder()
	doc := b.Doc(b.P(b.Text("hello")), b.P(b.Text("world")))
	tr := New(doc, cursor.At(1), nil)

	if err := tr.InsertText("XY", 1, 1, nil); err != nil {
		t.Fatal(err)
	}
	if err := tr.Delete(10, 12); err != nil {
		t.Fatal(err)
	}
	// "world" started at 8 and now starts at 10; the deletion took "wo".
	if got := tr.Mapping().Map(13, 1); got != 13 {
		t.Errorf("Map(13) = %d, want 13", got)
	}
	if got := tr.Mapping().Map(8, -1); got != 10 {
		t.Errorf("Map(8) = %d, want 10", got)
	}
	checkRoundTrip(t, tr)
}
