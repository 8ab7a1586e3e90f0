package command

import (
	"errors"
	"testing"

	"github.com/slekup/big-brain/internal/engine/catalog"
	"github.com/slekup/big-brain/internal/engine/cursor"
	"github.com/slekup/big-brain/internal/engine/model"
	"github.com/slekup/big-brain/internal/engine/transform"
)

func builder() model.Builder {
	return model.NewBuilder(catalog.MustDefault())
}

func run(t *testing.T, doc *model.Node, sel cursor.Selection, stored []*model.Mark, name string, p Params) (*transform.Transaction, error) {
	t.Helper()
	r, err := Builtins().Bind(catalog.MustDefault())
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	tx := transform.New(doc, sel, stored)
	return tx, r.Apply(tx, Invoke(name, p))
}

func mustRun(t *testing.T, doc *model.Node, sel cursor.Selection, name string, p Params) *transform.Transaction {
	t.Helper()
	tx, err := run(t, doc, sel, nil, name, p)
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return tx
}

func undo(t *testing.T, tx *transform.Transaction) *model.Node {
	t.Helper()
	doc := tx.Doc()
	for _, s := range tx.Inverse() {
		var err error
		if doc, err = s.Apply(doc); err != nil {
			t.Fatalf("inverse %s: %v", s, err)
		}
	}
	return doc
}

func TestBind(t *testing.T) {
	r, err := Builtins().Bind(catalog.MustDefault())
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	for _, name := range []string{"insertText", "toggleBold", "insertTable", "setLink"} {
		if !r.Has(name) {
			t.Errorf("bound registry lacks %s", name)
		}
	}

	_, err = NewRegistry().Bind(catalog.MustDefault())
	var cfg *catalog.ConfigError
	if !errors.As(err, &cfg) {
		t.Fatalf("Bind on empty registry = %v, want ConfigError", err)
	}
}

func TestApplyUnknown(t *testing.T) {
	b := builder()
	_, err := run(t, b.Doc(), cursor.At(0), nil, "explode", nil)
	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("err = %v, want ErrUnknownCommand", err)
	}
}

func TestApplyRecoversPanic(t *testing.T) {
	r := NewRegistry()
	r.RegisterCore("explode", func(*transform.Transaction, Params) error { panic("boom") })
	tx := transform.New(builder().Doc(), cursor.At(0), nil)
	err := r.Apply(tx, Invoke("explode", nil))
	if !errors.Is(err, ErrCommandPanic) || IsRefused(err) {
		t.Errorf("err = %v, want ErrCommandPanic", err)
	}
}

func TestParams(t *testing.T) {
	p := Params{"level": float64(3), "on": true, "name": "x"}
	if got := p.Int("level", 1); got != 3 {
		t.Errorf("Int = %d", got)
	}
	if got := p.Int("missing", 7); got != 7 {
		t.Errorf("Int default = %d", got)
	}
	if !p.Bool("on", false) {
		t.Error("Bool = false")
	}
	if got := p.String("name"); got != "x" {
		t.Errorf("String = %q", got)
	}
}

func TestToggleBold(t *testing.T) {
	b := builder()
	bold := b.Mark("bold", nil)
	doc := b.Doc(b.P(b.Text("hello")))

	tx := mustRun(t, doc, cursor.Range(1, 6), "toggleBold", nil)
	want := b.Doc(b.P(b.Text("hello", bold)))
	if !tx.Doc().Eq(want) {
		t.Fatalf("doc = %s, want %s", tx.Doc(), want)
	}
	if tx.Kind() != transform.KindFormat {
		t.Errorf("kind = %s", tx.Kind())
	}

	tx = mustRun(t, tx.Doc(), cursor.Range(1, 6), "toggleBold", nil)
	if !tx.Doc().Eq(doc) {
		t.Errorf("second toggle = %s, want %s", tx.Doc(), doc)
	}
}

func TestToggleBoldPartial(t *testing.T) {
	b := builder()
	bold := b.Mark("bold", nil)
	doc := b.Doc(b.P(b.Text("he", bold), b.Text("llo")))

	tx := mustRun(t, doc, cursor.Range(1, 6), "toggleBold", nil)
	want := b.Doc(b.P(b.Text("hello", bold)))
	if !tx.Doc().Eq(want) {
		t.Errorf("doc = %s, want %s", tx.Doc(), want)
	}
}

func TestStoredMarks(t *testing.T) {
	b := builder()
	bold := b.Mark("bold", nil)
	doc := b.Doc(b.P(b.Text("ab")))

	tx := mustRun(t, doc, cursor.At(3), "toggleBold", nil)
	if tx.DocChanged() {
		t.Fatal("toggle on a cursor changed the document")
	}
	stored := tx.StoredMarks()
	if !bold.IsInSet(stored) {
		t.Fatalf("stored marks = %v", stored)
	}

	tx, err := run(t, doc, cursor.At(3), stored, "insertText", Params{"text": "c"})
	if err != nil {
		t.Fatalf("insertText: %v", err)
	}
	want := b.Doc(b.P(b.Text("ab"), b.Text("c", bold)))
	if !tx.Doc().Eq(want) {
		t.Errorf("doc = %s, want %s", tx.Doc(), want)
	}
	if tx.StoredMarks() != nil {
		t.Errorf("stored marks survived a step: %v", tx.StoredMarks())
	}
}

func TestSetLink(t *testing.T) {
	b := builder()
	doc := b.Doc(b.P(b.Text("docs")))

	tx := mustRun(t, doc, cursor.Range(1, 5), "setLink", Params{"href": "example.com"})
	link := model.FindMark(tx.Doc().Child(0).Child(0).Marks(), b.Catalog().MustMark("link"))
	if link == nil {
		t.Fatalf("no link in %s", tx.Doc())
	}
	if got := link.Attr("href"); got != "https://example.com" {
		t.Errorf("href = %v", got)
	}

	_, err := run(t, doc, cursor.Range(1, 5), nil, "setLink", Params{"href": "http://"})
	if !IsRefused(err) {
		t.Errorf("invalid href: err = %v, want refusal", err)
	}

	if _, err := run(t, doc, cursor.At(2), nil, "unsetLink", nil); !IsRefused(err) {
		t.Errorf("unsetLink outside a link: err = %v, want refusal", err)
	}
}

func TestCodeMarkRefusedInCodeBlock(t *testing.T) {
	b := builder()
	doc := b.Doc(b.Node("codeBlock", nil, b.Text("x := 1")))
	if _, err := run(t, doc, cursor.Range(1, 3), nil, "toggleBold", nil); !IsRefused(err) {
		t.Errorf("err = %v, want refusal", err)
	}
}

func TestIsActive(t *testing.T) {
	b := builder()
	bold := b.Mark("bold", nil)
	doc := b.Doc(b.H(2, b.Text("ab", bold)), b.P(b.Text("c")))

	tests := []struct {
		name  string
		sel   cursor.Selection
		typ   string
		attrs map[string]any
		want  bool
	}{
		{"bold inside", cursor.At(2), "bold", nil, true},
		{"bold range", cursor.Range(1, 3), "bold", nil, true},
		{"bold across blocks", cursor.Range(1, 6), "bold", nil, false},
		{"heading level", cursor.At(1), "heading", map[string]any{"level": 2}, true},
		{"heading json level", cursor.At(1), "heading", map[string]any{"level": float64(2)}, true},
		{"heading wrong level", cursor.At(1), "heading", map[string]any{"level": 1}, false},
		{"paragraph", cursor.At(5), "paragraph", nil, true},
		{"unknown", cursor.At(1), "nope", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsActive(doc, tt.sel, nil, tt.typ, tt.attrs); got != tt.want {
				t.Errorf("IsActive = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMarkAttributes(t *testing.T) {
	b := builder()
	hl := b.Mark("highlight", map[string]any{"color": "#ff0000"})
	doc := b.Doc(b.P(b.Text("ab", hl), b.Text("c")))

	got := MarkAttributes(doc, cursor.Range(1, 4), nil, "highlight")
	if got["color"] != "#ff0000" {
		t.Errorf("attrs = %v", got)
	}
	if got := MarkAttributes(doc, cursor.At(4), nil, "highlight"); got != nil {
		t.Errorf("attrs outside mark = %v", got)
	}
}
