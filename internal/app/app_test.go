package app

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/slekup/big-brain/internal/config"
	"github.com/slekup/big-brain/internal/engine/command"
	"github.com/slekup/big-brain/internal/engine/controlled"
	"github.com/slekup/big-brain/internal/engine/guard"
	"github.com/slekup/big-brain/internal/engine/wire"
)

const cardJSON = `{
  "id": "card-1",
  "question": {"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"Hello"}]}]},
  "answer": {"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"World"}]}]}
}`

func readOnly() *bool {
	b := false
	return &b
}

func limit(n int) *int { return &n }

func newApp(t *testing.T, mutate func(*config.Config)) *Application {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	a, err := New(Options{Config: cfg, LogOutput: io.Discard})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Shutdown)
	return a
}

func openCard(t *testing.T, a *Application, field string) *Session {
	t.Helper()
	if _, err := a.Records().Get("card"); err != nil {
		if err := a.AddRecord("card", []byte(cardJSON)); err != nil {
			t.Fatalf("AddRecord: %v", err)
		}
	}
	s, err := a.Open("card", field)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func storedText(t *testing.T, a *Application, id, field string) string {
	t.Helper()
	rec, err := a.Records().Get(id)
	if err != nil {
		t.Fatal(err)
	}
	return rec.String(field + ".content.0.content.0.text")
}

func TestNewInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Editor.CharCounting = "words"
	_, err := New(Options{Config: cfg, LogOutput: io.Discard})
	var ie *InitError
	if !errors.As(err, &ie) || ie.Component != "config" {
		t.Errorf("err = %v", err)
	}
}

func TestNewEditorUsesFieldSettings(t *testing.T) {
	a := newApp(t, func(c *config.Config) {
		c.Editor.CharCounting = "graphemes"
		c.Fields["answer"] = config.FieldConfig{Limit: limit(3), Editable: readOnly()}
	})

	ed, err := a.NewEditor("question", nil)
	if err != nil {
		t.Fatalf("NewEditor: %v", err)
	}
	defer ed.Dispose()
	if ed.Limit() != 10000 {
		t.Errorf("Limit = %d", ed.Limit())
	}

	if _, err := a.NewEditor("answer", nil); !errors.Is(err, ErrNotEditable) {
		t.Errorf("read-only field: err = %v", err)
	}
	if ed2, err := a.NewEditor("notes", nil); err != nil || ed2.Limit() != guard.DefaultLimit {
		t.Errorf("unconfigured field: %v", err)
	}
}

func TestSessionWritesBack(t *testing.T) {
	a := newApp(t, nil)
	s := openCard(t, a, "question")

	if err := s.Dispatch("insertText", command.Params{"text": "Hi "}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if got := storedText(t, a, "card", "question"); got != "Hi Hello" {
		t.Errorf("stored question = %q", got)
	}
	if got := storedText(t, a, "card", "answer"); got != "World" {
		t.Errorf("answer touched: %q", got)
	}

	// The store write came straight back to the session as an echo, so
	// history survived.
	ed, _ := s.Editor()
	if !ed.CanUndo() {
		t.Error("echo cleared history")
	}
	if err := s.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if got := storedText(t, a, "card", "question"); got != "Hello" {
		t.Errorf("stored after undo = %q", got)
	}
}

func TestSessionReceivesStoreChanges(t *testing.T) {
	a := newApp(t, nil)
	s := openCard(t, a, "question")
	ed, _ := s.Editor()

	doc, err := wire.Decode([]byte(`{"type":"doc","content":[{"type":"heading","attrs":{"level":2},"content":[{"type":"text","text":"New"}]}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Records().SetField("card", "question", doc); err != nil {
		t.Fatal(err)
	}
	if got := ed.Document().TextContent(); got != "New" {
		t.Errorf("editor text = %q", got)
	}
	if ed.CanUndo() {
		t.Error("external load kept history")
	}
}

func TestReadOnlySession(t *testing.T) {
	a := newApp(t, func(c *config.Config) {
		c.Fields["answer"] = config.FieldConfig{Editable: readOnly()}
	})
	s := openCard(t, a, "answer")

	if s.Editable() || s.Preview() == nil {
		t.Fatal("answer session is editable")
	}
	tests := []struct {
		name string
		call func() error
	}{
		{"dispatch", func() error { return s.Dispatch("toggleBold", nil) }},
		{"run", func() error { return s.Run(command.Invoke("selectAll", nil)) }},
		{"undo", s.Undo},
		{"redo", s.Redo},
		{"editor", func() error { _, err := s.Editor(); return err }},
		{"script", func() error {
			_, err := s.RunScript(context.Background(), "m", `bb.run("selectAll")`)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, ErrNotEditable) {
				t.Errorf("err = %v, want ErrNotEditable", err)
			}
		})
	}

	html, err := s.HTML()
	if err != nil || html != "<p>World</p>" {
		t.Errorf("HTML = %q, %v", html, err)
	}

	doc, _ := wire.Decode([]byte(`{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"Later"}]}]}`))
	if err := a.Records().SetField("card", "answer", doc); err != nil {
		t.Fatal(err)
	}
	if got := s.Preview().Text(); got != "Later" {
		t.Errorf("preview text = %q", got)
	}
}

func TestOpenErrors(t *testing.T) {
	a := newApp(t, nil)
	openCard(t, a, "question")

	if _, err := a.Open("card", "question"); !errors.Is(err, ErrSessionOpen) {
		t.Errorf("second open: %v", err)
	}
	if _, err := a.Open("missing", "question"); err == nil {
		t.Error("open of a missing record succeeded")
	}
	if _, err := a.Open("card", "id"); err == nil {
		t.Error("open of a non-document field succeeded")
	}
}

func TestSessionLimit(t *testing.T) {
	a := newApp(t, func(c *config.Config) {
		c.Fields["question"] = config.FieldConfig{Limit: limit(7)}
	})
	s := openCard(t, a, "question")
	err := s.Dispatch("insertText", command.Params{"text": "abc"})
	if !errors.Is(err, guard.ErrLimitExceeded) {
		t.Fatalf("err = %v, want limit", err)
	}
	if got := storedText(t, a, "card", "question"); got != "Hello" {
		t.Errorf("stored = %q", got)
	}
}

func TestRunScript(t *testing.T) {
	a := newApp(t, nil)
	s := openCard(t, a, "question")
	res, err := s.RunScript(context.Background(), "bold", `
bb.run("selectAll")
bb.run("toggleBold")
`)
	if err != nil {
		t.Fatalf("RunScript: %v", err)
	}
	if !res.Committed {
		t.Error("macro not committed")
	}
	rec, _ := a.Records().Get("card")
	if got := rec.String("question.content.0.content.0.marks.0.type"); got != "bold" {
		t.Errorf("stored mark = %q", got)
	}
}

func TestSessionsAndClose(t *testing.T) {
	a := newApp(t, nil)
	q := openCard(t, a, "question")
	ans := openCard(t, a, "answer")

	got := a.Sessions()
	if len(got) != 2 || got[0] != ans || got[1] != q {
		t.Fatalf("Sessions = %v", got)
	}
	if s, err := a.Session(q.ID); err != nil || s != q {
		t.Errorf("Session = %v, %v", s, err)
	}
	if err := a.CloseSession(q.ID); err != nil {
		t.Fatal(err)
	}
	if err := a.CloseSession(q.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second close: %v", err)
	}
	ed, _ := q.Editor()
	if !ed.IsDisposed() {
		t.Error("editor not disposed")
	}
}

func TestShutdown(t *testing.T) {
	a := newApp(t, nil)
	s := openCard(t, a, "question")
	a.Shutdown()
	a.Shutdown()

	ed, _ := s.Editor()
	if !ed.IsDisposed() {
		t.Error("editor not disposed")
	}
	if _, err := a.Open("card", "answer"); !errors.Is(err, ErrClosed) {
		t.Errorf("Open after Shutdown: %v", err)
	}
}

func TestSaveRecord(t *testing.T) {
	a := newApp(t, nil)
	path := filepath.Join(t.TempDir(), "card.json")
	if err := os.WriteFile(path, []byte(cardJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	id, err := a.LoadRecord(path)
	if err != nil {
		t.Fatalf("LoadRecord: %v", err)
	}
	s, err := a.Open(id, "answer")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Dispatch("insertText", command.Params{"text": "Big "}); err != nil {
		t.Fatal(err)
	}
	if err := a.SaveRecord(id); err != nil {
		t.Fatalf("SaveRecord: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"Big World"`) {
		t.Errorf("saved file = %s", data)
	}
	if err := a.SaveRecord("card"); !errors.Is(err, ErrNoFile) {
		t.Errorf("in-memory record: %v", err)
	}
}

func TestWatchReloads(t *testing.T) {
	a := newApp(t, func(c *config.Config) {
		c.Watch.Enabled = true
		c.Watch.Debounce = config.Duration(10 * time.Millisecond)
	})
	path := filepath.Join(t.TempDir(), "card.json")
	if err := os.WriteFile(path, []byte(cardJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	id, err := a.LoadRecord(path)
	if err != nil {
		t.Fatal(err)
	}
	s, err := a.Open(id, "question")
	if err != nil {
		t.Fatal(err)
	}
	ed, _ := s.Editor()

	changed := strings.Replace(cardJSON, `"Hello"`, `"Edited outside"`, 1)
	if err := os.WriteFile(path, []byte(changed), 0o644); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for ed.Document().TextContent() != "Edited outside" {
		if time.Now().After(deadline) {
			t.Fatalf("editor text = %q", ed.Document().TextContent())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestEchoFromStore(t *testing.T) {
	a := newApp(t, nil)
	s := openCard(t, a, "question")
	if err := s.Dispatch("insertText", command.Params{"text": "x"}); err != nil {
		t.Fatal(err)
	}
	got, err := s.sync.Sync(controlled.Value{Identity: "card", Doc: s.Value()})
	if err != nil || got != controlled.Echo {
		t.Errorf("Sync = %v, %v; want Echo", got, err)
	}
}
