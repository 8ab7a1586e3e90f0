package script

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/slekup/big-brain/internal/engine"
	"github.com/slekup/big-brain/internal/engine/catalog"
	"github.com/slekup/big-brain/internal/engine/command"
)

const hello = `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"hello"}]}]}`

func newEditor(t *testing.T, opts ...engine.Option) *engine.Editor {
	t.Helper()
	opts = append([]engine.Option{engine.WithContent([]byte(hello))}, opts...)
	ed, err := engine.New(catalog.MustDefault(), opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(ed.Dispose)
	return ed
}

func TestRunCommitsChain(t *testing.T) {
	ed := newEditor(t)
	res, err := New().Run(context.Background(), ed, "heading", `
		bb.run("selectAll")
		bb.run("setHeading", {level = 2})
		bb.run("toggleBold")
	`)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Committed || len(res.Commands) != 3 {
		t.Fatalf("result = %+v", res)
	}
	if !ed.IsActive("heading", map[string]any{"level": 2}) || !ed.IsActive("bold", nil) {
		t.Error("macro effects missing")
	}
	if err := ed.Undo(); err != nil {
		t.Fatal(err)
	}
	if ed.CanUndo() || ed.IsActive("heading", nil) {
		t.Error("macro was not a single undo step")
	}
}

func TestRunIsAllOrNothing(t *testing.T) {
	ed := newEditor(t)
	rev := ed.Revision()
	_, err := New().Run(context.Background(), ed, "bad", `
		bb.run("selectAll")
		bb.run("toggleBold")
		bb.run("deleteRow")
	`)
	if !command.IsRefused(err) {
		t.Fatalf("err = %v, want refusal", err)
	}
	if ed.Revision() != rev || ed.IsActive("bold", nil) {
		t.Error("failed macro changed the editor")
	}
}

func TestDryRun(t *testing.T) {
	ed := newEditor(t)
	res, err := New().DryRun(context.Background(), ed, "dry", `
		print("chars", bb.count(), bb.limit())
		local sel = bb.selection()
		if sel.empty and bb.can("insertText", {text = "!"}) then
			bb.run("insertText", {text = "!"})
		end
	`)
	if err != nil {
		t.Fatal(err)
	}
	if res.Committed || len(res.Commands) != 1 || res.Commands[0].Params.String("text") != "!" {
		t.Errorf("result = %+v", res)
	}
	if len(res.Output) != 1 || res.Output[0] != "chars\t5\t2000" {
		t.Errorf("output = %q", res.Output)
	}
	if ed.Revision() != 0 {
		t.Error("dry run committed")
	}
}

func TestScriptErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		check  func(error) bool
	}{
		{"syntax", `bb.run(`, func(err error) bool { var e *Error; return errors.As(err, &e) }},
		{"unknown command", `bb.run("teleport")`, func(err error) bool { var e *Error; return errors.As(err, &e) }},
		{"undo", `bb.run("undo")`, func(err error) bool { var e *Error; return errors.As(err, &e) }},
		{"sandbox", `dofile("/etc/passwd")`, func(err error) bool { var e *Error; return errors.As(err, &e) }},
		{"io closed", `io.open("/etc/passwd")`, func(err error) bool { var e *Error; return errors.As(err, &e) }},
		{"too many", `for i = 1, 10 do bb.run("toggleBold") end`, func(err error) bool { return errors.Is(err, ErrTooManyCommands) }},
		{"timeout", `while true do end`, IsTimeout},
	}
	r := New(WithMaxCommands(5), WithTimeout(50*time.Millisecond))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ed := newEditor(t)
			_, err := r.Run(context.Background(), ed, tt.name, tt.source)
			if err == nil || !tt.check(err) {
				t.Errorf("err = %v", err)
			}
			if ed.Revision() != 0 {
				t.Error("failing macro committed")
			}
		})
	}
}

func TestRunFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quote.lua")
	if err := os.WriteFile(path, []byte(`bb.run("toggleBlockquote")`), 0o644); err != nil {
		t.Fatal(err)
	}
	ed := newEditor(t)
	if _, err := New().RunFile(context.Background(), ed, path); err != nil {
		t.Fatal(err)
	}
	if !ed.IsActive("blockquote", nil) {
		t.Error("blockquote not applied")
	}
}

func TestInsertContentFromLua(t *testing.T) {
	ed := newEditor(t)
	_, err := New().Run(context.Background(), ed, "table", `
		bb.run("insertContent", {content = {
			type = "heading",
			attrs = {level = 3},
			content = {{type = "text", text = "Lua"}},
		}})
	`)
	if err != nil {
		t.Fatal(err)
	}
	if got := ed.Document().TextContent(); got != "Luahello" && got != "helloLua" {
		t.Errorf("text = %q", got)
	}
}
