package command

import (
	"testing"

	"github.com/slekup/big-brain/internal/engine/cursor"
	"github.com/slekup/big-brain/internal/engine/model"
)

func TestBlockCommands(t *testing.T) {
	b := builder()
	bq := func(c ...*model.Node) *model.Node { return b.Node("blockquote", nil, c...) }
	ul := func(c ...*model.Node) *model.Node { return b.Node("bulletList", nil, c...) }
	ol := func(c ...*model.Node) *model.Node { return b.Node("orderedList", nil, c...) }
	li := func(c ...*model.Node) *model.Node { return b.Node("listItem", nil, c...) }

	tests := []struct {
		name   string
		doc    *model.Node
		sel    cursor.Selection
		cmd    string
		params Params
		want   *model.Node
	}{
		{
			name: "heading",
			doc:  b.Doc(b.P(b.Text("ab"))),
			sel:  cursor.At(2),
			cmd:  "toggleHeading", params: Params{"level": 2},
			want: b.Doc(b.H(2, b.Text("ab"))),
		},
		{
			name: "heading back to paragraph",
			doc:  b.Doc(b.H(2, b.Text("ab"))),
			sel:  cursor.At(2),
			cmd:  "toggleHeading", params: Params{"level": 2},
			want: b.Doc(b.P(b.Text("ab"))),
		},
		{
			name: "heading level change",
			doc:  b.Doc(b.H(2, b.Text("ab"))),
			sel:  cursor.At(2),
			cmd:  "toggleHeading", params: Params{"level": 3},
			want: b.Doc(b.H(3, b.Text("ab"))),
		},
		{
			name: "paragraph across blocks",
			doc:  b.Doc(b.H(1, b.Text("a")), b.H(2, b.Text("b"))),
			sel:  cursor.Range(1, 5),
			cmd:  "setParagraph",
			want: b.Doc(b.P(b.Text("a")), b.P(b.Text("b"))),
		},
		{
			name: "wrap in blockquote",
			doc:  b.Doc(b.P(b.Text("a")), b.P(b.Text("b"))),
			sel:  cursor.Range(1, 4),
			cmd:  "toggleBlockquote",
			want: b.Doc(bq(b.P(b.Text("a")), b.P(b.Text("b")))),
		},
		{
			name: "lift out of blockquote",
			doc:  b.Doc(bq(b.P(b.Text("a")))),
			sel:  cursor.At(2),
			cmd:  "toggleBlockquote",
			want: b.Doc(b.P(b.Text("a"))),
		},
		{
			name: "bullet list",
			doc:  b.Doc(b.P(b.Text("a"))),
			sel:  cursor.At(1),
			cmd:  "toggleBulletList",
			want: b.Doc(ul(li(b.P(b.Text("a"))))),
		},
		{
			name: "bullet list off",
			doc:  b.Doc(ul(li(b.P(b.Text("a"))))),
			sel:  cursor.At(3),
			cmd:  "toggleBulletList",
			want: b.Doc(b.P(b.Text("a"))),
		},
		{
			name: "bullet to ordered",
			doc:  b.Doc(ul(li(b.P(b.Text("a"))))),
			sel:  cursor.At(3),
			cmd:  "toggleOrderedList",
			want: b.Doc(ol(li(b.P(b.Text("a"))))),
		},
		{
			name: "lift middle item",
			doc:  b.Doc(ul(li(b.P(b.Text("a"))), li(b.P(b.Text("b"))), li(b.P(b.Text("c"))))),
			sel:  cursor.At(8),
			cmd:  "toggleBulletList",
			want: b.Doc(ul(li(b.P(b.Text("a")))), b.P(b.Text("b")), ul(li(b.P(b.Text("c"))))),
		},
		{
			name: "code block drops marks",
			doc:  b.Doc(b.P(b.Text("ab", b.Mark("bold", nil)))),
			sel:  cursor.At(1),
			cmd:  "toggleCodeBlock",
			want: b.Doc(b.Node("codeBlock", nil, b.Text("ab"))),
		},
		{
			name: "align paragraph",
			doc:  b.Doc(b.P(b.Text("ab"))),
			sel:  cursor.At(2),
			cmd:  "setTextAlign", params: Params{"alignment": "center"},
			want: b.Doc(b.Node("paragraph", map[string]any{"textAlign": "center"}, b.Text("ab"))),
		},
		{
			name: "align heading and paragraph",
			doc:  b.Doc(b.H(2, b.Text("a")), b.P(b.Text("b"))),
			sel:  cursor.Range(1, 5),
			cmd:  "setTextAlign", params: Params{"alignment": "right"},
			want: b.Doc(
				b.Node("heading", map[string]any{"level": 2, "textAlign": "right"}, b.Text("a")),
				b.Node("paragraph", map[string]any{"textAlign": "right"}, b.Text("b")),
			),
		},
		{
			name: "unset alignment",
			doc:  b.Doc(b.Node("paragraph", map[string]any{"textAlign": "justify"}, b.Text("ab"))),
			sel:  cursor.At(1),
			cmd:  "unsetTextAlign",
			want: b.Doc(b.P(b.Text("ab"))),
		},
		{
			name: "horizontal rule splits",
			doc:  b.Doc(b.P(b.Text("ab"))),
			sel:  cursor.At(2),
			cmd:  "setHorizontalRule",
			want: b.Doc(b.P(b.Text("a")), b.Node("horizontalRule", nil), b.P(b.Text("b"))),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := mustRun(t, tt.doc, tt.sel, tt.cmd, tt.params)
			if !tx.Doc().Eq(tt.want) {
				t.Errorf("doc = %s, want %s", tx.Doc(), tt.want)
			}
			if got := undo(t, tx); !got.Eq(tt.doc) {
				t.Errorf("undo = %s, want %s", got, tt.doc)
			}
		})
	}
}

func TestTextAlignRefusals(t *testing.T) {
	b := builder()
	tests := []struct {
		name   string
		doc    *model.Node
		params Params
	}{
		{"unknown alignment", b.Doc(b.P(b.Text("a"))), Params{"alignment": "middle"}},
		{"missing alignment", b.Doc(b.P(b.Text("a"))), nil},
		{"code block", b.Doc(b.Node("codeBlock", nil, b.Text("a"))), Params{"alignment": "left"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.doc, cursor.At(1), nil, "setTextAlign", tt.params); !IsRefused(err) {
				t.Errorf("err = %v, want refusal", err)
			}
		})
	}
}

func TestWrapKeepsSelection(t *testing.T) {
	b := builder()
	doc := b.Doc(b.P(b.Text("a")), b.P(b.Text("b")))
	tx := mustRun(t, doc, cursor.Range(1, 4), "toggleBlockquote", nil)
	if got := tx.Selection(); !got.Equal(cursor.Range(2, 5)) {
		t.Errorf("selection = %s, want Range(2, 5)", got)
	}
}

func TestSetImage(t *testing.T) {
	b := builder()
	doc := b.Doc(b.P())
	tx := mustRun(t, doc, cursor.At(1), "setImage", Params{"src": "cdn.test/a.png", "alt": "a"})
	img := tx.Doc().Child(0)
	if img.Type().Name != "image" || img.Attr("src") != "https://cdn.test/a.png" {
		t.Errorf("doc = %s", tx.Doc())
	}

	if _, err := run(t, doc, cursor.At(1), nil, "setImage", Params{"src": ""}); !IsRefused(err) {
		t.Errorf("empty src: err = %v, want refusal", err)
	}
}
