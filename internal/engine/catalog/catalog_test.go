package catalog

import (
	"errors"
	"testing"
)

func TestDefaultCatalogBuilds(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}

	for _, name := range []string{"doc", "paragraph", "text", "heading", "table", "tableCell", "hardBreak"} {
		if _, ok := c.Node(name); !ok {
			t.Errorf("node %q missing", name)
		}
	}
	for _, name := range []string{"link", "bold", "code", "textStyle", "highlight"} {
		if _, ok := c.Mark(name); !ok {
			t.Errorf("mark %q missing", name)
		}
	}
}

func TestNodeTypeClassification(t *testing.T) {
	c := MustDefault()

	tests := []struct {
		name      string
		textblock bool
		leaf      bool
		atom      bool
		inline    bool
	}{
		{"paragraph", true, false, false, false},
		{"heading", true, false, false, false},
		{"codeBlock", true, false, false, false},
		{"blockquote", false, false, false, false},
		{"horizontalRule", false, true, true, false},
		{"hardBreak", false, true, true, true},
		{"image", false, true, true, false},
		{"text", false, true, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nt := c.MustNode(tt.name)
			if nt.IsTextblock() != tt.textblock {
				t.Errorf("IsTextblock = %v, want %v", nt.IsTextblock(), tt.textblock)
			}
			if nt.IsLeaf() != tt.leaf {
				t.Errorf("IsLeaf = %v, want %v", nt.IsLeaf(), tt.leaf)
			}
			if nt.IsAtom() != tt.atom {
				t.Errorf("IsAtom = %v, want %v", nt.IsAtom(), tt.atom)
			}
			if nt.Inline != tt.inline {
				t.Errorf("Inline = %v, want %v", nt.Inline, tt.inline)
			}
		})
	}
}

func TestContentExpressions(t *testing.T) {
	c := MustDefault()
	n := c.MustNode

	tests := []struct {
		parent string
		kids   []string
		want   bool
	}{
		{"doc", nil, true},
		{"doc", []string{"paragraph", "heading", "table"}, true},
		{"doc", []string{"text"}, false},
		{"blockquote", nil, false},
		{"blockquote", []string{"paragraph"}, true},
		{"listItem", []string{"paragraph", "bulletList"}, true},
		{"listItem", []string{"heading"}, false},
		{"tableRow", []string{"tableHeader", "tableCell"}, true},
		{"tableRow", []string{"paragraph"}, false},
		{"codeBlock", []string{"text"}, true},
		{"codeBlock", []string{"hardBreak"}, false},
		{"paragraph", []string{"text", "hardBreak", "text"}, true},
		{"horizontalRule", []string{"text"}, false},
	}
	for _, tt := range tests {
		var types []*NodeType
		for _, k := range tt.kids {
			types = append(types, n(k))
		}
		if got := n(tt.parent).ValidContent(types); got != tt.want {
			t.Errorf("%s%v: got %v, want %v", tt.parent, tt.kids, got, tt.want)
		}
	}
}

func TestContentQuantifiers(t *testing.T) {
	b := NewBuilder()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(b.Register(Descriptor{Name: "doc", Kind: KindNode, Content: "title{1,2} (note | aside)? para+"}))
	must(b.Register(Descriptor{Name: "title", Kind: KindNode, Content: "text*"}))
	must(b.Register(Descriptor{Name: "note", Kind: KindNode}))
	must(b.Register(Descriptor{Name: "aside", Kind: KindNode}))
	must(b.Register(Descriptor{Name: "para", Kind: KindNode, Content: "text*"}))
	must(b.Register(Descriptor{Name: "text", Kind: KindNode, Group: "inline"}))
	c, err := b.Build()
	must(err)

	seq := func(names ...string) []*NodeType {
		var out []*NodeType
		for _, n := range names {
			out = append(out, c.MustNode(n))
		}
		return out
	}
	doc := c.Doc()
	cases := []struct {
		kids []*NodeType
		want bool
	}{
		{seq("title", "para"), true},
		{seq("title", "title", "para", "para"), true},
		{seq("title", "title", "title", "para"), false},
		{seq("title", "note", "para"), true},
		{seq("title", "note", "aside", "para"), false},
		{seq("para"), false},
		{seq("title"), false},
	}
	for i, tc := range cases {
		if got := doc.ValidContent(tc.kids); got != tc.want {
			t.Errorf("case %d: got %v, want %v", i, got, tc.want)
		}
	}

	fill, ok := doc.ContentMatch().Start().Fill(nil)
	if !ok || len(fill) != 2 || fill[0].Name != "title" || fill[1].Name != "para" {
		t.Errorf("Fill() = %v, %v", fill, ok)
	}
}

func TestFillDefault(t *testing.T) {
	c := MustDefault()

	fill, ok := c.MustNode("tableCell").ContentMatch().Start().Fill(nil)
	if !ok || len(fill) != 1 || fill[0].Name != "paragraph" {
		t.Fatalf("tableCell fill = %v, %v", fill, ok)
	}
	if d := c.Doc().ContentMatch().Start().DefaultType(); d == nil || d.Name != "paragraph" {
		t.Errorf("doc default type = %v", d)
	}
}

func TestBuilderFailsFast(t *testing.T) {
	tests := []struct {
		name  string
		descs []Descriptor
	}{
		{"duplicate", []Descriptor{
			{Name: "doc", Kind: KindNode},
			{Name: "text", Kind: KindNode},
			{Name: "doc", Kind: KindNode},
		}},
		{"duplicate across kinds", []Descriptor{
			{Name: "doc", Kind: KindNode},
			{Name: "text", Kind: KindNode},
			{Name: "text", Kind: KindMark},
		}},
		{"unknown validator", []Descriptor{
			{Name: "doc", Kind: KindNode},
			{Name: "text", Kind: KindNode},
			{Name: "heading", Kind: KindNode, Attrs: map[string]AttrSpec{"level": {Type: AttrInt, Default: 1, Validator: "nope"}}},
		}},
		{"unknown content name", []Descriptor{
			{Name: "doc", Kind: KindNode, Content: "widget*"},
			{Name: "text", Kind: KindNode},
		}},
		{"bad expression", []Descriptor{
			{Name: "doc", Kind: KindNode, Content: "(text"},
			{Name: "text", Kind: KindNode},
		}},
		{"missing text", []Descriptor{
			{Name: "doc", Kind: KindNode},
		}},
		{"bad default type", []Descriptor{
			{Name: "doc", Kind: KindNode},
			{Name: "text", Kind: KindNode},
			{Name: "h", Kind: KindNode, Attrs: map[string]AttrSpec{"level": {Type: AttrInt, Default: "one"}}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			_ = b.RegisterAll(tt.descs...)
			_, err := b.Build()
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrConfig) {
				t.Errorf("error %v does not wrap ErrConfig", err)
			}
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Errorf("error %T is not *ConfigError", err)
			}
		})
	}
}

func TestMarkExcludes(t *testing.T) {
	c := MustDefault()
	m := c.MustMark

	if !m("code").Excludes(m("bold")) || !m("bold").Excludes(m("code")) {
		t.Error("code should exclude bold in both directions")
	}
	if !m("subscript").Excludes(m("superscript")) {
		t.Error("subscript should exclude superscript")
	}
	if m("bold").Excludes(m("italic")) {
		t.Error("bold must not exclude italic")
	}
	if m("link").Inclusive {
		t.Error("link must not be inclusive")
	}
	if m("link").Rank() >= m("bold").Rank() {
		t.Error("link ranks before bold")
	}
}

func TestComputeAttrs(t *testing.T) {
	c := MustDefault()
	heading := c.MustNode("heading")

	attrs, err := heading.ComputeAttrs(nil)
	if err != nil || attrs["level"] != 1 {
		t.Fatalf("defaults = %v, %v", attrs, err)
	}
	attrs, err = heading.ComputeAttrs(map[string]any{"level": float64(3)})
	if err != nil || attrs["level"] != 3 {
		t.Fatalf("coerced = %v, %v", attrs, err)
	}
	if _, err := heading.ComputeAttrs(map[string]any{"level": 7}); !errors.Is(err, ErrInvalidAttr) {
		t.Errorf("level 7: err = %v", err)
	}
	if _, err := heading.ComputeAttrs(map[string]any{"size": 2}); !errors.Is(err, ErrInvalidAttr) {
		t.Errorf("undeclared attr: err = %v", err)
	}
	if _, err := c.MustNode("image").ComputeAttrs(nil); !errors.Is(err, ErrInvalidAttr) {
		t.Errorf("missing required src: err = %v", err)
	}
}

func TestCommandsAreCollected(t *testing.T) {
	cmds := MustDefault().Commands()
	want := map[string]bool{"toggleBold": true, "setLink": true, "deleteRow": true, "toggleHeading": true}
	for _, c := range cmds {
		delete(want, c)
	}
	if len(want) > 0 {
		t.Errorf("missing commands %v", want)
	}
}
