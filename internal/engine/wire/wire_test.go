package wire

import (
	"errors"
	"testing"
)

func TestDecodeAcceptsDocumentShape(t *testing.T) {
	data := []byte(`{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"Hi","marks":[{"type":"bold"}]}]}]}`)

	doc, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if doc.Type != "doc" || len(doc.Content) != 1 {
		t.Fatalf("unexpected doc %+v", doc)
	}
	text := doc.Content[0].Content[0]
	if text.Text != "Hi" || len(text.Marks) != 1 || text.Marks[0].Type != "bold" {
		t.Errorf("unexpected text node %+v", text)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{"type":`},
		{"array root", `[]`},
		{"missing type", `{"content":[]}`},
		{"numeric type", `{"type":3}`},
		{"unknown key", `{"type":"doc","version":2}`},
		{"empty text", `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":""}]}]}`},
		{"text without text", `{"type":"doc","content":[{"type":"text"}]}`},
		{"marks on block", `{"type":"doc","content":[{"type":"paragraph","marks":[{"type":"bold"}]}]}`},
		{"mark without type", `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"a","marks":[{}]}]}]}`},
		{"attrs not object", `{"type":"doc","content":[{"type":"heading","attrs":[1]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("error %v does not wrap ErrMalformed", err)
			}
		})
	}
}

func TestShapeErrorLocation(t *testing.T) {
	err := CheckShape([]byte(`{"type":"doc","content":[{"type":"paragraph"},{"type":7}]}`))
	var se *ShapeError
	if !errors.As(err, &se) {
		t.Fatalf("expected *ShapeError, got %v", err)
	}
	if se.Location == "" {
		t.Error("expected a location")
	}
}

func TestEncodeEmptyDocument(t *testing.T) {
	out, err := Encode(&Document{Type: "doc"})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != EmptyDocument {
		t.Errorf("got %s, want %s", out, EmptyDocument)
	}
}

func TestEncodeFieldOrder(t *testing.T) {
	doc := &Document{Type: "doc", Content: []Node{{
		Type:    "heading",
		Attrs:   map[string]any{"level": 2},
		Content: []Node{{Type: "text", Text: "Hi"}},
	}}}
	out, err := Encode(doc)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"type":"doc","content":[{"type":"heading","attrs":{"level":2},"content":[{"type":"text","text":"Hi"}]}]}`
	if string(out) != want {
		t.Errorf("got %s\nwant %s", out, want)
	}
}
