// Package wire holds the serialized document format exchanged with the
// owner of a document value.
//
//	{ "type": "doc", "content": [ Node, ... ] }
//	Node = { "type": string, "attrs"?: object, "content"?: [Node], "marks"?: [Mark], "text"?: string }
//	Mark = { "type": string, "attrs"?: object }
//
// Decode checks the JSON shape before decoding; it knows nothing about which
// types exist or which children they accept.
package wire

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Document is the serialized root.
type Document struct {
	Type    string `json:"type"`
	Content []Node `json:"content"`
}

// Node is a serialized node.
type Node struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []Node         `json:"content,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
	Text    string         `json:"text,omitempty"`
}

// Mark is a serialized mark.
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// EmptyDocument is the value used when an owner supplies nothing.
const EmptyDocument = `{"type":"doc","content":[]}`

// ErrMalformed is wrapped by every shape failure.
var ErrMalformed = errors.New("malformed document")

// ShapeError reports JSON that does not have the document shape.
type ShapeError struct {
	// Location is a JSON pointer to the offending value, when known.
	Location string
	Err      error
}

// Error implements error.
func (e *ShapeError) Error() string {
	if e.Location == "" {
		return fmt.Sprintf("malformed document: %v", e.Err)
	}
	return fmt.Sprintf("malformed document at %s: %v", e.Location, e.Err)
}

// Unwrap lets errors.Is match ErrMalformed and the cause.
func (e *ShapeError) Unwrap() []error { return []error{ErrMalformed, e.Err} }

//go:embed document.schema.json
var schemaJSON []byte

const schemaURL = "https://schemas.slekup.dev/big-brain/document.json"

var (
	shapeOnce   sync.Once
	shapeSchema *jsonschema.Schema
	shapeErr    error
)

func compiledSchema() (*jsonschema.Schema, error) {
	shapeOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			shapeErr = err
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			shapeErr = err
			return
		}
		shapeSchema, shapeErr = c.Compile(schemaURL)
	})
	return shapeSchema, shapeErr
}

// CheckShape validates raw JSON against the document shape.
func CheckShape(data []byte) error {
	sch, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile document schema: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return &ShapeError{Err: err}
	}
	if err := sch.Validate(inst); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return &ShapeError{Location: pointer(ve.InstanceLocation), Err: err}
		}
		return &ShapeError{Err: err}
	}
	return nil
}

func pointer(loc []string) string {
	if len(loc) == 0 {
		return "/"
	}
	var b bytes.Buffer
	for _, part := range loc {
		b.WriteByte('/')
		b.WriteString(part)
	}
	return b.String()
}

// Decode checks the shape of data and decodes it.
func Decode(data []byte) (*Document, error) {
	if err := CheckShape(data); err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ShapeError{Err: err}
	}
	return &doc, nil
}

// Encode serializes a document. The root always carries a content array.
func Encode(doc *Document) ([]byte, error) {
	out := *doc
	if out.Content == nil {
		out.Content = []Node{}
	}
	return json.Marshal(out)
}

// AsNode returns the root as a plain node.
func (d *Document) AsNode() Node {
	return Node{Type: d.Type, Content: d.Content}
}

// NodesFrom converts a decoded JSON value, an object or an array of
// objects, into nodes.
func NodesFrom(v any) ([]Node, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &ShapeError{Err: err}
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var nodes []Node
		if err := json.Unmarshal(data, &nodes); err != nil {
			return nil, &ShapeError{Err: err}
		}
		return nodes, nil
	}
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, &ShapeError{Err: err}
	}
	return []Node{n}, nil
}
