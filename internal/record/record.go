// Package record reads and writes rich-text documents stored inside larger
// JSON records, such as a card whose question and answer are both
// documents. Paths use gjson syntax ("fields.answer").
package record

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/slekup/big-brain/internal/engine/wire"
)

// Errors.
var (
	// ErrInvalidRecord is returned for input that is not a JSON object.
	ErrInvalidRecord = errors.New("record is not a JSON object")

	// ErrNotDocument is returned when a path holds something other than a
	// document object.
	ErrNotDocument = errors.New("field is not a document")
)

// Record is an immutable JSON object. Setters return a new Record.
type Record struct {
	data []byte
}

// Parse wraps data after checking it is a JSON object.
func Parse(data []byte) (*Record, error) {
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, ErrInvalidRecord
	}
	return &Record{data: append([]byte(nil), data...)}, nil
}

// Bytes returns the serialized record.
func (r *Record) Bytes() []byte { return append([]byte(nil), r.data...) }

// String returns a string field, or "" when missing.
func (r *Record) String(path string) string {
	return gjson.GetBytes(r.data, path).String()
}

// Has reports whether path exists.
func (r *Record) Has(path string) bool {
	return gjson.GetBytes(r.data, path).Exists()
}

// FieldJSON returns the raw document at path. A missing or null field
// reads as the empty document.
func (r *Record) FieldJSON(path string) ([]byte, error) {
	res := gjson.GetBytes(r.data, path)
	switch {
	case !res.Exists() || res.Type == gjson.Null:
		return []byte(wire.EmptyDocument), nil
	case !res.IsObject():
		return nil, fmt.Errorf("%w: %s holds %s", ErrNotDocument, path, res.Type)
	case res.Get("type").String() != "doc":
		return nil, fmt.Errorf("%w: %s has type %q", ErrNotDocument, path, res.Get("type").String())
	}
	return []byte(res.Raw), nil
}

// Field decodes the document at path.
func (r *Record) Field(path string) (*wire.Document, error) {
	raw, err := r.FieldJSON(path)
	if err != nil {
		return nil, err
	}
	return wire.Decode(raw)
}

// SetField returns a copy of r with doc stored at path. Missing
// intermediate objects are created.
func (r *Record) SetField(path string, doc *wire.Document) (*Record, error) {
	raw, err := wire.Encode(doc)
	if err != nil {
		return nil, err
	}
	return r.SetFieldJSON(path, raw)
}

// SetFieldJSON stores an already serialized document.
func (r *Record) SetFieldJSON(path string, raw []byte) (*Record, error) {
	out, err := sjson.SetRawBytes(append([]byte(nil), r.data...), path, raw)
	if err != nil {
		return nil, fmt.Errorf("set %s: %w", path, err)
	}
	return &Record{data: out}, nil
}

// Set returns a copy of r with a plain value stored at path.
func (r *Record) Set(path string, value any) (*Record, error) {
	out, err := sjson.SetBytes(append([]byte(nil), r.data...), path, value)
	if err != nil {
		return nil, fmt.Errorf("set %s: %w", path, err)
	}
	return &Record{data: out}, nil
}

// Documents returns the paths of top-level fields, or fields of the object
// at root, that hold documents.
func (r *Record) Documents(root string) []string {
	obj := gjson.ParseBytes(r.data)
	prefix := ""
	if root != "" {
		obj = obj.Get(root)
		prefix = root + "."
	}
	var paths []string
	obj.ForEach(func(key, value gjson.Result) bool {
		if value.IsObject() && value.Get("type").String() == "doc" {
			paths = append(paths, prefix+key.String())
		}
		return true
	})
	return paths
}
