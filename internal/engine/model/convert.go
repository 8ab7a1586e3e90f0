package model

import (
	"errors"
	"fmt"

	"github.com/slekup/big-brain/internal/engine/catalog"
	"github.com/slekup/big-brain/internal/engine/wire"
)

// ErrUnknownType is wrapped when a serialized node or mark names a type the
// catalog does not declare.
var ErrUnknownType = errors.New("unknown type")

// BuildError locates a failure while building a tree from its serialized form.
type BuildError struct {
	// Path is a JSON-pointer-like location, e.g. /content/0/marks/1.
	Path string
	Err  error
}

// Error implements error.
func (e *BuildError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Unwrap returns the cause.
func (e *BuildError) Unwrap() error { return e.Err }

// DocFromWire builds a document. The root must be of the catalog's doc type.
func DocFromWire(cat *catalog.Catalog, doc *wire.Document) (*Node, error) {
	if doc.Type != catalog.DocType {
		return nil, &BuildError{Path: "/type", Err: fmt.Errorf("root must be %q, got %q", catalog.DocType, doc.Type)}
	}
	return FromWire(cat, doc.AsNode())
}

// FromWire builds a node tree. Attribute values are coerced to their
// declared types and missing attributes take their defaults; undeclared
// attributes and invalid values are errors.
func FromWire(cat *catalog.Catalog, w wire.Node) (*Node, error) {
	return fromWire(cat, w, "")
}

func fromWire(cat *catalog.Catalog, w wire.Node, path string) (*Node, error) {
	t, ok := cat.Node(w.Type)
	if !ok {
		return nil, &BuildError{Path: path + "/type", Err: fmt.Errorf("%w: node %q", ErrUnknownType, w.Type)}
	}
	if t.IsText() {
		if w.Text == "" {
			return nil, &BuildError{Path: path + "/text", Err: errors.New("empty text node")}
		}
		if len(w.Attrs) > 0 {
			return nil, &BuildError{Path: path + "/attrs", Err: errors.New("text nodes have no attributes")}
		}
		marks := make([]*Mark, 0, len(w.Marks))
		for i, wm := range w.Marks {
			m, err := MarkFromWire(cat, wm)
			if err != nil {
				return nil, &BuildError{Path: fmt.Sprintf("%s/marks/%d", path, i), Err: err}
			}
			marks = append(marks, m)
		}
		return NewText(t, w.Text, marks), nil
	}
	if len(w.Marks) > 0 {
		return nil, &BuildError{Path: path + "/marks", Err: errors.New("marks are only allowed on text")}
	}
	attrs, err := t.ComputeAttrs(w.Attrs)
	if err != nil {
		return nil, &BuildError{Path: path + "/attrs", Err: err}
	}
	content := make([]*Node, 0, len(w.Content))
	for i, wc := range w.Content {
		c, err := fromWire(cat, wc, fmt.Sprintf("%s/content/%d", path, i))
		if err != nil {
			return nil, err
		}
		content = append(content, c)
	}
	return NewNode(t, attrs, content), nil
}

// MarkFromWire builds a mark.
func MarkFromWire(cat *catalog.Catalog, w wire.Mark) (*Mark, error) {
	mt, ok := cat.Mark(w.Type)
	if !ok {
		return nil, fmt.Errorf("%w: mark %q", ErrUnknownType, w.Type)
	}
	return CreateMark(mt, w.Attrs)
}

// ToWire serializes a node. Types that declare attributes always write
// all of them.
func ToWire(n *Node) wire.Node {
	w := wire.Node{Type: n.typ.Name}
	if n.IsText() {
		w.Text = n.text
		for _, m := range n.marks {
			w.Marks = append(w.Marks, MarkToWire(m))
		}
		return w
	}
	if n.typ.HasAttrs() {
		w.Attrs = fullAttrs(n.typ, n.attrs)
	}
	for _, c := range n.content {
		w.Content = append(w.Content, ToWire(c))
	}
	return w
}

// MarkToWire serializes a mark.
func MarkToWire(m *Mark) wire.Mark {
	w := wire.Mark{Type: m.typ.Name}
	if m.typ.HasAttrs() {
		w.Attrs = fullAttrs(m.typ, m.attrs)
	}
	return w
}

// DocToWire serializes a document root.
func DocToWire(doc *Node) *wire.Document {
	w := ToWire(doc)
	content := w.Content
	if content == nil {
		content = []wire.Node{}
	}
	return &wire.Document{Type: w.Type, Content: content}
}

type attrSource interface {
	AttrNames() []string
	Attr(name string) (catalog.AttrSpec, bool)
}

// fullAttrs lists every declared attribute, leaving out null values of
// attributes marked OmitNull.
func fullAttrs(t attrSource, attrs map[string]any) map[string]any {
	names := t.AttrNames()
	out := make(map[string]any, len(names))
	for _, name := range names {
		v := attrs[name]
		if spec, _ := t.Attr(name); v == nil && spec.OmitNull {
			continue
		}
		out[name] = v
	}
	return out
}
