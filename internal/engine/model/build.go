package model

import (
	"github.com/slekup/big-brain/internal/engine/catalog"
)

// Builder creates nodes by type name against a catalog. It panics on
// unknown names or invalid attributes and is meant for fixed structures
// such as new tables and test fixtures.
type Builder struct {
	cat *catalog.Catalog
}

// NewBuilder returns a builder for cat.
func NewBuilder(cat *catalog.Catalog) Builder { return Builder{cat: cat} }

// Catalog returns the underlying catalog.
func (b Builder) Catalog() *catalog.Catalog { return b.cat }

// Node creates a node with computed attributes.
func (b Builder) Node(name string, attrs map[string]any, content ...*Node) *Node {
	n, err := Create(b.cat.MustNode(name), attrs, content)
	if err != nil {
		panic(err)
	}
	return n
}

// Doc creates a document.
func (b Builder) Doc(content ...*Node) *Node { return b.Node(catalog.DocType, nil, content...) }

// P creates a paragraph.
func (b Builder) P(content ...*Node) *Node { return b.Node("paragraph", nil, content...) }

// H creates a heading of the given level.
func (b Builder) H(level int, content ...*Node) *Node {
	return b.Node("heading", map[string]any{"level": level}, content...)
}

// Text creates a text node.
func (b Builder) Text(s string, marks ...*Mark) *Node {
	return NewText(b.cat.Text(), s, SortMarks(marks))
}

// Mark creates a mark with computed attributes.
func (b Builder) Mark(name string, attrs map[string]any) *Mark {
	m, err := CreateMark(b.cat.MustMark(name), attrs)
	if err != nil {
		panic(err)
	}
	return m
}
