package model

import (
	"errors"
	"fmt"
)

// ErrPosition is returned for positions outside a document.
var ErrPosition = errors.New("position out of range")

type pathEntry struct {
	node  *Node
	index int
	// offset is the position of child index relative to the start of node's content.
	offset int
}

// ResolvedPos is a position with its ancestry resolved.
//
// Depth 0 is the document. Parent is the innermost node whose content the
// position points into; a position inside a text node resolves to the text
// node's parent.
type ResolvedPos struct {
	Pos          int
	Depth        int
	ParentOffset int
	path         []pathEntry
}

// Resolve resolves pos in doc.
func Resolve(doc *Node, pos int) (*ResolvedPos, error) {
	if pos < 0 || pos > doc.ContentSize() {
		return nil, fmt.Errorf("%w: %d not in 0..%d", ErrPosition, pos, doc.ContentSize())
	}
	var path []pathEntry
	parentOffset := pos
	node := doc
	for {
		index, offset := node.findIndex(parentOffset)
		path = append(path, pathEntry{node: node, index: index, offset: offset})
		rem := parentOffset - offset
		if rem == 0 {
			break
		}
		child := node.Child(index)
		if child.IsText() {
			break
		}
		parentOffset = rem - 1
		node = child
	}
	return &ResolvedPos{
		Pos:          pos,
		Depth:        len(path) - 1,
		ParentOffset: parentOffset,
		path:         path,
	}, nil
}

// MustResolve resolves pos and panics when it is out of range.
func MustResolve(doc *Node, pos int) *ResolvedPos {
	rp, err := Resolve(doc, pos)
	if err != nil {
		panic(err)
	}
	return rp
}

func (r *ResolvedPos) depth(d int) int {
	if d < 0 {
		return r.Depth + d
	}
	return d
}

// Doc returns the root node.
func (r *ResolvedPos) Doc() *Node { return r.path[0].node }

// Node returns the ancestor at depth d. Negative d counts up from Parent.
func (r *ResolvedPos) Node(d int) *Node { return r.path[r.depth(d)].node }

// Parent returns the innermost ancestor.
func (r *ResolvedPos) Parent() *Node { return r.Node(r.Depth) }

// Index returns the child index into the ancestor at depth d.
func (r *ResolvedPos) Index(d int) int { return r.path[r.depth(d)].index }

// IndexAfter returns the index of the child after the position at depth d.
func (r *ResolvedPos) IndexAfter(d int) int {
	d = r.depth(d)
	if d == r.Depth && r.TextOffset() == 0 {
		return r.Index(d)
	}
	return r.Index(d) + 1
}

// Start returns the position at which the content of the ancestor at depth d starts.
func (r *ResolvedPos) Start(d int) int {
	d = r.depth(d)
	if d == 0 {
		return 0
	}
	return r.Start(d-1) + r.path[d-1].offset + 1
}

// End returns the position at the end of the content of the ancestor at depth d.
func (r *ResolvedPos) End(d int) int {
	d = r.depth(d)
	return r.Start(d) + r.Node(d).ContentSize()
}

// Before returns the position directly before the ancestor at depth d >= 1.
func (r *ResolvedPos) Before(d int) int {
	d = r.depth(d)
	if d == 0 {
		panic("model: no position before the top-level node")
	}
	return r.Start(d) - 1
}

// After returns the position directly after the ancestor at depth d >= 1.
func (r *ResolvedPos) After(d int) int {
	d = r.depth(d)
	if d == 0 {
		panic("model: no position after the top-level node")
	}
	return r.End(d) + 1
}

// TextOffset is the offset into the text node the position points into,
// or zero when it sits between nodes.
func (r *ResolvedPos) TextOffset() int {
	return r.Pos - r.Start(r.Depth) - r.path[r.Depth].offset
}

// NodeAfter returns the node directly after the position. A text node
// is cut at the position.
func (r *ResolvedPos) NodeAfter() *Node {
	parent := r.Parent()
	index := r.Index(r.Depth)
	if index == parent.ChildCount() {
		return nil
	}
	child := parent.Child(index)
	if off := r.TextOffset(); off > 0 {
		return child.Cut(off, child.size)
	}
	return child
}

// NodeBefore returns the node directly before the position. A text node
// is cut at the position.
func (r *ResolvedPos) NodeBefore() *Node {
	parent := r.Parent()
	index := r.Index(r.Depth)
	if off := r.TextOffset(); off > 0 {
		return parent.Child(index).Cut(0, off)
	}
	if index == 0 {
		return nil
	}
	return parent.Child(index - 1)
}

// PosAtIndex returns the position of child index in the ancestor at depth d.
func (r *ResolvedPos) PosAtIndex(index, d int) int {
	d = r.depth(d)
	node := r.Node(d)
	pos := r.Start(d)
	for i := 0; i < index; i++ {
		pos += node.Child(i).size
	}
	return pos
}

// SharedDepth returns the depth of the deepest ancestor whose content also
// contains pos.
func (r *ResolvedPos) SharedDepth(pos int) int {
	for d := r.Depth; d > 0; d-- {
		if r.Start(d) <= pos && r.End(d) >= pos {
			return d
		}
	}
	return 0
}

// SameParent reports whether both positions point into the same node.
func (r *ResolvedPos) SameParent(o *ResolvedPos) bool {
	return r.Depth == o.Depth && r.Start(r.Depth) == o.Start(o.Depth) && r.Parent() == o.Parent()
}

// Marks returns the marks that text inserted at the position would get.
// Non-inclusive marks at the end of their range are not continued.
func (r *ResolvedPos) Marks() []*Mark {
	parent := r.Parent()
	index := r.Index(r.Depth)
	if parent.ChildCount() == 0 {
		return nil
	}
	if r.TextOffset() > 0 {
		return parent.Child(index).marks
	}
	main := parent.MaybeChild(index - 1)
	other := parent.MaybeChild(index)
	if main == nil {
		main, other = other, nil
	}
	if main == nil {
		return nil
	}
	marks := main.marks
	for _, m := range main.marks {
		if !m.typ.Inclusive && (other == nil || !m.IsInSet(other.marks)) {
			marks = m.RemoveFromSet(marks)
		}
	}
	return marks
}

// Ancestor returns the depth of the innermost ancestor for which pred
// holds, or -1.
func (r *ResolvedPos) Ancestor(pred func(*Node) bool) int {
	for d := r.Depth; d >= 0; d-- {
		if pred(r.Node(d)) {
			return d
		}
	}
	return -1
}

// String renders the position with its path.
func (r *ResolvedPos) String() string {
	s := ""
	for d := 1; d <= r.Depth; d++ {
		if s != "" {
			s += "/"
		}
		s += fmt.Sprintf("%s_%d", r.Node(d).Type().Name, r.Index(d-1))
	}
	return fmt.Sprintf("%s:%d", s, r.ParentOffset)
}
