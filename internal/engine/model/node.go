package model

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/slekup/big-brain/internal/engine/catalog"
)

// Node is an immutable document tree element. Edits build new nodes that
// share unchanged subtrees with the old ones.
type Node struct {
	typ     *catalog.NodeType
	attrs   map[string]any
	content []*Node
	marks   []*Mark
	text    string
	size    int
}

// NewNode creates a non-text node. content is copied.
func NewNode(t *catalog.NodeType, attrs map[string]any, content []*Node) *Node {
	n := &Node{typ: t, attrs: catalog.CloneAttrs(attrs), content: append([]*Node(nil), content...)}
	n.size = n.computeSize()
	return n
}

// Create computes attrs against the schema and creates a node.
func Create(t *catalog.NodeType, attrs map[string]any, content []*Node) (*Node, error) {
	computed, err := t.ComputeAttrs(attrs)
	if err != nil {
		return nil, err
	}
	return NewNode(t, computed, content), nil
}

// CreateAndFill creates a node with default attributes whose content is
// completed with the cheapest legal filler. It returns nil when impossible.
func CreateAndFill(t *catalog.NodeType, attrs map[string]any, content []*Node) *Node {
	computed, err := t.ComputeAttrs(attrs)
	if err != nil {
		return nil
	}
	types := childTypes(content)
	start := t.ContentMatch().Start()
	before, ok := start.Fill(types)
	if !ok {
		return nil
	}
	filled := make([]*Node, 0, len(before)+len(content))
	for _, ft := range before {
		child := CreateAndFill(ft, nil, nil)
		if child == nil {
			return nil
		}
		filled = append(filled, child)
	}
	filled = append(filled, content...)
	return NewNode(t, computed, filled)
}

// NewText creates a text node. text must not be empty.
func NewText(t *catalog.NodeType, text string, marks []*Mark) *Node {
	if text == "" {
		panic("model: empty text node")
	}
	return &Node{typ: t, text: text, marks: append([]*Mark(nil), marks...), size: utf8.RuneCountInString(text)}
}

func (n *Node) computeSize() int {
	if n.typ.IsText() {
		return utf8.RuneCountInString(n.text)
	}
	if n.typ.IsLeaf() {
		return 1
	}
	return FragmentSize(n.content) + 2
}

func childTypes(nodes []*Node) []*catalog.NodeType {
	out := make([]*catalog.NodeType, len(nodes))
	for i, c := range nodes {
		out[i] = c.typ
	}
	return out
}

// Type returns the node type.
func (n *Node) Type() *catalog.NodeType { return n.typ }

// Attrs returns the attribute map. Callers must not modify it.
func (n *Node) Attrs() map[string]any { return n.attrs }

// Attr returns one attribute value.
func (n *Node) Attr(name string) any { return n.attrs[name] }

// Content returns the children. Callers must not modify the slice.
func (n *Node) Content() []*Node { return n.content }

// ChildCount returns the number of children.
func (n *Node) ChildCount() int { return len(n.content) }

// Child returns the i-th child.
func (n *Node) Child(i int) *Node { return n.content[i] }

// MaybeChild returns the i-th child or nil when out of range.
func (n *Node) MaybeChild(i int) *Node {
	if i < 0 || i >= len(n.content) {
		return nil
	}
	return n.content[i]
}

// FirstChild returns the first child or nil.
func (n *Node) FirstChild() *Node { return n.MaybeChild(0) }

// LastChild returns the last child or nil.
func (n *Node) LastChild() *Node { return n.MaybeChild(len(n.content) - 1) }

// Marks returns the marks of a text node.
func (n *Node) Marks() []*Mark { return n.marks }

// Text returns the text of a text node.
func (n *Node) Text() string { return n.text }

// IsText reports whether n is a text node.
func (n *Node) IsText() bool { return n.typ.IsText() }

// IsTextblock reports whether n is a block holding inline content.
func (n *Node) IsTextblock() bool { return n.typ.IsTextblock() }

// IsBlock reports whether n is a block node.
func (n *Node) IsBlock() bool { return n.typ.IsBlock() }

// IsInline reports whether n is an inline node.
func (n *Node) IsInline() bool { return n.typ.Inline }

// IsAtom reports whether n occupies exactly one position.
func (n *Node) IsAtom() bool { return n.typ.IsAtom() }

// NodeSize is the number of positions n occupies in its parent.
func (n *Node) NodeSize() int { return n.size }

// ContentSize is the number of positions inside n.
func (n *Node) ContentSize() int {
	if n.typ.IsText() || n.typ.IsLeaf() {
		return 0
	}
	return n.size - 2
}

// Copy returns a node of the same type and attributes with new content.
func (n *Node) Copy(content []*Node) *Node {
	c := &Node{typ: n.typ, attrs: n.attrs, content: content}
	c.size = c.computeSize()
	return c
}

// WithMarkup returns n with its type and attributes replaced.
func (n *Node) WithMarkup(t *catalog.NodeType, attrs map[string]any) *Node {
	c := &Node{typ: t, attrs: catalog.CloneAttrs(attrs), content: n.content}
	c.size = c.computeSize()
	return c
}

// WithMarks returns a text node with a different mark set.
func (n *Node) WithMarks(marks []*Mark) *Node {
	return &Node{typ: n.typ, text: n.text, marks: marks, size: n.size}
}

// WithText returns a text node with the same marks and new text.
func (n *Node) WithText(text string) *Node {
	return NewText(n.typ, text, n.marks)
}

// ReplaceChild returns n with child i replaced.
func (n *Node) ReplaceChild(i int, child *Node) *Node {
	content := append([]*Node(nil), n.content...)
	content[i] = child
	return n.Copy(content)
}

// Cut returns the part of n between content positions from and to. Text
// nodes are cut by rune offset.
func (n *Node) Cut(from, to int) *Node {
	if n.IsText() {
		runes := []rune(n.text)
		if from == 0 && to == len(runes) {
			return n
		}
		return n.WithText(string(runes[from:to]))
	}
	if from == 0 && to == n.ContentSize() {
		return n
	}
	return n.Copy(CutFragment(n.content, from, to))
}

// TextContent concatenates all text below n.
func (n *Node) TextContent() string {
	if n.IsText() {
		return n.text
	}
	var b strings.Builder
	n.Descendants(func(c *Node, _ int, _ *Node, _ int) bool {
		if c.IsText() {
			b.WriteString(c.text)
		}
		return true
	})
	return b.String()
}

// TextLength counts the characters of every text node below n.
func (n *Node) TextLength() int {
	if n.IsText() {
		return n.size
	}
	total := 0
	for _, c := range n.content {
		total += c.TextLength()
	}
	return total
}

// Eq compares two trees structurally.
func (n *Node) Eq(o *Node) bool {
	if n == o {
		return true
	}
	if n == nil || o == nil {
		return false
	}
	if n.typ != o.typ || n.text != o.text || !catalog.AttrsEqual(n.attrs, o.attrs) {
		return false
	}
	if !SameMarkSet(n.marks, o.marks) || len(n.content) != len(o.content) {
		return false
	}
	for i := range n.content {
		if !n.content[i].Eq(o.content[i]) {
			return false
		}
	}
	return true
}

// SameMarkup reports whether two nodes have the same type, attributes and marks.
func (n *Node) SameMarkup(o *Node) bool {
	return n.typ == o.typ && catalog.AttrsEqual(n.attrs, o.attrs) && SameMarkSet(n.marks, o.marks)
}

// Descendants calls fn for every node below n in document order with its
// absolute position relative to the start of n's content. Returning false
// skips the node's children.
func (n *Node) Descendants(fn func(node *Node, pos int, parent *Node, index int) bool) {
	n.NodesBetween(0, n.ContentSize(), fn)
}

// NodesBetween calls fn for every node overlapping the content range
// [from, to) of n, descending into children while fn returns true.
func (n *Node) NodesBetween(from, to int, fn func(node *Node, pos int, parent *Node, index int) bool) {
	n.nodesBetween(from, to, 0, fn)
}

func (n *Node) nodesBetween(from, to, base int, fn func(*Node, int, *Node, int) bool) {
	pos := 0
	for i := 0; pos < to && i < len(n.content); i++ {
		child := n.content[i]
		end := pos + child.size
		if end > from && fn(child, base+pos, n, i) && child.ContentSize() > 0 {
			start := pos + 1
			child.nodesBetween(max(0, from-start), min(child.ContentSize(), to-start), base+start, fn)
		}
		pos = end
	}
}

// TextBetween returns the text in the content range [from, to). blockSep is
// inserted between blocks and leafText stands for atoms.
func (n *Node) TextBetween(from, to int, blockSep, leafText string) string {
	var b strings.Builder
	first := true
	n.NodesBetween(from, to, func(c *Node, pos int, _ *Node, _ int) bool {
		switch {
		case c.IsText():
			runes := []rune(c.text)
			s, e := max(from, pos)-pos, min(to, pos+len(runes))-pos
			if s < e {
				b.WriteString(string(runes[s:e]))
			}
			first = false
		case c.IsAtom():
			if c.IsBlock() && !first {
				b.WriteString(blockSep)
			}
			b.WriteString(leafText)
			first = false
		case c.IsBlock():
			if !first && c.IsTextblock() {
				b.WriteString(blockSep)
			}
		}
		return true
	})
	return b.String()
}

// NodeAt returns the node starting at content position pos, or nil.
func (n *Node) NodeAt(pos int) *Node {
	node := n
	for {
		index, offset := node.findIndex(pos)
		child := node.MaybeChild(index)
		if child == nil {
			return nil
		}
		if offset == pos || child.IsText() {
			return child
		}
		pos -= offset + 1
		node = child
	}
}

// findIndex finds the child containing content position pos and the
// position at which that child starts.
func (n *Node) findIndex(pos int) (int, int) {
	if pos == 0 {
		return 0, 0
	}
	cur := 0
	for i, child := range n.content {
		end := cur + child.size
		if end >= pos {
			if end == pos {
				return i + 1, end
			}
			return i, cur
		}
		cur = end
	}
	return len(n.content), cur
}

// String renders a compact debugging form such as heading(level=2)("Hi").
func (n *Node) String() string {
	if n.IsText() {
		s := fmt.Sprintf("%q", n.text)
		if len(n.marks) > 0 {
			return "[" + markSetString(n.marks) + "]" + s
		}
		return s
	}
	var b strings.Builder
	b.WriteString(n.typ.Name)
	if len(n.attrs) > 0 {
		b.WriteString("(" + formatAttrs(n.attrs) + ")")
	}
	if len(n.content) > 0 {
		parts := make([]string, len(n.content))
		for i, c := range n.content {
			parts[i] = c.String()
		}
		b.WriteString("(" + strings.Join(parts, ", ") + ")")
	}
	return b.String()
}

func formatAttrs(attrs map[string]any) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, attrs[k])
	}
	return strings.Join(parts, ",")
}
