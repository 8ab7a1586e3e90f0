package cursor

import "fmt"

// Mapper maps document positions across a change. assoc < 0 keeps a
// position to the left of content inserted at it, assoc > 0 to the right.
type Mapper interface {
	Map(pos, assoc int) int
}

// Selection is a range of document positions. It is an immutable value.
type Selection struct {
	Anchor int // where the selection started
	Head   int // current cursor position
}

// Range creates a selection from anchor to head.
func Range(anchor, head int) Selection {
	return Selection{Anchor: anchor, Head: head}
}

// At creates a cursor selection.
func At(pos int) Selection {
	return Selection{Anchor: pos, Head: pos}
}

// IsEmpty reports whether the selection is a cursor.
func (s Selection) IsEmpty() bool {
	return s.Anchor == s.Head
}

// From returns the lower bound.
func (s Selection) From() int {
	if s.Anchor <= s.Head {
		return s.Anchor
	}
	return s.Head
}

// To returns the upper bound.
func (s Selection) To() int {
	if s.Anchor >= s.Head {
		return s.Anchor
	}
	return s.Head
}

// Len returns the number of positions covered.
func (s Selection) Len() int {
	return s.To() - s.From()
}

// IsForward reports whether head >= anchor.
func (s Selection) IsForward() bool {
	return s.Head >= s.Anchor
}

// Extend moves the head, keeping the anchor.
func (s Selection) Extend(pos int) Selection {
	return Selection{Anchor: s.Anchor, Head: pos}
}

// Collapse collapses the selection to its head.
func (s Selection) Collapse() Selection {
	return At(s.Head)
}

// CollapseToStart collapses the selection to its lower bound.
func (s Selection) CollapseToStart() Selection {
	return At(s.From())
}

// CollapseToEnd collapses the selection to its upper bound.
func (s Selection) CollapseToEnd() Selection {
	return At(s.To())
}

// Contains reports whether pos lies in [From, To).
func (s Selection) Contains(pos int) bool {
	return pos >= s.From() && pos < s.To()
}

// Clamp limits both ends to [0, size].
func (s Selection) Clamp(size int) Selection {
	clamp := func(p int) int {
		switch {
		case p < 0:
			return 0
		case p > size:
			return size
		}
		return p
	}
	return Selection{Anchor: clamp(s.Anchor), Head: clamp(s.Head)}
}

// Map carries the selection across a change. A cursor sticks to the right
// of inserted content; a range keeps its inner bounds.
func (s Selection) Map(m Mapper) Selection {
	if s.IsEmpty() {
		return At(m.Map(s.Head, 1))
	}
	if s.IsForward() {
		return Selection{Anchor: m.Map(s.Anchor, 1), Head: m.Map(s.Head, -1)}
	}
	return Selection{Anchor: m.Map(s.Anchor, -1), Head: m.Map(s.Head, 1)}
}

// Equal compares two selections.
func (s Selection) Equal(o Selection) bool {
	return s == o
}

// String returns a compact representation.
func (s Selection) String() string {
	if s.IsEmpty() {
		return fmt.Sprintf("Cursor(%d)", s.Head)
	}
	return fmt.Sprintf("Selection(%d→%d)", s.Anchor, s.Head)
}
