package model

import (
	"sort"
	"strings"

	"github.com/slekup/big-brain/internal/engine/catalog"
)

// Mark is an immutable annotation on a text node.
type Mark struct {
	typ   *catalog.MarkType
	attrs map[string]any
}

// NewMark creates a mark. attrs must already satisfy the type's schema.
func NewMark(t *catalog.MarkType, attrs map[string]any) *Mark {
	return &Mark{typ: t, attrs: catalog.CloneAttrs(attrs)}
}

// CreateMark computes attrs against the schema before creating the mark.
func CreateMark(t *catalog.MarkType, attrs map[string]any) (*Mark, error) {
	computed, err := t.ComputeAttrs(attrs)
	if err != nil {
		return nil, err
	}
	return &Mark{typ: t, attrs: computed}, nil
}

// Type returns the mark type.
func (m *Mark) Type() *catalog.MarkType { return m.typ }

// Attrs returns the attribute map. Callers must not modify it.
func (m *Mark) Attrs() map[string]any { return m.attrs }

// Attr returns one attribute value.
func (m *Mark) Attr(name string) any { return m.attrs[name] }

// Eq compares type and attributes.
func (m *Mark) Eq(o *Mark) bool {
	if m == o {
		return true
	}
	return m.typ == o.typ && catalog.AttrsEqual(m.attrs, o.attrs)
}

// AddToSet returns set with m added in rank order. Marks that m excludes,
// including another mark of the same type, are removed.
func (m *Mark) AddToSet(set []*Mark) []*Mark {
	out := make([]*Mark, 0, len(set)+1)
	placed := false
	for _, o := range set {
		if m.Eq(o) {
			return set
		}
		if m.typ.Excludes(o.typ) {
			continue
		}
		if !placed && o.typ.Rank() > m.typ.Rank() {
			out = append(out, m)
			placed = true
		}
		out = append(out, o)
	}
	if !placed {
		out = append(out, m)
	}
	return out
}

// RemoveFromSet returns set without m.
func (m *Mark) RemoveFromSet(set []*Mark) []*Mark {
	for i, o := range set {
		if m.Eq(o) {
			out := make([]*Mark, 0, len(set)-1)
			out = append(out, set[:i]...)
			return append(out, set[i+1:]...)
		}
	}
	return set
}

// IsInSet reports whether an equal mark is in set.
func (m *Mark) IsInSet(set []*Mark) bool {
	for _, o := range set {
		if m.Eq(o) {
			return true
		}
	}
	return false
}

// FindMark returns the mark of type t in set, or nil.
func FindMark(set []*Mark, t *catalog.MarkType) *Mark {
	for _, o := range set {
		if o.typ == t {
			return o
		}
	}
	return nil
}

// SameMarkSet compares two mark sets element-wise.
func SameMarkSet(a, b []*Mark) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Eq(b[i]) {
			return false
		}
	}
	return true
}

// SortMarks returns a copy of set ordered by rank.
func SortMarks(set []*Mark) []*Mark {
	out := append([]*Mark(nil), set...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].typ.Rank() < out[j].typ.Rank() })
	return out
}

// String renders the mark for debugging.
func (m *Mark) String() string {
	if len(m.attrs) == 0 {
		return m.typ.Name
	}
	return m.typ.Name + "(" + formatAttrs(m.attrs) + ")"
}

func markSetString(set []*Mark) string {
	names := make([]string, len(set))
	for i, m := range set {
		names[i] = m.String()
	}
	return strings.Join(names, ",")
}
