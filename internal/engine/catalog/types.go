package catalog

import (
	"reflect"
	"strings"
)

// attrSchema is the compiled attribute schema shared by node and mark types.
type attrSchema struct {
	owner string
	specs map[string]AttrSpec
	names []string
	cat   *Catalog
}

// Catalog returns the catalog the type belongs to.
func (a *attrSchema) Catalog() *Catalog { return a.cat }

// AttrNames returns the declared attribute names in sorted order.
func (a *attrSchema) AttrNames() []string { return a.names }

// Attr returns the spec of a declared attribute.
func (a *attrSchema) Attr(name string) (AttrSpec, bool) {
	s, ok := a.specs[name]
	return s, ok
}

// HasAttrs reports whether the type declares any attribute.
func (a *attrSchema) HasAttrs() bool { return len(a.names) > 0 }

// DefaultAttrs returns a fresh map holding every declared attribute at its
// default. Required attributes are omitted.
func (a *attrSchema) DefaultAttrs() map[string]any {
	if len(a.names) == 0 {
		return nil
	}
	out := make(map[string]any, len(a.names))
	for _, name := range a.names {
		s := a.specs[name]
		if s.Required {
			continue
		}
		out[name] = s.Default
	}
	return out
}

// CanCreateWithDefaults reports whether no attribute is required.
func (a *attrSchema) CanCreateWithDefaults() bool {
	for _, s := range a.specs {
		if s.Required {
			return false
		}
	}
	return true
}

// CheckAttr validates a single, already coerced value.
func (a *attrSchema) CheckAttr(name string, v any) error {
	spec, ok := a.specs[name]
	if !ok {
		return &AttrError{Attr: name, Value: v, Reason: "undeclared attribute of " + a.owner}
	}
	if v == nil {
		if spec.Nullable() {
			return nil
		}
		return &AttrError{Attr: name, Value: v, Reason: "must not be null"}
	}
	if !spec.checkType(v) {
		return &AttrError{Attr: name, Value: v, Reason: "expected " + string(spec.Type)}
	}
	if spec.Validator != "" {
		if err := a.cat.validators[spec.Validator](v); err != nil {
			return &AttrError{Attr: name, Value: v, Reason: err.Error()}
		}
	}
	return nil
}

// ComputeAttrs merges given over the defaults, coercing values to their
// declared types and validating the result. Undeclared keys are rejected.
func (a *attrSchema) ComputeAttrs(given map[string]any) (map[string]any, error) {
	for name := range given {
		if _, ok := a.specs[name]; !ok {
			return nil, &AttrError{Attr: name, Value: given[name], Reason: "undeclared attribute of " + a.owner}
		}
	}
	if len(a.names) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(a.names))
	for _, name := range a.names {
		spec := a.specs[name]
		v, ok := given[name]
		if !ok {
			if spec.Required {
				return nil, &AttrError{Attr: name, Reason: "required attribute missing"}
			}
			v = spec.Default
		}
		v = spec.Coerce(v)
		if err := a.CheckAttr(name, v); err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

// NodeType is a compiled node descriptor.
type NodeType struct {
	attrSchema

	Name     string
	Groups   []string
	Inline   bool
	Atom     bool
	Code     bool
	Commands []string
	Render   RenderRule

	rank       int
	content    *ContentExpr
	allMarks   bool
	markSet    map[*MarkType]bool
	contentSrc string
	marksSrc   *string
}

// Rank is the registration order of the type.
func (t *NodeType) Rank() int { return t.rank }

// IsText reports whether this is the text type.
func (t *NodeType) IsText() bool { return t.Name == TextType }

// IsBlock reports whether the type is not inline.
func (t *NodeType) IsBlock() bool { return !t.Inline }

// IsLeaf reports whether the type can have no content.
func (t *NodeType) IsLeaf() bool { return t.content.IsEmpty() }

// IsAtom reports whether the node occupies a single position. Leaf nodes
// other than text are atoms.
func (t *NodeType) IsAtom() bool { return !t.IsText() && (t.Atom || t.IsLeaf()) }

// IsTextblock reports whether the type is a block holding inline content.
func (t *NodeType) IsTextblock() bool { return t.IsBlock() && t.content.InlineContent() }

// InGroup reports group membership.
func (t *NodeType) InGroup(group string) bool {
	for _, g := range t.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// ContentMatch returns the compiled content expression.
func (t *NodeType) ContentMatch() *ContentExpr { return t.content }

// AllowsMark reports whether text directly inside this node may carry m.
func (t *NodeType) AllowsMark(m *MarkType) bool {
	return t.allMarks || t.markSet[m]
}

// AllowsMarks reports whether text directly inside this node may carry any mark.
func (t *NodeType) AllowsMarks() bool {
	return t.allMarks || len(t.markSet) > 0
}

// ValidContent reports whether children of the given types are legal.
func (t *NodeType) ValidContent(types []*NodeType) bool {
	return t.content.Matches(types)
}

// MarkType is a compiled mark descriptor.
type MarkType struct {
	attrSchema

	Name      string
	Inclusive bool
	Commands  []string
	Render    RenderRule

	rank        int
	excludes    map[*MarkType]bool
	excludesSrc *string
}

// Rank is the position of the mark in the canonical mark order.
func (m *MarkType) Rank() int { return m.rank }

// Excludes reports whether m and other cannot appear on the same text.
// A mark type always excludes itself.
func (m *MarkType) Excludes(other *MarkType) bool {
	return m == other || m.excludes[other] || other.excludes[m]
}

// AttrsEqual compares two attribute maps by value. A missing key equals
// a null value.
func AttrsEqual(a, b map[string]any) bool {
	for k, av := range a {
		if !reflect.DeepEqual(av, b[k]) {
			return false
		}
	}
	for k, bv := range b {
		if _, ok := a[k]; !ok && bv != nil {
			return false
		}
	}
	return true
}

// CloneAttrs returns a shallow copy of attrs, or nil for an empty map.
func CloneAttrs(attrs map[string]any) map[string]any {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

func splitNames(s string) []string {
	return strings.Fields(s)
}
