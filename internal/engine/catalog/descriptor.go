package catalog

import (
	"fmt"
	"math"
	"sort"
)

// Kind distinguishes node descriptors from mark descriptors.
type Kind string

const (
	KindNode Kind = "node"
	KindMark Kind = "mark"
)

// AttrType is the value type of an attribute.
type AttrType string

const (
	AttrString AttrType = "string"
	AttrInt    AttrType = "int"
	AttrBool   AttrType = "bool"
	// AttrAny accepts any JSON-compatible value.
	AttrAny AttrType = "any"
)

// AttrSpec declares one attribute of a node or mark type.
//
// An attribute that is not Required and has a nil Default is nullable.
// OmitNull leaves a null value out of the serialized form.
type AttrSpec struct {
	Type      AttrType `yaml:"type"`
	Default   any      `yaml:"default"`
	Required  bool     `yaml:"required"`
	Validator string   `yaml:"validate"`
	OmitNull  bool     `yaml:"omitNull"`
}

// Nullable reports whether nil is an acceptable value.
func (s AttrSpec) Nullable() bool {
	return !s.Required && s.Default == nil
}

// Coerce converts a decoded JSON value to the declared type without changing
// its meaning: integral float64 values become int for AttrInt. Any other
// mismatch is returned unchanged for Check to reject.
func (s AttrSpec) Coerce(v any) any {
	switch s.Type {
	case AttrInt:
		return coerceInt(v)
	case AttrAny:
		return coerceTree(v)
	}
	return v
}

func coerceInt(v any) any {
	switch n := v.(type) {
	case float64:
		if n == math.Trunc(n) && !math.IsInf(n, 0) && math.Abs(n) < 1<<53 {
			return int(n)
		}
	case int64:
		return int(n)
	case int32:
		return int(n)
	}
	return v
}

// coerceTree applies integer coercion inside lists and objects so that
// values survive a JSON round trip unchanged.
func coerceTree(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = coerceTree(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = coerceTree(item)
		}
		return out
	default:
		return coerceInt(v)
	}
}

// checkType verifies v has the declared Go type.
func (s AttrSpec) checkType(v any) bool {
	switch s.Type {
	case AttrString:
		_, ok := v.(string)
		return ok
	case AttrInt:
		_, ok := v.(int)
		return ok
	case AttrBool:
		_, ok := v.(bool)
		return ok
	default:
		return true
	}
}

// RenderRule maps a node or mark onto HTML for read-only rendering.
//
// Tag may name nested elements separated by spaces ("pre code") and may embed
// attribute values with {name} placeholders ("h{level}"). Attrs maps HTML
// attribute names to templates; a template whose placeholders resolve to nil
// omits the attribute.
type RenderRule struct {
	Tag   string            `yaml:"tag"`
	Attrs map[string]string `yaml:"attrs"`
}

// Descriptor declares a node or mark type.
type Descriptor struct {
	Name string `yaml:"name"`
	Kind Kind   `yaml:"kind"`

	// Group is a space separated list of groups the node belongs to.
	Group string `yaml:"group"`
	// Content is the content expression of a node. Empty means leaf.
	Content string `yaml:"content"`
	// Marks lists the marks allowed inside a node: nil allows all, "" none,
	// "_" all, otherwise space separated mark names or groups.
	Marks  *string `yaml:"marks"`
	Inline bool    `yaml:"inline"`
	Atom   bool    `yaml:"atom"`
	Code   bool    `yaml:"code"`

	// Inclusive controls whether a mark extends to text typed at its end.
	// Defaults to true.
	Inclusive *bool `yaml:"inclusive"`
	// Excludes lists marks that cannot coexist with this mark. Nil means
	// only itself; "_" means every mark.
	Excludes *string `yaml:"excludes"`

	Attrs    map[string]AttrSpec `yaml:"attrs"`
	Commands []string            `yaml:"commands"`
	Render   RenderRule          `yaml:"render"`
}

func (d Descriptor) sortedAttrNames() []string {
	names := make([]string, 0, len(d.Attrs))
	for name := range d.Attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d Descriptor) checkAttrs(validators map[string]ValidatorFunc) error {
	for _, name := range d.sortedAttrNames() {
		spec := d.Attrs[name]
		switch spec.Type {
		case "":
			spec.Type = AttrAny
			d.Attrs[name] = spec
		case AttrString, AttrInt, AttrBool, AttrAny:
		default:
			return configErr(d.Name, "attrs."+name, "unknown attribute type %q", spec.Type)
		}
		if spec.Validator != "" {
			if _, ok := validators[spec.Validator]; !ok {
				return configErr(d.Name, "attrs."+name, "unresolved validator %q", spec.Validator)
			}
		}
		if spec.Default != nil {
			def := spec.Coerce(spec.Default)
			if !spec.checkType(def) {
				return configErr(d.Name, "attrs."+name, "default %v is not a %s", spec.Default, spec.Type)
			}
			spec.Default = def
			d.Attrs[name] = spec
		}
	}
	return nil
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s %s", d.Kind, d.Name)
}
