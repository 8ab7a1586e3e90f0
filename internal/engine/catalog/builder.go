package catalog

import (
	"sort"
)

// Names of the two types every catalog must declare.
const (
	DocType  = "doc"
	TextType = "text"
)

// Builder collects descriptors for a Catalog.
type Builder struct {
	descriptors []Descriptor
	names       map[string]bool
	validators  map[string]ValidatorFunc
	err         error
}

// NewBuilder returns a builder preloaded with the built-in validators.
func NewBuilder() *Builder {
	return &Builder{
		names:      make(map[string]bool),
		validators: builtinValidators(),
	}
}

// Validator registers a named attribute validator. Later registrations
// replace earlier ones with the same name.
func (b *Builder) Validator(name string, fn ValidatorFunc) *Builder {
	b.validators[name] = fn
	return b
}

// Register adds a descriptor. A duplicate name fails immediately; the error
// is also retained and returned by Build.
func (b *Builder) Register(d Descriptor) error {
	if b.err != nil {
		return b.err
	}
	if d.Name == "" {
		b.err = configErr("", "", "descriptor without a name")
		return b.err
	}
	if b.names[d.Name] {
		b.err = configErr(d.Name, "", "duplicate type name")
		return b.err
	}
	if d.Kind != KindNode && d.Kind != KindMark {
		b.err = configErr(d.Name, "kind", "unknown kind %q", d.Kind)
		return b.err
	}
	attrs := make(map[string]AttrSpec, len(d.Attrs))
	for k, v := range d.Attrs {
		attrs[k] = v
	}
	d.Attrs = attrs
	d.Commands = append([]string(nil), d.Commands...)
	b.names[d.Name] = true
	b.descriptors = append(b.descriptors, d)
	return nil
}

// RegisterAll registers descriptors in order, stopping at the first error.
func (b *Builder) RegisterAll(ds ...Descriptor) error {
	for _, d := range ds {
		if err := b.Register(d); err != nil {
			return err
		}
	}
	return nil
}

// Build compiles the registered descriptors.
func (b *Builder) Build() (*Catalog, error) {
	if b.err != nil {
		return nil, b.err
	}

	c := &Catalog{
		nodes:      make(map[string]*NodeType),
		marks:      make(map[string]*MarkType),
		groups:     make(map[string][]*NodeType),
		validators: make(map[string]ValidatorFunc, len(b.validators)),
	}
	for k, v := range b.validators {
		c.validators[k] = v
	}

	for _, d := range b.descriptors {
		if err := d.checkAttrs(c.validators); err != nil {
			return nil, err
		}
		schema := attrSchema{owner: d.Name, specs: d.Attrs, names: d.sortedAttrNames(), cat: c}
		switch d.Kind {
		case KindNode:
			t := &NodeType{
				attrSchema: schema,
				Name:       d.Name,
				Groups:     splitNames(d.Group),
				Inline:     d.Inline,
				Atom:       d.Atom,
				Code:       d.Code,
				Commands:   d.Commands,
				Render:     d.Render,
				rank:       len(c.nodeOrder),
				contentSrc: d.Content,
				marksSrc:   d.Marks,
			}
			if d.Name == TextType {
				t.Inline = true
			}
			c.nodes[t.Name] = t
			c.nodeOrder = append(c.nodeOrder, t)
			for _, g := range t.Groups {
				c.groups[g] = append(c.groups[g], t)
			}
		case KindMark:
			m := &MarkType{
				attrSchema:  schema,
				Name:        d.Name,
				Inclusive:   d.Inclusive == nil || *d.Inclusive,
				Commands:    d.Commands,
				Render:      d.Render,
				rank:        len(c.markOrder),
				excludesSrc: d.Excludes,
			}
			c.marks[m.Name] = m
			c.markOrder = append(c.markOrder, m)
		}
	}

	for _, name := range []string{DocType, TextType} {
		if _, ok := c.nodes[name]; !ok {
			return nil, configErr(name, "", "required node type is not registered")
		}
	}
	if _, ok := c.marks[DocType]; ok {
		return nil, configErr(DocType, "", "must be a node type")
	}

	for _, t := range c.nodeOrder {
		if t.IsText() && t.contentSrc != "" {
			return nil, configErr(t.Name, "content", "text nodes cannot have content")
		}
		expr, err := compileContent(t.contentSrc, c.lookupContentName)
		if err != nil {
			return nil, configErr(t.Name, "content", "%v", err)
		}
		t.content = expr
		if err := c.resolveAllowedMarks(t); err != nil {
			return nil, err
		}
	}
	for _, m := range c.markOrder {
		if err := c.resolveExcludes(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) lookupContentName(name string) ([]*NodeType, bool) {
	if t, ok := c.nodes[name]; ok {
		return []*NodeType{t}, true
	}
	if g, ok := c.groups[name]; ok {
		return g, true
	}
	return nil, false
}

func (c *Catalog) lookupMarks(owner, field, src string) ([]*MarkType, bool, error) {
	if src == "_" {
		return nil, true, nil
	}
	var out []*MarkType
	for _, name := range splitNames(src) {
		if m, ok := c.marks[name]; ok {
			out = append(out, m)
			continue
		}
		return nil, false, configErr(owner, field, "unknown mark %q", name)
	}
	return out, false, nil
}

func (c *Catalog) resolveAllowedMarks(t *NodeType) error {
	if t.marksSrc == nil {
		t.allMarks = true
		return nil
	}
	marks, all, err := c.lookupMarks(t.Name, "marks", *t.marksSrc)
	if err != nil {
		return err
	}
	t.allMarks = all
	t.markSet = make(map[*MarkType]bool, len(marks))
	for _, m := range marks {
		t.markSet[m] = true
	}
	return nil
}

func (c *Catalog) resolveExcludes(m *MarkType) error {
	m.excludes = map[*MarkType]bool{m: true}
	if m.excludesSrc == nil {
		return nil
	}
	marks, all, err := c.lookupMarks(m.Name, "excludes", *m.excludesSrc)
	if err != nil {
		return err
	}
	if all {
		marks = c.markOrder
	}
	for _, other := range marks {
		m.excludes[other] = true
	}
	return nil
}

// Catalog is an immutable set of compiled node and mark types.
type Catalog struct {
	nodes      map[string]*NodeType
	marks      map[string]*MarkType
	groups     map[string][]*NodeType
	nodeOrder  []*NodeType
	markOrder  []*MarkType
	validators map[string]ValidatorFunc
}

// Node looks up a node type.
func (c *Catalog) Node(name string) (*NodeType, bool) {
	t, ok := c.nodes[name]
	return t, ok
}

// Mark looks up a mark type.
func (c *Catalog) Mark(name string) (*MarkType, bool) {
	m, ok := c.marks[name]
	return m, ok
}

// MustNode returns a node type and panics when it is not registered.
func (c *Catalog) MustNode(name string) *NodeType {
	t, ok := c.nodes[name]
	if !ok {
		panic("catalog: unknown node type " + name)
	}
	return t
}

// MustMark returns a mark type and panics when it is not registered.
func (c *Catalog) MustMark(name string) *MarkType {
	m, ok := c.marks[name]
	if !ok {
		panic("catalog: unknown mark type " + name)
	}
	return m
}

// Doc returns the root node type.
func (c *Catalog) Doc() *NodeType { return c.nodes[DocType] }

// Text returns the text node type.
func (c *Catalog) Text() *NodeType { return c.nodes[TextType] }

// Nodes returns node types in registration order.
func (c *Catalog) Nodes() []*NodeType { return append([]*NodeType(nil), c.nodeOrder...) }

// Marks returns mark types in rank order.
func (c *Catalog) Marks() []*MarkType { return append([]*MarkType(nil), c.markOrder...) }

// Group returns the node types of a group in registration order.
func (c *Catalog) Group(name string) []*NodeType {
	return append([]*NodeType(nil), c.groups[name]...)
}

// Commands returns every command name contributed by a descriptor, sorted
// and without duplicates.
func (c *Catalog) Commands() []string {
	seen := map[string]bool{}
	var out []string
	add := func(names []string) {
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	for _, t := range c.nodeOrder {
		add(t.Commands)
	}
	for _, m := range c.markOrder {
		add(m.Commands)
	}
	sort.Strings(out)
	return out
}
