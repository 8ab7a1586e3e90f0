package schema

import (
	"fmt"
	"sort"

	"github.com/slekup/big-brain/internal/engine/catalog"
	"github.com/slekup/big-brain/internal/engine/model"
	"github.com/slekup/big-brain/internal/engine/wire"
)

// Sanitize builds a valid document from doc, dropping whatever the catalog
// cannot represent and reporting each drop as a warning:
//
//   - nodes and marks of unknown types,
//   - undeclared attributes, and invalid values of attributes that have a
//     default (the default is used instead),
//   - nodes whose attributes cannot be repaired,
//   - marks the parent does not allow, and children the parent's content
//     expression does not accept,
//   - containers left without required content that cannot be filled.
func Sanitize(cat *catalog.Catalog, doc *wire.Document) (*model.Node, []Warning) {
	s := &sanitizer{cat: cat}
	root := wire.Node{Type: catalog.DocType, Content: doc.Content}
	if doc.Type != catalog.DocType {
		s.warn("/type", "root %q replaced by %q", doc.Type, catalog.DocType)
	}
	n := s.node(root, "")
	if n == nil {
		n = model.NewNode(cat.Doc(), nil, nil)
	}
	return Normalize(n), s.warnings
}

type sanitizer struct {
	cat      *catalog.Catalog
	warnings []Warning
}

func (s *sanitizer) warn(path, format string, args ...any) {
	s.warnings = append(s.warnings, Warning{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (s *sanitizer) node(w wire.Node, path string) *model.Node {
	t, ok := s.cat.Node(w.Type)
	if !ok {
		s.warn(path, "dropped node of unknown type %q", w.Type)
		return nil
	}
	if t.IsText() {
		if w.Text == "" {
			s.warn(path, "dropped empty text node")
			return nil
		}
		return model.NewText(t, w.Text, s.marks(w.Marks, path))
	}

	attrs, ok := s.attrs(t, w.Attrs, path)
	if !ok {
		return nil
	}

	var children []*model.Node
	for i, wc := range w.Content {
		if c := s.node(wc, fmt.Sprintf("%s/content/%d", path, i)); c != nil {
			children = append(children, c)
		}
	}

	match := t.ContentMatch().Start()
	kept := children[:0:0]
	for i, c := range children {
		next, ok := match.Advance(c.Type())
		if !ok {
			s.warn(fmt.Sprintf("%s/content/%d", path, i), "dropped %s not allowed in %s", c.Type().Name, t.Name)
			continue
		}
		match = next
		if c.IsText() {
			c = s.allowedMarks(t, c, fmt.Sprintf("%s/content/%d", path, i))
		}
		kept = append(kept, c)
	}
	if !match.ValidEnd() {
		fill, ok := match.Fill(nil)
		if !ok {
			s.warn(path, "dropped %s with incomplete content", t.Name)
			return nil
		}
		for _, ft := range fill {
			child := model.CreateAndFill(ft, nil, nil)
			if child == nil {
				s.warn(path, "dropped %s with incomplete content", t.Name)
				return nil
			}
			kept = append(kept, child)
		}
	}
	return model.NewNode(t, attrs, kept)
}

// attrs repairs an attribute map. It reports false when a required
// attribute is missing or invalid.
func (s *sanitizer) attrs(schema attrChecker, given map[string]any, path string) (map[string]any, bool) {
	keys := make([]string, 0, len(given))
	for k := range given {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := schema.Attr(k); !ok {
			s.warn(path+"/attrs/"+k, "dropped undeclared attribute")
		}
	}

	names := schema.AttrNames()
	if len(names) == 0 {
		return nil, true
	}
	out := make(map[string]any, len(names))
	for _, name := range names {
		spec, _ := schema.Attr(name)
		v, present := given[name]
		if !present {
			if spec.Required {
				s.warn(path+"/attrs/"+name, "dropped: required attribute missing")
				return nil, false
			}
			out[name] = spec.Default
			continue
		}
		v = spec.Coerce(v)
		if err := schema.CheckAttr(name, v); err != nil {
			if spec.Required {
				s.warn(path+"/attrs/"+name, "dropped: %v", err)
				return nil, false
			}
			s.warn(path+"/attrs/"+name, "replaced invalid value with default: %v", err)
			v = spec.Default
		}
		out[name] = v
	}
	return out, true
}

func (s *sanitizer) marks(ws []wire.Mark, path string) []*model.Mark {
	var set []*model.Mark
	for i, wm := range ws {
		mpath := fmt.Sprintf("%s/marks/%d", path, i)
		mt, ok := s.cat.Mark(wm.Type)
		if !ok {
			s.warn(mpath, "dropped mark of unknown type %q", wm.Type)
			continue
		}
		attrs, ok := s.attrs(mt, wm.Attrs, mpath)
		if !ok {
			continue
		}
		m := model.NewMark(mt, attrs)
		if existing := model.FindMark(set, mt); existing != nil {
			s.warn(mpath, "dropped duplicate %s mark", mt.Name)
			continue
		}
		excluded := false
		for _, o := range set {
			if o.Type().Excludes(mt) {
				s.warn(mpath, "dropped %s mark excluded by %s", mt.Name, o.Type().Name)
				excluded = true
				break
			}
		}
		if !excluded {
			set = m.AddToSet(set)
		}
	}
	return set
}

func (s *sanitizer) allowedMarks(parent *catalog.NodeType, text *model.Node, path string) *model.Node {
	marks := text.Marks()
	kept := marks[:0:0]
	for _, m := range marks {
		if parent.AllowsMark(m.Type()) {
			kept = append(kept, m)
			continue
		}
		s.warn(path, "dropped %s mark not allowed in %s", m.Type().Name, parent.Name)
	}
	if len(kept) == len(marks) {
		return text
	}
	return text.WithMarks(kept)
}
