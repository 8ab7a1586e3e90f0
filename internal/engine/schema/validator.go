package schema

import (
	"fmt"

	"github.com/slekup/big-brain/internal/engine/catalog"
	"github.com/slekup/big-brain/internal/engine/model"
)

// Validator checks trees against a catalog.
type Validator struct {
	cat *catalog.Catalog
}

// NewValidator returns a validator for cat.
func NewValidator(cat *catalog.Catalog) *Validator {
	return &Validator{cat: cat}
}

// Catalog returns the catalog the validator checks against.
func (v *Validator) Catalog() *catalog.Catalog { return v.cat }

// Validate returns a *SchemaError listing every violation in doc, or nil.
func (v *Validator) Validate(doc *model.Node) error {
	errs := &SchemaError{}
	if doc == nil {
		errs.Add("", "no document")
		return errs
	}
	if doc.Type() != v.cat.Doc() {
		errs.AddWithValue("/type", fmt.Sprintf("root must be %q", catalog.DocType), doc.Type().Name)
	}
	v.checkNode(doc, "", errs)
	return errs.AsError()
}

// ValidateNode checks a subtree without requiring it to be a document.
func (v *Validator) ValidateNode(n *model.Node) error {
	errs := &SchemaError{}
	v.checkNode(n, "", errs)
	return errs.AsError()
}

func (v *Validator) checkNode(n *model.Node, path string, errs *SchemaError) {
	t := n.Type()
	if registered, ok := v.cat.Node(t.Name); !ok || registered != t {
		errs.AddWithValue(path+"/type", "node type is not registered in this catalog", t.Name)
		return
	}
	if n.IsText() {
		if n.Text() == "" {
			errs.Add(path+"/text", "empty text node")
		}
		return
	}
	checkAttrs(t, n.Attrs(), path+"/attrs", errs)

	children := n.Content()
	types := make([]*catalog.NodeType, len(children))
	for i, c := range children {
		types[i] = c.Type()
		cpath := fmt.Sprintf("%s/content/%d", path, i)
		v.checkNode(c, cpath, errs)
		if c.IsText() {
			v.checkMarks(t, c.Marks(), cpath, errs)
			if i > 0 && children[i-1].IsText() && model.SameMarkSet(children[i-1].Marks(), c.Marks()) {
				errs.Add(cpath, "adjacent text runs with equal marks are not merged")
			}
		}
	}
	if !t.ValidContent(types) {
		errs.AddWithValue(path+"/content", fmt.Sprintf("children do not match %q", t.ContentMatch().String()), typeNames(types))
	}
}

func (v *Validator) checkMarks(parent *catalog.NodeType, marks []*model.Mark, path string, errs *SchemaError) {
	for i, m := range marks {
		mpath := fmt.Sprintf("%s/marks/%d", path, i)
		mt := m.Type()
		if registered, ok := v.cat.Mark(mt.Name); !ok || registered != mt {
			errs.AddWithValue(mpath, "mark type is not registered in this catalog", mt.Name)
			continue
		}
		if !parent.AllowsMark(mt) {
			errs.AddWithValue(mpath, fmt.Sprintf("mark not allowed in %s", parent.Name), mt.Name)
		}
		checkAttrs(mt, m.Attrs(), mpath+"/attrs", errs)
		for j := 0; j < i; j++ {
			prev := marks[j].Type()
			switch {
			case prev == mt:
				errs.AddWithValue(mpath, "duplicate mark type", mt.Name)
			case prev.Excludes(mt):
				errs.AddWithValue(mpath, fmt.Sprintf("mark excluded by %s", prev.Name), mt.Name)
			}
		}
		if i > 0 && marks[i-1].Type().Rank() > mt.Rank() {
			errs.AddWithValue(mpath, "marks are not in rank order", mt.Name)
		}
	}
}

// attrChecker is the attribute schema of a node or mark type.
type attrChecker interface {
	AttrNames() []string
	Attr(name string) (catalog.AttrSpec, bool)
	CheckAttr(name string, v any) error
}

func checkAttrs(schema attrChecker, attrs map[string]any, path string, errs *SchemaError) {
	for name, val := range attrs {
		if _, ok := schema.Attr(name); !ok {
			errs.AddWithValue(path+"/"+name, "undeclared attribute", val)
		}
	}
	for _, name := range schema.AttrNames() {
		val, ok := attrs[name]
		if spec, _ := schema.Attr(name); !ok && !spec.Nullable() {
			errs.Add(path+"/"+name, "missing attribute")
			continue
		}
		if err := schema.CheckAttr(name, val); err != nil {
			errs.AddWithValue(path+"/"+name, err.Error(), val)
		}
	}
}

func typeNames(types []*catalog.NodeType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.Name
	}
	return out
}
