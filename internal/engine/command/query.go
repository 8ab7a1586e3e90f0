package command

import (
	"reflect"

	"github.com/slekup/big-brain/internal/engine/catalog"
	"github.com/slekup/big-brain/internal/engine/cursor"
	"github.com/slekup/big-brain/internal/engine/model"
)

type attrLookup interface {
	Attr(name string) (catalog.AttrSpec, bool)
}

// matchAttrs reports whether have holds every attribute in want. Values in
// want are coerced to the declared attribute type first.
func matchAttrs(t attrLookup, have, want map[string]any) bool {
	for k, v := range want {
		if spec, ok := t.Attr(k); ok {
			v = spec.Coerce(v)
		}
		hv, ok := have[k]
		if !ok || !reflect.DeepEqual(hv, v) {
			return false
		}
	}
	return true
}

// IsActive reports whether the node or mark type name, with attrs, covers
// the selection. For an empty selection a mark is active when the cursor
// would type with it.
func IsActive(doc *model.Node, sel cursor.Selection, stored []*model.Mark, name string, attrs map[string]any) bool {
	cat := doc.Type().Catalog()
	if mt, ok := cat.Mark(name); ok {
		return markActive(doc, sel, stored, mt, attrs)
	}
	nt, ok := cat.Node(name)
	if !ok {
		return false
	}
	match := func(n *model.Node) bool {
		return n.Type() == nt && matchAttrs(nt, n.Attrs(), attrs)
	}
	for _, pos := range []int{sel.From(), sel.To()} {
		rp, err := model.Resolve(doc, pos)
		if err != nil || rp.Ancestor(match) < 0 {
			return false
		}
	}
	if nt.IsTextblock() && !sel.IsEmpty() {
		all, _ := allTextblocks(doc, sel.From(), sel.To(), match)
		return all
	}
	return true
}

func markActive(doc *model.Node, sel cursor.Selection, stored []*model.Mark, mt *catalog.MarkType, attrs map[string]any) bool {
	if sel.IsEmpty() {
		rp, err := model.Resolve(doc, sel.Head)
		if err != nil {
			return false
		}
		marks := stored
		if marks == nil {
			marks = rp.Marks()
		}
		m := model.FindMark(marks, mt)
		return m != nil && matchAttrs(mt, m.Attrs(), attrs)
	}
	all, found := true, false
	doc.NodesBetween(sel.From(), sel.To(), func(n *model.Node, _ int, parent *model.Node, _ int) bool {
		if !n.IsText() || !parent.Type().AllowsMark(mt) {
			return true
		}
		found = true
		if m := model.FindMark(n.Marks(), mt); m == nil || !matchAttrs(mt, m.Attrs(), attrs) {
			all = false
		}
		return all
	})
	return found && all
}

// MarkAttributes returns the attributes of the mark type name at the
// cursor, or of its last occurrence in the selection. It returns nil when
// the mark is absent.
func MarkAttributes(doc *model.Node, sel cursor.Selection, stored []*model.Mark, name string) map[string]any {
	mt, ok := doc.Type().Catalog().Mark(name)
	if !ok {
		return nil
	}
	var found *model.Mark
	if sel.IsEmpty() {
		rp, err := model.Resolve(doc, sel.Head)
		if err != nil {
			return nil
		}
		marks := stored
		if marks == nil {
			marks = rp.Marks()
		}
		found = model.FindMark(marks, mt)
	} else {
		doc.NodesBetween(sel.From(), sel.To(), func(n *model.Node, _ int, _ *model.Node, _ int) bool {
			if m := model.FindMark(n.Marks(), mt); m != nil {
				found = m
			}
			return true
		})
	}
	if found == nil {
		return nil
	}
	return catalog.CloneAttrs(found.Attrs())
}

// NodeAttributes returns the attributes of the innermost node of type name
// around the selection start, or nil.
func NodeAttributes(doc *model.Node, sel cursor.Selection, name string) map[string]any {
	nt, ok := doc.Type().Catalog().Node(name)
	if !ok {
		return nil
	}
	rp, err := model.Resolve(doc, sel.From())
	if err != nil {
		return nil
	}
	d := rp.Ancestor(func(n *model.Node) bool { return n.Type() == nt })
	if d < 0 {
		return nil
	}
	return catalog.CloneAttrs(rp.Node(d).Attrs())
}
