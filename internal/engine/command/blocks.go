package command

import (
	"github.com/slekup/big-brain/internal/engine/catalog"
	"github.com/slekup/big-brain/internal/engine/model"
	"github.com/slekup/big-brain/internal/engine/transform"
)

func registerBlocks(r *Registry) {
	r.Register("setParagraph", setParagraph)
	r.Register("setHeading", setHeading)
	r.Register("toggleHeading", toggleHeading)
	r.Register("toggleBlockquote", toggleBlockquote)
	r.Register("toggleCodeBlock", toggleCodeBlock)
	r.Register("toggleBulletList", toggleList("bulletList", "orderedList"))
	r.Register("toggleOrderedList", toggleList("orderedList", "bulletList"))
	r.Register("setHorizontalRule", setHorizontalRule)
	r.Register("setImage", setImage)
}

// setBlock retypes the textblocks in the selection.
func setBlock(tx *transform.Transaction, t *catalog.NodeType, attrs map[string]any) error {
	computed, err := t.ComputeAttrs(attrs)
	if err != nil {
		return &Refusal{Reason: "invalid " + t.Name + " attributes", Err: err}
	}
	from, to := selectionRange(tx)
	if _, found := allTextblocks(tx.Doc(), from, to, func(*model.Node) bool { return true }); !found {
		return refuse("no textblock in the selection")
	}
	tx.SetKind(transform.KindStructure)
	return tx.SetBlockType(from, to, t, computed)
}

// toggleBlock retypes the selected textblocks to t, or back to paragraphs
// when they all have type t and attrs already.
func toggleBlock(tx *transform.Transaction, t *catalog.NodeType, attrs map[string]any) error {
	computed, err := t.ComputeAttrs(attrs)
	if err != nil {
		return &Refusal{Reason: "invalid " + t.Name + " attributes", Err: err}
	}
	from, to := selectionRange(tx)
	all, _ := allTextblocks(tx.Doc(), from, to, func(n *model.Node) bool {
		return n.Type() == t && matchAttrs(t, n.Attrs(), attrs)
	})
	if all {
		p, err := nodeType(tx, "paragraph")
		if err != nil {
			return err
		}
		return setBlock(tx, p, nil)
	}
	return setBlock(tx, t, computed)
}

func setParagraph(tx *transform.Transaction, _ Params) error {
	t, err := nodeType(tx, "paragraph")
	if err != nil {
		return err
	}
	return setBlock(tx, t, nil)
}

func headingAttrs(p Params) map[string]any {
	return map[string]any{"level": p.Int("level", 1)}
}

func setHeading(tx *transform.Transaction, p Params) error {
	t, err := nodeType(tx, "heading")
	if err != nil {
		return err
	}
	return setBlock(tx, t, headingAttrs(p))
}

func toggleHeading(tx *transform.Transaction, p Params) error {
	t, err := nodeType(tx, "heading")
	if err != nil {
		return err
	}
	return toggleBlock(tx, t, headingAttrs(p))
}

func toggleCodeBlock(tx *transform.Transaction, p Params) error {
	t, err := nodeType(tx, "codeBlock")
	if err != nil {
		return err
	}
	var attrs map[string]any
	if lang := p.String("language"); lang != "" {
		attrs = map[string]any{"language": lang}
	}
	return toggleBlock(tx, t, attrs)
}

// wrapRange replaces the blocks in r by wrapper, which holds them.
func wrapRange(tx *transform.Transaction, r blockRange, wrapper *model.Node) error {
	if !fitsReplacing(r.parent(), r.start, r.end, []*model.Node{wrapper}) {
		return refuse("%s is not allowed in %s", wrapper.Type().Name, r.parent().Type().Name)
	}
	tx.SetKind(transform.KindStructure)
	return preserveSelection(tx, func() error {
		return tx.Replace(r.from(), r.to(), wrapper)
	})
}

// unwrapAt replaces the ancestor at depth d of rp by nodes.
func unwrapAt(tx *transform.Transaction, rp *model.ResolvedPos, d int, nodes []*model.Node) error {
	parent := rp.Node(d - 1)
	index := rp.Index(d - 1)
	if !fitsReplacing(parent, index, index+1, nodes) {
		return refuse("cannot lift out of %s", rp.Node(d).Type().Name)
	}
	tx.SetKind(transform.KindStructure)
	return preserveSelection(tx, func() error {
		return tx.Replace(rp.Before(d), rp.After(d), nodes...)
	})
}

func ofType(ts ...*catalog.NodeType) func(*model.Node) bool {
	return func(n *model.Node) bool {
		for _, t := range ts {
			if n.Type() == t {
				return true
			}
		}
		return false
	}
}

func allows(t *catalog.NodeType) func(*model.Node) bool {
	return func(n *model.Node) bool { return n.Type().ContentMatch().Allows(t) }
}

// toggleBlockquote lifts the content of the blockquote around the cursor,
// or wraps the selected blocks in a new one.
func toggleBlockquote(tx *transform.Transaction, _ Params) error {
	bq, err := nodeType(tx, "blockquote")
	if err != nil {
		return err
	}
	from, to := selectionRange(tx)
	rp, err := model.Resolve(tx.Doc(), from)
	if err != nil {
		return err
	}
	if d := rp.Ancestor(ofType(bq)); d > 0 {
		return unwrapAt(tx, rp, d, rp.Node(d).Content())
	}
	r, ok := rangeOf(tx.Doc(), from, to, allows(bq))
	if !ok {
		return refuse("nothing to wrap")
	}
	content := r.nodes()
	if !bq.ValidContent(types(content)) {
		return refuse("blockquote cannot hold the selection")
	}
	wrapper, err := model.Create(bq, nil, content)
	if err != nil {
		return err
	}
	return wrapRange(tx, r, wrapper)
}

// toggleList lifts the selected items out of a list of type name, turns a
// list of type other into one of type name, or wraps the selected blocks
// in a new list.
func toggleList(name, other string) Func {
	return func(tx *transform.Transaction, _ Params) error {
		lt, err := nodeType(tx, name)
		if err != nil {
			return err
		}
		item, err := nodeType(tx, "listItem")
		if err != nil {
			return err
		}
		ot, _ := catalogOf(tx).Node(other)

		from, to := selectionRange(tx)
		rp, err := model.Resolve(tx.Doc(), from)
		if err != nil {
			return err
		}
		if d := rp.Ancestor(ofType(lt, ot)); d > 0 {
			list := rp.Node(d)
			if list.Type() != lt {
				attrs, err := lt.ComputeAttrs(nil)
				if err != nil {
					return err
				}
				tx.SetKind(transform.KindStructure)
				return tx.SetNodeMarkup(rp.Before(d), lt, attrs)
			}
			return liftItems(tx, rp, d, to)
		}

		r, ok := rangeOf(tx.Doc(), from, to, allows(lt))
		if !ok {
			return refuse("nothing to wrap")
		}
		blocks := r.nodes()
		items := make([]*model.Node, len(blocks))
		for i, b := range blocks {
			items[i] = model.CreateAndFill(item, nil, []*model.Node{b})
			if items[i] == nil {
				return refuse("%s cannot become a list item", b.Type().Name)
			}
		}
		list, err := model.Create(lt, nil, items)
		if err != nil {
			return err
		}
		return wrapRange(tx, r, list)
	}
}

// liftItems moves the items of the list at depth d of rp that the
// selection touches out of the list. Items before and after stay in lists
// of their own.
func liftItems(tx *transform.Transaction, rp *model.ResolvedPos, d, to int) error {
	list := rp.Node(d)
	start := rp.Index(d)
	end := start + 1
	if rt, err := model.Resolve(tx.Doc(), to); err == nil && rt.Depth > d &&
		rt.Node(d) == list && rt.Start(d) == rp.Start(d) {
		end = rt.Index(d) + 1
	}
	items := list.Content()
	var out []*model.Node
	if start > 0 {
		out = append(out, list.Copy(items[:start]))
	}
	for _, it := range items[start:end] {
		out = append(out, it.Content()...)
	}
	if end < len(items) {
		out = append(out, list.Copy(items[end:]))
	}
	return unwrapAt(tx, rp, d, out)
}

func setHorizontalRule(tx *transform.Transaction, _ Params) error {
	t, err := nodeType(tx, "horizontalRule")
	if err != nil {
		return err
	}
	hr, err := model.Create(t, nil, nil)
	if err != nil {
		return err
	}
	tx.SetKind(transform.KindStructure)
	_, err = insertBlocks(tx, []*model.Node{hr})
	return err
}

// setImage inserts an image block. src gets the default protocol when it
// has none.
func setImage(tx *transform.Transaction, p Params) error {
	t, err := nodeType(tx, "image")
	if err != nil {
		return err
	}
	src, err := catalog.NormalizeURI(p.String("src"))
	if err != nil {
		return &Refusal{Reason: "invalid image source", Err: err}
	}
	attrs := map[string]any{"src": src}
	for _, key := range []string{"alt", "title"} {
		if v := p.String(key); v != "" {
			attrs[key] = v
		}
	}
	img, err := model.Create(t, attrs, nil)
	if err != nil {
		return &Refusal{Reason: "invalid image attributes", Err: err}
	}
	tx.SetKind(transform.KindStructure)
	_, err = insertBlocks(tx, []*model.Node{img})
	return err
}
