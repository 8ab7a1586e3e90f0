package command

import (
	"unicode/utf8"

	"github.com/rivo/uniseg"

	"github.com/slekup/big-brain/internal/engine/cursor"
	"github.com/slekup/big-brain/internal/engine/model"
	"github.com/slekup/big-brain/internal/engine/schema"
	"github.com/slekup/big-brain/internal/engine/transform"
	"github.com/slekup/big-brain/internal/engine/wire"
)

func registerCore(r *Registry) {
	r.RegisterCore("insertText", insertText)
	r.RegisterCore("insertContent", insertContent)
	r.RegisterCore("deleteSelection", deleteSelectionCmd)
	r.RegisterCore("deleteBackward", deleteBackward)
	r.RegisterCore("splitBlock", splitBlock)
	r.RegisterCore("selectAll", selectAll)
	r.RegisterCore("setTextSelection", setTextSelection)
	r.RegisterCore("clearNodes", clearNodes)
	r.Register("setHardBreak", setHardBreak)
}

// textAnchor locates a position as the ordinal of its textblock in
// document order and an offset into that textblock's content.
type textAnchor struct {
	block, offset int
}

func anchorOf(doc *model.Node, pos int) (textAnchor, bool) {
	var a textAnchor
	found := false
	i := 0
	doc.Descendants(func(n *model.Node, p int, _ *model.Node, _ int) bool {
		if found {
			return false
		}
		if !n.IsTextblock() {
			return true
		}
		if start := p + 1; pos >= start && pos <= start+n.ContentSize() {
			a, found = textAnchor{block: i, offset: pos - start}, true
		}
		i++
		return false
	})
	return a, found
}

func (a textAnchor) resolve(doc *model.Node) (int, bool) {
	pos, found := 0, false
	i := 0
	doc.Descendants(func(n *model.Node, p int, _ *model.Node, _ int) bool {
		if found {
			return false
		}
		if !n.IsTextblock() {
			return true
		}
		if i == a.block && a.offset <= n.ContentSize() {
			pos, found = p+1+a.offset, true
		}
		i++
		return false
	})
	return pos, found
}

// preserveSelection runs fn, which may only move textblocks between
// containers, and keeps the selection on the same text.
func preserveSelection(tx *transform.Transaction, fn func() error) error {
	sel := tx.Selection()
	anchor, okA := anchorOf(tx.Doc(), sel.Anchor)
	head, okH := anchorOf(tx.Doc(), sel.Head)
	if err := fn(); err != nil {
		return err
	}
	if !okA || !okH {
		return nil
	}
	a, okA := anchor.resolve(tx.Doc())
	h, okH := head.resolve(tx.Doc())
	if okA && okH {
		tx.SetSelection(cursor.Range(a, h))
	}
	return nil
}

// replaceInline replaces the selection with inline nodes. Outside any
// textblock the nodes are wrapped in a new paragraph.
func replaceInline(tx *transform.Transaction, nodes []*model.Node) error {
	from, to := selectionRange(tx)
	rf, err := model.Resolve(tx.Doc(), from)
	if err != nil {
		return err
	}
	rt, err := model.Resolve(tx.Doc(), to)
	if err != nil {
		return err
	}
	if from != to && !rf.SameParent(rt) {
		if err := tx.Delete(from, to); err != nil {
			return err
		}
		to = from
		if rf, err = model.Resolve(tx.Doc(), from); err != nil {
			return err
		}
	}
	size := model.FragmentSize(nodes)

	if d := textblockAt(rf); d > 0 {
		block := rf.Node(d)
		for _, n := range nodes {
			if !block.Type().ContentMatch().Allows(n.Type()) {
				return refuse("%s cannot hold %s", block.Type().Name, n.Type().Name)
			}
		}
		if err := tx.Replace(from, to, nodes...); err != nil {
			return err
		}
		tx.SetSelection(cursor.At(from + size))
		return nil
	}

	p, err := nodeType(tx, "paragraph")
	if err != nil {
		return err
	}
	if !p.ValidContent(types(nodes)) {
		return refuse("paragraph cannot hold the inserted content")
	}
	para := model.NewNode(p, nil, nodes)
	at, err := insertBlocks(tx, []*model.Node{para})
	if err != nil {
		return err
	}
	tx.SetSelection(cursor.At(at + 1 + size))
	return nil
}

// insertText replaces the selection with {text}. The text takes the stored
// marks, or the marks at the start of the selection.
func insertText(tx *transform.Transaction, p Params) error {
	text := p.String("text")
	if text == "" {
		return refuse("no text")
	}
	from, to := selectionRange(tx)
	rf, err := model.Resolve(tx.Doc(), from)
	if err != nil {
		return err
	}
	marks := rf.Marks()
	if from == to {
		marks = cursorMarks(tx, rf)
	}
	tx.SetKind(transform.KindInsertText)

	if d := textblockAt(rf); d > 0 {
		rt, err := model.Resolve(tx.Doc(), to)
		if err != nil {
			return err
		}
		if !rf.SameParent(rt) {
			if err := tx.Delete(from, to); err != nil {
				return err
			}
			to = from
		}
		if err := tx.InsertText(text, from, to, marks); err != nil {
			return err
		}
		tx.SetSelection(cursor.At(from + utf8.RuneCountInString(text)))
		return nil
	}
	return replaceInline(tx, []*model.Node{model.NewText(catalogOf(tx).Text(), text, marks)})
}

// contentNodes converts the {content} parameter: a string, wire nodes,
// model nodes, or decoded JSON.
func contentNodes(tx *transform.Transaction, v any) ([]*model.Node, error) {
	cat := catalogOf(tx)
	switch c := v.(type) {
	case nil:
		return nil, refuse("no content")
	case string:
		if c == "" {
			return nil, refuse("no content")
		}
		return []*model.Node{model.NewText(cat.Text(), c, nil)}, nil
	case *model.Node:
		return []*model.Node{schema.Normalize(c)}, nil
	case []*model.Node:
		out := make([]*model.Node, len(c))
		for i, n := range c {
			out[i] = schema.Normalize(n)
		}
		return out, nil
	}
	var ws []wire.Node
	switch c := v.(type) {
	case wire.Node:
		ws = []wire.Node{c}
	case []wire.Node:
		ws = c
	default:
		var err error
		if ws, err = wire.NodesFrom(v); err != nil {
			return nil, &Refusal{Reason: "malformed content", Err: err}
		}
	}
	out := make([]*model.Node, 0, len(ws))
	for _, w := range ws {
		n, err := model.FromWire(cat, w)
		if err != nil {
			return nil, &Refusal{Reason: "invalid content", Err: err}
		}
		out = append(out, schema.Normalize(n))
	}
	return out, nil
}

// insertContent inserts {content} at the selection. Inline content goes
// into the current textblock; block content goes between blocks.
func insertContent(tx *transform.Transaction, p Params) error {
	v, _ := p.Get("content")
	nodes, err := contentNodes(tx, v)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return refuse("no content")
	}
	inline := nodes[0].IsInline()
	for _, n := range nodes[1:] {
		if n.IsInline() != inline {
			return refuse("content mixes inline and block nodes")
		}
	}
	if inline {
		tx.SetKind(transform.KindEdit)
		return replaceInline(tx, nodes)
	}
	tx.SetKind(transform.KindStructure)
	_, err = insertBlocks(tx, nodes)
	return err
}

func deleteSelectionCmd(tx *transform.Transaction, _ Params) error {
	if tx.Selection().IsEmpty() {
		return refuse("empty selection")
	}
	tx.SetKind(transform.KindDelete)
	return deleteSelection(tx)
}

// leafPlaceholder stands in for an inline leaf node in text.
const leafPlaceholder = "\ufffc"

// lastCluster returns the rune length of the last grapheme cluster in s.
func lastCluster(s string) int {
	n := 1
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		n = len(g.Runes())
	}
	return n
}

// deleteBackward deletes the selection, or the character before the
// cursor. At the start of a textblock it joins the block with the one
// before, or removes a leaf block before it.
func deleteBackward(tx *transform.Transaction, _ Params) error {
	tx.SetKind(transform.KindDelete)
	if !tx.Selection().IsEmpty() {
		return deleteSelection(tx)
	}
	pos := tx.Selection().Head
	rp, err := model.Resolve(tx.Doc(), pos)
	if err != nil {
		return err
	}
	d := textblockAt(rp)
	if d < 0 {
		return refuse("no textblock at the cursor")
	}
	if rp.ParentOffset > 0 {
		n := lastCluster(rp.Parent().TextBetween(0, rp.ParentOffset, "", leafPlaceholder))
		if err := tx.Delete(pos-n, pos); err != nil {
			return err
		}
		tx.SetSelection(cursor.At(pos - n))
		return nil
	}
	// Find the nearest ancestor with a previous sibling.
	up := d
	for up > 0 && rp.Index(up-1) == 0 {
		up--
	}
	if up == 0 {
		return refuse("at the start of the document")
	}
	before := rp.Before(up)
	prev := rp.Node(up - 1).Child(rp.Index(up-1) - 1)
	if prev.IsAtom() {
		if err := tx.Replace(before-prev.NodeSize(), before); err != nil {
			return err
		}
		tx.SetSelection(cursor.At(pos - prev.NodeSize()))
		return nil
	}
	// Walk down to the end of the last textblock in prev.
	target := before
	for n := prev; !n.IsTextblock(); n = n.LastChild() {
		target--
		if n.LastChild() == nil || n.LastChild().IsAtom() {
			return refuse("nothing to join with")
		}
	}
	target--
	if err := tx.Delete(target, pos); err != nil {
		return err
	}
	tx.SetSelection(cursor.At(target))
	return nil
}

// splitBlock splits the textblock at the cursor. In a code block it
// inserts a newline; in the first paragraph of a list item it splits the
// item, and lifts it out of the list when empty.
func splitBlock(tx *transform.Transaction, _ Params) error {
	tx.SetKind(transform.KindStructure)
	if err := deleteSelection(tx); err != nil {
		return err
	}
	pos := tx.Selection().Head
	rp, err := model.Resolve(tx.Doc(), pos)
	if err != nil {
		return err
	}
	d := textblockAt(rp)
	if d < 0 {
		return refuse("no textblock at the cursor")
	}
	block := rp.Node(d)
	if block.Type().Code {
		if err := tx.InsertText("\n", pos, pos, nil); err != nil {
			return err
		}
		tx.SetSelection(cursor.At(pos + 1))
		return nil
	}

	if d >= 2 && rp.Node(d-1).Type().Name == "listItem" && rp.Index(d-1) == 0 {
		if block.ContentSize() == 0 && rp.Node(d-1).ChildCount() == 1 {
			return liftItems(tx, rp, d-2, pos)
		}
		if err := tx.Split(pos, 2); err != nil {
			return err
		}
		tx.SetSelection(cursor.At(pos + 4))
		return nil
	}

	var specs []transform.NodeSpec
	if pos == rp.End(d) && block.Type().Name != "paragraph" {
		if p, ok := catalogOf(tx).Node("paragraph"); ok && rp.Node(d-1).Type().ContentMatch().Allows(p) {
			specs = append(specs, transform.NodeSpec{Type: p})
		}
	}
	if err := tx.Split(pos, 1, specs...); err != nil {
		return err
	}
	tx.SetSelection(cursor.At(pos + 2))
	return nil
}

func setHardBreak(tx *transform.Transaction, _ Params) error {
	rp, err := model.Resolve(tx.Doc(), tx.Selection().From())
	if err != nil {
		return err
	}
	d := textblockAt(rp)
	if d < 0 {
		return refuse("no textblock at the cursor")
	}
	tx.SetKind(transform.KindStructure)
	if rp.Node(d).Type().Code {
		return replaceInline(tx, []*model.Node{model.NewText(catalogOf(tx).Text(), "\n", nil)})
	}
	t, err := nodeType(tx, "hardBreak")
	if err != nil {
		return err
	}
	br, err := model.Create(t, nil, nil)
	if err != nil {
		return err
	}
	return replaceInline(tx, []*model.Node{br})
}

func selectAll(tx *transform.Transaction, _ Params) error {
	tx.SetKind(transform.KindSelection)
	tx.SetSelection(cursor.Range(0, tx.Doc().ContentSize()))
	return nil
}

func setTextSelection(tx *transform.Transaction, p Params) error {
	from := p.Int("from", -1)
	if from < 0 {
		return refuse("missing from")
	}
	tx.SetKind(transform.KindSelection)
	tx.SetSelection(cursor.Range(from, p.Int("to", from)))
	return nil
}

// clearNodes turns the top-level blocks touched by the selection into
// paragraphs. Containers are flattened into their textblocks; leaf blocks
// stay.
func clearNodes(tx *transform.Transaction, _ Params) error {
	para, err := nodeType(tx, "paragraph")
	if err != nil {
		return err
	}
	doc := tx.Doc()
	if doc.ChildCount() == 0 {
		return refuse("empty document")
	}
	from, to := selectionRange(tx)
	rf, err := model.Resolve(doc, from)
	if err != nil {
		return err
	}
	rt, err := model.Resolve(doc, to)
	if err != nil {
		return err
	}
	start := min(rf.Index(0), doc.ChildCount()-1)
	end := rt.IndexAfter(0)
	if rt.Depth > 0 {
		end = rt.Index(0) + 1
	}
	end = min(max(end, start+1), doc.ChildCount())

	var flatten func(n *model.Node) []*model.Node
	flatten = func(n *model.Node) []*model.Node {
		switch {
		case n.Type() == para:
			return []*model.Node{n}
		case n.IsTextblock():
			return []*model.Node{model.NewNode(para, nil, n.Content())}
		case n.IsAtom() || n.ChildCount() == 0:
			return []*model.Node{n}
		}
		var out []*model.Node
		for _, c := range n.Content() {
			out = append(out, flatten(c)...)
		}
		return out
	}
	original := doc.Content()[start:end]
	var out []*model.Node
	for _, n := range original {
		out = append(out, flatten(n)...)
	}
	if model.FragmentEq(out, original) {
		return nil
	}
	if !fitsReplacing(doc, start, end, out) {
		return refuse("cannot clear these blocks")
	}
	tx.SetKind(transform.KindStructure)
	return preserveSelection(tx, func() error {
		return tx.Replace(rf.PosAtIndex(start, 0), rf.PosAtIndex(end, 0), out...)
	})
}
