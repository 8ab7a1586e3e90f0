package transform

import (
	"fmt"

	"github.com/slekup/big-brain/internal/engine/catalog"
	"github.com/slekup/big-brain/internal/engine/model"
)

// Replace replaces [from, to) inside one parent with content.
func (tr *Transaction) Replace(from, to int, content ...*model.Node) error {
	if from == to && len(content) == 0 {
		return nil
	}
	return tr.Step(&ReplaceStep{From: from, To: to, Content: content})
}

// InsertText replaces [from, to) inside one textblock with text carrying marks.
func (tr *Transaction) InsertText(text string, from, to int, marks []*model.Mark) error {
	if text == "" {
		return tr.Delete(from, to)
	}
	rp, err := model.Resolve(tr.doc, from)
	if err != nil {
		return err
	}
	parent := rp.Parent()
	if !parent.Type().ContentMatch().Allows(textType(tr.doc)) {
		return fmt.Errorf("%w: cannot insert text into %s", ErrStepFailed, parent.Type().Name)
	}
	var allowed []*model.Mark
	for _, m := range marks {
		if parent.Type().AllowsMark(m.Type()) {
			allowed = append(allowed, m)
		}
	}
	node := model.NewText(textType(tr.doc), text, model.SortMarks(allowed))
	return tr.Step(&ReplaceStep{From: from, To: to, Content: []*model.Node{node}})
}

// Delete removes [from, to), which may span several blocks. When both ends
// sit inside blocks their remaining halves are joined as deep as the content
// rules allow.
func (tr *Transaction) Delete(from, to int) error {
	if from == to {
		return nil
	}
	rf, err := model.Resolve(tr.doc, from)
	if err != nil {
		return err
	}
	rt, err := model.Resolve(tr.doc, to)
	if err != nil {
		return err
	}
	if rf.SameParent(rt) {
		return tr.Step(&ReplaceStep{From: from, To: to})
	}

	d := rf.SharedDepth(to)
	type span struct{ from, to int }
	var spans []span

	// Right side, innermost first: content before "to" in each ancestor below d.
	for k := rt.Depth; k > d; k-- {
		end := to
		if k < rt.Depth {
			end = rt.Before(k + 1)
		}
		spans = append(spans, span{rt.Start(k), end})
	}
	// Whole siblings between the two sides.
	midFrom, midTo := from, to
	if rf.Depth > d {
		midFrom = rf.After(d + 1)
	}
	if rt.Depth > d {
		midTo = rt.Before(d + 1)
	}
	spans = append(spans, span{midFrom, midTo})
	// Left side, outermost first: content after "from".
	for k := d + 1; k <= rf.Depth; k++ {
		start := from
		if k < rf.Depth {
			start = rf.After(k + 1)
		}
		spans = append(spans, span{start, rf.End(k)})
	}

	mark := len(tr.maps.Maps())
	for _, s := range spans {
		if s.from >= s.to {
			continue
		}
		if err := tr.Step(&ReplaceStep{From: s.from, To: s.to}); err != nil {
			return err
		}
	}

	if rf.Depth > d && rt.Depth > d {
		joinPos := from + (rf.Depth - d)
		for depth := min(rf.Depth, rt.Depth) - d; depth > 0; depth-- {
			if tr.canJoin(joinPos, depth) {
				return tr.Step(&JoinStep{Pos: joinPos, Depth: depth})
			}
		}
	}
	if rf.Parent().IsTextblock() && rt.Parent().IsTextblock() {
		return tr.pullTextblock(from, tr.maps.Slice(mark).Map(rt.Start(rt.Depth), 1))
	}
	return nil
}

// pullTextblock moves the inline content of the textblock starting at
// rightStart to pos, then removes that block, or only empties it when its
// parent would be left invalid.
func (tr *Transaction) pullTextblock(pos, rightStart int) error {
	rr, err := model.Resolve(tr.doc, rightStart)
	if err != nil {
		return err
	}
	lp, err := model.Resolve(tr.doc, pos)
	if err != nil {
		return err
	}
	content := rr.Parent().Content()
	left := lp.Parent()
	if !left.Type().ValidContent(childTypes(model.JoinFragments(left.Content(), content))) {
		return nil
	}
	depth := rr.Depth
	parent := rr.Node(depth - 1)
	idx := rr.Index(depth - 1)
	kids := parent.Content()
	rest := model.JoinFragments(kids[:idx], kids[idx+1:])
	if parent.Type().ValidContent(childTypes(rest)) {
		err = tr.Replace(rr.Before(depth), rr.After(depth))
	} else {
		err = tr.Replace(rr.Start(depth), rr.End(depth))
	}
	if err != nil {
		return err
	}
	return tr.Replace(pos, pos, content...)
}

// canJoin reports whether joining at pos to depth yields legal content at
// every merged level.
func (tr *Transaction) canJoin(pos, depth int) bool {
	step := &JoinStep{Pos: pos, Depth: depth}
	rp, idx, err := step.siblings(tr.doc)
	if err != nil {
		return false
	}
	a, b := rp.Parent().Child(idx-1), rp.Parent().Child(idx)
	for level := depth; level > 0; level-- {
		if a == nil || b == nil || a.IsText() || b.IsText() || a.IsAtom() || b.IsAtom() {
			return false
		}
		if level == 1 {
			return a.Type().ValidContent(childTypes(model.JoinFragments(a.Content(), b.Content())))
		}
		a, b = a.LastChild(), b.FirstChild()
	}
	return false
}

func childTypes(nodes []*model.Node) []*catalog.NodeType {
	out := make([]*catalog.NodeType, len(nodes))
	for i, n := range nodes {
		out[i] = n.Type()
	}
	return out
}

// textRun is a slice of one text node inside [from, to).
type textRun struct {
	from, to int
	parent   *model.Node
	marks    []*model.Mark
}

func (tr *Transaction) textRuns(from, to int) []textRun {
	var runs []textRun
	tr.doc.NodesBetween(from, to, func(n *model.Node, pos int, parent *model.Node, _ int) bool {
		if n.IsText() {
			runs = append(runs, textRun{
				from:   max(from, pos),
				to:     min(to, pos+n.NodeSize()),
				parent: parent,
				marks:  n.Marks(),
			})
		}
		return true
	})
	return runs
}

// AddMark adds mark to the text in [from, to). Marks it excludes, including
// a mark of the same type with other attributes, are removed first. Text
// carrying a mark that excludes mark is left alone.
func (tr *Transaction) AddMark(from, to int, mark *model.Mark) error {
	var removes []*RemoveMarkStep
	var adds []*AddMarkStep
	for _, run := range tr.textRuns(from, to) {
		if !run.parent.Type().AllowsMark(mark.Type()) || mark.IsInSet(run.marks) || blocked(run.marks, mark) {
			continue
		}
		for _, m := range run.marks {
			if mark.Type().Excludes(m.Type()) {
				removes = appendRemove(removes, run.from, run.to, m)
			}
		}
		if n := len(adds); n > 0 && adds[n-1].To == run.from {
			adds[n-1].To = run.to
		} else {
			adds = append(adds, &AddMarkStep{From: run.from, To: run.to, Mark: mark})
		}
	}
	for _, s := range removes {
		if err := tr.Step(s); err != nil {
			return err
		}
	}
	for _, s := range adds {
		if err := tr.Step(s); err != nil {
			return err
		}
	}
	return nil
}

// blocked reports whether a mark in set excludes mark without being
// excluded by it.
func blocked(set []*model.Mark, mark *model.Mark) bool {
	for _, m := range set {
		if m.Type() != mark.Type() && m.Type().Excludes(mark.Type()) && !mark.Type().Excludes(m.Type()) {
			return true
		}
	}
	return false
}

// appendRemove extends the last step for the same mark when ranges touch.
func appendRemove(steps []*RemoveMarkStep, from, to int, m *model.Mark) []*RemoveMarkStep {
	for i := len(steps) - 1; i >= 0; i-- {
		if steps[i].Mark.Eq(m) {
			if steps[i].To == from {
				steps[i].To = to
				return steps
			}
			break
		}
	}
	return append(steps, &RemoveMarkStep{From: from, To: to, Mark: m})
}

// RemoveMark removes every mark of type t from the text in [from, to).
// A nil t removes all marks.
func (tr *Transaction) RemoveMark(from, to int, t *catalog.MarkType) error {
	var removes []*RemoveMarkStep
	for _, run := range tr.textRuns(from, to) {
		for _, m := range run.marks {
			if (t == nil || m.Type() == t) && run.parent.Type().AllowsMark(m.Type()) {
				removes = appendRemove(removes, run.from, run.to, m)
			}
		}
	}
	for _, s := range removes {
		if err := tr.Step(s); err != nil {
			return err
		}
	}
	return nil
}

// SetNodeMarkup changes the type and attributes of the node at pos.
func (tr *Transaction) SetNodeMarkup(pos int, t *catalog.NodeType, attrs map[string]any) error {
	return tr.Step(&SetNodeStep{Pos: pos, Type: t, Attrs: attrs})
}

// Split splits the innermost depth ancestors at pos.
func (tr *Transaction) Split(pos, depth int, types ...NodeSpec) error {
	return tr.Step(&SplitStep{Pos: pos, Depth: depth, Types: types})
}

// Join joins the siblings around pos.
func (tr *Transaction) Join(pos, depth int) error {
	return tr.Step(&JoinStep{Pos: pos, Depth: depth})
}

// Textblocks calls fn for every textblock overlapping [from, to) with its
// position, last first so that fn may change sizes without invalidating
// the positions still to be visited.
func (tr *Transaction) Textblocks(from, to int, fn func(n *model.Node, pos int) error) error {
	type block struct {
		node *model.Node
		pos  int
	}
	var blocks []block
	if from == to {
		rp, err := model.Resolve(tr.doc, from)
		if err != nil {
			return err
		}
		if d := rp.Ancestor((*model.Node).IsTextblock); d > 0 {
			blocks = append(blocks, block{rp.Node(d), rp.Before(d)})
		}
	} else {
		tr.doc.NodesBetween(from, to, func(n *model.Node, pos int, _ *model.Node, _ int) bool {
			if n.IsTextblock() {
				blocks = append(blocks, block{n, pos})
				return false
			}
			return true
		})
	}
	for i := len(blocks) - 1; i >= 0; i-- {
		if err := fn(blocks[i].node, blocks[i].pos); err != nil {
			return err
		}
	}
	return nil
}

// ClearIncompatible removes what the textblock at pos holds that type t
// would not accept: disallowed marks, and inline nodes other than text
// (hard breaks become newlines in code).
func (tr *Transaction) ClearIncompatible(pos int, t *catalog.NodeType) error {
	node := tr.doc.NodeAt(pos)
	if node == nil {
		return fmt.Errorf("%w: no node at %d", ErrStepFailed, pos)
	}
	start := pos + 1
	var removes []*RemoveMarkStep
	type repl struct {
		from, to int
		text     string
	}
	var repls []repl
	offset := start
	for _, c := range node.Content() {
		if c.IsText() {
			for _, m := range c.Marks() {
				if !t.AllowsMark(m.Type()) {
					removes = appendRemove(removes, offset, offset+c.NodeSize(), m)
				}
			}
		} else if !t.ContentMatch().Allows(c.Type()) {
			r := repl{from: offset, to: offset + c.NodeSize()}
			if t.Code && c.Type().Name == "hardBreak" {
				r.text = "\n"
			}
			repls = append(repls, r)
		}
		offset += c.NodeSize()
	}
	for _, s := range removes {
		if err := tr.Step(s); err != nil {
			return err
		}
	}
	for i := len(repls) - 1; i >= 0; i-- {
		r := repls[i]
		var content []*model.Node
		if r.text != "" {
			content = append(content, model.NewText(textType(tr.doc), r.text, nil))
		}
		if err := tr.Step(&ReplaceStep{From: r.from, To: r.to, Content: content}); err != nil {
			return err
		}
	}
	return nil
}

// SetBlockType retypes every textblock overlapping [from, to).
func (tr *Transaction) SetBlockType(from, to int, t *catalog.NodeType, attrs map[string]any) error {
	return tr.Textblocks(from, to, func(n *model.Node, pos int) error {
		if n.Type() == t && catalog.AttrsEqual(n.Attrs(), attrs) {
			return nil
		}
		rp, err := model.Resolve(tr.doc, pos)
		if err != nil {
			return err
		}
		parent := rp.Parent()
		types := childTypes(parent.Content())
		types[rp.Index(rp.Depth)] = t
		if !parent.Type().ValidContent(types) {
			return fmt.Errorf("%w: %s is not allowed in %s", ErrStepFailed, t.Name, parent.Type().Name)
		}
		if err := tr.ClearIncompatible(pos, t); err != nil {
			return err
		}
		return tr.SetNodeMarkup(pos, t, attrs)
	})
}

func textType(doc *model.Node) *catalog.NodeType { return doc.Type().Catalog().Text() }
