package command

import (
	"github.com/slekup/big-brain/internal/engine/catalog"
	"github.com/slekup/big-brain/internal/engine/cursor"
	"github.com/slekup/big-brain/internal/engine/model"
	"github.com/slekup/big-brain/internal/engine/transform"
)

func catalogOf(tx *transform.Transaction) *catalog.Catalog {
	return tx.Doc().Type().Catalog()
}

func nodeType(tx *transform.Transaction, name string) (*catalog.NodeType, error) {
	t, ok := catalogOf(tx).Node(name)
	if !ok {
		return nil, refuse("catalog has no %s type", name)
	}
	return t, nil
}

func markType(tx *transform.Transaction, name string) (*catalog.MarkType, error) {
	t, ok := catalogOf(tx).Mark(name)
	if !ok {
		return nil, refuse("catalog has no %s mark", name)
	}
	return t, nil
}

// textblockAt returns the depth of the innermost textblock around rp, or -1.
func textblockAt(rp *model.ResolvedPos) int {
	d := rp.Ancestor((*model.Node).IsTextblock)
	if d <= 0 {
		return -1
	}
	return d
}

// selectionRange returns the current selection bounds.
func selectionRange(tx *transform.Transaction) (int, int) {
	sel := tx.Selection()
	return sel.From(), sel.To()
}

// blockRange describes the sibling blocks covering a selection.
type blockRange struct {
	rp         *model.ResolvedPos
	depth      int
	start, end int
}

func (r blockRange) parent() *model.Node { return r.rp.Node(r.depth) }

func (r blockRange) nodes() []*model.Node {
	return r.parent().Content()[r.start:r.end]
}

func (r blockRange) from() int { return r.rp.PosAtIndex(r.start, r.depth) }

func (r blockRange) to() int { return r.rp.PosAtIndex(r.end, r.depth) }

// rangeOf finds the blocks covering [from, to): the children, between
// start and end, of the deepest node that holds both ends and is not a
// textblock. pred, when given, must hold for that node.
func rangeOf(doc *model.Node, from, to int, pred func(*model.Node) bool) (blockRange, bool) {
	rf, err := model.Resolve(doc, from)
	if err != nil {
		return blockRange{}, false
	}
	rt, err := model.Resolve(doc, to)
	if err != nil {
		return blockRange{}, false
	}
	for d := rf.SharedDepth(to); d >= 0; d-- {
		n := rf.Node(d)
		if n.IsTextblock() || (pred != nil && !pred(n)) {
			continue
		}
		start := rf.Index(d)
		end := rt.IndexAfter(d)
		if d < rt.Depth {
			end = rt.Index(d) + 1
		}
		if end <= start {
			end = start + 1
		}
		if end > n.ChildCount() {
			return blockRange{}, false
		}
		return blockRange{rp: rf, depth: d, start: start, end: end}, true
	}
	return blockRange{}, false
}

func types(nodes []*model.Node) []*catalog.NodeType {
	out := make([]*catalog.NodeType, len(nodes))
	for i, n := range nodes {
		out[i] = n.Type()
	}
	return out
}

// fitsReplacing reports whether parent stays valid with children
// [start, end) replaced by nodes.
func fitsReplacing(parent *model.Node, start, end int, nodes []*model.Node) bool {
	kids := parent.Content()
	list := make([]*model.Node, 0, len(kids)-(end-start)+len(nodes))
	list = append(list, kids[:start]...)
	list = append(list, nodes...)
	list = append(list, kids[end:]...)
	return parent.Type().ValidContent(types(list))
}

// deleteSelection removes a non-empty selection and collapses it.
func deleteSelection(tx *transform.Transaction) error {
	from, to := selectionRange(tx)
	if from == to {
		return nil
	}
	if err := tx.Delete(from, to); err != nil {
		return err
	}
	tx.SetSelection(cursor.At(from))
	return nil
}

// insertBlocks places block nodes at the cursor and returns where they
// start. An empty textblock is replaced; otherwise the nodes go before or
// after the cursor's textblock, which is split when the cursor sits inside
// its text. The cursor ends up after the inserted nodes.
func insertBlocks(tx *transform.Transaction, nodes []*model.Node) (int, error) {
	if err := deleteSelection(tx); err != nil {
		return 0, err
	}
	pos := tx.Selection().Head
	rp, err := model.Resolve(tx.Doc(), pos)
	if err != nil {
		return 0, err
	}
	size := model.FragmentSize(nodes)

	d := textblockAt(rp)
	if d < 0 {
		if !fitsReplacing(rp.Parent(), rp.Index(rp.Depth), rp.Index(rp.Depth), nodes) {
			return 0, refuse("%s cannot hold the inserted content", rp.Parent().Type().Name)
		}
		if err := tx.Replace(pos, pos, nodes...); err != nil {
			return 0, err
		}
		placeCursor(tx, pos+size)
		return pos, nil
	}

	block := rp.Node(d)
	parent := rp.Node(d - 1)
	index := rp.Index(d - 1)
	var at int
	switch {
	case block.ContentSize() == 0:
		if !fitsReplacing(parent, index, index+1, nodes) {
			return 0, refuse("%s cannot hold the inserted content", parent.Type().Name)
		}
		at = rp.Before(d)
		if err := tx.Replace(at, rp.After(d), nodes...); err != nil {
			return 0, err
		}
	case rp.ParentOffset == 0:
		if !fitsReplacing(parent, index, index, nodes) {
			return 0, refuse("%s cannot hold the inserted content", parent.Type().Name)
		}
		at = rp.Before(d)
		if err := tx.Replace(at, at, nodes...); err != nil {
			return 0, err
		}
	case pos == rp.End(d):
		if !fitsReplacing(parent, index+1, index+1, nodes) {
			return 0, refuse("%s cannot hold the inserted content", parent.Type().Name)
		}
		at = rp.After(d)
		if err := tx.Replace(at, at, nodes...); err != nil {
			return 0, err
		}
	default:
		if !fitsReplacing(parent, index+1, index+1, nodes) {
			return 0, refuse("%s cannot hold the inserted content", parent.Type().Name)
		}
		if err := tx.Split(pos, 1); err != nil {
			return 0, err
		}
		at = pos + 1
		if err := tx.Replace(at, at, nodes...); err != nil {
			return 0, err
		}
	}
	placeCursor(tx, at+size)
	return at, nil
}

// placeCursor puts the cursor at pos, stepping into a textblock that
// starts there or else the end of one that ends there.
func placeCursor(tx *transform.Transaction, pos int) {
	if rp, err := model.Resolve(tx.Doc(), pos); err == nil {
		if next := rp.NodeAfter(); next != nil && next.IsTextblock() {
			pos++
		} else if prev := rp.NodeBefore(); prev != nil && prev.IsTextblock() {
			pos--
		}
	}
	tx.SetSelection(cursor.At(pos))
}

// allTextblocks reports whether every textblock touching [from, to) passes
// pred, and whether there was at least one.
func allTextblocks(doc *model.Node, from, to int, pred func(*model.Node) bool) (all, found bool) {
	all = true
	visit := func(n *model.Node) {
		found = true
		if !pred(n) {
			all = false
		}
	}
	if from == to {
		rp, err := model.Resolve(doc, from)
		if err != nil {
			return false, false
		}
		if d := textblockAt(rp); d > 0 {
			visit(rp.Node(d))
		}
		return all && found, found
	}
	doc.NodesBetween(from, to, func(n *model.Node, _ int, _ *model.Node, _ int) bool {
		if n.IsTextblock() {
			visit(n)
			return false
		}
		return true
	})
	return all && found, found
}
