package command

import (
	"github.com/slekup/big-brain/internal/engine/catalog"
	"github.com/slekup/big-brain/internal/engine/cursor"
	"github.com/slekup/big-brain/internal/engine/model"
	"github.com/slekup/big-brain/internal/engine/transform"
)

func registerTables(r *Registry) {
	r.Register("insertTable", insertTable)
	r.Register("deleteTable", deleteTable)
	r.Register("addRowBefore", addRow(false))
	r.Register("addRowAfter", addRow(true))
	r.Register("deleteRow", deleteRow)
	r.Register("addColumnBefore", addColumn(false))
	r.Register("addColumnAfter", addColumn(true))
	r.Register("deleteColumn", deleteColumn)
}

// tableAt locates the cell holding the selection start.
type tableAt struct {
	rp       *model.ResolvedPos
	depth    int
	row, col int
}

func (c tableAt) table() *model.Node { return c.rp.Node(c.depth) }

// rowPos returns the position before row i.
func (c tableAt) rowPos(i int) int { return c.rp.PosAtIndex(i, c.depth) }

// cellPos returns the position before cell j of row i.
func (c tableAt) cellPos(i, j int) int {
	pos := c.rowPos(i) + 1
	row := c.table().Child(i)
	for k := 0; k < j && k < row.ChildCount(); k++ {
		pos += row.Child(k).NodeSize()
	}
	return pos
}

func findTable(tx *transform.Transaction) (tableAt, error) {
	t, err := nodeType(tx, "table")
	if err != nil {
		return tableAt{}, err
	}
	rp, err := model.Resolve(tx.Doc(), tx.Selection().From())
	if err != nil {
		return tableAt{}, err
	}
	d := rp.Ancestor(ofType(t))
	if d <= 0 || rp.Depth < d+2 {
		return tableAt{}, refuse("not in a table")
	}
	return tableAt{rp: rp, depth: d, row: rp.Index(d), col: rp.Index(d + 1)}, nil
}

// enterTextblock moves pos down into the first textblock starting there.
func enterTextblock(doc *model.Node, pos int) int {
	for {
		rp, err := model.Resolve(doc, pos)
		if err != nil {
			return pos
		}
		n := rp.NodeAfter()
		if n == nil || n.IsInline() || n.IsAtom() {
			return pos
		}
		pos++
		if n.IsTextblock() {
			return pos
		}
	}
}

func newCell(t *catalog.NodeType) (*model.Node, error) {
	cell := model.CreateAndFill(t, nil, nil)
	if cell == nil {
		return nil, refuse("cannot create an empty %s", t.Name)
	}
	return cell, nil
}

// insertTable inserts a {rows} by {cols} table whose first row holds
// headers when {withHeaderRow} is set.
func insertTable(tx *transform.Transaction, p Params) error {
	rows, cols := p.Int("rows", 3), p.Int("cols", 3)
	if rows < 1 || cols < 1 {
		return refuse("a table needs at least one row and one column")
	}
	tt, err := nodeType(tx, "table")
	if err != nil {
		return err
	}
	rt, err := nodeType(tx, "tableRow")
	if err != nil {
		return err
	}
	ct, err := nodeType(tx, "tableCell")
	if err != nil {
		return err
	}
	ht, err := nodeType(tx, "tableHeader")
	if err != nil {
		return err
	}
	cell, err := newCell(ct)
	if err != nil {
		return err
	}
	header, err := newCell(ht)
	if err != nil {
		return err
	}

	withHeader := p.Bool("withHeaderRow", true)
	content := make([]*model.Node, rows)
	for i := range content {
		c := cell
		if i == 0 && withHeader {
			c = header
		}
		cells := make([]*model.Node, cols)
		for j := range cells {
			cells[j] = c
		}
		content[i] = model.NewNode(rt, nil, cells)
	}
	table, err := model.Create(tt, nil, content)
	if err != nil {
		return err
	}

	tx.SetKind(transform.KindStructure)
	at, err := insertBlocks(tx, []*model.Node{table})
	if err != nil {
		return err
	}
	tx.SetSelection(cursor.At(enterTextblock(tx.Doc(), at)))
	return nil
}

func removeTable(tx *transform.Transaction, c tableAt) error {
	from, to := c.rp.Before(c.depth), c.rp.After(c.depth)
	parent := c.rp.Node(c.depth - 1)
	index := c.rp.Index(c.depth - 1)
	var fill []*model.Node
	if !fitsReplacing(parent, index, index+1, nil) {
		p, err := nodeType(tx, "paragraph")
		if err != nil {
			return err
		}
		fill = []*model.Node{model.NewNode(p, nil, nil)}
		if !fitsReplacing(parent, index, index+1, fill) {
			return refuse("cannot remove the table from %s", parent.Type().Name)
		}
	}
	tx.SetKind(transform.KindStructure)
	if err := tx.Replace(from, to, fill...); err != nil {
		return err
	}
	tx.SetSelection(cursor.At(enterTextblock(tx.Doc(), from)))
	return nil
}

func deleteTable(tx *transform.Transaction, _ Params) error {
	c, err := findTable(tx)
	if err != nil {
		return err
	}
	return removeTable(tx, c)
}

// addRow inserts an empty row above or below the current one, with as many
// cells as the current row.
func addRow(after bool) Func {
	return func(tx *transform.Transaction, _ Params) error {
		c, err := findTable(tx)
		if err != nil {
			return err
		}
		rt, err := nodeType(tx, "tableRow")
		if err != nil {
			return err
		}
		ct, err := nodeType(tx, "tableCell")
		if err != nil {
			return err
		}
		cell, err := newCell(ct)
		if err != nil {
			return err
		}
		width := c.table().Child(c.row).ChildCount()
		cells := make([]*model.Node, width)
		for i := range cells {
			cells[i] = cell
		}
		at := c.row
		if after {
			at++
		}
		pos := c.rowPos(at)
		tx.SetKind(transform.KindStructure)
		return tx.Replace(pos, pos, model.NewNode(rt, nil, cells))
	}
}

// deleteRow removes the current row. Removing the last row removes the
// table.
func deleteRow(tx *transform.Transaction, _ Params) error {
	c, err := findTable(tx)
	if err != nil {
		return err
	}
	if c.table().ChildCount() == 1 {
		return removeTable(tx, c)
	}
	tx.SetKind(transform.KindStructure)
	if err := tx.Replace(c.rowPos(c.row), c.rowPos(c.row+1)); err != nil {
		return err
	}
	next, err := model.Resolve(tx.Doc(), c.rp.Start(c.depth))
	if err != nil {
		return err
	}
	row := min(c.row, next.Parent().ChildCount()-1)
	tx.SetSelection(cursor.At(enterTextblock(tx.Doc(), next.PosAtIndex(row, next.Depth))))
	return nil
}

// addColumn inserts an empty cell into every row, before or after the
// current column. Header rows get header cells.
func addColumn(after bool) Func {
	return func(tx *transform.Transaction, _ Params) error {
		c, err := findTable(tx)
		if err != nil {
			return err
		}
		ct, err := nodeType(tx, "tableCell")
		if err != nil {
			return err
		}
		ht, err := nodeType(tx, "tableHeader")
		if err != nil {
			return err
		}
		cell, err := newCell(ct)
		if err != nil {
			return err
		}
		header, err := newCell(ht)
		if err != nil {
			return err
		}
		col := c.col
		if after {
			col++
		}
		tx.SetKind(transform.KindStructure)
		table := c.table()
		for i := table.ChildCount() - 1; i >= 0; i-- {
			row := table.Child(i)
			at := min(col, row.ChildCount())
			n := cell
			if ref := row.MaybeChild(min(c.col, row.ChildCount()-1)); ref != nil && ref.Type() == ht {
				n = header
			}
			pos := c.cellPos(i, at)
			if err := tx.Replace(pos, pos, n); err != nil {
				return err
			}
		}
		return nil
	}
}

// deleteColumn removes the current column from every row. Removing the
// only column removes the table.
func deleteColumn(tx *transform.Transaction, _ Params) error {
	c, err := findTable(tx)
	if err != nil {
		return err
	}
	table := c.table()
	wide := false
	for _, row := range table.Content() {
		if row.ChildCount() > 1 {
			wide = true
			break
		}
	}
	if !wide {
		return removeTable(tx, c)
	}
	tx.SetKind(transform.KindStructure)
	for i := table.ChildCount() - 1; i >= 0; i-- {
		row := table.Child(i)
		if c.col >= row.ChildCount() {
			continue
		}
		from := c.cellPos(i, c.col)
		if err := tx.Replace(from, from+row.Child(c.col).NodeSize()); err != nil {
			return err
		}
	}

	next, err := model.Resolve(tx.Doc(), c.rp.Start(c.depth))
	if err != nil {
		return err
	}
	row := next.Parent().Child(c.row)
	pos := next.PosAtIndex(c.row, next.Depth) + 1
	for k := 0; k < min(c.col, row.ChildCount()-1); k++ {
		pos += row.Child(k).NodeSize()
	}
	tx.SetSelection(cursor.At(enterTextblock(tx.Doc(), pos)))
	return nil
}
