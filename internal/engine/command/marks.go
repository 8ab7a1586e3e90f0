package command

import (
	"github.com/slekup/big-brain/internal/engine/catalog"
	"github.com/slekup/big-brain/internal/engine/cursor"
	"github.com/slekup/big-brain/internal/engine/model"
	"github.com/slekup/big-brain/internal/engine/transform"
)

func registerMarks(r *Registry) {
	for cmd, mark := range map[string]string{
		"toggleBold":        "bold",
		"toggleItalic":      "italic",
		"toggleStrike":      "strike",
		"toggleUnderline":   "underline",
		"toggleCode":        "code",
		"toggleSubscript":   "subscript",
		"toggleSuperscript": "superscript",
	} {
		r.Register(cmd, toggleNamed(mark))
	}
	r.Register("setColor", setColor)
	r.Register("unsetColor", unsetColor)
	r.Register("toggleHighlight", toggleHighlight)
	r.Register("setLink", setLink)
	r.Register("unsetLink", unsetLink)

	r.RegisterCore("toggleMark", toggleMarkCmd)
	r.RegisterCore("setMark", setMarkCmd)
	r.RegisterCore("unsetMark", unsetMarkCmd)
	r.RegisterCore("extendMarkRange", extendMarkRangeCmd)
	r.RegisterCore("unsetAllMarks", unsetAllMarks)
}

// explicitNone is a stored mark set that suppresses the marks at the cursor.
var explicitNone = []*model.Mark{}

// cursorMarks returns the stored marks, or the marks at the cursor.
func cursorMarks(tx *transform.Transaction, rp *model.ResolvedPos) []*model.Mark {
	if marks := tx.StoredMarks(); marks != nil {
		return marks
	}
	return rp.Marks()
}

func newMark(mt *catalog.MarkType, attrs map[string]any) (*model.Mark, error) {
	m, err := model.CreateMark(mt, attrs)
	if err != nil {
		return nil, &Refusal{Reason: "invalid " + mt.Name + " attributes", Err: err}
	}
	return m, nil
}

// rangeHasMark reports whether all text in [from, to) that may carry mt
// carries it, and whether any such text exists. With want set, the mark
// must also have want's attributes.
func rangeHasMark(doc *model.Node, from, to int, mt *catalog.MarkType, want *model.Mark) (all, found bool) {
	all = true
	doc.NodesBetween(from, to, func(n *model.Node, _ int, parent *model.Node, _ int) bool {
		if !n.IsText() || !parent.Type().AllowsMark(mt) {
			return true
		}
		found = true
		m := model.FindMark(n.Marks(), mt)
		if m == nil || (want != nil && !m.Eq(want)) {
			all = false
		}
		return true
	})
	return all && found, found
}

// markRange finds the extent of the mark of type mt around pos inside its
// textblock.
func markRange(doc *model.Node, pos int, mt *catalog.MarkType) (from, to int, ok bool) {
	rp, err := model.Resolve(doc, pos)
	if err != nil || !rp.Parent().IsTextblock() {
		return 0, 0, false
	}
	parent := rp.Parent()
	i := rp.Index(rp.Depth)
	var m *model.Mark
	if i < parent.ChildCount() {
		m = model.FindMark(parent.Child(i).Marks(), mt)
	}
	if m == nil && rp.TextOffset() == 0 && i > 0 {
		i--
		m = model.FindMark(parent.Child(i).Marks(), mt)
	}
	if m == nil {
		return 0, 0, false
	}
	lo, hi := i, i+1
	for lo > 0 && m.IsInSet(parent.Child(lo-1).Marks()) {
		lo--
	}
	for hi < parent.ChildCount() && m.IsInSet(parent.Child(hi).Marks()) {
		hi++
	}
	return rp.PosAtIndex(lo, rp.Depth), rp.PosAtIndex(hi, rp.Depth), true
}

// storedTarget resolves the cursor for a stored-mark change and checks
// that its textblock accepts mt.
func storedTarget(tx *transform.Transaction, mt *catalog.MarkType) (*model.ResolvedPos, error) {
	rp, err := model.Resolve(tx.Doc(), tx.Selection().Head)
	if err != nil {
		return nil, err
	}
	d := textblockAt(rp)
	if d < 0 || !rp.Node(d).Type().AllowsMark(mt) {
		return nil, refuse("%s is not allowed here", mt.Name)
	}
	return rp, nil
}

func removeType(set []*model.Mark, mt *catalog.MarkType) []*model.Mark {
	if m := model.FindMark(set, mt); m != nil {
		set = m.RemoveFromSet(set)
	}
	if set == nil {
		return explicitNone
	}
	return set
}

// toggleMark removes mark from a fully marked selection and adds it
// otherwise. An empty selection toggles the stored marks.
func toggleMark(tx *transform.Transaction, mark *model.Mark, matchAttrs bool) error {
	mt := mark.Type()
	from, to := selectionRange(tx)
	var want *model.Mark
	if matchAttrs {
		want = mark
	}
	if from == to {
		rp, err := storedTarget(tx, mt)
		if err != nil {
			return err
		}
		marks := cursorMarks(tx, rp)
		if m := model.FindMark(marks, mt); m != nil && (want == nil || m.Eq(want)) {
			tx.SetStoredMarks(removeType(marks, mt))
		} else {
			tx.SetStoredMarks(mark.AddToSet(marks))
		}
		return nil
	}
	all, found := rangeHasMark(tx.Doc(), from, to, mt, want)
	if !found {
		return refuse("no text in the selection accepts %s", mt.Name)
	}
	tx.SetKind(transform.KindFormat)
	if all {
		return tx.RemoveMark(from, to, mt)
	}
	return tx.AddMark(from, to, mark)
}

// setMark adds mark over the selection, or to the stored marks.
func setMark(tx *transform.Transaction, mark *model.Mark) error {
	from, to := selectionRange(tx)
	if from == to {
		rp, err := storedTarget(tx, mark.Type())
		if err != nil {
			return err
		}
		tx.SetStoredMarks(mark.AddToSet(cursorMarks(tx, rp)))
		return nil
	}
	if _, found := rangeHasMark(tx.Doc(), from, to, mark.Type(), nil); !found {
		return refuse("no text in the selection accepts %s", mark.Type().Name)
	}
	tx.SetKind(transform.KindFormat)
	return tx.AddMark(from, to, mark)
}

// unsetMark removes marks of type mt from the selection. With extend set,
// an empty selection inside such a mark clears the whole marked range.
func unsetMark(tx *transform.Transaction, mt *catalog.MarkType, extend bool) error {
	from, to := selectionRange(tx)
	if from == to && extend {
		if lo, hi, ok := markRange(tx.Doc(), from, mt); ok {
			from, to = lo, hi
		}
	}
	if from == to {
		rp, err := model.Resolve(tx.Doc(), from)
		if err != nil {
			return err
		}
		tx.SetStoredMarks(removeType(cursorMarks(tx, rp), mt))
		return nil
	}
	tx.SetKind(transform.KindFormat)
	return tx.RemoveMark(from, to, mt)
}

func toggleNamed(name string) Func {
	return func(tx *transform.Transaction, _ Params) error {
		mt, err := markType(tx, name)
		if err != nil {
			return err
		}
		mark, err := newMark(mt, nil)
		if err != nil {
			return err
		}
		return toggleMark(tx, mark, false)
	}
}

func markParam(tx *transform.Transaction, p Params) (*catalog.MarkType, error) {
	name := p.String("type")
	if name == "" {
		return nil, refuse("missing mark type")
	}
	return markType(tx, name)
}

// toggleMarkCmd toggles {type, attrs}.
func toggleMarkCmd(tx *transform.Transaction, p Params) error {
	mt, err := markParam(tx, p)
	if err != nil {
		return err
	}
	attrs := p.Map("attrs")
	mark, err := newMark(mt, attrs)
	if err != nil {
		return err
	}
	return toggleMark(tx, mark, len(attrs) > 0)
}

func setMarkCmd(tx *transform.Transaction, p Params) error {
	mt, err := markParam(tx, p)
	if err != nil {
		return err
	}
	mark, err := newMark(mt, p.Map("attrs"))
	if err != nil {
		return err
	}
	return setMark(tx, mark)
}

func unsetMarkCmd(tx *transform.Transaction, p Params) error {
	mt, err := markParam(tx, p)
	if err != nil {
		return err
	}
	return unsetMark(tx, mt, p.Bool("extendEmptyMarkRange", false))
}

// extendMarkRangeCmd selects the whole range of the mark around the cursor.
func extendMarkRangeCmd(tx *transform.Transaction, p Params) error {
	mt, err := markParam(tx, p)
	if err != nil {
		return err
	}
	from, to, ok := markRange(tx.Doc(), tx.Selection().From(), mt)
	if !ok {
		return refuse("no %s at the cursor", mt.Name)
	}
	tx.SetSelection(cursor.Range(from, to))
	return nil
}

func unsetAllMarks(tx *transform.Transaction, _ Params) error {
	from, to := selectionRange(tx)
	if from == to {
		tx.SetStoredMarks(explicitNone)
		return nil
	}
	tx.SetKind(transform.KindFormat)
	return tx.RemoveMark(from, to, nil)
}

func setColor(tx *transform.Transaction, p Params) error {
	color := p.String("color")
	if color == "" {
		return refuse("missing color")
	}
	mt, err := markType(tx, "textStyle")
	if err != nil {
		return err
	}
	mark, err := newMark(mt, map[string]any{"color": color})
	if err != nil {
		return err
	}
	return setMark(tx, mark)
}

func unsetColor(tx *transform.Transaction, _ Params) error {
	mt, err := markType(tx, "textStyle")
	if err != nil {
		return err
	}
	return unsetMark(tx, mt, false)
}

func toggleHighlight(tx *transform.Transaction, p Params) error {
	mt, err := markType(tx, "highlight")
	if err != nil {
		return err
	}
	var attrs map[string]any
	if c := p.String("color"); c != "" {
		attrs = map[string]any{"color": c}
	}
	mark, err := newMark(mt, attrs)
	if err != nil {
		return err
	}
	return toggleMark(tx, mark, attrs != nil)
}

// setLink marks the selection as a link to href. Scheme-less input gets
// the default protocol; an unusable URI refuses the command. An empty href
// removes the link. A cursor inside a link retargets the whole link.
func setLink(tx *transform.Transaction, p Params) error {
	raw := p.String("href")
	if raw == "" {
		return unsetLink(tx, p)
	}
	href, err := catalog.NormalizeURI(raw)
	if err != nil {
		return &Refusal{Reason: "invalid link target", Err: err}
	}
	mt, err := markType(tx, "link")
	if err != nil {
		return err
	}
	attrs := map[string]any{"href": href}
	for _, key := range []string{"target", "rel", "class"} {
		if v := p.String(key); v != "" {
			attrs[key] = v
		}
	}
	mark, err := newMark(mt, attrs)
	if err != nil {
		return err
	}
	from, to := selectionRange(tx)
	if from == to {
		if lo, hi, ok := markRange(tx.Doc(), from, mt); ok {
			tx.SetKind(transform.KindFormat)
			return tx.AddMark(lo, hi, mark)
		}
	}
	return setMark(tx, mark)
}

func unsetLink(tx *transform.Transaction, _ Params) error {
	mt, err := markType(tx, "link")
	if err != nil {
		return err
	}
	from, to := selectionRange(tx)
	if from == to {
		if _, _, ok := markRange(tx.Doc(), from, mt); !ok {
			return refuse("no link at the cursor")
		}
	}
	return unsetMark(tx, mt, true)
}
