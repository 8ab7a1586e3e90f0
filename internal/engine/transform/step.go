package transform

import (
	"fmt"

	"github.com/slekup/big-brain/internal/engine/catalog"
	"github.com/slekup/big-brain/internal/engine/model"
)

// Step is a primitive, invertible document change.
type Step interface {
	// Apply returns the changed document or a *StepError.
	Apply(doc *model.Node) (*model.Node, error)
	// Invert returns the step that undoes this one. before is the document
	// this step was applied to.
	Invert(before *model.Node) Step
	// Map returns the position map of the step.
	Map() StepMap
	String() string
}

// rebuild replaces the ancestor at depth of rp by node and returns the new root.
func rebuild(rp *model.ResolvedPos, depth int, node *model.Node) *model.Node {
	for d := depth - 1; d >= 0; d-- {
		node = rp.Node(d).ReplaceChild(rp.Index(d), node)
	}
	return node
}

func resolve(s Step, doc *model.Node, pos int) (*model.ResolvedPos, error) {
	rp, err := model.Resolve(doc, pos)
	if err != nil {
		return nil, fail(s, "%v", err)
	}
	return rp, nil
}

// ---------------------------------------------------------------------------
// ReplaceStep

// ReplaceStep replaces the range [From, To) with Content. Both ends must
// point into the same parent node; Content holds children for that parent.
type ReplaceStep struct {
	From, To int
	Content  []*model.Node
}

// Apply implements Step.
func (s *ReplaceStep) Apply(doc *model.Node) (*model.Node, error) {
	if s.From > s.To {
		return nil, fail(s, "inverted range")
	}
	rf, err := resolve(s, doc, s.From)
	if err != nil {
		return nil, err
	}
	rt, err := resolve(s, doc, s.To)
	if err != nil {
		return nil, err
	}
	if !rf.SameParent(rt) {
		return nil, fail(s, "range spans more than one parent")
	}
	parent := rf.Parent()
	start := rf.Start(rf.Depth)
	kids := parent.Content()
	content := model.JoinFragments(
		model.CutFragment(kids, 0, s.From-start),
		s.Content,
		model.CutFragment(kids, s.To-start, parent.ContentSize()),
	)
	return rebuild(rf, rf.Depth, parent.Copy(content)), nil
}

// Invert implements Step.
func (s *ReplaceStep) Invert(before *model.Node) Step {
	rf := model.MustResolve(before, s.From)
	start := rf.Start(rf.Depth)
	removed := model.CutFragment(rf.Parent().Content(), s.From-start, s.To-start)
	return &ReplaceStep{From: s.From, To: s.From + model.FragmentSize(s.Content), Content: removed}
}

// Map implements Step.
func (s *ReplaceStep) Map() StepMap {
	return NewStepMap(s.From, s.To-s.From, model.FragmentSize(s.Content))
}

func (s *ReplaceStep) String() string {
	return fmt.Sprintf("replace(%d,%d,%v)", s.From, s.To, s.Content)
}

// ---------------------------------------------------------------------------
// Mark steps

// mapText rebuilds n with fn applied to every text slice inside the content
// range [from, to).
func mapText(n *model.Node, from, to int, fn func(parent, text *model.Node) (*model.Node, error)) (*model.Node, error) {
	var out []*model.Node
	pos := 0
	for _, c := range n.Content() {
		end := pos + c.NodeSize()
		switch {
		case end <= from || pos >= to:
			out = append(out, c)
		case c.IsText():
			s, e := max(from, pos)-pos, min(to, end)-pos
			mid, err := fn(n, c.Cut(s, e))
			if err != nil {
				return nil, err
			}
			if s > 0 {
				out = append(out, c.Cut(0, s))
			}
			out = append(out, mid)
			if e < c.NodeSize() {
				out = append(out, c.Cut(e, c.NodeSize()))
			}
		case c.ContentSize() > 0:
			nc, err := mapText(c, max(0, from-pos-1), min(c.ContentSize(), to-pos-1), fn)
			if err != nil {
				return nil, err
			}
			out = append(out, nc)
		default:
			out = append(out, c)
		}
		pos = end
	}
	return n.Copy(model.JoinFragments(out)), nil
}

func checkRange(s Step, doc *model.Node, from, to int) error {
	if from < 0 || to > doc.ContentSize() || from > to {
		return fail(s, "range %d..%d outside 0..%d", from, to, doc.ContentSize())
	}
	return nil
}

// AddMarkStep adds Mark to all text in [From, To) whose parent allows it.
// No affected text may already carry a mark that Mark excludes.
type AddMarkStep struct {
	From, To int
	Mark     *model.Mark
}

// Apply implements Step.
func (s *AddMarkStep) Apply(doc *model.Node) (*model.Node, error) {
	if err := checkRange(s, doc, s.From, s.To); err != nil {
		return nil, err
	}
	mt := s.Mark.Type()
	return mapText(doc, s.From, s.To, func(parent, text *model.Node) (*model.Node, error) {
		if !parent.Type().AllowsMark(mt) {
			return text, nil
		}
		for _, m := range text.Marks() {
			if mt.Excludes(m.Type()) {
				return nil, fail(s, "text already carries %s", m)
			}
		}
		return text.WithMarks(s.Mark.AddToSet(text.Marks())), nil
	})
}

// Invert implements Step.
func (s *AddMarkStep) Invert(*model.Node) Step {
	return &RemoveMarkStep{From: s.From, To: s.To, Mark: s.Mark}
}

// Map implements Step.
func (s *AddMarkStep) Map() StepMap { return EmptyMap }

func (s *AddMarkStep) String() string {
	return fmt.Sprintf("addMark(%d,%d,%s)", s.From, s.To, s.Mark)
}

// RemoveMarkStep removes Mark from all text in [From, To) whose parent
// allows it. All such text must carry an equal mark.
type RemoveMarkStep struct {
	From, To int
	Mark     *model.Mark
}

// Apply implements Step.
func (s *RemoveMarkStep) Apply(doc *model.Node) (*model.Node, error) {
	if err := checkRange(s, doc, s.From, s.To); err != nil {
		return nil, err
	}
	mt := s.Mark.Type()
	return mapText(doc, s.From, s.To, func(parent, text *model.Node) (*model.Node, error) {
		if !parent.Type().AllowsMark(mt) {
			return text, nil
		}
		if !s.Mark.IsInSet(text.Marks()) {
			return nil, fail(s, "text %q does not carry %s", text.Text(), s.Mark)
		}
		return text.WithMarks(s.Mark.RemoveFromSet(text.Marks())), nil
	})
}

// Invert implements Step.
func (s *RemoveMarkStep) Invert(*model.Node) Step {
	return &AddMarkStep{From: s.From, To: s.To, Mark: s.Mark}
}

// Map implements Step.
func (s *RemoveMarkStep) Map() StepMap { return EmptyMap }

func (s *RemoveMarkStep) String() string {
	return fmt.Sprintf("removeMark(%d,%d,%s)", s.From, s.To, s.Mark)
}

// ---------------------------------------------------------------------------
// Split and join

// NodeSpec names a node type and its attributes.
type NodeSpec struct {
	Type  *catalog.NodeType
	Attrs map[string]any
}

// SplitStep splits the Depth innermost ancestors of Pos in two. Types gives
// the markup of the new right-hand nodes, innermost first; missing or nil
// entries copy the node being split.
type SplitStep struct {
	Pos   int
	Depth int
	Types []NodeSpec
}

func (s *SplitStep) after(level int, orig *model.Node, content []*model.Node) *model.Node {
	if level < len(s.Types) && s.Types[level].Type != nil {
		return model.NewNode(s.Types[level].Type, s.Types[level].Attrs, content)
	}
	return orig.Copy(content)
}

// Apply implements Step.
func (s *SplitStep) Apply(doc *model.Node) (*model.Node, error) {
	rp, err := resolve(s, doc, s.Pos)
	if err != nil {
		return nil, err
	}
	if s.Depth < 1 || s.Depth > rp.Depth {
		return nil, fail(s, "cannot split %d levels at depth %d", s.Depth, rp.Depth)
	}
	d := rp.Depth
	parent := rp.Node(d)
	kids := parent.Content()
	left := parent.Copy(model.CutFragment(kids, 0, rp.ParentOffset))
	right := s.after(0, parent, model.CutFragment(kids, rp.ParentOffset, parent.ContentSize()))
	for level := 1; level < s.Depth; level++ {
		d--
		anc := rp.Node(d)
		idx := rp.Index(d)
		ak := anc.Content()
		leftKids := append(append([]*model.Node(nil), ak[:idx]...), left)
		rightKids := append([]*model.Node{right}, ak[idx+1:]...)
		left = anc.Copy(leftKids)
		right = s.after(level, anc, rightKids)
	}
	d--
	anc := rp.Node(d)
	idx := rp.Index(d)
	ak := anc.Content()
	content := make([]*model.Node, 0, len(ak)+1)
	content = append(content, ak[:idx]...)
	content = append(content, left, right)
	content = append(content, ak[idx+1:]...)
	return rebuild(rp, d, anc.Copy(content)), nil
}

// Invert implements Step.
func (s *SplitStep) Invert(*model.Node) Step {
	return &JoinStep{Pos: s.Pos + s.Depth, Depth: s.Depth}
}

// Map implements Step.
func (s *SplitStep) Map() StepMap { return NewStepMap(s.Pos, 0, 2*s.Depth) }

func (s *SplitStep) String() string {
	return fmt.Sprintf("split(%d,%d)", s.Pos, s.Depth)
}

// JoinStep joins the two siblings around Pos, and Depth-1 levels of their
// facing descendants. The joined nodes keep the markup of the left side.
type JoinStep struct {
	Pos   int
	Depth int
}

func (s *JoinStep) siblings(doc *model.Node) (*model.ResolvedPos, int, error) {
	rp, err := resolve(s, doc, s.Pos)
	if err != nil {
		return nil, 0, err
	}
	idx := rp.Index(rp.Depth)
	if rp.TextOffset() != 0 || idx == 0 || idx >= rp.Parent().ChildCount() {
		return nil, 0, fail(s, "no siblings to join")
	}
	return rp, idx, nil
}

func (s *JoinStep) join(a, b *model.Node, depth int) (*model.Node, error) {
	if a.IsText() || b.IsText() || a.IsAtom() || b.IsAtom() {
		return nil, fail(s, "cannot join %s and %s", a.Type().Name, b.Type().Name)
	}
	if depth == 1 {
		return a.Copy(model.JoinFragments(a.Content(), b.Content())), nil
	}
	al, bf := a.LastChild(), b.FirstChild()
	if al == nil || bf == nil {
		return nil, fail(s, "nothing to join below %s", a.Type().Name)
	}
	inner, err := s.join(al, bf, depth-1)
	if err != nil {
		return nil, err
	}
	ak, bk := a.Content(), b.Content()
	return a.Copy(model.JoinFragments(ak[:len(ak)-1], []*model.Node{inner}, bk[1:])), nil
}

// Apply implements Step.
func (s *JoinStep) Apply(doc *model.Node) (*model.Node, error) {
	if s.Depth < 1 {
		return nil, fail(s, "depth must be positive")
	}
	rp, idx, err := s.siblings(doc)
	if err != nil {
		return nil, err
	}
	parent := rp.Parent()
	kids := parent.Content()
	merged, err := s.join(kids[idx-1], kids[idx], s.Depth)
	if err != nil {
		return nil, err
	}
	content := make([]*model.Node, 0, len(kids)-1)
	content = append(content, kids[:idx-1]...)
	content = append(content, merged)
	content = append(content, kids[idx+1:]...)
	return rebuild(rp, rp.Depth, parent.Copy(content)), nil
}

// Invert implements Step.
func (s *JoinStep) Invert(before *model.Node) Step {
	rp := model.MustResolve(before, s.Pos)
	node := rp.Parent().Child(rp.Index(rp.Depth))
	types := make([]NodeSpec, s.Depth)
	for level := s.Depth - 1; level >= 0; level-- {
		types[level] = NodeSpec{Type: node.Type(), Attrs: node.Attrs()}
		if level > 0 {
			node = node.FirstChild()
		}
	}
	return &SplitStep{Pos: s.Pos - s.Depth, Depth: s.Depth, Types: types}
}

// Map implements Step.
func (s *JoinStep) Map() StepMap {
	return NewStepMap(s.Pos-s.Depth, 2*s.Depth, 0)
}

func (s *JoinStep) String() string {
	return fmt.Sprintf("join(%d,%d)", s.Pos, s.Depth)
}

// ---------------------------------------------------------------------------
// SetNodeStep

// SetNodeStep changes the type and attributes of the node starting at Pos,
// keeping its content.
type SetNodeStep struct {
	Pos   int
	Type  *catalog.NodeType
	Attrs map[string]any
}

func (s *SetNodeStep) target(doc *model.Node) (*model.ResolvedPos, *model.Node, error) {
	rp, err := resolve(s, doc, s.Pos)
	if err != nil {
		return nil, nil, err
	}
	node := rp.NodeAfter()
	if node == nil || node.IsText() || rp.TextOffset() != 0 {
		return nil, nil, fail(s, "no node at %d", s.Pos)
	}
	return rp, node, nil
}

// Apply implements Step.
func (s *SetNodeStep) Apply(doc *model.Node) (*model.Node, error) {
	rp, node, err := s.target(doc)
	if err != nil {
		return nil, err
	}
	if s.Type.IsText() || s.Type.IsLeaf() != node.Type().IsLeaf() {
		return nil, fail(s, "cannot turn %s into %s", node.Type().Name, s.Type.Name)
	}
	updated := node.WithMarkup(s.Type, s.Attrs)
	parent := rp.Parent()
	return rebuild(rp, rp.Depth, parent.ReplaceChild(rp.Index(rp.Depth), updated)), nil
}

// Invert implements Step.
func (s *SetNodeStep) Invert(before *model.Node) Step {
	_, node, err := s.target(before)
	if err != nil {
		return s
	}
	return &SetNodeStep{Pos: s.Pos, Type: node.Type(), Attrs: node.Attrs()}
}

// Map implements Step.
func (s *SetNodeStep) Map() StepMap { return EmptyMap }

func (s *SetNodeStep) String() string {
	return fmt.Sprintf("setNode(%d,%s)", s.Pos, s.Type.Name)
}
