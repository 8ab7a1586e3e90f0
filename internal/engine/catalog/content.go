package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ContentExpr is a compiled content expression.
type ContentExpr struct {
	source string
	states [][]nfaEdge
	start  int
	accept int
	inline bool
}

// nfaEdge is a transition; a nil typ is an epsilon move.
type nfaEdge struct {
	typ *NodeType
	to  int
}

// String returns the source expression.
func (c *ContentExpr) String() string { return c.source }

// IsEmpty reports whether the expression admits no children at all.
func (c *ContentExpr) IsEmpty() bool {
	for _, edges := range c.states {
		for _, e := range edges {
			if e.typ != nil {
				return false
			}
		}
	}
	return true
}

// InlineContent reports whether the expression admits inline nodes.
func (c *ContentExpr) InlineContent() bool { return c.inline }

// Allows reports whether t may appear anywhere in the content.
func (c *ContentExpr) Allows(t *NodeType) bool {
	for _, edges := range c.states {
		for _, e := range edges {
			if e.typ == t {
				return true
			}
		}
	}
	return false
}

// Matches reports whether the full sequence is legal.
func (c *ContentExpr) Matches(types []*NodeType) bool {
	m, ok := c.Start().AdvanceAll(types)
	return ok && m.ValidEnd()
}

// Start returns the match state before any child.
func (c *ContentExpr) Start() Match {
	set := make([]bool, len(c.states))
	set[c.start] = true
	return Match{expr: c, set: c.closure(set)}
}

func (c *ContentExpr) closure(set []bool) []bool {
	stack := make([]int, 0, len(set))
	for i, in := range set {
		if in {
			stack = append(stack, i)
		}
	}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range c.states[s] {
			if e.typ == nil && !set[e.to] {
				set[e.to] = true
				stack = append(stack, e.to)
			}
		}
	}
	return set
}

// Match is a position inside a content expression.
type Match struct {
	expr *ContentExpr
	set  []bool
}

// Advance consumes one child of type t.
func (m Match) Advance(t *NodeType) (Match, bool) {
	next := make([]bool, len(m.set))
	moved := false
	for s, in := range m.set {
		if !in {
			continue
		}
		for _, e := range m.expr.states[s] {
			if e.typ == t {
				next[e.to] = true
				moved = true
			}
		}
	}
	if !moved {
		return Match{}, false
	}
	return Match{expr: m.expr, set: m.expr.closure(next)}, true
}

// AdvanceAll consumes every type in order.
func (m Match) AdvanceAll(types []*NodeType) (Match, bool) {
	cur := m
	for _, t := range types {
		var ok bool
		if cur, ok = cur.Advance(t); !ok {
			return Match{}, false
		}
	}
	return cur, true
}

// ValidEnd reports whether the content may end here.
func (m Match) ValidEnd() bool {
	return m.expr != nil && m.set[m.expr.accept]
}

// Next returns the distinct types that may follow, in declaration order.
func (m Match) Next() []*NodeType {
	var out []*NodeType
	seen := map[*NodeType]bool{}
	for s, in := range m.set {
		if !in {
			continue
		}
		for _, e := range m.expr.states[s] {
			if e.typ != nil && !seen[e.typ] {
				seen[e.typ] = true
				out = append(out, e.typ)
			}
		}
	}
	return out
}

// DefaultType returns the first creatable, non-text type that may follow.
func (m Match) DefaultType() *NodeType {
	for _, t := range m.Next() {
		if !t.IsText() && t.CanCreateWithDefaults() {
			return t
		}
	}
	return nil
}

// Fill returns the shortest sequence of creatable types that brings the
// match to a valid end, followed by after. It reports false when none exists.
func (m Match) Fill(after []*NodeType) ([]*NodeType, bool) {
	type item struct {
		set  []bool
		path []*NodeType
	}
	key := func(set []bool) string {
		var b strings.Builder
		for i, in := range set {
			if in {
				b.WriteString(strconv.Itoa(i))
				b.WriteByte(',')
			}
		}
		return b.String()
	}
	queue := []item{{set: m.set}}
	seen := map[string]bool{key(m.set): true}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		trial := Match{expr: m.expr, set: cur.set}
		if end, ok := trial.AdvanceAll(after); ok && end.ValidEnd() {
			return cur.path, true
		}
		for _, t := range trial.Next() {
			if t.IsText() || !t.CanCreateWithDefaults() {
				continue
			}
			nm, _ := trial.Advance(t)
			k := key(nm.set)
			if seen[k] {
				continue
			}
			seen[k] = true
			path := append(append([]*NodeType(nil), cur.path...), t)
			queue = append(queue, item{set: nm.set, path: path})
		}
	}
	return nil, false
}

// --- parsing ---------------------------------------------------------------

type exprKind int

const (
	exprName exprKind = iota
	exprSeq
	exprChoice
	exprRange
)

type expr struct {
	kind     exprKind
	types    []*NodeType
	children []*expr
	min, max int // max < 0 means unbounded
}

type exprParser struct {
	src    string
	tokens []string
	pos    int
	lookup func(name string) ([]*NodeType, bool)
}

func tokenize(src string) []string {
	var out []string
	runes := []rune(src)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			j := i
			for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_') {
				j++
			}
			out = append(out, string(runes[i:j]))
			i = j
		default:
			out = append(out, string(r))
			i++
		}
	}
	return out
}

func (p *exprParser) peek() string {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return ""
}

func (p *exprParser) eat(tok string) bool {
	if p.peek() == tok {
		p.pos++
		return true
	}
	return false
}

func (p *exprParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%s (in content expression %q)", fmt.Sprintf(format, args...), p.src)
}

func (p *exprParser) parseChoice() (*expr, error) {
	first, err := p.parseSeq()
	if err != nil {
		return nil, err
	}
	exprs := []*expr{first}
	for p.eat("|") {
		next, err := p.parseSeq()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, next)
	}
	if len(exprs) == 1 {
		return first, nil
	}
	return &expr{kind: exprChoice, children: exprs}, nil
}

func (p *exprParser) parseSeq() (*expr, error) {
	var exprs []*expr
	for {
		tok := p.peek()
		if tok == "" || tok == ")" || tok == "|" {
			break
		}
		e, err := p.parseSubscript()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	if len(exprs) == 0 {
		return nil, p.errorf("empty sequence")
	}
	if len(exprs) == 1 {
		return exprs[0], nil
	}
	return &expr{kind: exprSeq, children: exprs}, nil
}

func (p *exprParser) parseSubscript() (*expr, error) {
	e, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.eat("+"):
			e = &expr{kind: exprRange, children: []*expr{e}, min: 1, max: -1}
		case p.eat("*"):
			e = &expr{kind: exprRange, children: []*expr{e}, min: 0, max: -1}
		case p.eat("?"):
			e = &expr{kind: exprRange, children: []*expr{e}, min: 0, max: 1}
		case p.eat("{"):
			if e, err = p.parseRange(e); err != nil {
				return nil, err
			}
		default:
			return e, nil
		}
	}
}

func (p *exprParser) parseNum() (int, error) {
	tok := p.peek()
	n, err := strconv.Atoi(tok)
	if err != nil || n < 0 {
		return 0, p.errorf("expected number, got %q", tok)
	}
	p.pos++
	return n, nil
}

func (p *exprParser) parseRange(e *expr) (*expr, error) {
	min, err := p.parseNum()
	if err != nil {
		return nil, err
	}
	max := min
	if p.eat(",") {
		if p.peek() == "}" {
			max = -1
		} else if max, err = p.parseNum(); err != nil {
			return nil, err
		}
	}
	if !p.eat("}") {
		return nil, p.errorf("unclosed braced range")
	}
	if max >= 0 && max < min {
		return nil, p.errorf("range maximum %d below minimum %d", max, min)
	}
	return &expr{kind: exprRange, children: []*expr{e}, min: min, max: max}, nil
}

func (p *exprParser) parseAtom() (*expr, error) {
	if p.eat("(") {
		e, err := p.parseChoice()
		if err != nil {
			return nil, err
		}
		if !p.eat(")") {
			return nil, p.errorf("missing closing paren")
		}
		return e, nil
	}
	tok := p.peek()
	if tok == "" || !(unicode.IsLetter([]rune(tok)[0]) || tok[0] == '_') {
		return nil, p.errorf("unexpected token %q", tok)
	}
	types, ok := p.lookup(tok)
	if !ok {
		return nil, p.errorf("no node type or group %q", tok)
	}
	p.pos++
	return &expr{kind: exprName, types: types}, nil
}

// --- NFA construction ------------------------------------------------------

type nfaBuilder struct {
	states [][]nfaEdge
}

func (b *nfaBuilder) node() int {
	b.states = append(b.states, nil)
	return len(b.states) - 1
}

func (b *nfaBuilder) edge(from, to int, t *NodeType) {
	b.states[from] = append(b.states[from], nfaEdge{typ: t, to: to})
}

// compile wires e starting at from and returns its end state.
func (b *nfaBuilder) compile(e *expr, from int) int {
	switch e.kind {
	case exprName:
		to := b.node()
		for _, t := range e.types {
			b.edge(from, to, t)
		}
		return to
	case exprSeq:
		cur := from
		for _, c := range e.children {
			cur = b.compile(c, cur)
		}
		return cur
	case exprChoice:
		to := b.node()
		for _, c := range e.children {
			b.edge(b.compile(c, from), to, nil)
		}
		return to
	default:
		inner := e.children[0]
		cur := from
		for i := 0; i < e.min; i++ {
			cur = b.compile(inner, cur)
		}
		if e.max < 0 {
			loop := b.node()
			b.edge(cur, loop, nil)
			b.edge(b.compile(inner, loop), loop, nil)
			return loop
		}
		for i := e.min; i < e.max; i++ {
			next := b.node()
			b.edge(cur, next, nil)
			b.edge(b.compile(inner, cur), next, nil)
			cur = next
		}
		return cur
	}
}

// compileContent parses and compiles src. lookup resolves a name to the
// node types it stands for (a single type or every member of a group).
func compileContent(src string, lookup func(string) ([]*NodeType, bool)) (*ContentExpr, error) {
	b := &nfaBuilder{}
	start := b.node()
	c := &ContentExpr{source: src, start: start, accept: start}

	tokens := tokenize(src)
	if len(tokens) > 0 {
		p := &exprParser{src: src, tokens: tokens, lookup: lookup}
		e, err := p.parseChoice()
		if err != nil {
			return nil, err
		}
		if p.pos != len(tokens) {
			return nil, p.errorf("unexpected token %q", p.peek())
		}
		c.accept = b.compile(e, start)
	}
	c.states = b.states
	for _, edges := range c.states {
		for _, e := range edges {
			if e.typ != nil && e.typ.Inline {
				c.inline = true
			}
		}
	}
	return c, nil
}
