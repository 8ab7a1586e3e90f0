package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slekup/big-brain/internal/engine/catalog"
	"github.com/slekup/big-brain/internal/engine/command"
	"github.com/slekup/big-brain/internal/engine/cursor"
	"github.com/slekup/big-brain/internal/engine/guard"
	"github.com/slekup/big-brain/internal/engine/history"
	"github.com/slekup/big-brain/internal/engine/model"
	"github.com/slekup/big-brain/internal/engine/schema"
	"github.com/slekup/big-brain/internal/engine/transform"
	"github.com/slekup/big-brain/internal/engine/wire"
	"github.com/slekup/big-brain/internal/logging"
)

// Names routed to the history instead of the command registry.
const (
	CommandUndo = "undo"
	CommandRedo = "redo"
)

// State is a snapshot of an editor's document state.
type State struct {
	Doc         *model.Node
	Selection   cursor.Selection
	StoredMarks []*model.Mark
	Revision    uint64
	CanUndo     bool
	CanRedo     bool
}

// Change describes a committed document change.
type Change struct {
	ID       ulid.ULID
	Kind     transform.Kind
	Doc      *model.Node
	Revision uint64
}

// Value returns the changed document in serialized form.
func (c Change) Value() *wire.Document { return model.DocToWire(c.Doc) }

// View receives the state after every commit, including selection-only
// ones. A view that also implements Detach is told when it is removed.
type View interface {
	Update(State)
}

type detacher interface {
	Detach()
}

type viewEntry struct {
	id   int
	view View
}

type notice struct {
	state  State
	change *Change
}

// Editor is one editable document instance.
//
// Mutations are serialized. Views and the commit observer run after the
// editor's lock is released, in commit order, on the goroutine that
// committed. They may call back into the editor; a nested commit is
// delivered after the current notification returns.
type Editor struct {
	mu sync.RWMutex

	cat       *catalog.Catalog
	commands  *command.Registry
	validator *schema.Validator
	loader    *schema.Loader
	guard     guard.Guard
	history   *history.History
	logger    *logging.Logger
	now       func() time.Time

	// Document state
	doc      *model.Node
	sel      cursor.Selection
	stored   []*model.Mark
	revision uint64

	// Subscribers
	observer func(Change)
	views    []viewEntry
	nextView int
	pending  []notice
	draining bool

	disposed bool

	// Construction options
	optErr         error
	baseCommands   *command.Registry
	initContent    []byte
	editable       bool
	historyDepth   int
	coalesceWindow time.Duration
	coalesceMaxOps int
}

// New creates an editor for cat. Initial content that fails validation,
// or a catalog contributing commands nobody registered, fails creation.
func New(cat *catalog.Catalog, opts ...Option) (*Editor, error) {
	if cat == nil {
		return nil, &catalog.ConfigError{Field: "catalog", Message: "catalog is required"}
	}
	e := &Editor{
		cat:            cat,
		guard:          guard.New(DefaultLimit, guard.Runes),
		logger:         logging.Nop(),
		now:            time.Now,
		baseCommands:   command.Builtins(),
		editable:       true,
		historyDepth:   DefaultHistoryDepth,
		coalesceWindow: DefaultCoalesceWindow,
		coalesceMaxOps: DefaultCoalesceMaxOps,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.optErr != nil {
		return nil, e.optErr
	}
	if !e.editable {
		return nil, ErrNotEditable
	}
	e.logger = e.logger.WithComponent("engine")

	commands, err := e.baseCommands.Bind(cat)
	if err != nil {
		return nil, err
	}
	e.commands = commands
	e.loader = schema.NewLoader(cat, schema.PolicyReject)
	e.validator = e.loader.Validator()
	e.history = history.New(e.historyDepth)
	e.history.SetCoalescing(e.coalesceWindow, e.coalesceMaxOps)

	e.doc = schema.Empty(cat)
	if len(e.initContent) > 0 {
		doc, _, err := e.loader.Load(e.initContent)
		if err != nil {
			return nil, fmt.Errorf("initial content: %w", err)
		}
		e.doc = doc
	}
	e.sel = startSelection(e.doc)
	e.initContent = nil
	return e, nil
}

// startSelection puts the cursor at the start of the first textblock, or at
// position 0 when there is none.
func startSelection(doc *model.Node) cursor.Selection {
	pos := -1
	doc.Descendants(func(n *model.Node, p int, _ *model.Node, _ int) bool {
		if pos >= 0 {
			return false
		}
		if n.IsTextblock() {
			pos = p + 1
			return false
		}
		return !n.IsAtom()
	})
	if pos < 0 {
		pos = 0
	}
	return cursor.At(pos)
}

// ============================================================================
// Read Operations
// ============================================================================

// Catalog returns the editor's catalog.
func (e *Editor) Catalog() *catalog.Catalog { return e.cat }

// Commands returns the names of the commands this editor accepts.
func (e *Editor) Commands() []string {
	return append(e.commands.List(), CommandUndo, CommandRedo)
}

// State returns the current state.
func (e *Editor) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stateLocked()
}

func (e *Editor) stateLocked() State {
	return State{
		Doc:         e.doc,
		Selection:   e.sel,
		StoredMarks: e.stored,
		Revision:    e.revision,
		CanUndo:     e.history.CanUndo(),
		CanRedo:     e.history.CanRedo(),
	}
}

// Document returns the current document.
func (e *Editor) Document() *model.Node {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.doc
}

// Value returns the current document in serialized form.
func (e *Editor) Value() *wire.Document {
	return model.DocToWire(e.Document())
}

// JSON returns the current document serialized.
func (e *Editor) JSON() ([]byte, error) {
	return wire.Encode(e.Value())
}

// Selection returns the current selection.
func (e *Editor) Selection() cursor.Selection {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sel
}

// Revision returns the number of commits so far, loads included.
func (e *Editor) Revision() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.revision
}

// CharacterCount returns the text length counted the way the limit counts.
func (e *Editor) CharacterCount() int {
	return e.guard.Count(e.Document())
}

// Limit returns the character limit.
func (e *Editor) Limit() int { return e.guard.Limit }

// Remaining returns how many characters fit before the limit.
func (e *Editor) Remaining() int {
	return e.guard.Remaining(e.Document())
}

// IsActive reports whether a node or mark type is active at the selection.
func (e *Editor) IsActive(name string, attrs map[string]any) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return command.IsActive(e.doc, e.sel, e.stored, name, attrs)
}

// MarkAttributes returns the attributes of the named mark at the selection.
func (e *Editor) MarkAttributes(name string) map[string]any {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return command.MarkAttributes(e.doc, e.sel, e.stored, name)
}

// IsDisposed reports whether Dispose has been called.
func (e *Editor) IsDisposed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.disposed
}

// ============================================================================
// Commands
// ============================================================================

// Dispatch runs one command and commits its transaction.
func (e *Editor) Dispatch(name string, params command.Params) error {
	switch name {
	case CommandUndo:
		return e.Undo()
	case CommandRedo:
		return e.Redo()
	}
	return e.Run(command.Invoke(name, params))
}

// Run runs invocations in order on a single transaction. The transaction
// commits only if every invocation succeeds and the result passes
// validation and the character limit.
func (e *Editor) Run(invs ...command.Invocation) error {
	err := e.locked(func() error {
		tx := e.newTransaction()
		if err := e.commands.Chain(tx, invs...); err != nil {
			return err
		}
		return e.commitLocked(tx, true)
	})
	if err != nil {
		e.logRejected(invs, err)
		return err
	}
	e.flush()
	return nil
}

// locked runs fn under the write lock. A panic inside fn becomes
// ErrInternal; fn must not touch editor state before its last failure point.
func (e *Editor) locked(fn func() error) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return ErrDisposed
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrInternal, p)
			e.logger.Error("panic in commit pipeline", "panic", p)
		}
	}()
	return fn()
}

func (e *Editor) newTransaction() *transform.Transaction {
	tx := transform.New(e.doc, e.sel, e.stored)
	tx.SetTime(e.now())
	return tx
}

func (e *Editor) logRejected(invs []command.Invocation, err error) {
	names := make([]string, len(invs))
	for i, inv := range invs {
		names[i] = inv.Name
	}
	switch {
	case command.IsRefused(err):
		e.logger.Debug("command refused", "commands", names, "reason", err)
	case errors.Is(err, guard.ErrLimitExceeded):
		e.logger.Debug("character limit reached", "commands", names, "limit", e.guard.Limit)
	default:
		e.logger.Warn("transaction rejected", "commands", names, "error", err)
	}
}

// Can reports whether invs would succeed, without committing anything.
func (e *Editor) Can(invs ...command.Invocation) bool {
	if len(invs) == 1 {
		switch invs[0].Name {
		case CommandUndo:
			return e.CanUndo()
		case CommandRedo:
			return e.CanRedo()
		}
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.disposed {
		return false
	}
	defer func() { _ = recover() }()
	tx := e.newTransaction()
	if err := e.commands.Chain(tx, invs...); err != nil {
		return false
	}
	return e.checkLocked(tx, true) == nil
}

// Undo reverts the last history entry. ErrNothingToUndo means there was
// nothing to revert and nothing changed.
func (e *Editor) Undo() error {
	return e.step(e.history.Undo)
}

// Redo reapplies the last undone entry.
func (e *Editor) Redo() error {
	return e.step(e.history.Redo)
}

func (e *Editor) step(move func(*model.Node, cursor.Selection, history.CommitFunc) error) error {
	err := e.locked(func() error {
		return move(e.doc, e.sel, func(tx *transform.Transaction) error {
			tx.SetTime(e.now())
			return e.commitLocked(tx, false)
		})
	})
	if err != nil {
		return err
	}
	e.flush()
	return nil
}

// CanUndo reports whether there is anything to undo.
func (e *Editor) CanUndo() bool { return e.history.CanUndo() }

// CanRedo reports whether there is anything to redo.
func (e *Editor) CanRedo() bool { return e.history.CanRedo() }

// SetSelection moves the selection. It ends any typing run being merged
// into one undo entry.
func (e *Editor) SetSelection(sel cursor.Selection) error {
	err := e.locked(func() error {
		tx := e.newTransaction()
		tx.SetKind(transform.KindSelection)
		tx.SetSelection(sel)
		return e.commitLocked(tx, true)
	})
	if err != nil {
		return err
	}
	e.flush()
	return nil
}

// Batch runs fn with every document change it commits grouped into one
// undo entry.
func (e *Editor) Batch(fn func() error) error {
	if e.IsDisposed() {
		return ErrDisposed
	}
	defer e.history.GroupScope().End()
	return fn()
}

// ============================================================================
// Commit Pipeline
// ============================================================================

// checkLocked validates the transaction result. Undo and redo skip the
// limit so a document loaded over the limit can still be reverted.
func (e *Editor) checkLocked(tx *transform.Transaction, limited bool) error {
	if !tx.DocChanged() {
		return nil
	}
	if err := e.validator.Validate(tx.Doc()); err != nil {
		return err
	}
	if limited {
		return e.guard.Check(e.doc, tx.Doc())
	}
	return nil
}

// commitLocked applies tx to the editor state and queues notifications.
// History is recorded before any state changes.
func (e *Editor) commitLocked(tx *transform.Transaction, record bool) error {
	if err := e.checkLocked(tx, record); err != nil {
		return err
	}
	switch {
	case record && tx.DocChanged():
		e.history.Record(tx)
	case !tx.DocChanged() && tx.SelectionSet():
		e.history.Break()
	}

	e.doc = tx.Doc()
	e.sel = tx.Selection()
	e.stored = tx.StoredMarks()
	e.revision++

	n := notice{state: e.stateLocked()}
	if tx.DocChanged() {
		n.change = &Change{ID: tx.ID(), Kind: tx.Kind(), Doc: e.doc, Revision: e.revision}
	}
	e.pending = append(e.pending, n)
	return nil
}

// flush delivers queued notifications. Only one goroutine drains at a time;
// commits made during delivery are picked up by the same loop.
func (e *Editor) flush() {
	e.mu.Lock()
	if e.draining {
		e.mu.Unlock()
		return
	}
	e.draining = true
	e.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			e.mu.Lock()
			e.draining = false
			e.mu.Unlock()
			panic(r)
		}
	}()

	for {
		e.mu.Lock()
		if len(e.pending) == 0 || e.disposed {
			e.pending = nil
			e.draining = false
			e.mu.Unlock()
			return
		}
		n := e.pending[0]
		e.pending = e.pending[1:]
		views := append([]viewEntry(nil), e.views...)
		observer := e.observer
		e.mu.Unlock()

		for _, v := range views {
			v.view.Update(n.state)
		}
		if n.change != nil && observer != nil {
			observer(*n.change)
		}
	}
}

// ============================================================================
// Wholesale Replacement
// ============================================================================

// Replace loads doc as the new content. Invalid content is rejected and the
// current state kept. On success the cursor moves to the document start,
// history is cleared and views are updated; the commit observer is not
// called.
func (e *Editor) Replace(doc *wire.Document) error {
	node, _, err := e.loader.LoadWire(doc)
	if err != nil {
		e.logger.Warn("replacement rejected", "error", err)
		return err
	}
	return e.replace(node)
}

// ReplaceJSON is Replace for serialized input.
func (e *Editor) ReplaceJSON(data []byte) error {
	node, _, err := e.loader.Load(data)
	if err != nil {
		e.logger.Warn("replacement rejected", "error", err)
		return err
	}
	return e.replace(node)
}

func (e *Editor) replace(doc *model.Node) error {
	var rev uint64
	err := e.locked(func() error {
		sel := startSelection(doc)
		e.history.Clear()
		e.doc, e.sel, e.stored = doc, sel, nil
		e.revision++
		e.pending = append(e.pending, notice{state: e.stateLocked()})
		rev = e.revision
		return nil
	})
	if err != nil {
		return err
	}

	e.logger.Info("document replaced", "revision", rev, "size", doc.ContentSize())
	e.flush()
	return nil
}

// ============================================================================
// Subscriptions
// ============================================================================

// OnCommit registers the commit observer, called once per committed
// document change. An editor has at most one observer; the returned
// function removes it.
func (e *Editor) OnCommit(fn func(Change)) (func(), error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return nil, ErrDisposed
	}
	if e.observer != nil {
		return nil, ErrObserverRegistered
	}
	e.observer = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.observer = nil
		})
	}, nil
}

// Attach adds a view. It receives the current state immediately and every
// state after that. Views are updated in the order they were attached. The
// returned function detaches it.
func (e *Editor) Attach(v View) (func(), error) {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return nil, ErrDisposed
	}
	id := e.nextView
	e.nextView++
	e.views = append(e.views, viewEntry{id: id, view: v})
	state := e.stateLocked()
	e.mu.Unlock()

	v.Update(state)
	return func() { e.detach(id) }, nil
}

func (e *Editor) detach(id int) {
	var v View
	e.mu.Lock()
	for i, ve := range e.views {
		if ve.id == id {
			v = ve.view
			e.views = append(e.views[:i:i], e.views[i+1:]...)
			break
		}
	}
	e.mu.Unlock()
	if d, ok := v.(detacher); ok {
		d.Detach()
	}
}

// Dispose releases the observer and every view. Views implementing Detach
// are told once. Later operations return ErrDisposed. Dispose is safe to
// call more than once.
func (e *Editor) Dispose() {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	e.disposed = true
	views := e.views
	e.views = nil
	e.observer = nil
	e.pending = nil
	e.mu.Unlock()

	for _, v := range views {
		if d, ok := v.view.(detacher); ok {
			d.Detach()
		}
	}
	e.history.Clear()
	e.logger.Debug("editor disposed", "views", len(views))
}
