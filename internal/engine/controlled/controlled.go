// Package controlled keeps an editor in step with a document value owned
// by someone else.
//
// The owner hands the current value to Sync whenever it changes, including
// when the change is the owner storing what the editor just emitted. Sync
// recognizes those echoes and leaves the editor alone, so the cursor and
// undo history survive the round trip. Anything else replaces the editor's
// content wholesale.
package controlled

import (
	"bytes"
	"errors"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/slekup/big-brain/internal/engine"
	"github.com/slekup/big-brain/internal/engine/model"
	"github.com/slekup/big-brain/internal/engine/schema"
	"github.com/slekup/big-brain/internal/engine/wire"
	"github.com/slekup/big-brain/internal/logging"
)

// ErrClosed is returned by Sync after Close.
var ErrClosed = errors.New("synchronizer is closed")

// Value is a document value as the owner holds it. Identity names the
// record the value belongs to; a different identity always reloads.
type Value struct {
	Identity string
	Doc      *wire.Document
}

// Outcome says what Sync did.
type Outcome int

const (
	// Unchanged means the value matches the editor's current content.
	Unchanged Outcome = iota
	// Echo means the value is the one the editor last emitted.
	Echo
	// Loaded means the value replaced the editor's content.
	Loaded
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Echo:
		return "echo"
	case Loaded:
		return "loaded"
	default:
		return "unchanged"
	}
}

// snapshot is a document together with its serialized fingerprint.
type snapshot struct {
	doc  *model.Node
	data []byte
	sum  uint64
}

func takeSnapshot(doc *model.Node) (snapshot, error) {
	data, err := wire.Encode(model.DocToWire(doc))
	if err != nil {
		return snapshot{}, err
	}
	return snapshot{doc: doc, data: data, sum: xxhash.Sum64(data)}, nil
}

// matches reports whether data is byte-identical to the snapshot.
func (s snapshot) matches(data []byte, sum uint64) bool {
	return s.doc != nil && s.sum == sum && bytes.Equal(s.data, data)
}

// Synchronizer binds one editor to one owner.
type Synchronizer struct {
	mu sync.Mutex

	editor   *engine.Editor
	loader   *schema.Loader
	onChange func(Value)
	logger   *logging.Logger

	identity string
	emitted  snapshot
	stop     func()
	closed   bool
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Synchronizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// Bind takes the editor's commit observer and forwards every committed
// document change to onChange, tagged with identity. The editor's current
// content counts as already known to the owner.
func Bind(ed *engine.Editor, identity string, onChange func(Value), opts ...Option) (*Synchronizer, error) {
	s := &Synchronizer{
		editor:   ed,
		loader:   schema.NewLoader(ed.Catalog(), schema.PolicyReject),
		onChange: onChange,
		logger:   logging.Nop(),
		identity: identity,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("controlled").WithField("identity", identity)

	snap, err := takeSnapshot(ed.Document())
	if err != nil {
		return nil, err
	}
	s.emitted = snap

	stop, err := ed.OnCommit(s.commit)
	if err != nil {
		return nil, err
	}
	s.stop = stop
	return s, nil
}

func (s *Synchronizer) commit(c engine.Change) {
	snap, err := takeSnapshot(c.Doc)
	if err != nil {
		s.logger.Error("cannot serialize committed document", "revision", c.Revision, "error", err)
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.emitted = snap
	v := Value{Identity: s.identity, Doc: c.Value()}
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn(v)
	}
}

// Identity returns the identity of the value the editor holds.
func (s *Synchronizer) Identity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Sync brings the editor in line with v. Invalid values are rejected and
// the editor keeps its content.
func (s *Synchronizer) Sync(v Value) (Outcome, error) {
	data, err := wire.Encode(v.Doc)
	if err != nil {
		return Unchanged, err
	}
	return s.sync(v.Identity, v.Doc, data)
}

// SyncJSON is Sync for a serialized value.
func (s *Synchronizer) SyncJSON(identity string, data []byte) (Outcome, error) {
	doc, err := wire.Decode(data)
	if err != nil {
		return Unchanged, err
	}
	canonical, err := wire.Encode(doc)
	if err != nil {
		return Unchanged, err
	}
	return s.sync(identity, doc, canonical)
}

func (s *Synchronizer) sync(identity string, doc *wire.Document, data []byte) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Unchanged, ErrClosed
	}

	current := s.editor.Document()
	sum := xxhash.Sum64(data)
	if identity == s.identity && s.emitted.matches(data, sum) && s.emitted.doc == current {
		s.logger.Debug("echo suppressed")
		return Echo, nil
	}

	node, _, err := s.loader.LoadWire(doc)
	if err != nil {
		s.logger.Warn("external value rejected", "error", err)
		return Unchanged, err
	}
	if identity == s.identity && node.Eq(current) {
		if s.emitted.doc == current {
			s.logger.Debug("echo suppressed")
			return Echo, nil
		}
		return Unchanged, nil
	}

	if err := s.editor.Replace(doc); err != nil {
		return Unchanged, err
	}
	snap, err := takeSnapshot(s.editor.Document())
	if err != nil {
		return Loaded, err
	}
	if identity != s.identity {
		s.logger.Info("identity changed", "to", identity)
	}
	s.identity = identity
	s.emitted = snap
	s.logger.Debug("external value loaded", "revision", s.editor.Revision())
	return Loaded, nil
}

// Close releases the editor's commit observer. It is safe to call more
// than once.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	stop := s.stop
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
}
