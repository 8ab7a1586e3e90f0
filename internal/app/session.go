package app

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/slekup/big-brain/internal/engine"
	"github.com/slekup/big-brain/internal/engine/command"
	"github.com/slekup/big-brain/internal/engine/controlled"
	"github.com/slekup/big-brain/internal/engine/model"
	"github.com/slekup/big-brain/internal/engine/wire"
	"github.com/slekup/big-brain/internal/logging"
	"github.com/slekup/big-brain/internal/preview"
	"github.com/slekup/big-brain/internal/record"
	"github.com/slekup/big-brain/internal/script"
)

// Session binds one document field of one record to an editor, or to a
// preview when the field is read-only. Edits flow back into the record
// store; store and file changes flow into the session.
type Session struct {
	ID       string
	RecordID string
	Field    string

	app     *Application
	logger  *logging.Logger
	editor  *engine.Editor
	sync    *controlled.Synchronizer
	preview *preview.Preview

	unsubscribe func()
	closeOnce   sync.Once
}

func sessionKey(recordID, field string) string {
	return recordID + "\x00" + field
}

// Open starts a session on field of the stored record recordID.
func (app *Application) Open(recordID, field string) (*Session, error) {
	if app.closed.Load() {
		return nil, ErrClosed
	}
	rec, err := app.records.Get(recordID)
	if err != nil {
		return nil, &OperationError{Op: "open", Target: recordID, Err: err}
	}
	content, err := rec.FieldJSON(field)
	if err != nil {
		return nil, &OperationError{Op: "open", Target: recordID + "#" + field, Err: err}
	}

	app.mu.Lock()
	defer app.mu.Unlock()
	for _, s := range app.sessions {
		if sessionKey(s.RecordID, s.Field) == sessionKey(recordID, field) {
			return nil, &OperationError{Op: "open", Target: recordID + "#" + field, Err: ErrSessionOpen}
		}
	}

	s := &Session{
		ID:       uuid.NewString(),
		RecordID: recordID,
		Field:    field,
		app:      app,
	}
	s.logger = app.logger.WithComponent("session").WithFields(map[string]any{
		"session": s.ID,
		"record":  recordID,
		"field":   field,
	})

	if app.config.Field(field).Editable {
		ed, err := engine.New(app.catalog, app.editorOptions(field, content)...)
		if err != nil {
			return nil, &OperationError{Op: "open", Target: recordID + "#" + field, Err: err}
		}
		syn, err := controlled.Bind(ed, recordID, s.emit, controlled.WithLogger(s.logger))
		if err != nil {
			ed.Dispose()
			return nil, &OperationError{Op: "open", Target: recordID + "#" + field, Err: err}
		}
		s.editor, s.sync = ed, syn
	} else {
		s.preview = app.NewPreview(field)
		if err := s.preview.SetContent(content); err != nil {
			return nil, &OperationError{Op: "open", Target: recordID + "#" + field, Err: err}
		}
	}
	s.unsubscribe = app.records.Subscribe(s.storeChanged)

	app.sessions[s.ID] = s
	s.logger.Info("session opened", "editable", s.Editable())
	return s, nil
}

// Session returns the open session with id.
func (app *Application) Session(id string) (*Session, error) {
	app.mu.RLock()
	defer app.mu.RUnlock()
	s, ok := app.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Sessions returns the open sessions ordered by record and field.
func (app *Application) Sessions() []*Session {
	app.mu.RLock()
	out := make([]*Session, 0, len(app.sessions))
	for _, s := range app.sessions {
		out = append(out, s)
	}
	app.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return sessionKey(out[i].RecordID, out[i].Field) < sessionKey(out[j].RecordID, out[j].Field)
	})
	return out
}

// CloseSession closes the session with id.
func (app *Application) CloseSession(id string) error {
	app.mu.Lock()
	s, ok := app.sessions[id]
	delete(app.sessions, id)
	app.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.close()
	return nil
}

func (app *Application) sessionsFor(recordID string) []*Session {
	app.mu.RLock()
	defer app.mu.RUnlock()
	var out []*Session
	for _, s := range app.sessions {
		if s.RecordID == recordID {
			out = append(out, s)
		}
	}
	return out
}

// emit writes an editor change into the record store.
func (s *Session) emit(v controlled.Value) {
	if err := s.app.records.SetField(v.Identity, s.Field, v.Doc); err != nil {
		s.logger.Error("storing change", "error", err)
	}
}

// storeChanged feeds store writes for this field back into the session.
// The session's own writes come back as echoes and are skipped.
func (s *Session) storeChanged(c record.Change) {
	if c.ID != s.RecordID || c.Path != s.Field {
		return
	}
	s.receive(c.Doc)
}

func (s *Session) receive(doc *wire.Document) {
	if s.preview != nil {
		if err := s.preview.SetValue(doc); err != nil {
			s.logger.Warn("external value rejected", "error", err)
		}
		return
	}
	outcome, err := s.sync.Sync(controlled.Value{Identity: s.RecordID, Doc: doc})
	if err != nil {
		s.logger.Warn("external value rejected", "error", err)
		return
	}
	s.logger.Debug("external value", "outcome", outcome)
}

// Editable reports whether the session has an editor.
func (s *Session) Editable() bool { return s.editor != nil }

// Editor returns the session's editor, or ErrNotEditable for a read-only
// field.
func (s *Session) Editor() (*engine.Editor, error) {
	if s.editor == nil {
		return nil, s.notEditable("edit")
	}
	return s.editor, nil
}

// Preview returns the session's preview, or nil for an editable field.
func (s *Session) Preview() *preview.Preview { return s.preview }

func (s *Session) notEditable(op string) error {
	return &OperationError{Op: op, Target: s.RecordID + "#" + s.Field, Err: ErrNotEditable}
}

// Dispatch runs one command on the session's editor.
func (s *Session) Dispatch(name string, params command.Params) error {
	if s.editor == nil {
		return s.notEditable(name)
	}
	return s.editor.Dispatch(name, params)
}

// Run runs a chain on the session's editor.
func (s *Session) Run(invs ...command.Invocation) error {
	if s.editor == nil {
		return s.notEditable("run")
	}
	return s.editor.Run(invs...)
}

// Undo reverts the last change.
func (s *Session) Undo() error {
	if s.editor == nil {
		return s.notEditable(engine.CommandUndo)
	}
	return s.editor.Undo()
}

// Redo reapplies the last undone change.
func (s *Session) Redo() error {
	if s.editor == nil {
		return s.notEditable(engine.CommandRedo)
	}
	return s.editor.Redo()
}

// RunScript runs a Lua macro against the session's editor.
func (s *Session) RunScript(ctx context.Context, name, source string) (*script.Result, error) {
	if s.editor == nil {
		return nil, s.notEditable("script")
	}
	return s.app.scripts.Run(ctx, s.editor, name, source)
}

// Value returns the session's current document.
func (s *Session) Value() *wire.Document {
	if s.editor != nil {
		return s.editor.Value()
	}
	return model.DocToWire(s.preview.Doc())
}

// HTML renders the session's current document.
func (s *Session) HTML() (string, error) {
	if s.preview != nil {
		return s.preview.HTML()
	}
	p := s.app.NewPreview(s.Field)
	if err := p.SetValue(s.editor.Value()); err != nil {
		return "", err
	}
	return p.HTML()
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		if s.sync != nil {
			s.sync.Close()
		}
		if s.editor != nil {
			s.editor.Dispose()
		}
		s.logger.Info("session closed")
	})
}
