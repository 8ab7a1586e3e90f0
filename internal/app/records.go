package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/pretty"

	"github.com/slekup/big-brain/internal/record"
)

// AddRecord stores a record held only in memory.
func (app *Application) AddRecord(id string, data []byte) error {
	rec, err := record.Parse(data)
	if err != nil {
		return &OperationError{Op: "add", Target: id, Err: err}
	}
	app.records.Put(id, rec)
	return nil
}

// LoadRecord reads a record file into the store and returns its ID, the
// file's absolute path. With watching enabled, later writes to the file
// are pushed into the record's open sessions.
func (app *Application) LoadRecord(path string) (string, error) {
	if app.closed.Load() {
		return "", ErrClosed
	}
	id, err := filepath.Abs(path)
	if err != nil {
		return "", &OperationError{Op: "load", Target: path, Err: err}
	}
	rec, err := readRecord(id)
	if err != nil {
		return "", &OperationError{Op: "load", Target: path, Err: err}
	}
	app.records.Put(id, rec)

	app.mu.Lock()
	app.files[id] = id
	w := app.watcher
	app.mu.Unlock()

	if w != nil {
		if err := w.Watch(id); err != nil {
			return "", &OperationError{Op: "watch", Target: path, Err: err}
		}
	}
	app.logger.Info("record loaded", "record", id, "documents", len(rec.Documents("")))
	return id, nil
}

// SaveRecord writes a file-backed record back to its file.
func (app *Application) SaveRecord(id string) error {
	app.mu.RLock()
	path, ok := app.files[id]
	app.mu.RUnlock()
	if !ok {
		return &OperationError{Op: "save", Target: id, Err: ErrNoFile}
	}
	rec, err := app.records.Get(id)
	if err != nil {
		return &OperationError{Op: "save", Target: id, Err: err}
	}
	if err := os.WriteFile(path, pretty.Pretty(rec.Bytes()), 0o644); err != nil {
		return &OperationError{Op: "save", Target: id, Err: err}
	}
	app.logger.Debug("record saved", "record", id)
	return nil
}

// fileChanged reloads a watched record file and pushes its document fields
// into the record's sessions. Saves of the session's own edits come back
// unchanged and are skipped as echoes.
func (app *Application) fileChanged(path string) {
	if app.closed.Load() {
		return
	}
	rec, err := readRecord(path)
	if err != nil {
		app.logger.Warn("reloading record", "record", path, "error", err)
		return
	}
	app.records.Put(path, rec)
	for _, s := range app.sessionsFor(path) {
		doc, err := rec.Field(s.Field)
		if err != nil {
			s.logger.Warn("external value rejected", "error", err)
			continue
		}
		s.receive(doc)
	}
}

func readRecord(path string) (*record.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rec, err := record.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}
