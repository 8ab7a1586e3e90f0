package record

import (
	"errors"
	"sort"
	"sync"

	"github.com/slekup/big-brain/internal/engine/wire"
)

// ErrNotFound is returned for unknown record IDs.
var ErrNotFound = errors.New("record not found")

// Change is delivered to store subscribers when a document field changes.
type Change struct {
	ID   string
	Path string
	Doc  *wire.Document
}

// Store is an in-memory set of records keyed by ID. It plays the external
// owner for editors bound to its fields.
type Store struct {
	mu      sync.RWMutex
	records map[string]*Record
	subs    map[int]func(Change)
	nextSub int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{records: make(map[string]*Record), subs: make(map[int]func(Change))}
}

// Put stores rec under id.
func (s *Store) Put(id string, rec *Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = rec
}

// Get returns the record stored under id.
func (s *Store) Get(id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

// IDs returns the stored IDs in sorted order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SetField stores doc at path in record id and notifies subscribers.
func (s *Store) SetField(id, path string, doc *wire.Document) error {
	s.mu.Lock()
	rec, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	next, err := rec.SetField(path, doc)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.records[id] = next
	subs := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(Change{ID: id, Path: path, Doc: doc})
	}
	return nil
}

// Subscribe registers fn for field changes. The returned function removes
// it.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}
