// Package memory provides an in-memory store.Store implementation used
// by unit tests and the in-process BDD harness, where file I/O would
// only add noise.
package memory

import (
	"sync"

	"github.com/stationwatch/aggregator/internal/record"
	"github.com/stationwatch/aggregator/internal/store"
)

// Store holds the current record set in a plain slice guarded by a
// mutex. Load and Save both copy, so callers can never mutate the
// store's internal state through a returned or passed-in slice.
type Store struct {
	mu      sync.Mutex
	records []*record.Record
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{}
}

// Load returns a copy of the current record set.
func (s *Store) Load() ([]*record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*record.Record, len(s.records))
	for i, r := range s.records {
		cp := *r
		out[i] = &cp
	}
	return out, nil
}

// Save replaces the current record set with a copy of records.
func (s *Store) Save(records []*record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]*record.Record, len(records))
	for i, r := range records {
		v := *r
		cp[i] = &v
	}
	s.records = cp
	return nil
}

// Purge clears the record set.
func (s *Store) Purge() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	return nil
}

var _ store.Store = (*Store)(nil)
