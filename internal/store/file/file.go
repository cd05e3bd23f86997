// Package file provides the crash-safe, file-backed implementation of
// store.Store: the canonical snapshot is replaced by writing a sibling
// temporary file and renaming it over the canonical path, so a reader
// of the canonical path never observes a partially-written snapshot.
package file

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/stationwatch/aggregator/internal/record"
	"github.com/stationwatch/aggregator/internal/store"
)

// Store persists the current record set to a single JSON file on a
// local volume, colocating the temporary file with the canonical file
// so the final rename is atomic.
type Store struct {
	mu   sync.Mutex
	path string
	tmp  string
	log  *slog.Logger
}

// New creates a file-backed store rooted at path. The sibling temporary
// file is path with a ".tmp" suffix, on the same directory (and hence
// the same volume) as path.
func New(path string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		path: path,
		tmp:  path + ".tmp",
		log:  log,
	}
}

// Load returns the empty list if the canonical file is absent or
// empty. A parse failure is logged and also yields the empty list —
// the aggregator would rather start clean than refuse to boot on a
// damaged snapshot.
func (s *Store) Load() ([]*record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []*record.Record{}, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return []*record.Record{}, nil
	}

	records, decodeErr := record.DecodeList(data)
	if decodeErr != nil {
		s.log.Error("failed to parse persisted store snapshot, starting from empty", "path", s.path, "error", fmt.Errorf("%w: %w", store.ErrCorruptFile, decodeErr))
		return []*record.Record{}, nil
	}
	return records, nil
}

// Save writes records to the temporary file and atomically renames it
// over the canonical path.
func (s *Store) Save(records []*record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := record.EncodeList(records)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(s.tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(s.tmp, s.path); err != nil {
		os.Remove(s.tmp)
		return err
	}
	return nil
}

// Purge removes the canonical file if present. Called once on shutdown.
func (s *Store) Purge() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

var _ store.Store = (*Store)(nil)
