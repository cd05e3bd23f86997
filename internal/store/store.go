// Package store defines the persistence contract for the aggregator's
// current set of station records.
package store

import (
	"errors"

	"github.com/stationwatch/aggregator/internal/record"
)

// ErrCorruptFile is logged, not returned, by implementations that fall
// back to an empty list on parse failure — kept as a sentinel so tests
// can assert on the logged cause.
var ErrCorruptFile = errors.New("store: corrupt snapshot file")

// Store owns the full set of current station records. Implementations
// MUST be safe to call from the single pipeline worker and the sweeper,
// which are the only two callers and never call concurrently with
// themselves (both hold the aggregator's store mutex before calling in).
type Store interface {
	// Load returns every currently persisted record. It returns an
	// empty, non-nil slice if nothing has been persisted yet or if the
	// backing snapshot could not be parsed.
	Load() ([]*record.Record, error)

	// Save replaces the entire persisted set with records.
	Save(records []*record.Record) error

	// Purge removes all persisted state. Called once, on shutdown.
	Purge() error
}
