// Package store defines the remote record store consumed by the sync and
// generation flows, plus its PostgreSQL implementation.
//
// The store holds free-form spreadsheet records: each record is a flat map
// from header label to cell text. Data collections are only ever replaced
// wholesale (delete-all then insert-many); the single sync marker row is the
// one record with update-in-place semantics.
package store

import (
	"context"
	"errors"
	"time"
)

// Collection names. The store only knows these two data collections plus the
// marker table; anything else is rejected before SQL is built.
const (
	ProcessCollection = "process_records"
	TaxRateCollection = "tax_rates"
)

// ErrUnknownCollection is returned when an operation names a collection the
// store does not manage.
var ErrUnknownCollection = errors.New("unknown collection")

// Record is one normalized spreadsheet row, keyed by header label.
// Every value is cell text; empty cells are empty strings, never absent.
type Record map[string]string

// Process returns the record's process key field.
func (r Record) Process() string {
	return r["Process"]
}

// Store is the remote record store. Implementations must preserve insertion
// order on SelectByProcess: generated documents rely on rows coming back in
// the order they were synchronized.
type Store interface {
	// Ping probes the store with a bounded read.
	Ping(ctx context.Context) error

	// SelectByProcess returns every record whose process key equals the
	// given value, in insertion order. An empty result is not an error.
	SelectByProcess(ctx context.Context, process string) ([]Record, error)

	// DeleteAll removes every record from the collection.
	DeleteAll(ctx context.Context, collection string) error

	// InsertMany bulk-inserts records into the collection.
	InsertMany(ctx context.Context, collection string, records []Record) error

	// UpsertMarker records the last successful synchronization time,
	// updating the existing marker row if one exists.
	UpsertMarker(ctx context.Context, at time.Time) error

	// LastUpdate returns the marker timestamp, or ok=false when no
	// synchronization has ever completed.
	LastUpdate(ctx context.Context) (at time.Time, ok bool, err error)
}

// knownCollection reports whether the store manages the named collection.
func knownCollection(collection string) bool {
	return collection == ProcessCollection || collection == TaxRateCollection
}
