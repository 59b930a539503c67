package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Memory is an in-process Store used by tests. It mirrors the Postgres implementation's semantics: insertion order is
// preserved per collection and the marker is a single overwritten value.
type Memory struct {
	mu          sync.Mutex
	collections map[string][]Record
	marker      time.Time
	hasMarker   bool

	// FailPing, FailDelete and FailInsert inject faults for tests.
	FailPing   error
	FailDelete error
	FailInsert error
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string][]Record)}
}

func (m *Memory) Ping(context.Context) error {
	return m.FailPing
}

func (m *Memory) SelectByProcess(_ context.Context, process string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Record
	for _, rec := range m.collections[ProcessCollection] {
		if rec.Process() == process {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *Memory) DeleteAll(_ context.Context, collection string) error {
	if !knownCollection(collection) {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	if m.FailDelete != nil {
		return m.FailDelete
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[collection] = nil
	return nil
}

func (m *Memory) InsertMany(_ context.Context, collection string, records []Record) error {
	if !knownCollection(collection) {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	if m.FailInsert != nil {
		return m.FailInsert
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[collection] = append(m.collections[collection], records...)
	return nil
}

func (m *Memory) UpsertMarker(_ context.Context, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marker = at
	m.hasMarker = true
	return nil
}

func (m *Memory) LastUpdate(context.Context) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.marker, m.hasMarker, nil
}

// All returns a copy of every record in the collection, in insertion order.
func (m *Memory) All(collection string) []Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := m.collections[collection]
	out := make([]Record, len(records))
	copy(out, records)
	return out
}
