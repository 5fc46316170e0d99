package reference

import (
	"context"
	"sync"
	"time"
)

// Store supplies reference tables to a run. Implementations must return
// entries that the caller can treat as read-only; the engine never writes
// back through this interface.
type Store interface {
	// LoadBaseRoutes returns the planned route table.
	LoadBaseRoutes(ctx context.Context) ([]ReferenceEntry, error)

	// LoadExceptions returns the per-invoice correction table.
	LoadExceptions(ctx context.Context) ([]ReferenceEntry, error)

	// LoadOverrides returns the manual override table.
	LoadOverrides(ctx context.Context) ([]ReferenceEntry, error)

	// Snapshot materializes all three tables as one frozen view.
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// MemoryStore is an in-memory Store, used for tests and for snapshots built
// directly from loaded files.
type MemoryStore struct {
	mu         sync.RWMutex
	baseRoutes []ReferenceEntry
	exceptions []ReferenceEntry
	overrides  []ReferenceEntry
}

// NewMemoryStore creates a MemoryStore holding the given tables.
func NewMemoryStore(baseRoutes, exceptions, overrides []ReferenceEntry) *MemoryStore {
	return &MemoryStore{
		baseRoutes: baseRoutes,
		exceptions: exceptions,
		overrides:  overrides,
	}
}

// LoadBaseRoutes implements Store.
func (m *MemoryStore) LoadBaseRoutes(_ context.Context) ([]ReferenceEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyEntries(m.baseRoutes), nil
}

// LoadExceptions implements Store.
func (m *MemoryStore) LoadExceptions(_ context.Context) ([]ReferenceEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyEntries(m.exceptions), nil
}

// LoadOverrides implements Store.
func (m *MemoryStore) LoadOverrides(_ context.Context) ([]ReferenceEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyEntries(m.overrides), nil
}

// Snapshot implements Store.
func (m *MemoryStore) Snapshot(ctx context.Context) (*Snapshot, error) {
	base, err := m.LoadBaseRoutes(ctx)
	if err != nil {
		return nil, err
	}
	exceptions, err := m.LoadExceptions(ctx)
	if err != nil {
		return nil, err
	}
	overrides, err := m.LoadOverrides(ctx)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		SnapshotAt: time.Now().UTC(),
		BaseRoutes: base,
		Exceptions: exceptions,
		Overrides:  overrides,
	}, nil
}

// SetLayer replaces one table. Used by import tooling, never by a run in
// progress.
func (m *MemoryStore) SetLayer(layer Layer, entries []ReferenceEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch layer {
	case LayerBase:
		m.baseRoutes = copyEntries(entries)
	case LayerException:
		m.exceptions = copyEntries(entries)
	case LayerOverride:
		m.overrides = copyEntries(entries)
	}
}

func copyEntries(entries []ReferenceEntry) []ReferenceEntry {
	if entries == nil {
		return nil
	}
	out := make([]ReferenceEntry, len(entries))
	copy(out, entries)
	return out
}
