package stock

import (
	"context"
	"sync"
)

// MemoryCounterStore is the in-process counter backend. The mutex makes
// every mutation atomic, matching the redis contract.
type MemoryCounterStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

// NewMemoryCounterStore builds the map-backed counter store.
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{counts: make(map[string]int64)}
}

func (m *MemoryCounterStore) Get(ctx context.Context, productID string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.counts[productID]
	return value, ok, nil
}

func (m *MemoryCounterStore) InitIfAbsent(ctx context.Context, productID string, baseline int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if value, ok := m.counts[productID]; ok {
		return value, nil
	}
	m.counts[productID] = baseline
	return baseline, nil
}

func (m *MemoryCounterStore) Set(ctx context.Context, productID string, value int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[productID] = value
	return nil
}

func (m *MemoryCounterStore) IncrBy(ctx context.Context, productID string, qty int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[productID] += qty
	return m.counts[productID], nil
}

func (m *MemoryCounterStore) DecrIfEnough(ctx context.Context, productID string, qty int64) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.counts[productID]
	if !ok || current < qty {
		return 0, false, nil
	}
	m.counts[productID] = current - qty
	return m.counts[productID], true, nil
}

// MemoryHistoryStore is the in-process audit ring.
type MemoryHistoryStore struct {
	mu      sync.Mutex
	entries map[string][]HistoryEntry
	limit   int
}

// NewMemoryHistoryStore builds the map-backed history store.
func NewMemoryHistoryStore(limit int) *MemoryHistoryStore {
	if limit <= 0 {
		limit = 20
	}
	return &MemoryHistoryStore{
		entries: make(map[string][]HistoryEntry),
		limit:   limit,
	}
}

func (m *MemoryHistoryStore) Append(ctx context.Context, entry HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ring := append([]HistoryEntry{entry}, m.entries[entry.ProductID]...)
	if len(ring) > m.limit {
		ring = ring[:m.limit]
	}
	m.entries[entry.ProductID] = ring
	return nil
}

func (m *MemoryHistoryStore) List(ctx context.Context, productID string) ([]HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ring := m.entries[productID]
	out := make([]HistoryEntry, len(ring))
	copy(out, ring)
	return out, nil
}
