package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	sess      *Session
	expiresAt time.Time
}

// MemoryStorage is the in-process fallback backend. Entries carry the
// same TTL semantics as redis; Sweep evicts what the TTL would have.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStorage builds the map-backed session storage.
func NewMemoryStorage(ttl time.Duration) *MemoryStorage {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &MemoryStorage{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryStorage) Get(ctx context.Context, customerID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[customerID]
	if !ok {
		return nil, nil
	}
	if m.now().After(entry.expiresAt) {
		delete(m.entries, customerID)
		return nil, nil
	}
	entry.expiresAt = m.now().Add(m.ttl)
	m.entries[customerID] = entry
	return entry.sess.Clone(), nil
}

func (m *MemoryStorage) Put(ctx context.Context, sess *Session) error {
	if sess == nil || sess.CustomerID == "" {
		return errSessionRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[sess.CustomerID] = memoryEntry{
		sess:      sess.Clone(),
		expiresAt: m.now().Add(m.ttl),
	}
	return nil
}

func (m *MemoryStorage) Delete(ctx context.Context, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, customerID)
	return nil
}

func (m *MemoryStorage) List(ctx context.Context) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	sessions := make([]*Session, 0, len(m.entries))
	for _, entry := range m.entries {
		if now.After(entry.expiresAt) {
			continue
		}
		sessions = append(sessions, entry.sess.Clone())
	}
	return sessions, nil
}

func (m *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

// Sweep evicts expired entries and returns how many were removed.
func (m *MemoryStorage) Sweep(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, entry := range m.entries {
		if now.After(entry.expiresAt) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed, nil
}
