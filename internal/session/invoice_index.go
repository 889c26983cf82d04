package session

import (
	"context"
	"errors"
	"sync"
	"time"

	redisclient "github.com/mnhidayatgani/chatbot-sub000/pkg/redis"
)

// InvoiceIndex maps an externally-issued invoice id to the owning
// customer so webhook lookup is O(1) instead of a session scan. The
// scan fallback stays in place for entries written before the index
// existed or lost to TTL.
type InvoiceIndex interface {
	Set(ctx context.Context, invoiceID, customerID string, ttl time.Duration) error
	// Get returns ("", nil) when the invoice is not indexed.
	Get(ctx context.Context, invoiceID string) (string, error)
	Delete(ctx context.Context, invoiceID string) error
}

type invoiceRedisStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	InvoiceKey(invoiceID string) string
}

// RedisInvoiceIndex keeps the index under invoice:<invoiceId>.
type RedisInvoiceIndex struct {
	client invoiceRedisStore
}

// NewRedisInvoiceIndex builds the redis-backed invoice index.
func NewRedisInvoiceIndex(client *redisclient.Client) (*RedisInvoiceIndex, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return &RedisInvoiceIndex{client: client}, nil
}

func (r *RedisInvoiceIndex) Set(ctx context.Context, invoiceID, customerID string, ttl time.Duration) error {
	if invoiceID == "" || customerID == "" {
		return errors.New("invoice id and customer id are required")
	}
	return r.client.Set(ctx, r.client.InvoiceKey(invoiceID), customerID, ttl)
}

func (r *RedisInvoiceIndex) Get(ctx context.Context, invoiceID string) (string, error) {
	customerID, err := r.client.Get(ctx, r.client.InvoiceKey(invoiceID))
	if err != nil {
		if errors.Is(err, redisclient.Nil) {
			return "", nil
		}
		return "", err
	}
	return customerID, nil
}

func (r *RedisInvoiceIndex) Delete(ctx context.Context, invoiceID string) error {
	return r.client.Del(ctx, r.client.InvoiceKey(invoiceID))
}

// MemoryInvoiceIndex is the in-process counterpart used when the store
// runs on the memory backend.
type MemoryInvoiceIndex struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryInvoiceIndex builds the map-backed invoice index.
func NewMemoryInvoiceIndex() *MemoryInvoiceIndex {
	return &MemoryInvoiceIndex{entries: make(map[string]string)}
}

func (m *MemoryInvoiceIndex) Set(ctx context.Context, invoiceID, customerID string, ttl time.Duration) error {
	if invoiceID == "" || customerID == "" {
		return errors.New("invoice id and customer id are required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[invoiceID] = customerID
	return nil
}

func (m *MemoryInvoiceIndex) Get(ctx context.Context, invoiceID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries[invoiceID], nil
}

func (m *MemoryInvoiceIndex) Delete(ctx context.Context, invoiceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, invoiceID)
	return nil
}
