package session

import "context"

// Storage persists one session record per customer. Implementations are
// interchangeable behind this interface and selected once at startup;
// callers never branch on which backend is active.
type Storage interface {
	// Get returns the stored session, or (nil, nil) when absent.
	// Reads refresh the record's TTL.
	Get(ctx context.Context, customerID string) (*Session, error)
	// Put persists the whole record and refreshes its TTL.
	Put(ctx context.Context, sess *Session) error
	// Delete removes the record.
	Delete(ctx context.Context, customerID string) error
	// List enumerates every active session. Intended for small-scale
	// sweeps and lookups, not a query surface.
	List(ctx context.Context) ([]*Session, error)
	// Ping reports backend connectivity.
	Ping(ctx context.Context) error
}

// Sweeper is implemented by backends that need an explicit expiry sweep
// (the in-process map). TTL-native backends don't implement it.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}
