package stock

import "context"

// CounterStore is the atomic counter substrate for the ledger. The
// decrement MUST be atomic in the backing store itself; the ledger never
// does read-then-write arithmetic on counters, because two customers can
// legitimately race for the last unit.
type CounterStore interface {
	// Get returns the counter value and whether the counter exists.
	Get(ctx context.Context, productID string) (int64, bool, error)
	// InitIfAbsent creates the counter at baseline when unseen and
	// returns its current value either way.
	InitIfAbsent(ctx context.Context, productID string, baseline int64) (int64, error)
	// Set overwrites the counter unconditionally.
	Set(ctx context.Context, productID string, value int64) error
	// IncrBy atomically adds qty and returns the new value.
	IncrBy(ctx context.Context, productID string, qty int64) (int64, error)
	// DecrIfEnough atomically subtracts qty only when the counter covers
	// it, returning (newValue, true) or (0, false) with no side effects.
	DecrIfEnough(ctx context.Context, productID string, qty int64) (int64, bool, error)
}
