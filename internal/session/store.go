package session

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/mnhidayatgani/chatbot-sub000/pkg/enums"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/logger"
)

var errSessionRequired = errors.New("session with customer id is required")

// StoreParams configure the session store.
type StoreParams struct {
	Primary  Storage
	Fallback *MemoryStorage
	Logger   *logger.Logger
}

// Store is the session component the rest of the engine talks to. It
// reads and writes through the primary backend and degrades to the
// in-process fallback when the primary is unreachable. Degradation is
// logged, never fatal.
type Store struct {
	primary  Storage
	fallback *MemoryStorage
	logg     *logger.Logger
	degraded atomic.Bool
}

// NewStore wires a session store.
func NewStore(params StoreParams) (*Store, error) {
	if params.Primary == nil {
		return nil, errors.New("primary storage required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	fallback := params.Fallback
	if fallback == nil {
		fallback = NewMemoryStorage(30 * time.Minute)
	}
	return &Store{
		primary:  params.Primary,
		fallback: fallback,
		logg:     params.Logger,
	}, nil
}

// Degraded reports whether the store has fallen back to process memory.
func (s *Store) Degraded() bool {
	return s.degraded.Load()
}

// Get returns the customer's session, creating and persisting the
// default one on first contact.
func (s *Store) Get(ctx context.Context, customerID string) (*Session, error) {
	if customerID == "" {
		return nil, errors.New("customer id is required")
	}

	sess, err := s.backend(ctx).Get(ctx, customerID)
	if err != nil {
		sess, err = s.degrade(ctx, err).Get(ctx, customerID)
		if err != nil {
			return nil, err
		}
	}
	if sess != nil {
		return sess, nil
	}

	sess = New(customerID)
	if err := s.Put(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Put persists the whole record, refreshing TTL and last activity.
func (s *Store) Put(ctx context.Context, sess *Session) error {
	if sess == nil || sess.CustomerID == "" {
		return errSessionRequired
	}
	sess.LastActivity = time.Now().UTC()

	if err := s.backend(ctx).Put(ctx, sess); err != nil {
		return s.degrade(ctx, err).Put(ctx, sess)
	}
	return nil
}

// SetStep loads the session, moves it to the given step, and persists it.
func (s *Store) SetStep(ctx context.Context, customerID string, step enums.Step) error {
	if !step.IsValid() {
		return errors.New("invalid step")
	}
	sess, err := s.Get(ctx, customerID)
	if err != nil {
		return err
	}
	sess.Step = step
	return s.Put(ctx, sess)
}

// GetStep returns the customer's current step.
func (s *Store) GetStep(ctx context.Context, customerID string) (enums.Step, error) {
	sess, err := s.Get(ctx, customerID)
	if err != nil {
		return "", err
	}
	return sess.Step, nil
}

// Delete removes the customer's session.
func (s *Store) Delete(ctx context.Context, customerID string) error {
	if err := s.backend(ctx).Delete(ctx, customerID); err != nil {
		return s.degrade(ctx, err).Delete(ctx, customerID)
	}
	return nil
}

// List enumerates every active session.
func (s *Store) List(ctx context.Context) ([]*Session, error) {
	sessions, err := s.backend(ctx).List(ctx)
	if err != nil {
		return s.degrade(ctx, err).List(ctx)
	}
	return sessions, nil
}

// Ping reports connectivity of the active backend.
func (s *Store) Ping(ctx context.Context) error {
	return s.backend(ctx).Ping(ctx)
}

// SweepFallback evicts expired sessions from the in-process fallback.
// The fallback only fills while degraded and otherwise evicts lazily on
// reads, so each process sweeps its own.
func (s *Store) SweepFallback(ctx context.Context) (int, error) {
	return s.fallback.Sweep(ctx)
}

// RunFallbackSweeper sweeps the fallback on a fixed cadence until the
// context is canceled.
func (s *Store) RunFallbackSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evicted, err := s.SweepFallback(ctx)
			if err != nil {
				s.logg.Error(ctx, "fallback session sweep failed", err)
				continue
			}
			if evicted > 0 {
				s.logg.Info(s.logg.WithField(ctx, "evicted", evicted), "idle fallback sessions evicted")
			}
		}
	}
}

func (s *Store) backend(ctx context.Context) Storage {
	if s.degraded.Load() {
		return s.fallback
	}
	return s.primary
}

// degrade flips the store onto the in-process fallback after a primary
// failure and returns the fallback for the retried call.
func (s *Store) degrade(ctx context.Context, cause error) Storage {
	if s.degraded.CompareAndSwap(false, true) {
		s.logg.Error(ctx, "session backend unreachable, degrading to in-process storage", cause)
	}
	return s.fallback
}
