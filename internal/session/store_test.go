package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mnhidayatgani/chatbot-sub000/pkg/enums"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/logger"
)

type failingStorage struct{}

func (failingStorage) Get(context.Context, string) (*Session, error) {
	return nil, errors.New("connection refused")
}
func (failingStorage) Put(context.Context, *Session) error { return errors.New("connection refused") }
func (failingStorage) Delete(context.Context, string) error {
	return errors.New("connection refused")
}
func (failingStorage) List(context.Context) ([]*Session, error) {
	return nil, errors.New("connection refused")
}
func (failingStorage) Ping(context.Context) error { return errors.New("connection refused") }

func newTestStore(t *testing.T, primary Storage) *Store {
	t.Helper()
	store, err := NewStore(StoreParams{
		Primary: primary,
		Logger:  logger.New(logger.Options{ServiceName: "session-test"}),
	})
	if err != nil {
		t.Fatalf("construct store: %v", err)
	}
	return store
}

func TestGetCreatesDefaultSessionOnFirstContact(t *testing.T) {
	store := newTestStore(t, NewMemoryStorage(time.Minute))
	sess, err := store.Get(context.Background(), "cust-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sess.Step != enums.StepMenu {
		t.Fatalf("expected default step menu, got %s", sess.Step)
	}
	if len(sess.Cart) != 0 || len(sess.Wishlist) != 0 {
		t.Fatalf("expected empty cart and wishlist")
	}
	if sess.PaymentStatus != enums.PaymentStatusNone {
		t.Fatalf("expected no payment status, got %s", sess.PaymentStatus)
	}
}

func TestPutThenGetRoundTripsThroughPrimary(t *testing.T) {
	store := newTestStore(t, NewMemoryStorage(time.Minute))
	ctx := context.Background()

	sess, err := store.Get(ctx, "cust-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	sess.AddToCart(CartItem{ProductID: "p1", Name: "Netflix", PriceCents: 5000, Qty: 2})
	sess.Step = enums.StepBrowsing
	if err := store.Put(ctx, sess); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := store.Get(ctx, "cust-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Step != enums.StepBrowsing {
		t.Fatalf("expected browsing, got %s", got.Step)
	}
	if len(got.Cart) != 1 || got.Cart[0].Qty != 2 {
		t.Fatalf("cart did not round trip: %+v", got.Cart)
	}
}

func TestStoreDegradesToFallbackWhenPrimaryFails(t *testing.T) {
	store := newTestStore(t, failingStorage{})
	ctx := context.Background()

	sess, err := store.Get(ctx, "cust-1")
	if err != nil {
		t.Fatalf("get should succeed via fallback: %v", err)
	}
	if sess == nil || sess.CustomerID != "cust-1" {
		t.Fatalf("unexpected session %+v", sess)
	}
	if !store.Degraded() {
		t.Fatalf("store should report degraded")
	}

	// Subsequent operations stay on the fallback.
	sess.Step = enums.StepBrowsing
	if err := store.Put(ctx, sess); err != nil {
		t.Fatalf("put via fallback: %v", err)
	}
	step, err := store.GetStep(ctx, "cust-1")
	if err != nil {
		t.Fatalf("get step: %v", err)
	}
	if step != enums.StepBrowsing {
		t.Fatalf("expected browsing, got %s", step)
	}
}

func TestSweepFallbackEvictsIdleDegradedSessions(t *testing.T) {
	fallback := NewMemoryStorage(time.Minute)
	current := time.Now()
	fallback.now = func() time.Time { return current }
	store, err := NewStore(StoreParams{
		Primary:  failingStorage{},
		Fallback: fallback,
		Logger:   logger.New(logger.Options{ServiceName: "session-test"}),
	})
	if err != nil {
		t.Fatalf("construct store: %v", err)
	}
	ctx := context.Background()

	if _, err := store.Get(ctx, "cust-1"); err != nil {
		t.Fatalf("get should succeed via fallback: %v", err)
	}
	if !store.Degraded() {
		t.Fatalf("store should report degraded")
	}

	current = current.Add(2 * time.Minute)
	evicted, err := store.SweepFallback(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if evicted != 1 {
		t.Fatalf("expected one eviction, got %d", evicted)
	}
}

func TestMemoryStorageExpiresAndSweeps(t *testing.T) {
	storage := NewMemoryStorage(time.Minute)
	current := time.Now()
	storage.now = func() time.Time { return current }
	ctx := context.Background()

	if err := storage.Put(ctx, New("cust-1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	current = current.Add(2 * time.Minute)

	got, err := storage.Get(ctx, "cust-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected expired session to be gone")
	}

	if err := storage.Put(ctx, New("cust-2")); err != nil {
		t.Fatalf("put: %v", err)
	}
	current = current.Add(2 * time.Minute)
	removed, err := storage.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one eviction, got %d", removed)
	}
}

func TestGetRefreshesTTL(t *testing.T) {
	storage := NewMemoryStorage(time.Minute)
	current := time.Now()
	storage.now = func() time.Time { return current }
	ctx := context.Background()

	if err := storage.Put(ctx, New("cust-1")); err != nil {
		t.Fatalf("put: %v", err)
	}

	// Touch the session every 40s; it must survive well past one TTL.
	for i := 0; i < 4; i++ {
		current = current.Add(40 * time.Second)
		got, err := storage.Get(ctx, "cust-1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got == nil {
			t.Fatalf("session expired despite activity at touch %d", i)
		}
	}
}
