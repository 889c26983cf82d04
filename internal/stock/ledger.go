package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/mnhidayatgani/chatbot-sub000/pkg/enums"
	pkgerrors "github.com/mnhidayatgani/chatbot-sub000/pkg/errors"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/logger"
)

// InventoryCounter enumerates the physical credential vault. The ledger
// is a cache over it, not the source of truth.
type InventoryCounter interface {
	ListProducts(ctx context.Context) ([]string, error)
	CountRemaining(ctx context.Context, productID string) (int64, error)
}

// LedgerParams configure the stock ledger.
type LedgerParams struct {
	Counters  CounterStore
	History   HistoryStore
	Inventory InventoryCounter
	Logger    *logger.Logger
	Baseline  int64
}

// Ledger is the authoritative cache of sellable-credential counts per
// product. All mutation goes through the counter store's atomic
// primitives and is mirrored into the audit history.
type Ledger struct {
	counters  CounterStore
	history   HistoryStore
	inventory InventoryCounter
	logg      *logger.Logger
	baseline  int64
	now       func() time.Time
}

// NewLedger wires a stock ledger.
func NewLedger(params LedgerParams) (*Ledger, error) {
	if params.Counters == nil {
		return nil, fmt.Errorf("counter store required")
	}
	if params.History == nil {
		return nil, fmt.Errorf("history store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Baseline < 0 {
		return nil, fmt.Errorf("baseline must be non-negative")
	}
	return &Ledger{
		counters:  params.Counters,
		history:   params.History,
		inventory: params.Inventory,
		logg:      params.Logger,
		baseline:  params.Baseline,
		now:       time.Now,
	}, nil
}

// Get returns the current count, lazily initializing an unseen product
// to the configured baseline.
func (l *Ledger) Get(ctx context.Context, productID string) (int64, error) {
	if productID == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	return l.counters.InitIfAbsent(ctx, productID, l.baseline)
}

// Set overwrites the counter. Admin override path; the value is
// validated before any write.
func (l *Ledger) Set(ctx context.Context, productID string, value int64, reason enums.StockReason) error {
	if productID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if value < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock must be non-negative")
	}
	if !reason.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid stock reason")
	}

	old, _, err := l.counters.Get(ctx, productID)
	if err != nil {
		return err
	}
	if err := l.counters.Set(ctx, productID, value); err != nil {
		return err
	}
	l.appendHistory(ctx, HistoryEntry{
		Timestamp: l.now().UTC(),
		ProductID: productID,
		OldCount:  old,
		NewCount:  value,
		Reason:    reason,
	})
	return nil
}

// Decrement atomically takes qty units for an order. When the counter
// cannot cover qty the call fails with INSUFFICIENT_STOCK and the
// counter is untouched.
func (l *Ledger) Decrement(ctx context.Context, productID string, qty int64, orderID string) (int64, error) {
	if productID == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if qty <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	if _, err := l.counters.InitIfAbsent(ctx, productID, l.baseline); err != nil {
		return 0, err
	}

	newCount, ok, err := l.counters.DecrIfEnough(ctx, productID, qty)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
			WithDetails(map[string]any{"product_id": productID, "requested": qty})
	}

	l.appendHistory(ctx, HistoryEntry{
		Timestamp: l.now().UTC(),
		ProductID: productID,
		OldCount:  newCount + qty,
		NewCount:  newCount,
		Reason:    enums.StockReasonSale,
		OrderID:   orderID,
	})
	return newCount, nil
}

// Increment atomically restocks qty units.
func (l *Ledger) Increment(ctx context.Context, productID string, qty int64, reason enums.StockReason) (int64, error) {
	if productID == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if qty <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if !reason.IsValid() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid stock reason")
	}

	if _, err := l.counters.InitIfAbsent(ctx, productID, l.baseline); err != nil {
		return 0, err
	}
	newCount, err := l.counters.IncrBy(ctx, productID, qty)
	if err != nil {
		return 0, err
	}

	l.appendHistory(ctx, HistoryEntry{
		Timestamp: l.now().UTC(),
		ProductID: productID,
		OldCount:  newCount - qty,
		NewCount:  newCount,
		Reason:    reason,
	})
	return newCount, nil
}

// History returns the most recent audit entries for a product.
func (l *Ledger) History(ctx context.Context, productID string) ([]HistoryEntry, error) {
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	return l.history.List(ctx, productID)
}

// Reconcile recounts every product from the physical vault and
// overwrites cached counters that diverge. Returns how many were
// corrected.
func (l *Ledger) Reconcile(ctx context.Context) (int, error) {
	if l.inventory == nil {
		return 0, fmt.Errorf("no inventory source configured")
	}

	products, err := l.inventory.ListProducts(ctx)
	if err != nil {
		return 0, fmt.Errorf("list inventory products: %w", err)
	}

	corrected := 0
	for _, productID := range products {
		actual, err := l.inventory.CountRemaining(ctx, productID)
		if err != nil {
			return corrected, fmt.Errorf("count inventory for %s: %w", productID, err)
		}
		cached, err := l.Get(ctx, productID)
		if err != nil {
			return corrected, err
		}
		if cached == actual {
			continue
		}

		logCtx := l.logg.WithFields(ctx, map[string]any{
			"product_id": productID,
			"cached":     cached,
			"actual":     actual,
		})
		l.logg.Warn(logCtx, "stock counter diverged from inventory, correcting")

		if err := l.Set(ctx, productID, actual, enums.StockReasonReconcile); err != nil {
			return corrected, err
		}
		corrected++
	}
	return corrected, nil
}

// appendHistory records an audit entry; a failed append never fails the
// mutation it describes.
func (l *Ledger) appendHistory(ctx context.Context, entry HistoryEntry) {
	if err := l.history.Append(ctx, entry); err != nil {
		l.logg.Error(ctx, "failed to append stock history", err)
	}
}
