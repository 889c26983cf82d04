package stock

import (
	"context"
	"time"

	"github.com/mnhidayatgani/chatbot-sub000/pkg/enums"
)

// HistoryEntry is one append-only audit record for a stock mutation.
// Stored most-recent-first in a bounded ring per product.
type HistoryEntry struct {
	Timestamp time.Time         `json:"timestamp"`
	ProductID string            `json:"product_id"`
	OldCount  int64             `json:"old_count"`
	NewCount  int64             `json:"new_count"`
	Reason    enums.StockReason `json:"reason"`
	OrderID   string            `json:"order_id,omitempty"`
}

// HistoryStore persists the bounded audit ring.
type HistoryStore interface {
	Append(ctx context.Context, entry HistoryEntry) error
	List(ctx context.Context, productID string) ([]HistoryEntry, error)
}
