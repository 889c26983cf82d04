package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mnhidayatgani/chatbot-sub000/api/responses"
	"github.com/mnhidayatgani/chatbot-sub000/api/validators"
	"github.com/mnhidayatgani/chatbot-sub000/internal/stock"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/enums"
	pkgerrors "github.com/mnhidayatgani/chatbot-sub000/pkg/errors"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/logger"
)

// stockLedger is the admin surface of the ledger.
type stockLedger interface {
	Get(ctx context.Context, productID string) (int64, error)
	Set(ctx context.Context, productID string, value int64, reason enums.StockReason) error
	History(ctx context.Context, productID string) ([]stock.HistoryEntry, error)
}

type setStockRequest struct {
	Count  *int64 `json:"count" validate:"required,gte=0"`
	Reason string `json:"reason" validate:"omitempty,oneof=restock override reconcile"`
}

// GetStock returns the cached counter for a product.
func GetStock(logg *logger.Logger, ledger stockLedger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		productID := chi.URLParam(r, "productID")

		count, err := ledger.Get(ctx, productID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"product_id": productID,
			"count":      count,
		})
	}
}

// SetStock overwrites the counter for a product (operator override).
func SetStock(logg *logger.Logger, ledger stockLedger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		productID := chi.URLParam(r, "productID")

		var body setStockRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		reason := enums.StockReasonOverride
		if body.Reason != "" {
			parsed, err := enums.ParseStockReason(body.Reason)
			if err != nil {
				responses.WriteError(ctx, logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reason"))
				return
			}
			reason = parsed
		}

		if err := ledger.Set(ctx, productID, *body.Count, reason); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"product_id": productID,
			"count":      *body.Count,
		})
	}
}

// GetStockHistory returns the recent audit entries for a product.
func GetStockHistory(logg *logger.Logger, ledger stockLedger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		productID := chi.URLParam(r, "productID")

		entries, err := ledger.History(ctx, productID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"product_id": productID,
			"history":    entries,
		})
	}
}
