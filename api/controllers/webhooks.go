package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mnhidayatgani/chatbot-sub000/api/responses"
	"github.com/mnhidayatgani/chatbot-sub000/internal/webhook"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/logger"
)

const callbackTokenHeader = "X-Callback-Token"

// webhookReconciler is the slice of the reconciler the ingress needs.
type webhookReconciler interface {
	VerifyToken(ctx context.Context, token string) error
	OnPaymentEvent(ctx context.Context, event webhook.Event) error
}

// PaymentWebhook receives gateway payment events. Authentication
// failures are rejected; everything past that is acknowledged with 200
// so the gateway stops redelivering, with processing errors kept in the
// logs.
func PaymentWebhook(logg *logger.Logger, reconciler webhookReconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if err := reconciler.VerifyToken(ctx, r.Header.Get(callbackTokenHeader)); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		// Gateways add fields over time; decode leniently.
		var event webhook.Event
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			logg.Error(ctx, "malformed webhook payload", err)
			responses.WriteSuccess(w, map[string]string{"status": "RECEIVED"})
			return
		}

		if err := reconciler.OnPaymentEvent(ctx, event); err != nil {
			logg.Error(ctx, "webhook processing failed", err)
		}
		responses.WriteSuccess(w, map[string]string{"status": "RECEIVED"})
	}
}
