package controllers

import (
	"context"
	"net/http"

	"github.com/mnhidayatgani/chatbot-sub000/api/responses"
	"github.com/mnhidayatgani/chatbot-sub000/api/validators"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/logger"
)

// messageHandler is the slice of the engine the ingress needs.
type messageHandler interface {
	Handle(ctx context.Context, customerID, text string) (string, error)
}

type inboundMessage struct {
	CustomerID string `json:"customer_id" validate:"required"`
	Text       string `json:"text" validate:"required"`
}

// InboundMessage accepts one customer message from the transport gateway
// and returns the engine's reply.
func InboundMessage(logg *logger.Logger, engine messageHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var body inboundMessage
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		reply, err := engine.Handle(ctx, body.CustomerID, body.Text)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"reply": reply})
	}
}
