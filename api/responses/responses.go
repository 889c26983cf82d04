// Package responses owns the JSON envelopes the API writes. Handlers
// never touch the ResponseWriter encoding directly.
package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	pkgerrors "github.com/mnhidayatgani/chatbot-sub000/pkg/errors"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/logger"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/types"
)

// messageSafeCodes are the error codes whose internal message is already
// written for customers or operators and may go out verbatim. Everything
// else falls back to the code's canned public message.
var messageSafeCodes = map[pkgerrors.Code]bool{
	pkgerrors.CodeValidation:        true,
	pkgerrors.CodeUnauthorized:      true,
	pkgerrors.CodeNotFound:          true,
	pkgerrors.CodeConflict:          true,
	pkgerrors.CodeStateConflict:     true,
	pkgerrors.CodeInsufficientStock: true,
	pkgerrors.CodeRateLimit:         true,
}

// WriteSuccess writes a 200 with the standard data envelope.
func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

// WriteSuccessStatus writes the data envelope with an explicit status.
func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// WriteError maps any error onto the error envelope. Untyped errors are
// treated as internal so nothing accidental leaks to the caller.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	message := meta.PublicMessage
	if messageSafeCodes[typed.Code()] && typed.Message() != "" {
		message = typed.Message()
	}

	payload := types.ErrorEnvelope{Error: types.APIError{
		Code:    string(typed.Code()),
		Message: message,
	}}
	if meta.DetailsAllowed {
		payload.Error.Details = typed.Details()
	}

	if logg != nil {
		logCtx := logg.WithField(ctx, "error_code", string(typed.Code()))
		logg.Error(logCtx, "request.error", err)
	}
	writeJSON(w, meta.HTTPStatus, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// The status line is already gone; all we can do is note it.
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
