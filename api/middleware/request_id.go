package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mnhidayatgani/chatbot-sub000/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// maxInboundIDLength guards against a caller stuffing junk into the
// header that would then be echoed into every log line.
const maxInboundIDLength = 64

// RequestID tags every request with an id, honoring one supplied by the
// transport bridge so a message can be traced across both systems.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(requestIDHeader)
			if requestID == "" || len(requestID) > maxInboundIDLength {
				requestID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, requestID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, requestID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
