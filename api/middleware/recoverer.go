package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/mnhidayatgani/chatbot-sub000/api/responses"
	pkgerrors "github.com/mnhidayatgani/chatbot-sub000/pkg/errors"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/logger"
)

// Recoverer converts a handler panic into a 500 response. A panic while
// handling one customer's message must never take the process down with
// every other conversation in flight.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				err := fmt.Errorf("panic: %v", rec)
				ctx := r.Context()
				if logg != nil {
					ctx = logg.WithFields(ctx, map[string]any{
						"panic": rec,
						"path":  r.URL.Path,
						"stack": string(debug.Stack()),
					})
					logg.Error(ctx, "panic.recovered", err)
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
