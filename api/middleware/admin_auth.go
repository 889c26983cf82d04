package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/mnhidayatgani/chatbot-sub000/api/responses"
	pkgerrors "github.com/mnhidayatgani/chatbot-sub000/pkg/errors"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/logger"
)

// AdminAuth guards the operator endpoints with a static bearer token. An
// empty configured token disables the endpoints outright rather than
// leaving them open.
func AdminAuth(logg *logger.Logger, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if token == "" {
				responses.WriteError(ctx, logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "admin endpoints disabled"))
				return
			}

			presented := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				responses.WriteError(ctx, logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid admin token"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
