package middleware

import (
	"context"
	"net/http"

	"github.com/nkiryanov/mondoauth/internal/handlers/render"
)

type authChecker interface {
	IsAuthenticated(ctx context.Context) (bool, error)
}

// Reject request with 401 unless access token is stored
func AuthMiddleware(a authChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := a.IsAuthenticated(r.Context())
			switch {
			case err != nil:
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
				return
			case !ok:
				render.ServiceError(w, "Not authenticated", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
