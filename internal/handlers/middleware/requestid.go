package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/nkiryanov/mondoauth/internal/handlers/requestid"
)

const RequestIDHeader = "X-Request-Id"

// Reuse request id sent by client if it is uuid, otherwise generate new one
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}

			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(requestid.New(r.Context(), id)))
		})
	}
}
