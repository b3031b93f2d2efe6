package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/opsgrid/triagekit/internal/api"
)

type contextKey string

// AuthValidator checks a bearer token. Implementations decide what a valid
// token is; the middleware only handles header plumbing.
type AuthValidator interface {
	ValidateAPIKey(ctx context.Context, token string) error
}

// APIKeyAuth rejects requests without a valid Bearer token.
func APIKeyAuth(validator AuthValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")

			if err := validator.ValidateAPIKey(r.Context(), token); err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
