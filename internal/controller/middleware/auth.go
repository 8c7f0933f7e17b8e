// Package middleware contains HTTP middleware for the controller.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"vibeplane/internal/auth"
	"vibeplane/pkg/api"
)

// userIDKey is the context key for the authenticated user id.
type userIDKey struct{}

// AuthMiddleware resolves the bearer token to a user id and stores it in
// the request context. Every job and credit operation is scoped by user.
func AuthMiddleware(authenticator auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				unauthorized(w, "Missing API token")
				return
			}

			userID, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				unauthorized(w, "Invalid API token")
				return
			}

			ctx := NewContextWithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewContextWithUserID returns a context carrying the authenticated user id.
func NewContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext extracts the authenticated user id from the context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey{}).(string)
	return v, ok && v != ""
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(api.ErrorResponse{
		Error: message,
		Code:  "401",
	})
}
