package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	authproviders "github.com/mskovgaard/warboard/pkg/auth/providers"
	"github.com/mskovgaard/warboard/pkg/game/types"
	"github.com/mskovgaard/warboard/pkg/log"
	"github.com/mskovgaard/warboard/pkg/store"
)

type ContextKey int

const (
	// UserContextKey is the key used to store the user in the request context
	UserContextKey ContextKey = iota
)

// NewAuthMiddleware verifies the bearer token and upserts the caller's
// profile document so other players can resolve their name.
func NewAuthMiddleware(authProvider authproviders.AuthProvider, st store.Store) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bearerToken, err := parseBearerToken(r)
			if err != nil {
				log.Error("failed to parse bearer token: %v", err)
				http.Error(w, "failed to parse bearer token", http.StatusUnauthorized)
				return
			}

			token, err := authProvider.VerifyToken(r.Context(), bearerToken)
			if err != nil {
				log.Error("failed to verify ID token: %v", err)
				http.Error(w, "failed to verify ID token", http.StatusUnauthorized)
				return
			}

			user := &types.User{
				ID:    token.UID,
				Name:  token.Name,
				Email: token.Email,
			}
			if err := st.Set(r.Context(), types.UserKey(user.ID), store.Encode(user)); err != nil {
				log.Error("failed to save user profile: %v", err)
				http.Error(w, "failed to save user profile", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the authenticated user set by the auth middleware.
func UserFromContext(ctx context.Context) (*types.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*types.User)
	return user, ok
}

// parseBearerToken parses the bearer token from the Authorization header
func parseBearerToken(r *http.Request) (string, error) {
	// Get the Authorization header value
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("authorization header is missing")
	}

	// Check if the Authorization header has the Bearer scheme
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", fmt.Errorf("invalid Authorization header format")
	}

	// Return the token part
	return parts[1], nil
}
