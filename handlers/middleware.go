package handlers

import (
	"context"
	"net/http"

	"github.com/anu100405/REUNITE/models"
	"github.com/anu100405/REUNITE/repository"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

// UserContextKey is the key used to store the user object in the request context.
const UserContextKey ContextKey = "user"

// UserFromContext returns the authenticated user placed by the auth
// middleware, if any.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	return user, ok && user != nil
}

// AuthMiddleware verifies the bearer token, loads the user, and stores them
// in the request context. Requests without a valid token are rejected.
func AuthMiddleware(users repository.UserRepository, secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Authorization header required"})
				return
			}

			userID, err := parseBearerToken(authHeader, secret)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid token: " + err.Error()})
				return
			}

			user, err := users.GetByID(userID)
			if err != nil {
				// token subject may have been deleted since issuance
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "User not found"})
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthMiddleware resolves the user when a valid bearer token is
// present and otherwise lets the request through anonymously. Used on the
// create route, where an authenticated reporter owns the submission.
func OptionalAuthMiddleware(users repository.UserRepository, secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := parseBearerToken(authHeader, secret)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			user, err := users.GetByID(userID)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
