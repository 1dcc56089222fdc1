// Package middleware provides HTTP middleware for authentication,
// CSRF protection, login rate limiting and request timeouts.
package middleware

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"blogd/internal/model"
	"blogd/internal/store"
)

type contextKey string

const (
	userContextKey contextKey = "user"
	pathContextKey contextKey = "requestPath"
)

// SessionUserIDKey is the session key holding the authenticated user's ID.
const SessionUserIDKey = "user_id"

// Auth requires an authenticated session. Unauthenticated requests are
// redirected to the login page with the original URL preserved.
func Auth(sm *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sm.GetInt64(r.Context(), SessionUserIDKey) == 0 {
				http.Redirect(w, r, "/auth/login?next="+r.URL.Path, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoadUser resolves the session's user ID to a store.User and stores it in
// the request context. A stale session pointing at a deleted user is
// destroyed and the request redirected to login.
func LoadUser(sm *scs.SessionManager, queries *store.Queries) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := sm.GetInt64(r.Context(), SessionUserIDKey)
			if userID == 0 {
				next.ServeHTTP(w, r)
				return
			}

			user, err := queries.GetUserByID(r.Context(), userID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					_ = sm.Destroy(r.Context())
					http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
					return
				}
				slog.Error("loading session user", "error", err, "user_id", userID)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, &user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin requires the loaded user to have the admin role. It must run
// after Auth and LoadUser.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUser(r.Context())
		if user == nil || user.Role != model.RoleAdmin {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequestPath stores the request path in the context for templates and
// logging.
func RequestPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), pathContextKey, r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUser returns the user loaded by LoadUser, or nil for anonymous
// requests.
func GetUser(ctx context.Context) *store.User {
	user, _ := ctx.Value(userContextKey).(*store.User)
	return user
}

// GetUserID returns the loaded user's ID, or 0 for anonymous requests.
func GetUserID(ctx context.Context) int64 {
	if user := GetUser(ctx); user != nil {
		return user.ID
	}
	return 0
}

// GetRequestPath returns the path stored by RequestPath.
func GetRequestPath(ctx context.Context) string {
	path, _ := ctx.Value(pathContextKey).(string)
	return path
}
