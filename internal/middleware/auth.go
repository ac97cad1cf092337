// internal/middleware/auth.go

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/duelhouse/wager-service/internal/auth"
	"github.com/duelhouse/wager-service/internal/ban"
	"github.com/duelhouse/wager-service/internal/config"
)

type contextKey string

const userIDKey contextKey = "user_id"

// UserID returns the authenticated account id stored by Auth, or false
// if the request never passed through it.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// WithUserID injects an account id into the context. Used by tests and by
// the websocket handler after its own token handshake.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// BearerOrCookieToken pulls the JWT from the Authorization header or the
// auth_token cookie, preferring the header.
func BearerOrCookieToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie("auth_token"); err == nil {
		return c.Value
	}
	return ""
}

// Auth authenticates the request's JWT, rejects banned accounts, and puts
// the account id on the request context.
func Auth(logger *logrus.Logger, gate ban.Gate) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerOrCookieToken(r)
			if token == "" {
				http.Error(w, "missing auth token", http.StatusUnauthorized)
				return
			}

			userID, err := auth.AuthenticateJWT(token)
			if err != nil {
				http.Error(w, "invalid auth token", http.StatusForbidden)
				return
			}

			banned, err := gate.IsBanned(r.Context(), userID)
			if err != nil {
				logger.WithError(err).WithField("user_id", userID).Error("ban check failed")
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			if banned {
				http.Error(w, "account is banned", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// AdminOnly restricts a route to the configured admin ids. It must run
// after Auth.
func AdminOnly(cfg config.Config) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserID(r.Context())
			if !ok || !cfg.IsAdmin(userID) {
				http.Error(w, "admin access required", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
