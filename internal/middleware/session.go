// Package middleware provides HTTP middlewares for session authentication and logging.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
)

type ctxKey string

const sessionKey ctxKey = "session"

// SessionCookie carries the signed session token.
const SessionCookie = "ctf_session"

// Session is the authenticated principal of a request.
type Session struct {
	UserID int64
	Admin  bool
}

// TokenVerifier turns a session token into a Session.
type TokenVerifier interface {
	Verify(token string) (Session, error)
}

// SessionAuth rejects requests without a valid session cookie with 401 and
// stores the Session in the request context otherwise.
func SessionAuth(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				writeError(w, http.StatusUnauthorized, "not authorized")
				return
			}
			s, err := v.Verify(cookie.Value)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "session expired")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}

// RequireAdmin answers 403 unless SessionAuth stored an admin session.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := SessionFromContext(r.Context())
		if !ok || !s.Admin {
			writeError(w, http.StatusForbidden, "admin only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext extracts the Session stored by SessionAuth.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey).(Session)
	return s, ok
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
