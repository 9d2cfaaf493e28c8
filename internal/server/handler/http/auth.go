// Package http provides the HTTP handlers and routing of the CTF dev server.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/CTFClient/internal/middleware"
	"github.com/atinyakov/CTFClient/internal/models"
	"github.com/atinyakov/CTFClient/internal/service"
)

// AuthService defines the authentication operations
// required by the HTTP handlers.
type AuthService interface {
	// Login checks creds and returns the account with a signed session token.
	Login(ctx context.Context, creds models.Credentials) (models.AdminUser, string, error)
	// CurrentUser loads the account a session belongs to.
	CurrentUser(ctx context.Context, sess middleware.Session) (models.AdminUser, error)
}

// AuthHandler handles session requests.
type AuthHandler struct {
	AuthService AuthService
	// SessionTTL is the cookie lifetime.
	SessionTTL time.Duration
	// Secure marks the cookie as HTTPS-only.
	Secure bool
	Log    *zap.Logger
}

// Login expects {"email","password"} and answers with the user and a
// session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if !decode(w, r, &creds) {
		return
	}
	u, tok, err := h.AuthService.Login(r.Context(), creds)
	if errors.Is(err, service.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		h.Log.Error("login failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    tok,
		Path:     "/",
		MaxAge:   int(h.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, u.User)
}

// Logout expires the session cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Secure,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Me returns the account of the current session. A session whose account
// was deleted is treated as expired.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext(r.Context())
	u, err := h.AuthService.CurrentUser(r.Context(), sess)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "session expired")
		return
	}
	writeJSON(w, http.StatusOK, u.User)
}
