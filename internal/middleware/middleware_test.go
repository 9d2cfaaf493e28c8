package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// dummyHandler records if it was called and the context it received.
type dummyHandler struct {
	called bool
	ctx    context.Context
}

func (d *dummyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.called = true
	d.ctx = r.Context()
	w.WriteHeader(http.StatusOK)
}

type verifierFunc func(string) (Session, error)

func (f verifierFunc) Verify(tok string) (Session, error) { return f(tok) }

var staticVerifier = verifierFunc(func(tok string) (Session, error) {
	switch tok {
	case "admin":
		return Session{UserID: 1, Admin: true}, nil
	case "player":
		return Session{UserID: 2}, nil
	}
	return Session{}, errors.New("bad token")
})

func TestSessionAuth(t *testing.T) {
	tests := []struct {
		name       string
		cookie     string
		wantCode   int
		wantCalled bool
	}{
		{"no cookie", "", http.StatusUnauthorized, false},
		{"bad token", "forged", http.StatusUnauthorized, false},
		{"valid token", "player", http.StatusOK, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dummy := &dummyHandler{}
			h := SessionAuth(staticVerifier)(dummy)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tt.cookie})
			}
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, rec.Code)
			}
			if dummy.called != tt.wantCalled {
				t.Errorf("expected called=%v", tt.wantCalled)
			}
			if tt.wantCalled {
				s, ok := SessionFromContext(dummy.ctx)
				if !ok || s.UserID != 2 {
					t.Errorf("expected session for user 2, got %+v", s)
				}
			} else if !strings.Contains(rec.Body.String(), `"error"`) {
				t.Errorf("expected JSON error body, got %q", rec.Body.String())
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	for tok, want := range map[string]int{"admin": http.StatusOK, "player": http.StatusForbidden} {
		dummy := &dummyHandler{}
		h := SessionAuth(staticVerifier)(RequireAdmin(dummy))
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/teams", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tok})
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("%s: expected %d, got %d", tok, want, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	RequireAdmin(&dummyHandler{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 without session, got %d", rec.Code)
	}
}

func TestWithRequestLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := WithRequestLogging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
		w.(http.Flusher).Flush()
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/teams", nil)
	req.Header.Set("X-Request-ID", "req-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("http request").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusTeapot) {
		t.Errorf("unexpected status field %v", fields["status"])
	}
	if fields["size"] != int64(len("short and stout")) {
		t.Errorf("unexpected size field %v", fields["size"])
	}
	if fields["request_id"] != "req-1" || fields["path"] != "/api/v1/teams" {
		t.Errorf("unexpected fields %v", fields)
	}
}
