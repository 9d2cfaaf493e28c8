package resource

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/CTFClient/internal/client/api"
	"github.com/atinyakov/CTFClient/internal/models"
)

type call struct {
	method string
	path   string
	body   any
}

// mockRequester records calls and answers with respond.
type mockRequester struct {
	calls   []call
	respond func(method, path string, out any) error
}

func (m *mockRequester) do(method, path string, body, out any) error {
	m.calls = append(m.calls, call{method, path, body})
	if m.respond == nil {
		return nil
	}
	return m.respond(method, path, out)
}

func (m *mockRequester) Get(_ context.Context, path string, out any) error {
	return m.do(http.MethodGet, path, nil, out)
}

func (m *mockRequester) Post(_ context.Context, path string, body, out any) error {
	return m.do(http.MethodPost, path, body, out)
}

func (m *mockRequester) Patch(_ context.Context, path string, body, out any) error {
	return m.do(http.MethodPatch, path, body, out)
}

func (m *mockRequester) Delete(_ context.Context, path string, out any) error {
	return m.do(http.MethodDelete, path, nil, out)
}

func (m *mockRequester) Download(_ context.Context, path string) ([]byte, error) {
	var blob []byte
	err := m.do(http.MethodGet, path, nil, &blob)
	return blob, err
}

func ptr[T any](v T) *T { return &v }

func TestRoutes(t *testing.T) {
	ctx := context.Background()
	flag := models.NewFlag{Content: "ctf{x}", Type: "static"}
	hint := models.NewHint{Content: "look closer", Cost: 10}
	freeze := models.Freeze{UnfreezeAt: "2026-10-19T12:00:00Z"}

	tests := []struct {
		name   string
		run    func(r *Resources) error
		method string
		path   string
	}{
		{"login", func(r *Resources) error {
			return r.Login(ctx, models.Credentials{Email: "a@b.io", Password: "pw"})
		}, http.MethodPost, "/users/login"},
		{"logout", func(r *Resources) error {
			return r.Logout(ctx)
		}, http.MethodPost, "/users/logout"},
		{"current user", func(r *Resources) error { _, err := r.FetchCurrentUser(ctx); return err }, http.MethodGet, "/users/me"},
		{"teams", func(r *Resources) error { _, err := r.FetchTeams(ctx); return err }, http.MethodGet, "/teams"},
		{"teams admin", func(r *Resources) error { _, err := r.FetchTeamsAdmin(ctx); return err }, http.MethodGet, "/admin/teams"},
		{"team", func(r *Resources) error { _, err := r.FetchTeam(ctx, 4); return err }, http.MethodGet, "/teams/4"},
		{"members", func(r *Resources) error { _, err := r.FetchTeamMembers(ctx, 4); return err }, http.MethodGet, "/teams/4/members"},
		{"users admin", func(r *Resources) error { _, err := r.FetchUsersAdmin(ctx); return err }, http.MethodGet, "/admin/users"},
		{"delete user", func(r *Resources) error { return r.DeleteUser(ctx, 7) }, http.MethodDelete, "/admin/users/7"},
		{"update user", func(r *Resources) error {
			_, err := r.UpdateUser(ctx, 7, models.UserUpdate{Banned: ptr(true)})
			return err
		}, http.MethodPatch, "/admin/users/7"},
		{"create user", func(r *Resources) error {
			_, err := r.CreateUser(ctx, models.NewUser{Name: "n", Email: "n@b.io", Password: "secret1"})
			return err
		}, http.MethodPost, "/admin/users"},
		{"delete team", func(r *Resources) error { return r.DeleteTeam(ctx, 5) }, http.MethodDelete, "/admin/teams/5"},
		{"update team", func(r *Resources) error {
			_, err := r.UpdateTeam(ctx, 5, models.TeamUpdate{Name: ptr("blue")})
			return err
		}, http.MethodPatch, "/admin/teams/5"},
		{"create team", func(r *Resources) error {
			_, err := r.CreateTeam(ctx, models.NewTeam{Name: "blue"})
			return err
		}, http.MethodPost, "/admin/teams"},
		{"notification", func(r *Resources) error {
			_, err := r.CreateNotification(ctx, models.NewNotification{Title: "t", Content: "c"})
			return err
		}, http.MethodPost, "/notifications"},
		{"challenges", func(r *Resources) error { _, err := r.FetchChallengesAdmin(ctx); return err }, http.MethodGet, "/admin/challenges"},
		{"challenge", func(r *Resources) error { _, err := r.FetchChallenge(ctx, 42); return err }, http.MethodGet, "/admin/challenges/42"},
		{"create challenge", func(r *Resources) error {
			_, err := r.CreateChallenge(ctx, models.NewChallenge{Name: "web", State: models.StateVisible, Type: models.TypeStandard})
			return err
		}, http.MethodPost, "/admin/challenges"},
		{"update challenge", func(r *Resources) error {
			_, err := r.UpdateChallenge(ctx, 42, models.ChallengeUpdate{Value: ptr(200)})
			return err
		}, http.MethodPatch, "/admin/challenges/42"},
		{"delete challenge", func(r *Resources) error { return r.DeleteChallenge(ctx, 42) }, http.MethodDelete, "/admin/challenges/42"},
		{"flags", func(r *Resources) error { _, err := r.FetchFlags(ctx, 42); return err }, http.MethodGet, "/admin/challenges/42/flags"},
		{"create flag", func(r *Resources) error { _, err := r.CreateFlag(ctx, 42, flag); return err }, http.MethodPost, "/admin/challenges/42/flags"},
		{"edit flag", func(r *Resources) error { _, err := r.EditFlag(ctx, 42, 3, flag); return err }, http.MethodPost, "/admin/challenges/42/flags/3"},
		{"delete flag", func(r *Resources) error { return r.DeleteFlag(ctx, 42, 3) }, http.MethodDelete, "/admin/challenges/42/flag/3"},
		{"hints", func(r *Resources) error { _, err := r.FetchHints(ctx, 42); return err }, http.MethodGet, "/admin/challenges/42/hints"},
		{"create hint", func(r *Resources) error { _, err := r.CreateHint(ctx, 42, hint); return err }, http.MethodPost, "/admin/challenges/42/hints"},
		{"edit hint", func(r *Resources) error { _, err := r.EditHint(ctx, 42, 8, hint); return err }, http.MethodPatch, "/admin/challenges/42/hints/8"},
		{"delete hint", func(r *Resources) error { return r.DeleteHint(ctx, 42, 8) }, http.MethodDelete, "/admin/challenges/42/hints/8"},
		{"files", func(r *Resources) error { _, err := r.FetchFiles(ctx, 42); return err }, http.MethodGet, "/admin/challenges/42/files"},
		{"upload file", func(r *Resources) error {
			_, err := r.UploadFile(ctx, 42, Upload{Name: "a.zip", Type: "standard", Content: strings.NewReader("x")})
			return err
		}, http.MethodPost, "/admin/challenges/42/files"},
		{"download file", func(r *Resources) error { _, err := r.DownloadFile(ctx, 42, 9); return err }, http.MethodGet, "/admin/challenges/42/file/9"},
		{"delete file", func(r *Resources) error { return r.DeleteFile(ctx, 42, 9) }, http.MethodDelete, "/admin/challenges/42/file/9"},
		{"freeze all", func(r *Resources) error { return r.FreezeAll(ctx, freeze) }, http.MethodPost, "/admin/challenges/freezeall"},
		{"thaw all", func(r *Resources) error { return r.ThawAll(ctx) }, http.MethodPost, "/admin/challenges/thawall"},
		{"freeze one", func(r *Resources) error { return r.FreezeChallenge(ctx, 42, freeze) }, http.MethodPost, "/admin/challenges/freezeall/42"},
		{"thaw one", func(r *Resources) error { return r.ThawChallenge(ctx, 42) }, http.MethodPost, "/admin/challenges/thawall/42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockRequester{}
			require.NoError(t, tt.run(New(m)))
			require.Len(t, m.calls, 1)
			assert.Equal(t, tt.method, m.calls[0].method)
			assert.Equal(t, tt.path, m.calls[0].path)
		})
	}
}

func TestValidationStopsRequest(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		run  func(r *Resources) error
	}{
		{"bad email", func(r *Resources) error {
			return r.Login(ctx, models.Credentials{Email: "nope", Password: "pw"})
		}},
		{"empty team name", func(r *Resources) error {
			_, err := r.CreateTeam(ctx, models.NewTeam{})
			return err
		}},
		{"short password", func(r *Resources) error {
			_, err := r.CreateUser(ctx, models.NewUser{Name: "n", Email: "n@b.io", Password: "123"})
			return err
		}},
		{"zero id", func(r *Resources) error { return r.DeleteTeam(ctx, 0) }},
		{"bad flag type", func(r *Resources) error {
			_, err := r.CreateFlag(ctx, 1, models.NewFlag{Content: "x", Type: "fuzzy"})
			return err
		}},
		{"bad freeze time", func(r *Resources) error {
			return r.FreezeAll(ctx, models.Freeze{UnfreezeAt: "tomorrow"})
		}},
		{"upload without content", func(r *Resources) error {
			_, err := r.UploadFile(ctx, 1, Upload{Name: "a"})
			return err
		}},
		{"bad challenge state", func(r *Resources) error {
			state := models.ChallengeState("archived")
			_, err := r.UpdateChallenge(ctx, 1, models.ChallengeUpdate{State: &state})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockRequester{}
			err := tt.run(New(m))
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr), "got %v", err)
			assert.NotEmpty(t, vErr.UserMessage())
			assert.Empty(t, m.calls)
		})
	}
}

func TestErrorsPropagateUnchanged(t *testing.T) {
	want := &api.Error{Method: http.MethodDelete, Path: "/admin/teams/5", Status: http.StatusConflict, Message: "team has members"}
	m := &mockRequester{respond: func(string, string, any) error { return want }}

	err := New(m).DeleteTeam(context.Background(), 5)
	assert.Same(t, want, err)
}

func TestFlagCarriesChallengeID(t *testing.T) {
	m := &mockRequester{}
	_, err := New(m).CreateFlag(context.Background(), 42, models.NewFlag{Content: "x", Type: "regex"})
	require.NoError(t, err)
	sent := m.calls[0].body.(models.NewFlag)
	assert.EqualValues(t, 42, sent.ChallengeID)
}

func TestAgainstHTTPServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPatch && r.URL.Path == "/api/v1/admin/users/7":
			var raw map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
			assert.Equal(t, map[string]any{"banned": true}, raw, "unset fields must not be sent")
			_, _ = w.Write([]byte(`{"id":7,"name":"eve","banned":true,"type":"user"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/admin/challenges/42/file/9":
			_, _ = w.Write([]byte("payload"))
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/admin/challenges/42/files":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			f, _, err := r.FormFile("file")
			require.NoError(t, err)
			data, _ := io.ReadAll(f)
			assert.Equal(t, "zip", string(data))
			assert.Equal(t, "a.zip", r.FormValue("name"))
			_, _ = w.Write([]byte(`{"id":9,"name":"a.zip","challenge_id":42}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := api.New(srv.URL + "/api/v1")
	require.NoError(t, err)
	res := New(c)
	ctx := context.Background()

	u, err := res.UpdateUser(ctx, 7, models.UserUpdate{Banned: ptr(true)})
	require.NoError(t, err)
	assert.True(t, u.Banned)
	assert.Equal(t, "user", u.Type)

	f, err := res.UploadFile(ctx, 42, Upload{Name: "a.zip", Type: "standard", Content: strings.NewReader("zip")})
	require.NoError(t, err)
	assert.EqualValues(t, 9, f.ID)

	blob, err := res.DownloadFile(ctx, 42, 9)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(blob))

	_, err = res.FetchTeam(ctx, 1)
	assert.Equal(t, http.StatusNotFound, api.StatusOf(err))
}
