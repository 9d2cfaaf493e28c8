package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/atinyakov/CTFClient/internal/client/api"
	"github.com/atinyakov/CTFClient/internal/client/storage"
)

type openerFunc func(ctx context.Context, path, accept string) (*http.Response, error)

func (f openerFunc) Open(ctx context.Context, path, accept string) (*http.Response, error) {
	return f(ctx, path, accept)
}

func bodyOpener(body string) openerFunc {
	return func(ctx context.Context, path, accept string) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(body))}, nil
	}
}

func newStore(t *testing.T) *storage.NotificationStore {
	t.Helper()
	s, err := storage.NewNotificationStore(context.Background(), storage.NewMemoryBackend(), zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestRun_EventFraming(t *testing.T) {
	raw := ": connected\r\n\r\n" +
		"event: notification\r\n" +
		"id: 1\r\n" +
		"data: {\"id\":1,\"title\":\"crlf\"}\r\n" +
		"\r\n" +
		": ping\n\n" +
		"event: notification\n" +
		"data: {\"id\":2,\n" +
		"data: \"title\":\"multi line\"}\n" +
		"\n" +
		"event:notification\n" +
		"data:{\"id\":3,\"title\":\"no space\"}\n" +
		"\n" +
		"data: {\"id\":4,\"title\":\"unnamed\"}\n" +
		"\n"

	var gotPath, gotAccept string
	opener := openerFunc(func(ctx context.Context, path, accept string) (*http.Response, error) {
		gotPath, gotAccept = path, accept
		return bodyOpener(raw)(ctx, path, accept)
	})
	store := newStore(t)

	require.NoError(t, New(opener, "/custom/feed", store, nil).Run(context.Background()))

	assert.Equal(t, "/custom/feed", gotPath)
	assert.Equal(t, "text/event-stream", gotAccept)
	titles := map[int64]string{}
	for _, n := range store.List() {
		titles[n.ID] = n.Title
	}
	assert.Equal(t, map[int64]string{1: "crlf", 2: "multi line", 3: "no space"}, titles)
}

func TestRun_BrokenStreamIsAnError(t *testing.T) {
	broken := errors.New("connection reset")
	opener := openerFunc(func(ctx context.Context, path, accept string) (*http.Response, error) {
		body := io.MultiReader(strings.NewReader("event: notification\ndata: {\"id\":1}\n\n"), iotest.ErrReader(broken))
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(body)}, nil
	})
	store := newStore(t)

	err := New(opener, "", store, nil).Run(context.Background())
	require.Error(t, err)
	assert.False(t, IsClosed(err))
	assert.Len(t, store.List(), 1)
}

func TestRun_DeduplicatesNotifications(t *testing.T) {
	body := "event: notification\ndata: {\"id\":5,\"title\":\"Round 2\",\"content\":\"go\",\"date\":\"2026-10-19T10:00:00Z\"}\n\n" +
		"event: notification\ndata: {\"id\":5,\"title\":\"Round 2\",\"content\":\"go\",\"date\":\"2026-10-19T10:00:00Z\"}\n\n"
	store := newStore(t)

	require.NoError(t, New(bodyOpener(body), "", store, nil).Run(context.Background()))

	require.Len(t, store.List(), 1)
	assert.Equal(t, 1, store.UnreadCount())
	assert.Equal(t, "Round 2", store.List()[0].Title)
}

func TestRun_SkipsMalformedPayloads(t *testing.T) {
	var buf bytes.Buffer
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.AddSync(&buf), zapcore.WarnLevel)

	body := "event: notification\ndata: {not json\n\n" +
		"event: notification\ndata: {\"title\":\"no id\"}\n\n" +
		"event: heartbeat\ndata: {\"id\":9}\n\n" +
		"event: notification\ndata: {\"id\":2,\"title\":\"ok\",\"content\":\"c\",\"date\":\"2026-10-19T10:00:00Z\"}\n\n"
	store := newStore(t)

	require.NoError(t, New(bodyOpener(body), "", store, zap.New(core)).Run(context.Background()))

	require.Len(t, store.List(), 1)
	assert.EqualValues(t, 2, store.List()[0].ID)
	assert.Contains(t, buf.String(), "skipping malformed notification")
	assert.Contains(t, buf.String(), "skipping notification without id")
}

func TestRun_OpenFailureDoesNotRetry(t *testing.T) {
	calls := 0
	opener := openerFunc(func(ctx context.Context, path, accept string) (*http.Response, error) {
		calls++
		assert.Equal(t, DefaultPath, path)
		assert.Equal(t, "text/event-stream", accept)
		return nil, &api.Error{Method: http.MethodGet, Path: path, Status: http.StatusUnauthorized, Message: "not authorized"}
	})

	err := New(opener, "", newStore(t), nil).Run(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))
	assert.Equal(t, 1, calls)
	assert.False(t, IsClosed(err))
}

func TestRun_OverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/sse/notifications", r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for id := 1; id <= 3; id++ {
			_, _ = io.WriteString(w, "event: notification\n")
			_, _ = io.WriteString(w, `data: {"id":`+string(rune('0'+id))+`,"title":"t","content":"c","date":"2026-10-19T10:00:00Z"}`+"\n\n")
			flusher.Flush()
		}
		<-r.Context().Done()
	}))
	defer srv.Close()

	client, err := api.New(srv.URL + "/api/v1")
	require.NoError(t, err)
	store := newStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(client, "", store, nil).Run(ctx) }()

	require.Eventually(t, func() bool { return store.UnreadCount() == 3 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.True(t, IsClosed(err), "got %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
	assert.EqualValues(t, 3, store.List()[0].ID)
}
