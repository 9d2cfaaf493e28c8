// Package stream consumes the server-push notification feed and hands each
// announcement to the notification store.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/r3labs/sse/v2"
	"go.uber.org/zap"
	"gopkg.in/cenkalti/backoff.v1"

	"github.com/atinyakov/CTFClient/internal/models"
)

const (
	// DefaultPath is the feed endpoint relative to the API base URL.
	DefaultPath = "/sse/notifications"
	// NotificationEvent is the event name carrying announcements.
	NotificationEvent = "notification"
)

// Opener starts a credentialed streaming request; *api.Client implements it.
type Opener interface {
	Open(ctx context.Context, path, accept string) (*http.Response, error)
}

// Sink receives parsed notifications and reports whether they were new.
type Sink interface {
	Add(ctx context.Context, n models.Notification) bool
}

// openerTransport routes the event-source request through an Opener so the
// feed carries the same credentials and interceptors as every other call.
type openerTransport struct {
	opener Opener
}

func (t openerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.opener.Open(req.Context(), req.URL.Path, req.Header.Get("Accept"))
}

// Consumer reads one connection of the feed.
type Consumer struct {
	opener Opener
	path   string
	sink   Sink
	log    *zap.Logger
}

// New returns a Consumer for path (DefaultPath when empty).
func New(opener Opener, path string, sink Sink, log *zap.Logger) *Consumer {
	if path == "" {
		path = DefaultPath
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{opener: opener, path: path, sink: sink, log: log}
}

// Run connects and forwards events until the server closes the stream, the
// connection fails or ctx is done. It never reconnects; a clean close by
// the server returns nil.
func (c *Consumer) Run(ctx context.Context) error {
	client := sse.NewClient(c.path)
	client.Connection = &http.Client{Transport: openerTransport{opener: c.opener}}
	client.ReconnectStrategy = &backoff.StopBackOff{}
	client.OnConnect(func(*sse.Client) {
		c.log.Info("notification stream connected", zap.String("path", c.path))
	})

	err := client.SubscribeRawWithContext(ctx, func(ev *sse.Event) {
		c.handle(ctx, ev)
	})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		c.log.Warn("notification stream closed", zap.Error(err))
		return fmt.Errorf("notification stream: %w", err)
	}
	c.log.Info("notification stream ended")
	return nil
}

func (c *Consumer) handle(ctx context.Context, ev *sse.Event) {
	if string(ev.Event) != NotificationEvent {
		return
	}
	var n models.Notification
	if err := json.Unmarshal(ev.Data, &n); err != nil {
		c.log.Warn("skipping malformed notification", zap.ByteString("data", ev.Data), zap.Error(err))
		return
	}
	if n.ID == 0 {
		c.log.Warn("skipping notification without id", zap.ByteString("data", ev.Data))
		return
	}
	if c.sink.Add(ctx, n) {
		c.log.Debug("notification received", zap.Int64("id", n.ID), zap.String("title", n.Title))
	}
}

// IsClosed reports whether err only means the stream was stopped locally.
func IsClosed(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}
