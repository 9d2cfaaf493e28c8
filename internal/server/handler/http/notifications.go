package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/sse"
	"go.uber.org/zap"

	"github.com/atinyakov/CTFClient/internal/models"
	"github.com/atinyakov/CTFClient/internal/service"
)

// NotificationEvent is the SSE event name of a new announcement.
const NotificationEvent = "notification"

const keepAlive = 15 * time.Second

// NotificationStore is the persistence needed by NotificationHandler.
type NotificationStore interface {
	CreateNotification(ctx context.Context, nn models.NewNotification) models.Notification
	Notifications(ctx context.Context) []models.Notification
}

// Broadcaster fans events out to connected streams.
type Broadcaster interface {
	Subscribe(ctx context.Context) (*service.Subscriber, error)
	Unsubscribe(s *service.Subscriber)
	Publish(ctx context.Context, event string, v any) error
}

// NotificationHandler publishes announcements and serves the event stream.
type NotificationHandler struct {
	Store NotificationStore
	Hub   Broadcaster
	Log   *zap.Logger
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Store.Notifications(r.Context()))
}

// Create stores the announcement and pushes it to every stream.
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var nn models.NewNotification
	if !decode(w, r, &nn) {
		return
	}
	n := h.Store.CreateNotification(r.Context(), nn)
	if err := h.Hub.Publish(r.Context(), NotificationEvent, n); err != nil {
		h.Log.Warn("failed to publish notification", zap.Int64("id", n.ID), zap.Error(err))
	}
	writeJSON(w, http.StatusCreated, n)
}

// Stream holds the connection open and writes every published event.
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	sub, err := h.Hub.Subscribe(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "stream unavailable")
		return
	}
	defer h.Hub.Unsubscribe(sub)

	w.Header().Set("Content-Type", sse.ContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-sub.C:
			if !ok {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
