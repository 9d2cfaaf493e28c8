package storage

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/atinyakov/CTFClient/internal/models"
)

type notificationState struct {
	Notifications []models.ClientNotification `json:"notifications"`
	UnreadCount   int                         `json:"unreadCount"`
}

// NotificationStore is the newest-first list of received announcements.
type NotificationStore struct {
	mu      sync.RWMutex
	state   notificationState
	backend Backend
	log     *zap.Logger
}

func NewNotificationStore(ctx context.Context, b Backend, log *zap.Logger) (*NotificationStore, error) {
	s := &NotificationStore{backend: b, log: log}
	if err := load(ctx, b, NotificationNamespace, &s.state); err != nil {
		return nil, err
	}
	return s, nil
}

// Add prepends n as unread unless a notification with its id is already
// stored. It reports whether n was added.
func (s *NotificationStore) Add(ctx context.Context, n models.Notification) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.state.Notifications {
		if existing.ID == n.ID {
			return false
		}
	}
	list := make([]models.ClientNotification, 0, len(s.state.Notifications)+1)
	list = append(list, models.ClientNotification{Notification: n})
	s.state.Notifications = append(list, s.state.Notifications...)
	s.state.UnreadCount++
	s.persist(ctx)
	return true
}

// MarkAsRead flags id as read and recounts the unread ones.
func (s *NotificationStore) MarkAsRead(ctx context.Context, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]models.ClientNotification, len(s.state.Notifications))
	unread := 0
	for i, n := range s.state.Notifications {
		if n.ID == id {
			n.IsRead = true
		}
		if !n.IsRead {
			unread++
		}
		list[i] = n
	}
	s.state.Notifications, s.state.UnreadCount = list, unread
	s.persist(ctx)
}

func (s *NotificationStore) ClearAll(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = notificationState{}
	s.persist(ctx)
}

// List returns a copy of the notifications, newest first.
func (s *NotificationStore) List() []models.ClientNotification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.ClientNotification(nil), s.state.Notifications...)
}

func (s *NotificationStore) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.UnreadCount
}

func (s *NotificationStore) persist(ctx context.Context) {
	if err := s.backend.Save(ctx, NotificationNamespace, s.state); err != nil {
		s.log.Warn("failed to persist notifications", zap.Error(err))
	}
}
