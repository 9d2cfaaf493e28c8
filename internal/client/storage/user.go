package storage

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/atinyakov/CTFClient/internal/models"
)

type userState struct {
	CurrentUser *models.User `json:"currentUser"`
}

// UserStore is the read-only view of the signed-in user.
type UserStore struct {
	mu      sync.RWMutex
	state   userState
	backend Backend
	log     *zap.Logger
}

// UserWriter is the only handle that can change a UserStore. It is returned
// once, by NewUserStore, and owned by the current-user query.
type UserWriter struct {
	s *UserStore
}

// NewUserStore restores the persisted snapshot from b.
func NewUserStore(ctx context.Context, b Backend, log *zap.Logger) (*UserStore, *UserWriter, error) {
	s := &UserStore{backend: b, log: log}
	if err := load(ctx, b, UserNamespace, &s.state); err != nil {
		return nil, nil, err
	}
	return s, &UserWriter{s: s}, nil
}

// Current returns a copy of the signed-in user.
func (s *UserStore) Current() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.CurrentUser == nil {
		return models.User{}, false
	}
	return *s.state.CurrentUser, true
}

func (s *UserStore) persist(ctx context.Context) error {
	if err := s.backend.Save(ctx, UserNamespace, s.state); err != nil {
		s.log.Warn("failed to persist user store", zap.Error(err))
		return err
	}
	return nil
}

// Set replaces the snapshot.
func (w *UserWriter) Set(ctx context.Context, u models.User) error {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	w.s.state.CurrentUser = &u
	return w.s.persist(ctx)
}

// Clear forgets the user, on logout.
func (w *UserWriter) Clear(ctx context.Context) error {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	w.s.state.CurrentUser = nil
	return w.s.persist(ctx)
}
