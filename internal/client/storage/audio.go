package storage

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// AudioState is the player preference of the presentation layer.
type AudioState struct {
	Enabled     bool    `json:"enabled"`
	Playing     bool    `json:"isPlaying"`
	CurrentTime float64 `json:"currentTime"`
}

type AudioStore struct {
	mu      sync.RWMutex
	state   AudioState
	backend Backend
	log     *zap.Logger
}

// NewAudioStore restores the preference; audio starts enabled.
func NewAudioStore(ctx context.Context, b Backend, log *zap.Logger) (*AudioStore, error) {
	s := &AudioStore{state: AudioState{Enabled: true}, backend: b, log: log}
	if err := load(ctx, b, AudioNamespace, &s.state); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *AudioStore) State() AudioState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *AudioStore) SetEnabled(ctx context.Context, v bool) {
	s.update(ctx, func(st *AudioState) { st.Enabled = v })
}

func (s *AudioStore) SetPlaying(ctx context.Context, v bool) {
	s.update(ctx, func(st *AudioState) { st.Playing = v })
}

func (s *AudioStore) SetCurrentTime(ctx context.Context, t float64) {
	s.update(ctx, func(st *AudioState) { st.CurrentTime = t })
}

func (s *AudioStore) update(ctx context.Context, fn func(*AudioState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
	if err := s.backend.Save(ctx, AudioNamespace, s.state); err != nil {
		s.log.Warn("failed to persist audio preference", zap.Error(err))
	}
}
