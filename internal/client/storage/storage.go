// Package storage keeps the client-side stores (current user, notifications,
// audio preference) and persists each under its own namespace.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Namespaces of the persisted stores.
const (
	UserNamespace         = "user-store"
	NotificationNamespace = "notification-storage"
	AudioNamespace        = "audio-store"
)

// ErrNotFound is returned by Load when nothing was saved under a namespace.
var ErrNotFound = errors.New("storage: namespace not found")

// Backend persists one JSON document per namespace.
type Backend interface {
	Load(ctx context.Context, namespace string, v any) error
	Save(ctx context.Context, namespace string, v any) error
	Delete(ctx context.Context, namespace string) error
}

// FileBackend keeps each namespace in <Dir>/<namespace>.json.
type FileBackend struct {
	Dir string
	mu  sync.Mutex
}

// NewFileBackend creates dir if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &FileBackend{Dir: dir}, nil
}

func (b *FileBackend) path(namespace string) string {
	return filepath.Join(b.Dir, namespace+".json")
}

func (b *FileBackend) Load(_ context.Context, namespace string, v any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, err := os.Open(b.path(namespace))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", namespace, err)
	}
	return nil
}

// Save writes through a temporary file so a crash never leaves a torn document.
func (b *FileBackend) Save(_ context.Context, namespace string, v any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	tmp, err := os.CreateTemp(b.Dir, namespace+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := json.NewEncoder(tmp).Encode(v); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", namespace, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), b.path(namespace))
}

func (b *FileBackend) Delete(_ context.Context, namespace string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := os.Remove(b.path(namespace)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// MemoryBackend keeps documents in memory. Used when persistence is off.
type MemoryBackend struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{docs: make(map[string][]byte)}
}

func (b *MemoryBackend) Load(_ context.Context, namespace string, v any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	raw, ok := b.docs[namespace]
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(raw, v)
}

func (b *MemoryBackend) Save(_ context.Context, namespace string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.docs[namespace] = raw
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, namespace string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.docs, namespace)
	return nil
}

// load restores v from b, treating a missing namespace as empty state.
func load(ctx context.Context, b Backend, namespace string, v any) error {
	if err := b.Load(ctx, namespace, v); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}
