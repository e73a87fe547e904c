package prefs

import (
	"context"
	"sync"
)

// Storage is the key-value capability the Store persists through.
// Implementations must be idempotent; the Store may repeat writes.
type Storage interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

const (
	// KeyUserThemes holds the JSON-encoded map of user id to preset.
	KeyUserThemes = "userThemes"
	// KeyUserThemePrefix + user id holds that user's preset name.
	KeyUserThemePrefix = "theme_"
)

func UserThemeKey(userID string) string { return KeyUserThemePrefix + userID }

// MemoryStorage is a process-local Storage, used for the "memory" backend
// and in tests.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: map[string]string{}}
}

func (m *MemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryStorage) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
