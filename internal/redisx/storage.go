package redisx

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Storage stores preference values as plain Redis strings without expiry.
// It satisfies prefs.Storage.
type Storage struct {
	Client    redis.Cmdable
	Namespace string
}

func NewStorage(rdb redis.Cmdable, namespace string) *Storage {
	if namespace == "" {
		namespace = "default"
	}
	return &Storage{Client: rdb, Namespace: namespace}
}

func (s *Storage) key(k string) string { return fmt.Sprintf(KeyPrefs, s.Namespace, k) }

func (s *Storage) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.Client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	if err := s.Client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	if err := s.Client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
