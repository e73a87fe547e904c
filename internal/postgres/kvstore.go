package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// KVStore keeps preference values in the kv_store table, scoped by
// namespace. It satisfies prefs.Storage.
//
//	CREATE TABLE kv_store (
//	    namespace  TEXT NOT NULL,
//	    key        TEXT NOT NULL,
//	    value      TEXT NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    PRIMARY KEY (namespace, key)
//	);
type KVStore struct {
	DB        Querier
	Namespace string
}

func NewKVStore(db Querier, namespace string) *KVStore {
	if namespace == "" {
		namespace = "default"
	}
	return &KVStore{DB: db, Namespace: namespace}
}

func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.DB.QueryRow(ctx,
		`SELECT value FROM kv_store WHERE namespace=$1 AND key=$2`, s.Namespace, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv get %s: %w", key, err)
	}
	return v, true, nil
}

// Set is an upsert, so repeated writes are harmless.
func (s *KVStore) Set(ctx context.Context, key, value string) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO kv_store(namespace, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, s.Namespace, key, value)
	if err != nil {
		return fmt.Errorf("kv set %s: %w", key, err)
	}
	return nil
}

func (s *KVStore) Remove(ctx context.Context, key string) error {
	if _, err := s.DB.Exec(ctx,
		`DELETE FROM kv_store WHERE namespace=$1 AND key=$2`, s.Namespace, key); err != nil {
		return fmt.Errorf("kv remove %s: %w", key, err)
	}
	return nil
}
