package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// KV exposes the kv table as a string-keyed, string-valued durable map.
// It is the on-disk stand-in for browser localStorage.
type KV struct {
	db *sql.DB
}

// NewKV wraps an initialized database.
func NewKV(database *sql.DB) *KV {
	return &KV{db: database}
}

// Get returns the raw value stored under key. ok is false when the key is absent.
func (k *KV) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := k.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, goerr.Wrap(err, "failed to read key", goerr.V("key", key))
	}
	return value, true, nil
}

// Set writes value under key, replacing any previous value.
func (k *KV) Set(ctx context.Context, key, value string) error {
	_, err := k.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().Unix())
	if err != nil {
		return goerr.Wrap(err, "failed to write key", goerr.V("key", key), goerr.V("bytes", len(value)))
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (k *KV) Delete(ctx context.Context, key string) error {
	if _, err := k.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return goerr.Wrap(err, "failed to delete key", goerr.V("key", key))
	}
	return nil
}

// Keys lists every stored key in lexical order.
func (k *KV) Keys(ctx context.Context) ([]string, error) {
	rows, err := k.db.QueryContext(ctx, `SELECT key FROM kv ORDER BY key`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list keys")
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, goerr.Wrap(err, "failed to scan key")
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate keys")
	}
	return keys, nil
}
