// Package sqlite is a file-backed tokenstore.KV on modernc sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aussiebroadwan/bizops/pkg/tokenstore"
	_ "modernc.org/sqlite"
)

type KV struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*KV, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	kv, err := NewKV(fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path))
	if err != nil {
		return nil, err
	}
	if err := kv.ApplyMigrations(); err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("failed to apply token store migrations: %w", err)
	}
	return kv, nil
}

// NewKV opens dsn without touching the schema.
func NewKV(dsn string) (*KV, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// one writer keeps sqlite from reporting SQLITE_BUSY under concurrent use
	db.SetMaxOpenConns(1)

	return &KV{db: db, now: time.Now}, nil
}

// WithClock replaces time.Now for expiry checks.
func (k *KV) WithClock(now func() time.Time) *KV {
	k.now = now
	return k
}

func (k *KV) Close() error { return k.db.Close() }

func (k *KV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	var expiresAt sql.NullInt64
	if ttl > 0 {
		expiresAt = sql.NullInt64{Int64: k.now().Add(ttl).UnixMilli(), Valid: true}
	}

	_, err := k.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt,
	)
	return err
}

func (k *KV) Get(ctx context.Context, key string) (string, error) {
	var (
		value     string
		expiresAt sql.NullInt64
	)
	err := k.db.QueryRowContext(ctx, `SELECT value, expires_at FROM kv WHERE key = ?`, key).
		Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", tokenstore.ErrMissing
	}
	if err != nil {
		return "", err
	}

	if expiresAt.Valid && k.now().UnixMilli() >= expiresAt.Int64 {
		if err := k.Delete(ctx, key); err != nil {
			return "", err
		}
		return "", tokenstore.ErrMissing
	}
	return value, nil
}

func (k *KV) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if _, err := k.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
			return err
		}
	}
	return nil
}
