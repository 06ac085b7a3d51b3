package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/bizops/internal/devserver/store"
)

type txStore struct {
	tx *sql.Tx
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{tx: tx}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Close() error { return nil } // caller commits or rolls back; the DB stays open

// Ping is a no-op for transactions; the connection is already held.
func (t *txStore) Ping(ctx context.Context) error {
	return nil
}

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) Users() store.Users                 { return &usersRepo{q: t.tx} }
func (t *txStore) Companies() store.Companies         { return &companiesRepo{q: t.tx} }
func (t *txStore) Records() store.Records             { return &recordsRepo{q: t.tx} }
func (t *txStore) History() store.History             { return &historyRepo{q: t.tx} }
func (t *txStore) RefreshTokens() store.RefreshTokens { return &refreshTokensRepo{q: t.tx} }
func (t *txStore) LoginChallenges() store.LoginChallenges {
	return &loginChallengesRepo{q: t.tx}
}

func (t *txStore) ApplyMigrations() error { return nil } // migrations run before any tx
