package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/bizops/internal/devserver/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Sub-repositories keep concerns
// apart and stop callers from opening transactions within transactions.
type Store interface {
	Users() Users
	Companies() Companies
	Records() Records
	History() History
	RefreshTokens() RefreshTokens
	LoginChallenges() LoginChallenges

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing when fn returns
	// nil and rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByLogin matches the username or the e-mail address.
	GetUserByLogin(ctx context.Context, login string) (domain.User, error)

	ListUsersByCompany(ctx context.Context, companyID string) ([]domain.User, error)

	// CreateUser returns ErrAlreadyExists when the username or e-mail is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateUser writes the profile fields and role and bumps updated_at.
	UpdateUser(ctx context.Context, u domain.User) error

	UpdatePasswordHash(ctx context.Context, userID, newHash string) error

	// SetTwoFASecret enables two-factor login with secret, or disables it
	// when secret is nil.
	SetTwoFASecret(ctx context.Context, userID string, secret *string) error

	// DeleteUser cascades to refresh_tokens (per schema).
	DeleteUser(ctx context.Context, companyID, userID string) error
}

type Companies interface {
	GetCompany(ctx context.Context, id string) (domain.Company, error)
	CreateCompany(ctx context.Context, c domain.Company) error
	UpdateCompany(ctx context.Context, c domain.Company) error
}

type Records interface {
	CreateRecord(ctx context.Context, r domain.Record) error
	GetRecord(ctx context.Context, kind, companyID, id string) (domain.Record, error)

	// ListRecords returns one page of matches, oldest first, and the total
	// number of matches.
	ListRecords(ctx context.Context, q domain.RecordQuery) ([]domain.Record, int, error)

	UpdateRecord(ctx context.Context, r domain.Record) error
	DeleteRecord(ctx context.Context, kind, companyID, id string) error
}

type History interface {
	AppendHistory(ctx context.Context, e domain.HistoryEntry) error
	ListHistory(ctx context.Context, companyID, parentKind, parentID, entryType string) ([]domain.HistoryEntry, error)
}

type RefreshTokens interface {
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the token by its fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	RevokeRefreshToken(ctx context.Context, id string) error

	// RevokeUserRefreshTokens revokes every token of a user, e.g. after a
	// password change.
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
}

// LoginChallenges holds at most one open second-factor challenge per user.
type LoginChallenges interface {
	// OpenChallenge creates or replaces the user's challenge.
	OpenChallenge(ctx context.Context, c domain.LoginChallenge) error

	GetChallenge(ctx context.Context, userID string) (domain.LoginChallenge, error)

	// ConsumeChallenge deletes the challenge, returning ErrNotFound when
	// there was none, so only one caller can complete it.
	ConsumeChallenge(ctx context.Context, userID string) error
}
