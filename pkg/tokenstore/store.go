// Package tokenstore persists the client's access token, refresh token and
// cached user profile, and answers whether the session is still usable.
package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/bizops/pkg/jwtx"
)

const (
	keyAccess  = "access_token"
	keyRefresh = "refresh_token"
	keyUser    = "user"
	keyPending = "pending_second_factor"
)

// ExpiryBuffer is how far ahead of the token's exp claim the session is
// already treated as expired.
const ExpiryBuffer = 5 * time.Minute

// Store is the typed facade over a KV. Storage failures are logged and read
// back as "no value"; callers never see them.
type Store struct {
	kv     KV
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Store)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New wraps kv. A nil kv gets a fresh MemoryKV.
func New(kv KV, opts ...Option) *Store {
	if kv == nil {
		kv = NewMemoryKV()
	}
	s := &Store{kv: kv, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save overwrites both tokens. An empty refresh token removes the stored one.
func (s *Store) Save(ctx context.Context, access, refresh string) {
	s.set(ctx, keyAccess, access, 0)
	if refresh == "" {
		s.del(ctx, keyRefresh)
		return
	}
	s.set(ctx, keyRefresh, refresh, 0)
}

func (s *Store) Access(ctx context.Context) (string, bool) {
	return s.get(ctx, keyAccess)
}

func (s *Store) Refresh(ctx context.Context) (string, bool) {
	return s.get(ctx, keyRefresh)
}

// SaveUser caches the profile as JSON.
func (s *Store) SaveUser(ctx context.Context, user any) {
	raw, err := json.Marshal(user)
	if err != nil {
		s.logger.Warn("tokenstore: encode user", "err", err)
		return
	}
	s.set(ctx, keyUser, string(raw), 0)
}

// User decodes the cached profile into dst and reports whether one was found.
func (s *Store) User(ctx context.Context, dst any) bool {
	raw, ok := s.get(ctx, keyUser)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		s.logger.Warn("tokenstore: decode user", "err", err)
		return false
	}
	return true
}

// SavePending remembers a username awaiting its second factor for ttl.
func (s *Store) SavePending(ctx context.Context, username string, ttl time.Duration) {
	s.set(ctx, keyPending, username, ttl)
}

func (s *Store) Pending(ctx context.Context) (string, bool) {
	return s.get(ctx, keyPending)
}

func (s *Store) ClearPending(ctx context.Context) {
	s.del(ctx, keyPending)
}

// Clear removes tokens, cached profile and any pending challenge.
func (s *Store) Clear(ctx context.Context) {
	s.del(ctx, keyAccess, keyRefresh, keyUser, keyPending)
}

// IsAuthenticated reports whether the access token's exp claim lies more than
// ExpiryBuffer in the future. Opaque or malformed tokens count as expired.
func (s *Store) IsAuthenticated(ctx context.Context) bool {
	exp, ok := s.expiry(ctx)
	return ok && exp.After(s.now().Add(ExpiryBuffer))
}

// Expired reports whether the access token is a decodable JWT already inside
// the expiry buffer. Opaque tokens are never reported as expired.
func (s *Store) Expired(ctx context.Context) bool {
	exp, ok := s.expiry(ctx)
	return ok && !exp.After(s.now().Add(ExpiryBuffer))
}

// ExpiresIn returns the time left before exp, or zero for unusable tokens.
func (s *Store) ExpiresIn(ctx context.Context) time.Duration {
	exp, ok := s.expiry(ctx)
	if !ok {
		return 0
	}
	return max(exp.Sub(s.now()), 0)
}

func (s *Store) expiry(ctx context.Context) (time.Time, bool) {
	token, ok := s.Access(ctx)
	if !ok {
		return time.Time{}, false
	}
	claims, err := jwtx.ParseUnverified(token)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

func (s *Store) get(ctx context.Context, key string) (string, bool) {
	v, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMissing) {
			s.logger.Warn("tokenstore: read failed", "key", key, "err", err)
		}
		return "", false
	}
	return v, v != ""
}

func (s *Store) set(ctx context.Context, key, value string, ttl time.Duration) {
	if err := s.kv.Set(ctx, key, value, ttl); err != nil {
		s.logger.Warn("tokenstore: write failed", "key", key, "err", err)
	}
}

func (s *Store) del(ctx context.Context, keys ...string) {
	if err := s.kv.Delete(ctx, keys...); err != nil {
		s.logger.Warn("tokenstore: delete failed", "keys", keys, "err", err)
	}
}
