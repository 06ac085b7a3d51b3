package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/bizops/internal/devserver/domain"
	"github.com/aussiebroadwan/bizops/internal/devserver/store"
	"github.com/aussiebroadwan/bizops/pkg/cryptox"
	"github.com/aussiebroadwan/bizops/pkg/idx"
	"github.com/aussiebroadwan/bizops/pkg/jwtx"
	"github.com/aussiebroadwan/bizops/pkg/slogx"
)

var ErrInvalidRefresh = errors.New("invalid_refresh_token")

type TokenService struct {
	Signer     jwtx.Signer
	Store      store.Store
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Issue signs an access token for u and stores a fresh refresh token using
// repos from st, which may be a transaction.
func (s *TokenService) Issue(ctx context.Context, st store.Store, u domain.User, amr []string, now time.Time) (domain.TokenPair, error) {
	claims := jwtx.NewAccessClaims(u.ID, u.CompanyID, u.Role, u.Username, amr, s.AccessTTL, s.Issuer, now)
	access, err := s.Signer.Sign(claims)
	if err != nil {
		return domain.TokenPair{}, err
	}

	refresh, err := cryptox.NewOpaqueToken()
	if err != nil {
		return domain.TokenPair{}, err
	}

	rt := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    u.ID,
		TokenHash: refresh.Fingerprint,
		AMR:       amr,
		ExpiresAt: now.Add(s.RefreshTTL),
		CreatedAt: now,
	}
	if err := st.RefreshTokens().CreateRefreshToken(ctx, rt); err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh.Value,
		ExpiresIn:    s.AccessTTL,
	}, nil
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued for the same user.
func (s *TokenService) Refresh(ctx context.Context, refreshOpaque string) (domain.Session, error) {
	now := time.Now()
	log := slogx.FromContext(ctx)

	if refreshOpaque == "" {
		return domain.Session{}, ErrInvalidRefresh
	}

	var out domain.Session
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		rt, err := tx.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.Fingerprint(refreshOpaque))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefresh
			}
			return err
		}
		if rt.Revoked || !now.Before(rt.ExpiresAt) {
			log.Warn("stale refresh token presented", "token_id", rt.ID, "revoked", rt.Revoked)
			return ErrInvalidRefresh
		}

		user, err := tx.Users().GetUserByID(ctx, rt.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefresh
			}
			return err
		}
		company, err := tx.Companies().GetCompany(ctx, user.CompanyID)
		if err != nil {
			return err
		}

		if err := tx.RefreshTokens().RevokeRefreshToken(ctx, rt.ID); err != nil {
			return err
		}
		pair, err := s.Issue(ctx, tx, user, rt.AMR, now)
		if err != nil {
			return err
		}

		out = domain.Session{User: user, Company: company, Tokens: pair}
		return nil
	})
	if err != nil {
		return domain.Session{}, err
	}
	return out, nil
}
