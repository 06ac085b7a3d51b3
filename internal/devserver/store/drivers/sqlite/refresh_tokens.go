package sqlite

import (
	"context"
	"strings"

	"github.com/aussiebroadwan/bizops/internal/devserver/domain"
)

type refreshTokensRepo struct {
	q querier
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, amr, expires_at, revoked, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.TokenHash, strings.Join(t.AMR, " "),
		toMillis(t.ExpiresAt), t.Revoked, toMillis(t.CreatedAt),
	)
	return mapConstraint(err)
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	var (
		t                    domain.RefreshToken
		amr                  string
		expiresAt, createdAt int64
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, amr, expires_at, revoked, created_at
		FROM refresh_tokens WHERE token_hash = ?`, hash,
	).Scan(&t.ID, &t.UserID, &t.TokenHash, &amr, &expiresAt, &t.Revoked, &createdAt)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	t.AMR = strings.Fields(amr)
	t.ExpiresAt = fromMillis(expiresAt)
	t.CreatedAt = fromMillis(createdAt)
	return t, nil
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = 1 WHERE id = ?`, id)
	return requireAffected(res, err)
}

func (r *refreshTokensRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	_, err := r.q.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = 1 WHERE user_id = ?`, userID)
	return err
}
