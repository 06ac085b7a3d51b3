package sqlite

import (
	"context"

	"github.com/aussiebroadwan/bizops/internal/devserver/domain"
)

type loginChallengesRepo struct {
	q querier
}

func (r *loginChallengesRepo) OpenChallenge(ctx context.Context, c domain.LoginChallenge) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO login_challenges (user_id, expires_at, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			expires_at = excluded.expires_at,
			created_at = excluded.created_at`,
		c.UserID, toMillis(c.ExpiresAt), toMillis(c.CreatedAt),
	)
	return err
}

func (r *loginChallengesRepo) GetChallenge(ctx context.Context, userID string) (domain.LoginChallenge, error) {
	var (
		c                    domain.LoginChallenge
		expiresAt, createdAt int64
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT user_id, expires_at, created_at FROM login_challenges WHERE user_id = ?`, userID,
	).Scan(&c.UserID, &expiresAt, &createdAt)
	if err != nil {
		return domain.LoginChallenge{}, mapNotFound(err)
	}
	c.ExpiresAt = fromMillis(expiresAt)
	c.CreatedAt = fromMillis(createdAt)
	return c, nil
}

func (r *loginChallengesRepo) ConsumeChallenge(ctx context.Context, userID string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM login_challenges WHERE user_id = ?`, userID)
	return requireAffected(res, err)
}
