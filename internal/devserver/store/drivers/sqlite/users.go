package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/bizops/internal/devserver/domain"
)

type usersRepo struct {
	q querier
}

const userColumns = `id, company_id, username, email, name, first_name, last_name, role,
	password_hash, department, position, job_title, phone, bio, two_fa_secret,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u                    domain.User
		secret               sql.NullString
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&u.ID, &u.CompanyID, &u.Username, &u.Email, &u.Name, &u.FirstName, &u.LastName, &u.Role,
		&u.PasswordHash, &u.Department, &u.Position, &u.JobTitle, &u.Phone, &u.Bio, &secret,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	u.TwoFASecret = mapNullStringPtr(secret)
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByLogin(ctx context.Context, login string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? OR email = ? LIMIT 1`, login, login)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) ListUsersByCompany(ctx context.Context, companyID string) ([]domain.User, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE company_id = ? ORDER BY created_at, id`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now()
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.CompanyID, u.Username, u.Email, u.Name, u.FirstName, u.LastName, u.Role,
		u.PasswordHash, u.Department, u.Position, u.JobTitle, u.Phone, u.Bio,
		mapOptionalString(u.TwoFASecret), toMillis(now), toMillis(now),
	)
	return mapConstraint(err)
}

func (r *usersRepo) UpdateUser(ctx context.Context, u domain.User) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE users SET
			email = ?, name = ?, first_name = ?, last_name = ?, role = ?,
			department = ?, position = ?, job_title = ?, phone = ?, bio = ?,
			updated_at = ?
		WHERE id = ?`,
		u.Email, u.Name, u.FirstName, u.LastName, u.Role,
		u.Department, u.Position, u.JobTitle, u.Phone, u.Bio,
		toMillis(time.Now()), u.ID,
	)
	return requireAffected(res, mapConstraint(err))
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, toMillis(time.Now()), userID)
	return requireAffected(res, err)
}

func (r *usersRepo) SetTwoFASecret(ctx context.Context, userID string, secret *string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET two_fa_secret = ?, updated_at = ? WHERE id = ?`,
		mapOptionalString(secret), toMillis(time.Now()), userID)
	return requireAffected(res, err)
}

func (r *usersRepo) DeleteUser(ctx context.Context, companyID, userID string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM users WHERE id = ? AND company_id = ?`, userID, companyID)
	return requireAffected(res, err)
}
