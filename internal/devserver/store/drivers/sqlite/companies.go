package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/bizops/internal/devserver/domain"
	"github.com/aussiebroadwan/bizops/pkg/featuregate"
)

type companiesRepo struct {
	q querier
}

func (r *companiesRepo) GetCompany(ctx context.Context, id string) (domain.Company, error) {
	var (
		c                    domain.Company
		plan                 string
		createdAt, updatedAt int64
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT id, name, plan, industry, employee_count, address, city, state, country,
			postal_code, phone, email, website, logo, subscription_status, created_at, updated_at
		FROM companies WHERE id = ?`, id,
	).Scan(
		&c.ID, &c.Name, &plan, &c.Industry, &c.EmployeeCount, &c.Address, &c.City, &c.State, &c.Country,
		&c.PostalCode, &c.Phone, &c.Email, &c.Website, &c.Logo, &c.SubscriptionStatus, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.Company{}, mapNotFound(err)
	}
	c.Plan = featuregate.Plan(plan)
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updatedAt)
	return c, nil
}

func (r *companiesRepo) CreateCompany(ctx context.Context, c domain.Company) error {
	now := toMillis(time.Now())
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO companies (id, name, plan, industry, employee_count, address, city, state, country,
			postal_code, phone, email, website, logo, subscription_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, string(c.Plan), c.Industry, c.EmployeeCount, c.Address, c.City, c.State, c.Country,
		c.PostalCode, c.Phone, c.Email, c.Website, c.Logo, c.SubscriptionStatus, now, now,
	)
	return mapConstraint(err)
}

func (r *companiesRepo) UpdateCompany(ctx context.Context, c domain.Company) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE companies SET
			name = ?, plan = ?, industry = ?, employee_count = ?, address = ?, city = ?, state = ?,
			country = ?, postal_code = ?, phone = ?, email = ?, website = ?, logo = ?,
			subscription_status = ?, updated_at = ?
		WHERE id = ?`,
		c.Name, string(c.Plan), c.Industry, c.EmployeeCount, c.Address, c.City, c.State,
		c.Country, c.PostalCode, c.Phone, c.Email, c.Website, c.Logo,
		c.SubscriptionStatus, toMillis(time.Now()), c.ID,
	)
	return requireAffected(res, err)
}
