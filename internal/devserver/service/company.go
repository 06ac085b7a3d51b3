package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/aussiebroadwan/bizops/internal/devserver/domain"
	"github.com/aussiebroadwan/bizops/internal/devserver/store"
	"github.com/aussiebroadwan/bizops/pkg/featuregate"
)

type CompanyService struct {
	Store store.Store
}

// GetCompany returns the actor's own company; other tenants are invisible.
func (s *CompanyService) GetCompany(ctx context.Context, actor Actor, id string) (domain.Company, error) {
	if id != actor.CompanyID {
		return domain.Company{}, ErrNotFound
	}
	c, err := s.Store.Companies().GetCompany(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Company{}, ErrNotFound
	}
	return c, err
}

// CompanyUpdate is a partial company update; nil fields are untouched.
type CompanyUpdate struct {
	Name          *string
	Plan          *featuregate.Plan
	Industry      *string
	EmployeeCount *string
	Address       *string
	City          *string
	State         *string
	Country       *string
	PostalCode    *string
	Phone         *string
	Email         *string
	Website       *string
	Logo          *string
}

func (s *CompanyService) UpdateCompany(ctx context.Context, actor Actor, id string, p CompanyUpdate) (domain.Company, error) {
	if !actor.IsAdmin() {
		return domain.Company{}, ErrForbidden
	}
	c, err := s.GetCompany(ctx, actor, id)
	if err != nil {
		return domain.Company{}, err
	}

	errs := fieldErrors{}
	if p.Name != nil {
		errs.required("name", *p.Name)
	}
	if p.Plan != nil && !p.Plan.Valid() {
		errs.add("plan", "is not a known plan")
	}
	if p.Email != nil && *p.Email != "" {
		if _, err := mail.ParseAddress(*p.Email); err != nil {
			errs.add("email", "is not a valid e-mail address")
		}
	}
	if err := errs.err(); err != nil {
		return domain.Company{}, err
	}

	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&c.Name, p.Name)
	set(&c.Industry, p.Industry)
	set(&c.EmployeeCount, p.EmployeeCount)
	set(&c.Address, p.Address)
	set(&c.City, p.City)
	set(&c.State, p.State)
	set(&c.Country, p.Country)
	set(&c.PostalCode, p.PostalCode)
	set(&c.Phone, p.Phone)
	set(&c.Email, p.Email)
	set(&c.Website, p.Website)
	set(&c.Logo, p.Logo)
	if p.Plan != nil {
		c.Plan = *p.Plan
	}

	if err := s.Store.Companies().UpdateCompany(ctx, c); err != nil {
		return domain.Company{}, err
	}
	return s.Store.Companies().GetCompany(ctx, c.ID)
}

// Onboarding creates another tenant together with its first admin.
type Onboarding struct {
	CompanyName   string
	AdminEmail    string
	AdminPassword string
	AdminName     string
	Plan          featuregate.Plan
}

// Onboard is restricted to admins. The new company defaults to Basic.
func (s *CompanyService) Onboard(ctx context.Context, actor Actor, in Onboarding) (domain.Company, error) {
	if !actor.IsAdmin() {
		return domain.Company{}, ErrForbidden
	}
	if in.Plan == "" {
		in.Plan = featuregate.Basic
	}
	if !in.Plan.Valid() {
		return domain.Company{}, invalid("plan", "is not a known plan")
	}

	r := Registration{
		Username:    in.AdminEmail,
		Email:       in.AdminEmail,
		Name:        in.AdminName,
		Password:    in.AdminPassword,
		CompanyName: in.CompanyName,
	}
	if err := r.validate(); err != nil {
		return domain.Company{}, err
	}

	company, _, err := createTenant(ctx, s.Store, r, in.Plan, time.Now())
	return company, err
}
