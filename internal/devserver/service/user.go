package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/aussiebroadwan/bizops/internal/devserver/domain"
	"github.com/aussiebroadwan/bizops/internal/devserver/store"
	"github.com/aussiebroadwan/bizops/pkg/cryptox"
	"github.com/aussiebroadwan/bizops/pkg/idx"
	"github.com/aussiebroadwan/bizops/pkg/slogx"
)

var ErrWrongPassword = errors.New("current password is incorrect")

type UserService struct {
	Store store.Store
	Auth  *AuthService
}

// GetUser returns a user of the actor's company.
func (s *UserService) GetUser(ctx context.Context, actor Actor, id string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, err
	}
	if u.CompanyID != actor.CompanyID {
		return domain.User{}, ErrNotFound
	}
	return u, nil
}

func (s *UserService) ListCompanyUsers(ctx context.Context, actor Actor) ([]domain.User, error) {
	return s.Store.Users().ListUsersByCompany(ctx, actor.CompanyID)
}

// NewUser is an account an admin adds to their company.
type NewUser struct {
	Username   string
	Email      string
	Name       string
	Password   string
	Role       string
	Department string
	Position   string
	Phone      string
}

func (s *UserService) CreateUser(ctx context.Context, actor Actor, in NewUser) (domain.User, error) {
	if !actor.IsAdmin() {
		return domain.User{}, ErrForbidden
	}

	errs := fieldErrors{}
	errs.required("username", in.Username)
	errs.required("email", in.Email)
	errs.required("name", in.Name)
	if len(in.Password) < 8 {
		errs.add("password", "must be at least 8 characters")
	}
	if in.Role == "" {
		in.Role = domain.RoleEmployee
	}
	if !domain.ValidRole(in.Role) {
		errs.add("role", "must be one of admin, manager, employee")
	}
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			errs.add("email", "is not a valid e-mail address")
		}
	}
	if err := errs.err(); err != nil {
		return domain.User{}, err
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, err
	}
	first, last, _ := strings.Cut(strings.TrimSpace(in.Name), " ")
	u := domain.User{
		ID:           idx.New().String(),
		CompanyID:    actor.CompanyID,
		Username:     strings.TrimSpace(in.Username),
		Email:        strings.TrimSpace(in.Email),
		Name:         strings.TrimSpace(in.Name),
		FirstName:    first,
		LastName:     strings.TrimSpace(last),
		Role:         in.Role,
		PasswordHash: hash,
		Department:   in.Department,
		Position:     in.Position,
		Phone:        in.Phone,
	}
	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrAccountExists
		}
		return domain.User{}, err
	}
	return s.Store.Users().GetUserByID(ctx, u.ID)
}

// ProfileUpdate changes profile fields; nil fields are untouched. Role is
// only honoured for admins.
type ProfileUpdate struct {
	Name       *string
	FirstName  *string
	LastName   *string
	Email      *string
	Phone      *string
	Department *string
	Position   *string
	JobTitle   *string
	Bio        *string
	Role       *string
}

// UpdateProfile lets users edit themselves and admins edit anyone in their
// company.
func (s *UserService) UpdateProfile(ctx context.Context, actor Actor, id string, p ProfileUpdate) (domain.User, error) {
	if id != actor.UserID && !actor.IsAdmin() {
		return domain.User{}, ErrForbidden
	}
	u, err := s.GetUser(ctx, actor, id)
	if err != nil {
		return domain.User{}, err
	}

	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&u.Name, p.Name)
	set(&u.FirstName, p.FirstName)
	set(&u.LastName, p.LastName)
	set(&u.Email, p.Email)
	set(&u.Phone, p.Phone)
	set(&u.Department, p.Department)
	set(&u.Position, p.Position)
	set(&u.JobTitle, p.JobTitle)
	set(&u.Bio, p.Bio)

	if p.Role != nil {
		if !actor.IsAdmin() {
			return domain.User{}, ErrForbidden
		}
		if !domain.ValidRole(*p.Role) {
			return domain.User{}, invalid("role", "must be one of admin, manager, employee")
		}
		u.Role = *p.Role
	}

	if u.Email == "" {
		return domain.User{}, invalid("email", "is required")
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return domain.User{}, invalid("email", "is not a valid e-mail address")
	}
	if p.FirstName != nil || p.LastName != nil {
		if p.Name == nil {
			u.Name = strings.TrimSpace(u.FirstName + " " + u.LastName)
		}
	}

	if err := s.Store.Users().UpdateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, invalid("email", "is already in use")
		}
		return domain.User{}, err
	}
	return s.Store.Users().GetUserByID(ctx, u.ID)
}

func (s *UserService) DeleteUser(ctx context.Context, actor Actor, id string) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if id == actor.UserID {
		return invalid("id", "cannot delete your own account")
	}
	err := s.Store.Users().DeleteUser(ctx, actor.CompanyID, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// ChangePassword replaces the actor's password and revokes their refresh
// tokens.
func (s *UserService) ChangePassword(ctx context.Context, actor Actor, oldPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return invalid("newPassword", "must be at least 8 characters")
	}
	u, err := s.GetUser(ctx, actor, actor.UserID)
	if err != nil {
		return err
	}
	if err := cryptox.VerifyPassword(oldPassword, u.PasswordHash); err != nil {
		return ErrWrongPassword
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, u.ID, hash); err != nil {
			return err
		}
		return tx.RefreshTokens().RevokeUserRefreshTokens(ctx, u.ID)
	})
}

// SetTwoFactor turns e-mailed login codes on or off for the actor.
func (s *UserService) SetTwoFactor(ctx context.Context, actor Actor, enabled bool) (domain.User, error) {
	u, err := s.GetUser(ctx, actor, actor.UserID)
	if err != nil {
		return domain.User{}, err
	}
	if u.TwoFAEnabled() == enabled {
		return u, nil
	}

	var secret *string
	if enabled {
		sec, err := s.Auth.NewTwoFASecret(u.Email)
		if err != nil {
			return domain.User{}, err
		}
		secret = &sec
	}
	if err := s.Store.Users().SetTwoFASecret(ctx, u.ID, secret); err != nil {
		return domain.User{}, fmt.Errorf("failed to store 2FA setting: %w", err)
	}

	slogx.FromContext(ctx).Info("two-factor login changed", "user_id", u.ID, "enabled", enabled)
	u.TwoFASecret = secret
	return u, nil
}
