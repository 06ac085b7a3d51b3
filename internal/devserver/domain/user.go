package domain

import "time"

const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleEmployee = "employee"
)

type User struct {
	ID           string
	CompanyID    string
	Username     string
	Email        string
	Name         string
	FirstName    string
	LastName     string
	Role         string
	PasswordHash string // argon2 encoded
	Department   string
	Position     string
	JobTitle     string
	Phone        string
	Bio          string
	TwoFASecret  *string // base32 one-time code secret, nil when 2FA is off
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u User) TwoFAEnabled() bool { return u.TwoFASecret != nil && *u.TwoFASecret != "" }

// ValidRole reports whether role is one of the tenant roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}
