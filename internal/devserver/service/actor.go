package service

import "github.com/aussiebroadwan/bizops/internal/devserver/domain"

// Actor is the authenticated caller of a service method.
type Actor struct {
	UserID    string
	CompanyID string
	Role      string
}

func (a Actor) IsAdmin() bool { return a.Role == domain.RoleAdmin }

// CanApprove reports whether the actor may decide on requests of others.
func (a Actor) CanApprove() bool {
	return a.Role == domain.RoleAdmin || a.Role == domain.RoleManager
}
