package http

import (
	"context"
	"strings"
	"time"

	"github.com/aussiebroadwan/bizops/internal/devserver/domain"
	"github.com/aussiebroadwan/bizops/internal/devserver/service"
	"github.com/aussiebroadwan/bizops/pkg/httpx"
	"github.com/aussiebroadwan/bizops/pkg/opssdk"
)

// actorFrom builds the service caller from the verified token claims.
func actorFrom(ctx context.Context) service.Actor {
	c, _ := httpx.ClaimsFromContext(ctx)
	return service.Actor{UserID: c.Subject, CompanyID: c.CompanyID, Role: c.Role}
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func userView(u domain.User) opssdk.User {
	return opssdk.User{
		ID:           opssdk.ID(u.ID),
		Username:     u.Username,
		Email:        u.Email,
		Name:         u.Name,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Role:         u.Role,
		CompanyID:    opssdk.ID(u.CompanyID),
		Department:   u.Department,
		Position:     u.Position,
		JobTitle:     u.JobTitle,
		Phone:        u.Phone,
		Bio:          u.Bio,
		IsActive:     true,
		TwoFAEnabled: u.TwoFAEnabled(),
		CreatedAt:    stamp(u.CreatedAt),
		UpdatedAt:    stamp(u.UpdatedAt),
	}
}

func usersView(in []domain.User) []opssdk.User {
	out := make([]opssdk.User, 0, len(in))
	for _, u := range in {
		out = append(out, userView(u))
	}
	return out
}

func companyView(c domain.Company) opssdk.Company {
	return opssdk.Company{
		ID:                 opssdk.ID(c.ID),
		Name:               c.Name,
		Plan:               c.Plan,
		Industry:           c.Industry,
		EmployeeCount:      c.EmployeeCount,
		Address:            c.Address,
		City:               c.City,
		State:              c.State,
		Country:            c.Country,
		PostalCode:         c.PostalCode,
		Phone:              c.Phone,
		Email:              c.Email,
		Website:            c.Website,
		Logo:               c.Logo,
		SubscriptionStatus: c.SubscriptionStatus,
		CreatedAt:          stamp(c.CreatedAt),
		UpdatedAt:          stamp(c.UpdatedAt),
	}
}

// sessionView fills both the nested and the flat user fields so older
// clients keep working.
func sessionView(s domain.Session) opssdk.AuthResponse {
	u := userView(s.User)
	c := companyView(s.Company)
	return opssdk.AuthResponse{
		Token:        s.Tokens.AccessToken,
		RefreshToken: s.Tokens.RefreshToken,
		Type:         "Bearer",
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Name:         u.Name,
		CompanyID:    u.CompanyID,
		Roles:        []string{"ROLE_" + strings.ToUpper(u.Role)},
		User:         &u,
		Company:      &c,
	}
}

func auditView(kind string, in []domain.HistoryEntry) []opssdk.AuditEntry {
	out := make([]opssdk.AuditEntry, 0, len(in))
	for _, e := range in {
		out = append(out, opssdk.AuditEntry{
			ID:         opssdk.ID(e.ID),
			ParentID:   opssdk.ID(e.ParentID),
			ParentType: kind,
			Action:     e.Action,
			FieldName:  e.FieldName,
			OldValue:   e.OldValue,
			NewValue:   e.NewValue,
			ChangedBy:  e.ChangedBy,
			ChangedAt:  stamp(e.ChangedAt),
			Remarks:    e.Remarks,
		})
	}
	return out
}

func statusView(in []domain.HistoryEntry) []opssdk.StatusChange {
	out := make([]opssdk.StatusChange, 0, len(in))
	for _, e := range in {
		out = append(out, opssdk.StatusChange{
			ID:        opssdk.ID(e.ID),
			ParentID:  opssdk.ID(e.ParentID),
			OldStatus: e.OldValue,
			NewStatus: e.NewValue,
			ChangedBy: e.ChangedBy,
			ChangedAt: stamp(e.ChangedAt),
			Remarks:   e.Remarks,
		})
	}
	return out
}

// pageBody is the paged listing envelope.
type pageBody struct {
	Content       []domain.Record `json:"content"`
	TotalElements int             `json:"totalElements"`
	TotalPages    int             `json:"totalPages"`
	Page          int             `json:"page"`
	Size          int             `json:"size"`
}

// listingBody returns a bare array unless the caller asked for a page.
func listingBody(p service.RecordPage) any {
	if !p.Paged {
		return p.Items
	}
	return pageBody{
		Content:       p.Items,
		TotalElements: p.Total,
		TotalPages:    p.TotalPages(),
		Page:          p.Page,
		Size:          p.Size,
	}
}
