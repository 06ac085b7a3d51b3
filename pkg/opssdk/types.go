package opssdk

import (
	"slices"
	"strings"

	"github.com/aussiebroadwan/bizops/pkg/featuregate"
)

// ============================================================================
// Authentication
// ============================================================================

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is what login, verify-2fa and register return. Older
// backends flatten the user into the top level; newer ones nest it.
type AuthResponse struct {
	Token        string   `json:"token,omitempty"`
	JWT          string   `json:"jwt,omitempty"`
	RefreshToken string   `json:"refreshToken,omitempty"`
	Type         string   `json:"type,omitempty"`
	ID           ID       `json:"id,omitempty"`
	Username     string   `json:"username,omitempty"`
	Email        string   `json:"email,omitempty"`
	Name         string   `json:"name,omitempty"`
	CompanyID    ID       `json:"companyId,omitempty"`
	Roles        []string `json:"roles,omitempty"`
	User         *User    `json:"user,omitempty"`
	Company      *Company `json:"company,omitempty"`
	Message      string   `json:"message,omitempty"`
}

// AccessToken returns whichever token field the backend filled in.
func (r AuthResponse) AccessToken() string {
	if r.Token != "" {
		return r.Token
	}
	return r.JWT
}

// Profile returns the nested user or one assembled from the flat fields.
func (r AuthResponse) Profile() User {
	if r.User != nil {
		return *r.User
	}
	u := User{
		ID:        r.ID,
		Username:  r.Username,
		Email:     r.Email,
		Name:      r.Name,
		CompanyID: r.CompanyID,
		Roles:     r.Roles,
	}
	if len(r.Roles) > 0 {
		u.Role = strings.TrimPrefix(strings.ToLower(r.Roles[0]), "role_")
	}
	return u
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RegisterRequest is what a new tenant fills in. The role and plan of the
// first account are fixed by the SDK, not the caller.
type RegisterRequest struct {
	FirstName     string
	LastName      string
	Email         string
	Password      string
	CompanyName   string
	Industry      string
	EmployeeCount string
}

func (r RegisterRequest) Validate() error {
	errs := fieldErrors{}
	errs.required("firstName", r.FirstName)
	errs.required("lastName", r.LastName)
	errs.required("email", r.Email)
	errs.email("email", r.Email)
	errs.required("companyName", r.CompanyName)
	switch {
	case r.Password == "":
		errs["password"] = requiredReason
	case len(r.Password) < 8:
		errs["password"] = "too short (min 8)"
	}
	return errs.err()
}

// registrationPayload is the wire shape of POST /api/auth/register.
type registrationPayload struct {
	Username string              `json:"username"`
	Email    string              `json:"email"`
	Name     string              `json:"name"`
	Password string              `json:"password"`
	Role     string              `json:"role"`
	Company  registrationCompany `json:"company"`
}

type registrationCompany struct {
	Name          string           `json:"name"`
	Industry      string           `json:"industry,omitempty"`
	EmployeeCount string           `json:"employeeCount,omitempty"`
	Plan          featuregate.Plan `json:"plan"`
}

func (r RegisterRequest) payload() registrationPayload {
	return registrationPayload{
		Username: r.Email,
		Email:    r.Email,
		Name:     strings.TrimSpace(r.FirstName + " " + r.LastName),
		Password: r.Password,
		Role:     RoleAdmin,
		Company: registrationCompany{
			Name:          r.CompanyName,
			Industry:      r.Industry,
			EmployeeCount: r.EmployeeCount,
			Plan:          featuregate.Basic,
		},
	}
}

// ============================================================================
// Users
// ============================================================================

const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleEmployee = "employee"
)

type User struct {
	ID           ID       `json:"id"`
	Username     string   `json:"username,omitempty"`
	Email        string   `json:"email,omitempty"`
	Name         string   `json:"name,omitempty"`
	FirstName    string   `json:"firstName,omitempty"`
	LastName     string   `json:"lastName,omitempty"`
	Role         string   `json:"role,omitempty"`
	Roles        []string `json:"roles,omitempty"`
	CompanyID    ID       `json:"companyId"`
	Department   string   `json:"department,omitempty"`
	Position     string   `json:"position,omitempty"`
	JobTitle     string   `json:"jobTitle,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	Bio          string   `json:"bio,omitempty"`
	AvatarURL    string   `json:"avatarUrl,omitempty"`
	IsActive     bool     `json:"isActive,omitempty"`
	TwoFAEnabled bool     `json:"twoFaEnabled,omitempty"`
	CreatedAt    string   `json:"createdAt,omitempty"`
	UpdatedAt    string   `json:"updatedAt,omitempty"`
}

func (u User) Validate() error {
	if err := requireEntity("user", u.ID); err != nil {
		return err
	}
	return requireEntity("user company", u.CompanyID)
}

// DisplayName prefers the full name, then first/last, then the username.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if full := strings.TrimSpace(u.FirstName + " " + u.LastName); full != "" {
		return full
	}
	return u.Username
}

func (u User) IsAdmin() bool {
	return strings.EqualFold(u.Role, RoleAdmin) ||
		slices.ContainsFunc(u.Roles, func(r string) bool {
			return strings.EqualFold(r, RoleAdmin) || strings.EqualFold(r, "ROLE_ADMIN")
		})
}

// UserInput creates a user within the caller's company.
type UserInput struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
	Position   string `json:"position,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

func (in UserInput) Validate() error {
	errs := fieldErrors{}
	errs.required("username", in.Username)
	errs.required("email", in.Email)
	errs.email("email", in.Email)
	errs.required("name", in.Name)
	errs.required("password", in.Password)
	errs.oneOf("role", in.Role, RoleAdmin, RoleManager, RoleEmployee)
	return errs.err()
}

// ProfilePatch changes the caller's own profile; nil fields are untouched.
type ProfilePatch struct {
	Name       *string `json:"name,omitempty"`
	FirstName  *string `json:"firstName,omitempty"`
	LastName   *string `json:"lastName,omitempty"`
	Email      *string `json:"email,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Department *string `json:"department,omitempty"`
	Position   *string `json:"position,omitempty"`
	JobTitle   *string `json:"jobTitle,omitempty"`
	Bio        *string `json:"bio,omitempty"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (r ChangePasswordRequest) Validate() error {
	errs := fieldErrors{}
	errs.required("oldPassword", r.OldPassword)
	switch {
	case r.NewPassword == "":
		errs["newPassword"] = requiredReason
	case len(r.NewPassword) < 8:
		errs["newPassword"] = "too short (min 8)"
	case r.NewPassword == r.OldPassword:
		errs["newPassword"] = "must differ from the current password"
	}
	return errs.err()
}

// ============================================================================
// Companies
// ============================================================================

type Company struct {
	ID                 ID               `json:"id"`
	Name               string           `json:"name"`
	Plan               featuregate.Plan `json:"plan"`
	Industry           string           `json:"industry,omitempty"`
	EmployeeCount      string           `json:"employeeCount,omitempty"`
	Address            string           `json:"address,omitempty"`
	City               string           `json:"city,omitempty"`
	State              string           `json:"state,omitempty"`
	Country            string           `json:"country,omitempty"`
	PostalCode         string           `json:"postalCode,omitempty"`
	Phone              string           `json:"phone,omitempty"`
	Email              string           `json:"email,omitempty"`
	Website            string           `json:"website,omitempty"`
	Logo               string           `json:"logo,omitempty"`
	SubscriptionStatus string           `json:"subscriptionStatus,omitempty"`
	CreatedAt          string           `json:"createdAt,omitempty"`
	UpdatedAt          string           `json:"updatedAt,omitempty"`
}

func (c Company) Validate() error {
	return requireEntity("company", c.ID)
}

// CompanyPatch is a partial company update; nil fields are untouched.
type CompanyPatch struct {
	Name          *string           `json:"name,omitempty"`
	Plan          *featuregate.Plan `json:"plan,omitempty"`
	Industry      *string           `json:"industry,omitempty"`
	EmployeeCount *string           `json:"employeeCount,omitempty"`
	Address       *string           `json:"address,omitempty"`
	City          *string           `json:"city,omitempty"`
	State         *string           `json:"state,omitempty"`
	Country       *string           `json:"country,omitempty"`
	PostalCode    *string           `json:"postalCode,omitempty"`
	Phone         *string           `json:"phone,omitempty"`
	Email         *string           `json:"email,omitempty"`
	Website       *string           `json:"website,omitempty"`
	Logo          *string           `json:"logo,omitempty"`
}

func (p CompanyPatch) Validate() error {
	errs := fieldErrors{}
	if p.Name != nil {
		errs.required("name", *p.Name)
	}
	if p.Email != nil {
		errs.email("email", *p.Email)
	}
	if p.Plan != nil && !p.Plan.Valid() {
		errs["plan"] = "unknown plan"
	}
	return errs.err()
}

// Apply returns c with every set field of p copied over.
func (p CompanyPatch) Apply(c Company) Company {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
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
	return c
}

// OnboardRequest creates a company together with its first admin.
type OnboardRequest struct {
	CompanyName   string           `json:"companyName"`
	AdminEmail    string           `json:"adminEmail"`
	AdminPassword string           `json:"adminPassword"`
	AdminName     string           `json:"adminName"`
	Plan          featuregate.Plan `json:"plan,omitempty"`
}

func (r OnboardRequest) Validate() error {
	errs := fieldErrors{}
	errs.required("companyName", r.CompanyName)
	errs.required("adminEmail", r.AdminEmail)
	errs.email("adminEmail", r.AdminEmail)
	errs.required("adminPassword", r.AdminPassword)
	errs.required("adminName", r.AdminName)
	if r.Plan != "" && !r.Plan.Valid() {
		errs["plan"] = "unknown plan"
	}
	return errs.err()
}

// HealthResponse is returned by /livez and /readyz. Checks is only set by
// /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}
