package domain

import "time"

// TokenPair is what login, verify-2fa, register and refresh hand out.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// RefreshToken models the stored refresh token record in the DB.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string   // deterministic fingerprint (base64url SHA-256)
	AMR       []string // Authentication Method Reference history
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// LoginChallenge is an open second-factor step. A code is only accepted
// while one exists and has not expired.
type LoginChallenge struct {
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Session is a freshly authenticated user with everything the auth
// endpoints return.
type Session struct {
	User    User
	Company Company
	Tokens  TokenPair
}
