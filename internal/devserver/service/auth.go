package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/aussiebroadwan/bizops/internal/devserver/domain"
	"github.com/aussiebroadwan/bizops/internal/devserver/store"
	"github.com/aussiebroadwan/bizops/pkg/cryptox"
	"github.com/aussiebroadwan/bizops/pkg/featuregate"
	"github.com/aussiebroadwan/bizops/pkg/idx"
	"github.com/aussiebroadwan/bizops/pkg/jwtx"
	"github.com/aussiebroadwan/bizops/pkg/slogx"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// DefaultCodePeriod is how long an e-mailed login code stays current.
const DefaultCodePeriod = 10 * time.Minute

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidCode        = errors.New("invalid_code")
	ErrAccountExists      = errors.New("account already exists")
)

// ChallengeError is returned by Login when the user must complete the login
// with a one-time code that has been sent to them.
type ChallengeError struct {
	Username string
}

func (e *ChallengeError) Error() string {
	return "two-factor verification required for " + e.Username
}

type AuthService struct {
	Store      store.Store
	Tokens     *TokenService
	Outbox     Outbox
	Issuer     string
	CodePeriod time.Duration
	Now        func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AuthService) codePeriod() time.Duration {
	if s.CodePeriod <= 0 {
		return DefaultCodePeriod
	}
	return s.CodePeriod
}

func (s *AuthService) codeOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    uint(s.codePeriod() / time.Second),
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// Login checks a username (or e-mail) and password. Users with two-factor
// login enabled get a code through the Outbox and a *ChallengeError.
func (s *AuthService) Login(ctx context.Context, login, password string) (domain.Session, error) {
	log := slogx.FromContext(ctx)
	login = strings.TrimSpace(login)

	user, err := s.Store.Users().GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// keep timing similar to a wrong password
			_ = cryptox.VerifyPassword(password, cryptox.DecoyHash())
			return domain.Session{}, ErrInvalidCredentials
		}
		return domain.Session{}, err
	}
	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		log.Info("login rejected", "user_id", user.ID)
		return domain.Session{}, ErrInvalidCredentials
	}

	if user.TwoFAEnabled() {
		now := s.now()
		code, err := totp.GenerateCodeCustom(*user.TwoFASecret, now, s.codeOpts())
		if err != nil {
			return domain.Session{}, fmt.Errorf("failed to generate login code: %w", err)
		}
		err = s.Store.LoginChallenges().OpenChallenge(ctx, domain.LoginChallenge{
			UserID:    user.ID,
			ExpiresAt: now.Add(s.codePeriod()),
			CreatedAt: now,
		})
		if err != nil {
			return domain.Session{}, fmt.Errorf("failed to open login challenge: %w", err)
		}
		if err := s.Outbox.SendCode(ctx, user.Email, code); err != nil {
			return domain.Session{}, fmt.Errorf("failed to send login code: %w", err)
		}
		log.Info("login challenged", "user_id", user.ID)
		return domain.Session{}, &ChallengeError{Username: user.Username}
	}

	return s.establish(ctx, user, []string{jwtx.AMRPassword})
}

// VerifySecondFactor completes a challenged login. The code must match while
// the challenge opened by Login is still current, and a challenge completes
// at most once.
func (s *AuthService) VerifySecondFactor(ctx context.Context, username, code string) (domain.Session, error) {
	username = strings.TrimSpace(username)
	code = strings.TrimSpace(code)
	if username == "" || code == "" {
		return domain.Session{}, ErrInvalidCode
	}

	user, err := s.Store.Users().GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Session{}, ErrInvalidCode
		}
		return domain.Session{}, err
	}
	if !user.TwoFAEnabled() {
		return domain.Session{}, ErrInvalidCode
	}

	log := slogx.FromContext(ctx)
	now := s.now()

	challenge, err := s.Store.LoginChallenges().GetChallenge(ctx, user.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("second factor without a challenge", "user_id", user.ID)
			return domain.Session{}, ErrInvalidCode
		}
		return domain.Session{}, err
	}
	if !now.Before(challenge.ExpiresAt) {
		_ = s.Store.LoginChallenges().ConsumeChallenge(ctx, user.ID)
		log.Warn("second factor after the challenge expired", "user_id", user.ID)
		return domain.Session{}, ErrInvalidCode
	}

	ok, err := totp.ValidateCustom(code, *user.TwoFASecret, now, s.codeOpts())
	if err != nil || !ok {
		log.Warn("second factor rejected", "user_id", user.ID)
		return domain.Session{}, ErrInvalidCode
	}

	if err := s.Store.LoginChallenges().ConsumeChallenge(ctx, user.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Session{}, ErrInvalidCode
		}
		return domain.Session{}, err
	}

	return s.establish(ctx, user, []string{jwtx.AMRPassword, jwtx.AMROTP})
}

func (s *AuthService) establish(ctx context.Context, user domain.User, amr []string) (domain.Session, error) {
	company, err := s.Store.Companies().GetCompany(ctx, user.CompanyID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("failed to load company: %w", err)
	}
	pair, err := s.Tokens.Issue(ctx, s.Store, user, amr, s.now())
	if err != nil {
		return domain.Session{}, err
	}
	return domain.Session{User: user, Company: company, Tokens: pair}, nil
}

// NewTwoFASecret generates a secret for e-mailed login codes.
func (s *AuthService) NewTwoFASecret(account string) (string, error) {
	opts := s.codeOpts()
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: account,
		Period:      opts.Period,
		Digits:      opts.Digits,
		Algorithm:   opts.Algorithm,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate 2FA secret: %w", err)
	}
	return key.Secret(), nil
}

// Registration creates a tenant with its first administrator.
type Registration struct {
	Username      string
	Email         string
	Name          string
	Password      string
	CompanyName   string
	Industry      string
	EmployeeCount string
}

func (r Registration) validate() error {
	errs := fieldErrors{}
	errs.required("email", r.Email)
	if r.Email != "" {
		if _, err := mail.ParseAddress(r.Email); err != nil {
			errs.add("email", "is not a valid e-mail address")
		}
	}
	errs.required("name", r.Name)
	errs.required("company.name", r.CompanyName)
	if len(r.Password) < 8 {
		errs.add("password", "must be at least 8 characters")
	}
	return errs.err()
}

// Register creates a company on the Basic plan and its admin, then logs
// the admin in. The role and plan requested by the client are ignored.
func (s *AuthService) Register(ctx context.Context, r Registration) (domain.Session, error) {
	if r.Username == "" {
		r.Username = r.Email
	}
	if err := r.validate(); err != nil {
		return domain.Session{}, err
	}

	company, user, err := createTenant(ctx, s.Store, r, featuregate.Basic, s.now())
	if err != nil {
		return domain.Session{}, err
	}

	pair, err := s.Tokens.Issue(ctx, s.Store, user, []string{jwtx.AMRPassword}, s.now())
	if err != nil {
		return domain.Session{}, err
	}
	slogx.FromContext(ctx).Info("tenant registered", "company_id", company.ID, "user_id", user.ID)
	return domain.Session{User: user, Company: company, Tokens: pair}, nil
}

// createTenant inserts a company and its admin atomically.
func createTenant(
	ctx context.Context,
	st store.Store,
	r Registration,
	plan featuregate.Plan,
	now time.Time,
) (domain.Company, domain.User, error) {
	hash, err := cryptox.HashPassword(r.Password)
	if err != nil {
		return domain.Company{}, domain.User{}, err
	}

	now = now.UTC()
	company := domain.Company{
		ID:                 idx.New().String(),
		Name:               strings.TrimSpace(r.CompanyName),
		Plan:               plan,
		Industry:           r.Industry,
		EmployeeCount:      r.EmployeeCount,
		Email:              r.Email,
		SubscriptionStatus: "ACTIVE",
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	first, last, _ := strings.Cut(strings.TrimSpace(r.Name), " ")
	user := domain.User{
		ID:           idx.New().String(),
		CompanyID:    company.ID,
		Username:     strings.TrimSpace(r.Username),
		Email:        strings.TrimSpace(r.Email),
		Name:         strings.TrimSpace(r.Name),
		FirstName:    first,
		LastName:     strings.TrimSpace(last),
		Role:         domain.RoleAdmin,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = st.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Companies().CreateCompany(ctx, company); err != nil {
			return err
		}
		return tx.Users().CreateUser(ctx, user)
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return domain.Company{}, domain.User{}, ErrAccountExists
	}
	if err != nil {
		return domain.Company{}, domain.User{}, err
	}
	return company, user, nil
}

