package opssdk

import (
	"context"
	"net/http"
	"net/url"
	"slices"
)

// Me reloads the signed in user's profile from the backend.
func (s *Session) Me(ctx context.Context) (User, error) {
	if _, ok := s.State().(Authenticated); !ok {
		return User{}, ErrInvalidState
	}
	var user User
	if err := s.call(ctx, http.MethodGet, "/api/users/me", nil, nil, &user); err != nil {
		return User{}, err
	}
	s.replaceUser(ctx, user)
	return user, nil
}

// UpdateProfile changes the signed in user's own profile.
func (s *Session) UpdateProfile(ctx context.Context, patch ProfilePatch) (User, error) {
	if _, ok := s.State().(Authenticated); !ok {
		return User{}, ErrInvalidState
	}

	errs := fieldErrors{}
	if patch.Email != nil {
		errs.required("email", *patch.Email)
		errs.email("email", *patch.Email)
	}
	if err := errs.err(); err != nil {
		return User{}, err
	}

	current, _ := s.CurrentUser()
	var user User
	if err := s.call(ctx, http.MethodPut, "/api/users/"+url.PathEscape(current.ID.String()), nil, patch, &user); err != nil {
		return User{}, err
	}
	s.replaceUser(ctx, user)
	return user, nil
}

func (s *Session) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	if _, ok := s.State().(Authenticated); !ok {
		return ErrInvalidState
	}
	if err := req.Validate(); err != nil {
		return err
	}
	return s.call(ctx, http.MethodPost, "/api/users/change-password", nil, req, nil)
}

// EnableTwoFactor turns on one-time codes for future logins.
func (s *Session) EnableTwoFactor(ctx context.Context) error {
	return s.setTwoFactor(ctx, "/api/users/me/enable-2fa", true)
}

func (s *Session) DisableTwoFactor(ctx context.Context) error {
	return s.setTwoFactor(ctx, "/api/users/me/disable-2fa", false)
}

func (s *Session) setTwoFactor(ctx context.Context, path string, enabled bool) error {
	current, ok := s.State().(Authenticated)
	if !ok {
		return ErrInvalidState
	}
	if err := s.call(ctx, http.MethodPost, path, nil, nil, nil); err != nil {
		return err
	}
	user := current.User
	user.TwoFAEnabled = enabled
	s.replaceUser(ctx, user)
	return nil
}

// OnboardCompany creates another company together with its first admin.
// The session itself is unchanged.
func (s *Session) OnboardCompany(ctx context.Context, req OnboardRequest) (Company, error) {
	if _, ok := s.State().(Authenticated); !ok {
		return Company{}, ErrInvalidState
	}
	if err := req.Validate(); err != nil {
		return Company{}, err
	}
	var company Company
	err := s.call(ctx, http.MethodPost, "/api/company/onboard", nil, req, &company)
	return company, err
}

// Refresh trades the stored refresh token for a new token pair. A rejected
// refresh token ends the session.
func (s *Session) Refresh(ctx context.Context) error {
	if _, ok := s.State().(Authenticated); !ok {
		return ErrInvalidState
	}
	refreshToken, ok := s.tokens.Refresh(ctx)
	if !ok {
		return &APIError{Kind: KindUnauthenticated, Message: "no refresh token stored"}
	}

	sent := s.accessToken(ctx)
	resp, err := s.client.refresh(ctx, refreshToken)
	if err != nil {
		return s.observe(ctx, sent, err)
	}
	if resp.AccessToken() == "" {
		return decodeError(http.StatusOK, errMissingToken)
	}

	newRefresh := resp.RefreshToken
	if newRefresh == "" {
		newRefresh = refreshToken
	}
	s.tokens.Save(ctx, resp.AccessToken(), newRefresh)
	return nil
}

// replaceUser swaps the user of an Authenticated session, keeping the
// company, and refreshes the cached profile.
func (s *Session) replaceUser(ctx context.Context, user User) {
	s.mu.Lock()
	a, ok := s.state.(Authenticated)
	if !ok || a.User.ID != user.ID {
		s.mu.Unlock()
		return
	}
	a.User = user
	s.state = a
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	s.tokens.SaveUser(ctx, user)
	for _, l := range listeners {
		l.fn(a)
	}
}
