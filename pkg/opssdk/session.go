package opssdk

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/aussiebroadwan/bizops/pkg/featuregate"
	"github.com/aussiebroadwan/bizops/pkg/tokenstore"
)

// SessionExpiredMessage is shown when a stored or live session is dropped.
const SessionExpiredMessage = "Session expired. Please login again."

// PendingChallengeTTL bounds how long a second-factor challenge is remembered
// in the token store.
const PendingChallengeTTL = 10 * time.Minute

// ErrInvalidState is returned by operations invoked from a state that does
// not allow them.
var ErrInvalidState = errors.New("opssdk: operation not valid in current session state")

var errMissingToken = errors.New("auth response carries no token")

// Session is the authenticated context every Resource call runs in. It owns
// the state machine and is safe for concurrent use.
type Session struct {
	client *SDKClient
	tokens *tokenstore.Store
	writes keyedMutex

	mu        sync.RWMutex
	state     State
	listeners []*listener
}

type listener struct {
	fn func(State)
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// CurrentUser returns the signed in user, if any.
func (s *Session) CurrentUser() (User, bool) {
	if a, ok := s.State().(Authenticated); ok {
		return a.User, true
	}
	return User{}, false
}

// CurrentCompany returns the signed in user's company, if any.
func (s *Session) CurrentCompany() (Company, bool) {
	if a, ok := s.State().(Authenticated); ok {
		return a.Company, true
	}
	return Company{}, false
}

// HasAccess reports whether the current company's plan includes feature.
// Without a company it is always false.
func (s *Session) HasAccess(feature featuregate.Feature) bool {
	company, ok := s.CurrentCompany()
	if !ok {
		return featuregate.HasAccessPtr(nil, feature)
	}
	return featuregate.HasAccess(company.Plan, feature)
}

// OnChange registers fn to run after every transition. The returned func
// removes it.
func (s *Session) OnChange(fn func(State)) (unsubscribe func()) {
	l := &listener{fn: fn}

	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.listeners = slices.DeleteFunc(s.listeners, func(x *listener) bool { return x == l })
	}
}

func (s *Session) transition(next State) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	s.client.Logger.Debug("session transition", "from", prev.Name(), "to", next.Name())
	for _, l := range listeners {
		l.fn(next)
	}
}

// ============================================================================
// Transitions
// ============================================================================

// Bootstrap restores a session from the token store: a stored token is
// resolved to its user and company, a stored challenge resumes the second
// factor step. A token that cannot be resolved is cleared and the session
// ends in SessionError.
func (s *Session) Bootstrap(ctx context.Context) (State, error) {
	if _, ok := s.tokens.Access(ctx); !ok {
		if username, ok := s.tokens.Pending(ctx); ok {
			s.transition(AwaitingSecondFactor{Username: username})
		}
		return s.State(), nil
	}

	if s.tokens.Expired(ctx) {
		s.drop(ctx)
		return s.State(), &APIError{Kind: KindUnauthenticated, Message: SessionExpiredMessage}
	}

	var user User
	if err := s.fetch(ctx, "/api/users/me", &user); err != nil {
		s.drop(ctx)
		return s.State(), err
	}
	s.tokens.SaveUser(ctx, user)

	company, err := s.fetchCompany(ctx, user.CompanyID)
	if err != nil {
		s.drop(ctx)
		return s.State(), err
	}

	s.transition(Authenticated{User: user, Company: company})
	return s.State(), nil
}

// Login submits credentials. The result is Authenticated, or
// AwaitingSecondFactor when the backend asks for a one-time code. A rejected
// login leaves the session Unauthenticated and returns the error.
func (s *Session) Login(ctx context.Context, identifier, secret string) (State, error) {
	switch s.State().(type) {
	case Authenticated:
		return s.State(), ErrInvalidState
	case SessionError:
		s.AckError()
	}

	errs := fieldErrors{}
	errs.required("username", identifier)
	errs.required("password", secret)
	if err := errs.err(); err != nil {
		return s.State(), err
	}

	resp, err := s.client.login(ctx, LoginRequest{Username: identifier, Password: secret})
	if challenged, username := challengeOf(resp, err); challenged {
		if username == "" {
			username = identifier
		}
		s.tokens.SavePending(ctx, username, PendingChallengeTTL)
		s.transition(AwaitingSecondFactor{Username: username})
		return s.State(), nil
	}
	if err != nil {
		if _, ok := s.State().(AwaitingSecondFactor); ok {
			s.tokens.ClearPending(ctx)
			s.transition(Unauthenticated{})
		}
		return s.State(), err
	}

	if err := s.establish(ctx, resp); err != nil {
		return s.State(), err
	}
	return s.State(), nil
}

// challengeOf recognises a second-factor challenge in a login outcome. The
// structured 409 is authoritative; the message marker is accepted from older
// backends that report the challenge as a plain message.
func challengeOf(resp AuthResponse, err error) (bool, string) {
	var tfa *TwoFactorRequiredError
	if errors.As(err, &tfa) {
		return true, tfa.Username
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return isLegacyChallenge(apiErr.Message), ""
	}

	if err == nil && resp.AccessToken() == "" && isLegacyChallenge(resp.Message) {
		return true, resp.Username
	}
	return false, ""
}

// VerifySecondFactor completes a challenged login. A rejected code leaves the
// session AwaitingSecondFactor.
func (s *Session) VerifySecondFactor(ctx context.Context, code string) (State, error) {
	pending, ok := s.State().(AwaitingSecondFactor)
	if !ok {
		return s.State(), ErrInvalidState
	}

	errs := fieldErrors{}
	errs.required("code", code)
	if err := errs.err(); err != nil {
		return s.State(), err
	}

	resp, err := s.client.verifyTwoFactor(ctx, pending.Username, code)
	if err != nil {
		return s.State(), err
	}

	// An accepted code is spent, so a failure from here on ends the challenge.
	if err := s.establish(ctx, resp); err != nil {
		return s.State(), err
	}
	return s.State(), nil
}

// CancelSecondFactor abandons a pending challenge.
func (s *Session) CancelSecondFactor(ctx context.Context) {
	if _, ok := s.State().(AwaitingSecondFactor); !ok {
		return
	}
	s.tokens.ClearPending(ctx)
	s.transition(Unauthenticated{})
}

// Register creates a company with its first administrator and signs in as
// them. The account is always an admin on the Basic plan.
func (s *Session) Register(ctx context.Context, req RegisterRequest) (State, error) {
	switch s.State().(type) {
	case Authenticated:
		return s.State(), ErrInvalidState
	case SessionError:
		s.AckError()
	}

	if err := req.Validate(); err != nil {
		return s.State(), err
	}

	resp, err := s.client.register(ctx, req.payload())
	if err != nil {
		return s.State(), err
	}
	if err := s.establish(ctx, resp); err != nil {
		return s.State(), err
	}
	return s.State(), nil
}

// Logout ends the session from any state. It is safe to call repeatedly.
func (s *Session) Logout(ctx context.Context) {
	s.tokens.Clear(ctx)
	s.transition(Unauthenticated{})
}

// AckError collapses a SessionError into Unauthenticated, keeping its message
// as the notice.
func (s *Session) AckError() {
	if e, ok := s.State().(SessionError); ok {
		s.transition(Unauthenticated{Notice: e.Message})
	}
}

// UpdateCompanySettings saves patch to the backend and merges it into the
// in-memory company once the backend has accepted it.
func (s *Session) UpdateCompanySettings(ctx context.Context, patch CompanyPatch) (Company, error) {
	current, ok := s.State().(Authenticated)
	if !ok {
		return Company{}, ErrInvalidState
	}
	if err := patch.Validate(); err != nil {
		return current.Company, err
	}

	path := "/api/companies/" + url.PathEscape(current.Company.ID.String())
	if err := s.call(ctx, http.MethodPut, path, nil, patch, nil); err != nil {
		return current.Company, err
	}

	merged := patch.Apply(current.Company)
	s.replaceCompany(merged)
	return merged, nil
}

// ============================================================================
// Internals
// ============================================================================

// establish persists the tokens of a successful auth response, then resolves
// the company and enters Authenticated. Tokens are written before the company
// request is issued so that request already carries them. Any failure leaves
// the session Unauthenticated with nothing stored.
func (s *Session) establish(ctx context.Context, resp AuthResponse) error {
	fail := func(err error) error {
		s.tokens.Clear(ctx)
		s.transition(Unauthenticated{})
		return err
	}

	token := resp.AccessToken()
	if token == "" {
		return fail(decodeError(http.StatusOK, errMissingToken))
	}
	user := resp.Profile()
	if err := user.Validate(); err != nil {
		return fail(decodeError(http.StatusOK, err))
	}

	s.tokens.Save(ctx, token, resp.RefreshToken)
	s.tokens.SaveUser(ctx, user)

	company, err := s.fetchCompany(ctx, user.CompanyID)
	if err != nil {
		return fail(err)
	}

	s.tokens.ClearPending(ctx)
	s.transition(Authenticated{User: user, Company: company})
	return nil
}

func (s *Session) fetchCompany(ctx context.Context, id ID) (Company, error) {
	var company Company
	err := s.fetch(ctx, "/api/companies/"+url.PathEscape(id.String()), &company)
	return company, err
}

// replaceCompany swaps the company of an Authenticated session.
func (s *Session) replaceCompany(company Company) {
	s.mu.Lock()
	a, ok := s.state.(Authenticated)
	if !ok || a.Company.ID != company.ID {
		s.mu.Unlock()
		return
	}
	a.Company = company
	s.state = a
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		l.fn(a)
	}
}

// serialize holds the write lock for key when the policy asks for it.
func (s *Session) serialize(key string) (unlock func()) {
	if !s.client.Policy.SerializeWrites {
		return func() {}
	}
	return s.writes.Lock(key)
}

// fetch is an authenticated GET that does not react to 401 itself.
func (s *Session) fetch(ctx context.Context, path string, out any) error {
	resp, err := s.roundTrip(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return err
	}
	return decodeJSON(resp, out)
}

// drop clears a session that could not be restored.
func (s *Session) drop(ctx context.Context) {
	s.tokens.Clear(ctx)
	s.transition(SessionError{Message: SessionExpiredMessage})
}

// expire is the forced logout after the backend rejected the token sent.
func (s *Session) expire(ctx context.Context, sent string) {
	if _, ok := s.State().(Authenticated); !ok {
		return
	}
	if s.accessToken(ctx) != sent {
		s.client.Logger.Debug("ignoring rejection of a replaced token")
		return
	}
	s.client.Logger.Info("session expired, logging out")
	s.drop(ctx)
}
