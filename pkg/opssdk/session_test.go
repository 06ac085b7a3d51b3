package opssdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/bizops/pkg/featuregate"
)

func TestLoginResolvesCompany(t *testing.T) {
	t.Parallel()

	f := newFakeBackend(t)
	var body LoginRequest
	f.handle("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusOK, map[string]any{
			"token": "t1",
			"user":  map[string]any{"id": "u1", "companyId": "c1"},
		})
	})
	f.handle("GET /api/companies/c1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "c1", "name": "Acme", "plan": "Basic"})
	})

	ctx := context.Background()
	s, store := f.session()

	state, err := s.Login(ctx, "jane@x.com", "hunter22")
	require.NoError(t, err)
	require.Equal(t, LoginRequest{Username: "jane@x.com", Password: "hunter22"}, body)

	token, ok := store.Access(ctx)
	require.True(t, ok)
	require.Equal(t, "t1", token)

	reqs := f.seen()
	require.Len(t, reqs, 2)
	require.Equal(t, "/api/companies/c1", reqs[1].Path)
	require.Equal(t, "Bearer t1", reqs[1].Auth)

	auth, ok := state.(Authenticated)
	require.True(t, ok)
	require.Equal(t, ID("u1"), auth.User.ID)
	require.Equal(t, ID("c1"), auth.Company.ID)

	company, ok := s.CurrentCompany()
	require.True(t, ok)
	require.Equal(t, ID("c1"), company.ID)

	var cached User
	require.True(t, store.User(ctx, &cached))
	require.Equal(t, ID("u1"), cached.ID)
}

func TestHasAccessFollowsPlan(t *testing.T) {
	t.Parallel()

	f := newFakeBackend(t)
	s, _ := f.loggedIn("Basic")

	require.False(t, s.HasAccess(featuregate.Payroll))
	require.True(t, s.HasAccess(featuregate.HR))
	require.False(t, s.HasAccess("no_such_feature"))

	s.Logout(context.Background())
	require.False(t, s.HasAccess(featuregate.HR))
}

func TestLoginRejected(t *testing.T) {
	t.Parallel()

	f := newFakeBackend(t)
	f.handle("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid credentials"})
	})

	ctx := context.Background()
	s, store := f.session()

	state, err := s.Login(ctx, "jane@x.com", "wrong")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrUnauthenticated)
	require.Equal(t, "Unauthorized: Invalid credentials", err.Error())
	require.IsType(t, Unauthenticated{}, state)
	require.Equal(t, 1, f.count(http.MethodPost, "/api/auth/login"))

	_, ok := store.Access(ctx)
	require.False(t, ok)
}

func TestLoginRequiresCredentials(t *testing.T) {
	t.Parallel()

	f := newFakeBackend(t)
	s, _ := f.session()

	_, err := s.Login(context.Background(), "", "")
	require.ErrorIs(t, err, ErrValidation)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Contains(t, apiErr.FieldErrors, "username")
	require.Contains(t, apiErr.FieldErrors, "password")
	require.Empty(t, f.seen())
}

func TestTwoFactorFlow(t *testing.T) {
	t.Parallel()

	f := newFakeBackend(t)
	f.handle("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":    ErrorCodeTwoFactorRequired,
			"message":  "A verification code was sent to your email",
			"username": "jane",
		})
	})
	f.handle("POST /api/auth/verify-2fa", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("username") != "jane" || r.URL.Query().Get("code") != "123456" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Invalid or expired code"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"token": "t2",
			"user":  map[string]any{"id": "u1", "companyId": "c1"},
		})
	})
	f.handle("GET /api/companies/c1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "c1", "name": "Acme", "plan": "Pro"})
	})

	ctx := context.Background()
	s, store := f.session()

	state, err := s.Login(ctx, "jane@x.com", "hunter22")
	require.NoError(t, err)
	require.Equal(t, AwaitingSecondFactor{Username: "jane"}, state)
	_, ok := s.CurrentUser()
	require.False(t, ok)
	_, ok = store.Access(ctx)
	require.False(t, ok)

	pending, ok := store.Pending(ctx)
	require.True(t, ok)
	require.Equal(t, "jane", pending)

	state, err = s.VerifySecondFactor(ctx, "000000")
	require.ErrorIs(t, err, ErrValidation)
	require.Equal(t, AwaitingSecondFactor{Username: "jane"}, state)

	state, err = s.VerifySecondFactor(ctx, "123456")
	require.NoError(t, err)
	require.IsType(t, Authenticated{}, state)

	token, _ := store.Access(ctx)
	require.Equal(t, "t2", token)
	_, ok = store.Pending(ctx)
	require.False(t, ok)
}

func TestLegacyChallengeMessage(t *testing.T) {
	t.Parallel()

	for name, handler := range map[string]http.HandlerFunc{
		"ok response": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"message": "2FA code sent to your email"})
		},
		"error response": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": "2FA code sent. Please verify."})
		},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			f := newFakeBackend(t)
			f.handle("POST /api/auth/login", handler)
			s, _ := f.session()

			state, err := s.Login(context.Background(), "jane@x.com", "hunter22")
			require.NoError(t, err)
			require.Equal(t, AwaitingSecondFactor{Username: "jane@x.com"}, state)
		})
	}
}

func TestVerifyOutsideChallenge(t *testing.T) {
	t.Parallel()

	f := newFakeBackend(t)
	s, _ := f.session()

	_, err := s.VerifySecondFactor(context.Background(), "123456")
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestCancelSecondFactor(t *testing.T) {
	t.Parallel()

	f := newFakeBackend(t)
	f.handle("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]any{"twoFactorRequired": true})
	})

	ctx := context.Background()
	s, store := f.session()

	_, err := s.Login(ctx, "jane@x.com", "hunter22")
	require.NoError(t, err)

	s.CancelSecondFactor(ctx)
	require.Equal(t, Unauthenticated{}, s.State())
	_, ok := store.Pending(ctx)
	require.False(t, ok)
}

func TestLogoutClearsSession(t *testing.T) {
	t.Parallel()

	f := newFakeBackend(t)
	ctx := context.Background()
	s, store := f.loggedIn("Professional")

	s.Logout(ctx)
	s.Logout(ctx)

	require.Equal(t, Unauthenticated{}, s.State())
	_, ok := s.CurrentUser()
	require.False(t, ok)
	_, ok = s.CurrentCompany()
	require.False(t, ok)
	_, ok = store.Access(ctx)
	require.False(t, ok)
	_, ok = store.Refresh(ctx)
	require.False(t, ok)
}

func TestLoginFailsWhenCompanyMissing(t *testing.T) {
	t.Parallel()

	f := newFakeBackend(t)
	f.handle("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"token": "t1", "user": map[string]any{"id": "u1", "companyId": "c9"}})
	})

	ctx := context.Background()
	s, store := f.session()

	state, err := s.Login(ctx, "jane@x.com", "hunter22")
	require.ErrorIs(t, err, ErrNotFound)
	require.IsType(t, Unauthenticated{}, state)
	_, ok := store.Access(ctx)
	require.False(t, ok)
}

func TestBootstrap(t *testing.T) {
	t.Parallel()

	t.Run("no token", func(t *testing.T) {
		t.Parallel()

		f := newFakeBackend(t)
		s, _ := f.session()

		state, err := s.Bootstrap(context.Background())
		require.NoError(t, err)
		require.Equal(t, Unauthenticated{}, state)
		require.Empty(t, f.seen())
	})

	t.Run("restores session", func(t *testing.T) {
		t.Parallel()

		f := newFakeBackend(t)
		f.handle("GET /api/users/me", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"id": "u1", "companyId": "c1"})
		})
		f.handle("GET /api/companies/c1", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"id": "c1", "name": "Acme", "plan": "Pro"})
		})

		ctx := context.Background()
		s, store := f.session()
		store.Save(ctx, "t1", "")

		state, err := s.Bootstrap(ctx)
		require.NoError(t, err)
		auth, ok := state.(Authenticated)
		require.True(t, ok)
		require.Equal(t, featuregate.Pro, auth.Company.Plan)
	})

	t.Run("rejected token", func(t *testing.T) {
		t.Parallel()

		f := newFakeBackend(t)
		f.handle("GET /api/users/me", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "expired"})
		})

		ctx := context.Background()
		s, store := f.session()
		store.Save(ctx, "t1", "r1")

		state, err := s.Bootstrap(ctx)
		require.ErrorIs(t, err, ErrUnauthenticated)
		require.Equal(t, SessionError{Message: SessionExpiredMessage}, state)
		_, ok := store.Access(ctx)
		require.False(t, ok)

		s.AckError()
		require.Equal(t, Unauthenticated{Notice: SessionExpiredMessage}, s.State())
	})

	t.Run("pending challenge", func(t *testing.T) {
		t.Parallel()

		f := newFakeBackend(t)
		ctx := context.Background()
		s, store := f.session()
		store.SavePending(ctx, "jane", PendingChallengeTTL)

		state, err := s.Bootstrap(ctx)
		require.NoError(t, err)
		require.Equal(t, AwaitingSecondFactor{Username: "jane"}, state)
	})
}

func TestUnauthorizedCallForcesLogout(t *testing.T) {
	t.Parallel()

	f := newFakeBackend(t)
	f.handle("GET /api/employees", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "token revoked"})
	})

	ctx := context.Background()
	s, store := f.loggedIn("Basic")

	_, err := s.API().Employees.List(ctx, ListFilter{})
	require.ErrorIs(t, err, ErrUnauthenticated)
	require.Equal(t, SessionError{Message: SessionExpiredMessage}, s.State())
	_, ok := store.Access(ctx)
	require.False(t, ok)
}

func TestStaleTokenRejectionKeepsSession(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})

	f := newFakeBackend(t)
	f.handle("GET /api/employees", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer t1" {
			close(started)
			<-release
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "token expired"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": []map[string]any{{"id": "1", "name": "Ann"}}})
	})
	f.handle("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"token": "t2", "refreshToken": "r2"})
	})

	ctx := context.Background()
	s, store := f.loggedIn("Basic")

	errs := make(chan error, 1)
	go func() {
		_, err := s.API().Employees.List(ctx, ListFilter{})
		errs <- err
	}()

	<-started
	require.NoError(t, s.Refresh(ctx))
	close(release)

	require.ErrorIs(t, <-errs, ErrUnauthenticated)
	require.IsType(t, Authenticated{}, s.State())
	access, ok := store.Access(ctx)
	require.True(t, ok)
	require.Equal(t, "t2", access)

	page, err := s.API().Employees.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
}

func TestRegisterForcesAdminOnBasic(t *testing.T) {
	t.Parallel()

	f := newFakeBackend(t)
	var payload registrationPayload
	f.handle("POST /api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		writeJSON(w, http.StatusCreated, map[string]any{
			"token": "t1",
			"user":  map[string]any{"id": "u1", "companyId": "c1", "role": "admin"},
		})
	})
	f.handle("GET /api/companies/c1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "c1", "name": "Acme", "plan": "Basic"})
	})

	s, _ := f.session()
	state, err := s.Register(context.Background(), RegisterRequest{
		FirstName:   "Jane",
		LastName:    "Doe",
		Email:       "jane@x.com",
		Password:    "hunter22",
		CompanyName: "Acme",
	})
	require.NoError(t, err)
	require.IsType(t, Authenticated{}, state)

	require.Equal(t, RoleAdmin, payload.Role)
	require.Equal(t, featuregate.Basic, payload.Company.Plan)
	require.Equal(t, "jane@x.com", payload.Username)
	require.Equal(t, "Jane Doe", payload.Name)
}

func TestRegisterValidates(t *testing.T) {
	t.Parallel()

	f := newFakeBackend(t)
	s, _ := f.session()

	_, err := s.Register(context.Background(), RegisterRequest{Email: "not-an-email", Password: "short"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, KindValidation, apiErr.Kind)
	require.Contains(t, apiErr.FieldErrors, "email")
	require.Contains(t, apiErr.FieldErrors, "password")
	require.Contains(t, apiErr.FieldErrors, "companyName")
	require.Empty(t, f.seen())
}

func TestUpdateCompanySettings(t *testing.T) {
	t.Parallel()

	f := newFakeBackend(t)
	var fail atomic.Bool
	f.handle("PUT /api/companies/c1", func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			writeJSON(w, http.StatusForbidden, map[string]any{"message": "Admins only"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": "c1"})
	})

	ctx := context.Background()
	s, _ := f.loggedIn("Basic")

	name := "Acme Pte Ltd"
	company, err := s.UpdateCompanySettings(ctx, CompanyPatch{Name: &name})
	require.NoError(t, err)
	require.Equal(t, name, company.Name)
	require.Equal(t, featuregate.Basic, company.Plan)

	current, _ := s.CurrentCompany()
	require.Equal(t, name, current.Name)

	fail.Store(true)
	other := "Other"
	_, err = s.UpdateCompanySettings(ctx, CompanyPatch{Name: &other})
	require.ErrorIs(t, err, ErrForbidden)

	current, _ = s.CurrentCompany()
	require.Equal(t, name, current.Name)
	require.IsType(t, Authenticated{}, s.State())
}

func TestUpdateCompanySettingsRequiresSession(t *testing.T) {
	t.Parallel()

	f := newFakeBackend(t)
	s, _ := f.session()

	_, err := s.UpdateCompanySettings(context.Background(), CompanyPatch{})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestOnChangeNotifiesListeners(t *testing.T) {
	t.Parallel()

	f := newFakeBackend(t)
	f.withCompany("Basic")
	s, _ := f.session()

	var (
		mu    sync.Mutex
		names []string
	)
	unsubscribe := s.OnChange(func(st State) {
		mu.Lock()
		defer mu.Unlock()
		names = append(names, st.Name())
	})

	ctx := context.Background()
	_, err := s.Login(ctx, "jane@x.com", "hunter22")
	require.NoError(t, err)
	s.Logout(ctx)

	unsubscribe()
	s.Logout(ctx)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"authenticated", "unauthenticated"}, names)
}

func TestRefreshRotatesTokens(t *testing.T) {
	t.Parallel()

	f := newFakeBackend(t)
	f.handle("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var req RefreshRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.RefreshToken != "r1" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "invalid refresh token"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"token": "t2", "refreshToken": "r2"})
	})

	ctx := context.Background()
	s, store := f.loggedIn("Basic")

	require.NoError(t, s.Refresh(ctx))
	access, _ := store.Access(ctx)
	refresh, _ := store.Refresh(ctx)
	require.Equal(t, "t2", access)
	require.Equal(t, "r2", refresh)

	err := s.Refresh(ctx)
	require.True(t, errors.Is(err, ErrUnauthenticated))
	require.Equal(t, SessionError{Message: SessionExpiredMessage}, s.State())
}

func TestTwoFactorToggle(t *testing.T) {
	t.Parallel()

	f := newFakeBackend(t)
	f.handle("POST /api/users/me/enable-2fa", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	f.handle("POST /api/users/me/disable-2fa", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	ctx := context.Background()
	s, _ := f.loggedIn("Basic")

	require.NoError(t, s.EnableTwoFactor(ctx))
	user, _ := s.CurrentUser()
	require.True(t, user.TwoFAEnabled)

	require.NoError(t, s.DisableTwoFactor(ctx))
	user, _ = s.CurrentUser()
	require.False(t, user.TwoFAEnabled)
}
