package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/bizops/internal/devserver/domain"
	"github.com/aussiebroadwan/bizops/internal/devserver/store"
	"github.com/aussiebroadwan/bizops/pkg/featuregate"
	"github.com/aussiebroadwan/bizops/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	t.Run("creates a Basic tenant with an admin", func(t *testing.T) {
		_, sess := f.tenant(t, "jane@acme.test")

		require.Equal(t, featuregate.Basic, sess.Company.Plan)
		require.Equal(t, domain.RoleAdmin, sess.User.Role)
		require.Equal(t, "jane@acme.test", sess.User.Username)
		require.Equal(t, "Jane", sess.User.FirstName)
		require.Equal(t, "Doe", sess.User.LastName)
		require.NotEmpty(t, sess.Tokens.AccessToken)
		require.NotEmpty(t, sess.Tokens.RefreshToken)
	})

	t.Run("rejects duplicate accounts", func(t *testing.T) {
		_, err := f.auth.Register(ctx, Registration{
			Email:       "jane@acme.test",
			Name:        "Jane Again",
			Password:    "correct horse",
			CompanyName: "Acme Two",
		})
		require.ErrorIs(t, err, ErrAccountExists)
	})

	t.Run("validates the payload", func(t *testing.T) {
		_, err := f.auth.Register(ctx, Registration{Email: "not-an-address", Password: "short"})
		fields := fieldsOf(t, err)
		require.Contains(t, fields, "email")
		require.Contains(t, fields, "name")
		require.Contains(t, fields, "company.name")
		require.Contains(t, fields, "password")
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	actor, _ := f.tenant(t, "jane@acme.test")

	t.Run("password only", func(t *testing.T) {
		sess, err := f.auth.Login(ctx, "  JANE@acme.test ", "correct horse")
		require.NoError(t, err)
		require.Equal(t, actor.UserID, sess.User.ID)
		require.Equal(t, actor.CompanyID, sess.Company.ID)

		claims, err := jwtx.ParseUnverified(sess.Tokens.AccessToken)
		require.NoError(t, err)
		require.Equal(t, actor.UserID, claims.Subject)
	})

	t.Run("wrong password and unknown user look alike", func(t *testing.T) {
		_, err := f.auth.Login(ctx, "jane@acme.test", "wrong horse")
		require.ErrorIs(t, err, ErrInvalidCredentials)

		_, err = f.auth.Login(ctx, "nobody@acme.test", "correct horse")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("two-factor challenge", func(t *testing.T) {
		u, err := f.users.SetTwoFactor(ctx, actor, true)
		require.NoError(t, err)
		require.True(t, u.TwoFAEnabled())

		_, err = f.auth.Login(ctx, "jane@acme.test", "correct horse")
		var challenge *ChallengeError
		require.ErrorAs(t, err, &challenge)
		require.Equal(t, "jane@acme.test", challenge.Username)

		code, ok := f.outbox.Last("jane@acme.test")
		require.True(t, ok)
		require.Len(t, code, 6)

		_, err = f.auth.VerifySecondFactor(ctx, challenge.Username, "not-a-code")
		require.ErrorIs(t, err, ErrInvalidCode)

		sess, err := f.auth.VerifySecondFactor(ctx, challenge.Username, code)
		require.NoError(t, err)

		claims, err := jwtx.ParseUnverified(sess.Tokens.AccessToken)
		require.NoError(t, err)
		require.Contains(t, claims.AMR, jwtx.AMROTP)
	})

	t.Run("verification needs two-factor enabled", func(t *testing.T) {
		_, err := f.users.SetTwoFactor(ctx, actor, false)
		require.NoError(t, err)

		_, err = f.auth.VerifySecondFactor(ctx, "jane@acme.test", "123456")
		require.ErrorIs(t, err, ErrInvalidCode)

		_, err = f.auth.VerifySecondFactor(ctx, "", "")
		require.ErrorIs(t, err, ErrInvalidCode)
	})
}

func TestSecondFactorChallenge(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	actor, _ := f.tenant(t, "jane@acme.test")
	_, err := f.users.SetTwoFactor(ctx, actor, true)
	require.NoError(t, err)

	clock := time.Now()
	f.auth.Now = func() time.Time { return clock }

	challenge := func(t *testing.T) string {
		t.Helper()
		_, err := f.auth.Login(ctx, "jane@acme.test", "correct horse")
		var ce *ChallengeError
		require.ErrorAs(t, err, &ce)
		code, ok := f.outbox.Last("jane@acme.test")
		require.True(t, ok)
		return code
	}

	t.Run("a code completes one login only", func(t *testing.T) {
		code := challenge(t)

		_, err := f.auth.VerifySecondFactor(ctx, "jane@acme.test", code)
		require.NoError(t, err)

		_, err = f.auth.VerifySecondFactor(ctx, "jane@acme.test", code)
		require.ErrorIs(t, err, ErrInvalidCode)
	})

	t.Run("a wrong code keeps the challenge open", func(t *testing.T) {
		code := challenge(t)

		_, err := f.auth.VerifySecondFactor(ctx, "jane@acme.test", "not-a-code")
		require.ErrorIs(t, err, ErrInvalidCode)

		_, err = f.auth.VerifySecondFactor(ctx, "jane@acme.test", code)
		require.NoError(t, err)
	})

	t.Run("verify without a login is rejected", func(t *testing.T) {
		code := challenge(t)
		require.NoError(t, f.store.LoginChallenges().ConsumeChallenge(ctx, actor.UserID))

		_, err := f.auth.VerifySecondFactor(ctx, "jane@acme.test", code)
		require.ErrorIs(t, err, ErrInvalidCode)
	})

	t.Run("the challenge expires with the code period", func(t *testing.T) {
		code := challenge(t)
		clock = clock.Add(DefaultCodePeriod)

		_, err := f.auth.VerifySecondFactor(ctx, "jane@acme.test", code)
		require.ErrorIs(t, err, ErrInvalidCode)

		_, err = f.store.LoginChallenges().GetChallenge(ctx, actor.UserID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestRefreshRotates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	actor, sess := f.tenant(t, "jane@acme.test")

	next, err := f.tokens.Refresh(ctx, sess.Tokens.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, actor.UserID, next.User.ID)
	require.NotEqual(t, sess.Tokens.RefreshToken, next.Tokens.RefreshToken)

	_, err = f.tokens.Refresh(ctx, sess.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)

	_, err = f.tokens.Refresh(ctx, "")
	require.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestChangePasswordRevokesRefreshTokens(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	actor, sess := f.tenant(t, "jane@acme.test")

	err := f.users.ChangePassword(ctx, actor, "wrong horse", "battery staple")
	require.ErrorIs(t, err, ErrWrongPassword)

	err = f.users.ChangePassword(ctx, actor, "correct horse", "short")
	require.Contains(t, fieldsOf(t, err), "newPassword")

	require.NoError(t, f.users.ChangePassword(ctx, actor, "correct horse", "battery staple"))

	_, err = f.tokens.Refresh(ctx, sess.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)

	_, err = f.auth.Login(ctx, "jane@acme.test", "battery staple")
	require.NoError(t, err)
}

func TestCompanyScope(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	jane, _ := f.tenant(t, "jane@acme.test")
	other, _ := f.tenant(t, "bob@globex.test")

	_, err := f.companies.GetCompany(ctx, jane, other.CompanyID)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.users.GetUser(ctx, jane, other.UserID)
	require.ErrorIs(t, err, ErrNotFound)

	employee := Actor{UserID: jane.UserID, CompanyID: jane.CompanyID, Role: domain.RoleEmployee}
	plan := featuregate.Pro
	_, err = f.companies.UpdateCompany(ctx, employee, jane.CompanyID, CompanyUpdate{Plan: &plan})
	require.ErrorIs(t, err, ErrForbidden)

	bogus := featuregate.Plan("Enterprise")
	_, err = f.companies.UpdateCompany(ctx, jane, jane.CompanyID, CompanyUpdate{Plan: &bogus})
	require.Contains(t, fieldsOf(t, err), "plan")

	city := " Sydney "
	c, err := f.companies.UpdateCompany(ctx, jane, jane.CompanyID, CompanyUpdate{Plan: &plan, City: &city})
	require.NoError(t, err)
	require.Equal(t, featuregate.Pro, c.Plan)
	require.Equal(t, "Sydney", c.City)
	require.Equal(t, "Acme jane@acme.test", c.Name)
}
