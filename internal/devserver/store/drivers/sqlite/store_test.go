package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/bizops/internal/devserver/domain"
	"github.com/aussiebroadwan/bizops/internal/devserver/store"
	"github.com/aussiebroadwan/bizops/internal/devserver/store/drivers/sqlite"
	"github.com/aussiebroadwan/bizops/pkg/featuregate"
	"github.com/aussiebroadwan/bizops/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()

	st, err := sqlite.NewStore("file:" + filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func seedTenant(t *testing.T, st store.Store) (domain.Company, domain.User) {
	t.Helper()
	ctx := context.Background()

	c := domain.Company{ID: idx.New().String(), Name: "Acme", Plan: featuregate.Basic}
	require.NoError(t, st.Companies().CreateCompany(ctx, c))

	u := domain.User{
		ID:           idx.New().String(),
		CompanyID:    c.ID,
		Username:     "jane",
		Email:        "jane@acme.test",
		Name:         "Jane Doe",
		Role:         domain.RoleAdmin,
		PasswordHash: "argon2:dummy",
	}
	require.NoError(t, st.Users().CreateUser(ctx, u))
	return c, u
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	c, u := seedTenant(t, st)

	t.Run("login matches username or email case-insensitively", func(t *testing.T) {
		got, err := st.Users().GetUserByLogin(ctx, "JANE")
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)

		got, err = st.Users().GetUserByLogin(ctx, "jane@ACME.test")
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)
		require.False(t, got.CreatedAt.IsZero())
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		dup := u
		dup.ID = idx.New().String()
		dup.Username = "other"
		err := st.Users().CreateUser(ctx, dup)
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("two factor secret toggles", func(t *testing.T) {
		secret := "JBSWY3DPEHPK3PXP"
		require.NoError(t, st.Users().SetTwoFASecret(ctx, u.ID, &secret))
		got, err := st.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.True(t, got.TwoFAEnabled())

		require.NoError(t, st.Users().SetTwoFASecret(ctx, u.ID, nil))
		got, err = st.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.False(t, got.TwoFAEnabled())
	})

	t.Run("delete is company scoped", func(t *testing.T) {
		other := domain.User{
			ID: idx.New().String(), CompanyID: c.ID, Username: "bob", Email: "bob@acme.test",
			Name: "Bob", Role: domain.RoleEmployee, PasswordHash: "x",
		}
		require.NoError(t, st.Users().CreateUser(ctx, other))

		err := st.Users().DeleteUser(ctx, "another-company", other.ID)
		require.ErrorIs(t, err, store.ErrNotFound)

		require.NoError(t, st.Users().DeleteUser(ctx, c.ID, other.ID))
		_, err = st.Users().GetUserByID(ctx, other.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestCompanies(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	c, _ := seedTenant(t, st)

	c.Plan = featuregate.Professional
	c.City = "Sydney"
	require.NoError(t, st.Companies().UpdateCompany(ctx, c))

	got, err := st.Companies().GetCompany(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, featuregate.Professional, got.Plan)
	require.Equal(t, "Sydney", got.City)

	_, err = st.Companies().GetCompany(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecords(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	c, _ := seedTenant(t, st)

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, day := range []string{"2025-03-01", "2025-03-10", "2025-04-02"} {
		status := "PENDING"
		if i == 2 {
			status = "APPROVED"
		}
		require.NoError(t, st.Records().CreateRecord(ctx, domain.Record{
			ID:        idx.New().String(),
			Kind:      "leaves",
			CompanyID: c.ID,
			Status:    status,
			Fields:    map[string]any{"startDate": day, "employeeId": "e1", "days": float64(i + 1)},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	// another tenant's record never shows up
	require.NoError(t, st.Companies().CreateCompany(ctx, domain.Company{ID: "other", Name: "Other", Plan: featuregate.Basic}))
	require.NoError(t, st.Records().CreateRecord(ctx, domain.Record{
		ID: idx.New().String(), Kind: "leaves", CompanyID: "other", Status: "PENDING",
		Fields: map[string]any{"startDate": "2025-03-05"}, CreatedAt: base, UpdatedAt: base,
	}))

	q := domain.RecordQuery{Kind: "leaves", CompanyID: c.ID, DateField: "startDate"}

	t.Run("lists oldest first", func(t *testing.T) {
		items, total, err := st.Records().ListRecords(ctx, q)
		require.NoError(t, err)
		require.Equal(t, 3, total)
		require.Len(t, items, 3)
		require.Equal(t, "2025-03-01", items[0].String("startDate"))
		require.Equal(t, float64(3), items[2].Number("days"))
	})

	t.Run("filters by status and date range", func(t *testing.T) {
		f := q
		f.Status = "PENDING"
		f.From, f.To = "2025-03-05", "2025-03-31"
		items, total, err := st.Records().ListRecords(ctx, f)
		require.NoError(t, err)
		require.Equal(t, 1, total)
		require.Equal(t, "2025-03-10", items[0].String("startDate"))
	})

	t.Run("matches fields", func(t *testing.T) {
		f := q
		f.Match = map[string]string{"employeeId": "e1", "days": "2"}
		items, total, err := st.Records().ListRecords(ctx, f)
		require.NoError(t, err)
		require.Equal(t, 1, total)
		require.Len(t, items, 1)
	})

	t.Run("pages keep the total", func(t *testing.T) {
		f := q
		f.Limit, f.Offset = 2, 2
		items, total, err := st.Records().ListRecords(ctx, f)
		require.NoError(t, err)
		require.Equal(t, 3, total)
		require.Len(t, items, 1)
		require.Equal(t, "2025-04-02", items[0].String("startDate"))
	})

	t.Run("update and delete are scoped", func(t *testing.T) {
		items, _, err := st.Records().ListRecords(ctx, q)
		require.NoError(t, err)
		rec := items[0]

		rec.Status = "REJECTED"
		rec.Fields["reason"] = "busy"
		rec.UpdatedAt = base.Add(time.Hour)
		require.NoError(t, st.Records().UpdateRecord(ctx, rec))

		got, err := st.Records().GetRecord(ctx, "leaves", c.ID, rec.ID)
		require.NoError(t, err)
		require.Equal(t, "REJECTED", got.Status)
		require.Equal(t, "busy", got.String("reason"))

		_, err = st.Records().GetRecord(ctx, "invoices", c.ID, rec.ID)
		require.ErrorIs(t, err, store.ErrNotFound)

		require.ErrorIs(t, st.Records().DeleteRecord(ctx, "leaves", "other", rec.ID), store.ErrNotFound)
		require.NoError(t, st.Records().DeleteRecord(ctx, "leaves", c.ID, rec.ID))
		require.ErrorIs(t, st.Records().DeleteRecord(ctx, "leaves", c.ID, rec.ID), store.ErrNotFound)
	})
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	c, u := seedTenant(t, st)

	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, e := range []domain.HistoryEntry{
		{Type: domain.HistoryAudit, Action: "CREATE"},
		{Type: domain.HistoryStatus, Action: "STATUS_CHANGE", OldValue: "DRAFT", NewValue: "SENT"},
		{Type: domain.HistoryAudit, Action: "UPDATE", FieldName: "total", OldValue: "1", NewValue: "2"},
	} {
		e.ID = idx.New().String()
		e.CompanyID = c.ID
		e.ParentKind = "invoices"
		e.ParentID = "inv-1"
		e.ChangedBy = u.ID
		e.ChangedAt = at.Add(time.Duration(i) * time.Second)
		require.NoError(t, st.History().AppendHistory(ctx, e))
	}

	audit, err := st.History().ListHistory(ctx, c.ID, "invoices", "inv-1", domain.HistoryAudit)
	require.NoError(t, err)
	require.Len(t, audit, 2)
	require.Equal(t, "CREATE", audit[0].Action)
	require.Equal(t, "total", audit[1].FieldName)

	status, err := st.History().ListHistory(ctx, c.ID, "invoices", "inv-1", domain.HistoryStatus)
	require.NoError(t, err)
	require.Len(t, status, 1)
	require.Equal(t, "SENT", status[0].NewValue)
}

func TestRefreshTokens(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	_, u := seedTenant(t, st)

	rt := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    u.ID,
		TokenHash: "hash-1",
		AMR:       []string{"pwd", "otp"},
		ExpiresAt: time.Now().Add(time.Hour).Truncate(time.Millisecond),
		CreatedAt: time.Now().Truncate(time.Millisecond),
	}
	require.NoError(t, st.RefreshTokens().CreateRefreshToken(ctx, rt))

	got, err := st.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-1")
	require.NoError(t, err)
	require.Equal(t, []string{"pwd", "otp"}, got.AMR)
	require.True(t, rt.ExpiresAt.Equal(got.ExpiresAt))
	require.False(t, got.Revoked)

	require.NoError(t, st.RefreshTokens().RevokeUserRefreshTokens(ctx, u.ID))
	got, err = st.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-1")
	require.NoError(t, err)
	require.True(t, got.Revoked)

	_, err = st.RefreshTokens().GetRefreshTokenByHash(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestLoginChallenges(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	_, u := seedTenant(t, st)

	now := time.Now().Truncate(time.Millisecond)
	require.NoError(t, st.LoginChallenges().OpenChallenge(ctx, domain.LoginChallenge{
		UserID: u.ID, ExpiresAt: now.Add(time.Minute), CreatedAt: now,
	}))

	// reopening replaces the expiry
	require.NoError(t, st.LoginChallenges().OpenChallenge(ctx, domain.LoginChallenge{
		UserID: u.ID, ExpiresAt: now.Add(10 * time.Minute), CreatedAt: now,
	}))
	got, err := st.LoginChallenges().GetChallenge(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, now.Add(10*time.Minute).Equal(got.ExpiresAt))

	require.NoError(t, st.LoginChallenges().ConsumeChallenge(ctx, u.ID))
	require.ErrorIs(t, st.LoginChallenges().ConsumeChallenge(ctx, u.ID), store.ErrNotFound)

	_, err = st.LoginChallenges().GetChallenge(ctx, u.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	c, _ := seedTenant(t, st)

	boom := errors.New("boom")
	err := st.WithTx(ctx, func(tx store.Tx) error {
		rec := domain.Record{
			ID: "r1", Kind: "tools", CompanyID: c.ID, Status: "IN",
			Fields: map[string]any{"name": "Drill"}, CreatedAt: time.Now(), UpdatedAt: time.Now(),
		}
		if err := tx.Records().CreateRecord(ctx, rec); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = st.Records().GetRecord(ctx, "tools", c.ID, "r1")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, st.Ping(ctx))
}
