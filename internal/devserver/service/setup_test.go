package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/bizops/internal/devserver/domain"
	"github.com/aussiebroadwan/bizops/internal/devserver/store/drivers/sqlite"
	"github.com/aussiebroadwan/bizops/pkg/featuregate"
	"github.com/aussiebroadwan/bizops/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store     *sqlite.Store
	outbox    *MemoryOutbox
	auth      *AuthService
	tokens    *TokenService
	users     *UserService
	companies *CompanyService
	records   *RecordService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := sqlite.NewStore("file:" + filepath.Join(t.TempDir(), "service.db"))
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	signer, err := jwtx.GenerateEdDSA("test-key")
	require.NoError(t, err)

	tokens := &TokenService{
		Signer:     signer,
		Store:      st,
		Issuer:     "test-issuer",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}
	outbox := NewMemoryOutbox()
	auth := &AuthService{Store: st, Tokens: tokens, Outbox: outbox, Issuer: "test-issuer"}

	return &fixture{
		store:     st,
		outbox:    outbox,
		auth:      auth,
		tokens:    tokens,
		users:     &UserService{Store: st, Auth: auth},
		companies: &CompanyService{Store: st},
		records:   &RecordService{Store: st},
	}
}

// tenant registers a company and returns its admin as an actor.
func (f *fixture) tenant(t *testing.T, email string) (Actor, domain.Session) {
	t.Helper()

	sess, err := f.auth.Register(context.Background(), Registration{
		Email:       email,
		Name:        "Jane Doe",
		Password:    "correct horse",
		CompanyName: "Acme " + email,
	})
	require.NoError(t, err)

	actor := Actor{UserID: sess.User.ID, CompanyID: sess.Company.ID, Role: sess.User.Role}
	return actor, sess
}

// upgrade moves the actor's company to plan.
func (f *fixture) upgrade(t *testing.T, actor Actor, plan featuregate.Plan) {
	t.Helper()

	_, err := f.companies.UpdateCompany(context.Background(), actor, actor.CompanyID, CompanyUpdate{Plan: &plan})
	require.NoError(t, err)
}

func fieldsOf(t *testing.T, err error) map[string][]string {
	t.Helper()

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Fields
}
