package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/bizops/internal/devserver/app"
	"github.com/aussiebroadwan/bizops/pkg/opssdk"
)

type harness struct {
	server string
	state  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()

	a, err := app.New(app.Config{
		Issuer:       "opsdev-test",
		DatabaseFile: filepath.Join(dir, "opsdev.db"),
		Env:          "test",
		LogLevel:     "error",
		LogFormat:    "text",
		AccessTTL:    time.Hour,
		RefreshTTL:   24 * time.Hour,
		CodePeriod:   time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)

	return &harness{server: srv.URL, state: filepath.Join(dir, "state.db")}
}

// run executes opsctl against the harness and returns what it printed.
func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return h.runWithInput(t, "", args...)
}

// runWithInput is run with stdin reading from input.
func (h *harness) runWithInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--server", h.server, "--state", h.state, "--env-file", ""}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) mustRun(t *testing.T, args ...string) string {
	t.Helper()

	out, err := h.run(t, args...)
	require.NoError(t, err, out)
	return out
}

func (h *harness) register(t *testing.T) {
	t.Helper()

	out := h.mustRun(t, "register",
		"--first-name", "Ada", "--last-name", "Lovelace",
		"--email", "ada@engines.test", "--password", "difference",
		"--company", "Analytical Engines")
	require.Contains(t, out, "Logged in as Ada Lovelace (admin) at Analytical Engines [Basic plan]")
}

// sdkSession signs in next to the CLI to create records it cannot.
func (h *harness) sdkSession(t *testing.T) *opssdk.Session {
	t.Helper()

	sess := opssdk.NewSDKClient(h.server).NewSession(nil)
	_, err := sess.Login(context.Background(), "ada@engines.test", "difference")
	require.NoError(t, err)
	return sess
}

func TestSessionCommands(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "whoami")
	require.ErrorContains(t, err, "not logged in")

	_, err = h.run(t, "verify", "123456")
	require.ErrorContains(t, err, "no login is waiting")

	h.register(t)

	out := h.mustRun(t, "whoami", "-o", "json")
	var me whoami
	require.NoError(t, json.Unmarshal([]byte(out), &me))
	require.Equal(t, "Ada Lovelace", me.User)
	require.Equal(t, "admin", me.Role)
	require.EqualValues(t, "Basic", me.Plan)
	require.False(t, me.TwoFA)

	require.Contains(t, h.mustRun(t, "logout"), "Logged out.")
	_, err = h.run(t, "whoami")
	require.ErrorContains(t, err, "not logged in")

	_, err = h.run(t, "login", "-u", "ada@engines.test", "-p", "wrong password")
	require.ErrorContains(t, err, "login failed")

	out = h.mustRun(t, "login", "-u", "ada@engines.test", "-p", "difference")
	require.Contains(t, out, "Logged in as Ada Lovelace")

	require.Contains(t, h.mustRun(t, "2fa", "enable"), "Two-factor login enabled.")
	out = h.mustRun(t, "whoami", "-o", "yaml")
	require.Contains(t, out, "twoFactor: true")

	h.mustRun(t, "logout")
	out = h.mustRun(t, "login", "-u", "ada@engines.test", "-p", "difference")
	require.Contains(t, out, "A verification code was sent to ada@engines.test")

	_, err = h.run(t, "whoami")
	require.ErrorContains(t, err, "waiting for a code")
}

func TestLoginPromptsForPassword(t *testing.T) {
	h := newHarness(t)
	h.register(t)
	h.mustRun(t, "logout")

	out, err := h.runWithInput(t, "difference\n", "login", "-u", "ada@engines.test")
	require.NoError(t, err, out)
	require.Contains(t, out, "Password: ")
	require.NotContains(t, out, "difference")
	require.Contains(t, out, "Logged in as Ada Lovelace")

	h.mustRun(t, "logout")
	_, err = h.runWithInput(t, "wrong password\n", "login", "-u", "ada@engines.test")
	require.ErrorContains(t, err, "login failed")

	_, err = h.runWithInput(t, "", "login", "-u", "ada@engines.test")
	require.ErrorContains(t, err, "read password")
}

func TestRegisterPromptsForPassword(t *testing.T) {
	h := newHarness(t)

	out, err := h.runWithInput(t, "difference\n", "register",
		"--first-name", "Ada", "--last-name", "Lovelace",
		"--email", "ada@engines.test", "--company", "Analytical Engines")
	require.NoError(t, err, out)
	require.Contains(t, out, "Password: ")
	require.Contains(t, out, "Logged in as Ada Lovelace")

	h.mustRun(t, "logout")
	require.Contains(t, h.mustRun(t, "login", "-u", "ada@engines.test", "-p", "difference"), "Logged in as")
}

func TestPlanGatesModules(t *testing.T) {
	h := newHarness(t)
	h.register(t)

	out := h.mustRun(t, "features", "-o", "json")
	var rows []moduleAccess
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	enabled := map[string]bool{}
	for _, r := range rows {
		enabled[r.Module] = r.Enabled
	}
	require.True(t, enabled["invoices"])
	require.True(t, enabled["notifications"])
	require.False(t, enabled["timesheets"])

	_, err := h.run(t, "res", "list", "timesheets")
	require.ErrorContains(t, err, `needs the "timesheet" feature`)

	_, err = h.run(t, "company", "update", "--plan", "Enterprise")
	require.ErrorContains(t, err, "unknown plan")

	out = h.mustRun(t, "company", "update", "--plan", "professional", "--city", "London", "-o", "json")
	require.Contains(t, out, `"plan": "Professional"`)
	require.Contains(t, out, `"city": "London"`)

	h.mustRun(t, "res", "list", "timesheets")

	_, err = h.run(t, "res", "list", "spaceships")
	require.ErrorContains(t, err, "unknown module")
}

func TestResourceCommands(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.register(t)

	api := h.sdkSession(t).API()
	client, err := api.Customers.Create(ctx, opssdk.CustomerInput{Name: "Globex"})
	require.NoError(t, err)
	inv, err := api.Invoices.Create(ctx, opssdk.InvoiceInput{
		ClientID:  client.ID,
		IssueDate: "2026-10-01",
		DueDate:   "2026-10-31",
	})
	require.NoError(t, err)

	out := h.mustRun(t, "res", "list", "clients")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "ID"))
	require.Contains(t, lines[1], "Globex")

	out = h.mustRun(t, "res", "list", "invoices", "--size", "5")
	require.Contains(t, out, "page 1 of 1, 1 records")

	_, err = h.run(t, "res", "list", "invoices", "--from", "October")
	require.Error(t, err)

	out = h.mustRun(t, "resource", "get", "clients", client.ID.String(), "-o", "yaml")
	require.Contains(t, out, "name: Globex")

	dir := t.TempDir()
	out = h.mustRun(t, "res", "export", "invoices", inv.ID.String(), "excel", "--dir", dir)
	require.Contains(t, out, "Saved")
	info, err := os.Stat(filepath.Join(dir, "invoice-"+inv.ID.String()+".xlsx"))
	require.NoError(t, err)
	require.Positive(t, info.Size())

	_, err = h.run(t, "res", "export", "clients", client.ID.String(), "excel")
	require.ErrorContains(t, err, "cannot be exported as excel")

	require.Contains(t, h.mustRun(t, "res", "delete", "clients", client.ID.String()), "Deleted clients")
	_, err = h.run(t, "res", "get", "clients", client.ID.String())
	require.ErrorIs(t, err, opssdk.ErrNotFound)
}

func TestUnknownOutputFormat(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "whoami", "-o", "xml")
	require.ErrorContains(t, err, `unknown output format "xml"`)
}
