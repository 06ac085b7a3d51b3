// Package cli implements opsctl, a command-line front end for the
// operations backend.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/bizops/pkg/opssdk"
	"github.com/aussiebroadwan/bizops/pkg/slogx"
	"github.com/aussiebroadwan/bizops/pkg/tokenstore"
	"github.com/aussiebroadwan/bizops/pkg/tokenstore/sqlite"
)

const (
	defaultServer = "http://localhost:8080"
	envServer     = "OPSCTL_SERVER"
	envState      = "OPSCTL_STATE"
)

// options are the global flags shared by every command.
type options struct {
	server   string
	state    string
	output   string
	logLevel string
	envFile  string
}

// env is what a command runs against once the session is restored.
type env struct {
	session *opssdk.Session
	out     io.Writer
	format  string
	close   func() error
}

// NewRootCmd builds the opsctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "opsctl",
		Short: "Command-line client for the operations backend",
		Long: `opsctl signs in to the operations backend and works with its business
modules from the terminal.

The session survives between invocations in a local state database
($OPSCTL_STATE, default ~/.opsctl/state.db). A login that needs a one-time
code can be completed later with "opsctl verify".

Examples:
  opsctl login -u alice@example.com -p secret
  opsctl verify 123456
  opsctl res list invoices --status DRAFT
  opsctl res export leaves 01J... calendar`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnvFile(opts.envFile)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.server, "server", "", "backend base URL (env "+envServer+", default "+defaultServer+")")
	flags.StringVar(&opts.state, "state", "", "session state database (env "+envState+")")
	flags.StringVarP(&opts.output, "output", "o", "table", "output format: table, json or yaml")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.envFile, "env-file", ".env", "optional dotenv file to load")

	root.AddCommand(
		newLoginCmd(opts),
		newVerifyCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newRegisterCmd(opts),
		newFeaturesCmd(opts),
		newCompanyCmd(opts),
		newResourceCmd(opts),
		newTwoFactorCmd(opts),
	)
	return root
}

// ExecuteContext runs opsctl with ctx.
func ExecuteContext(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// loadEnvFile applies a dotenv file if present; variables already set win.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func (o *options) serverURL() string {
	if o.server != "" {
		return o.server
	}
	if v := os.Getenv(envServer); v != "" {
		return v
	}
	return defaultServer
}

func (o *options) statePath() (string, error) {
	if o.state != "" {
		return o.state, nil
	}
	if v := os.Getenv(envState); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, ".opsctl", "state.db"), nil
}

// open restores the persisted session. Callers must call env.close.
func (o *options) open(cmd *cobra.Command) (*env, error) {
	switch o.output {
	case "table", "json", "yaml":
	default:
		return nil, fmt.Errorf("unknown output format %q", o.output)
	}

	path, err := o.statePath()
	if err != nil {
		return nil, err
	}
	kv, err := sqlite.Open(path)
	if err != nil {
		return nil, err
	}

	logger := slogx.New(slogx.Config{
		Service: "opsctl",
		Level:   o.logLevel,
		Format:  "text",
		Output:  cmd.ErrOrStderr(),
	})
	client := opssdk.NewSDKClient(o.serverURL(), opssdk.WithLogger(logger))
	session := client.NewSession(tokenstore.New(kv, tokenstore.WithLogger(logger)))

	if _, err := session.Bootstrap(cmd.Context()); err != nil {
		// A stale session is not fatal; the command decides what it needs
		logger.Debug("session not restored", "err", err)
		session.AckError()
	}

	return &env{
		session: session,
		out:     cmd.OutOrStdout(),
		format:  o.output,
		close:   kv.Close,
	}, nil
}

// run opens the session, calls fn and closes the state database.
func (o *options) run(cmd *cobra.Command, fn func(ctx context.Context, e *env) error) error {
	e, err := o.open(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := e.close(); cerr != nil {
			slog.Debug("failed to close state", "err", cerr)
		}
	}()
	return fn(cmd.Context(), e)
}

// authenticated returns the signed-in user and company or a hint to log in.
func (e *env) authenticated() (opssdk.Authenticated, error) {
	switch st := e.session.State().(type) {
	case opssdk.Authenticated:
		return st, nil
	case opssdk.AwaitingSecondFactor:
		return opssdk.Authenticated{}, fmt.Errorf("login for %s is waiting for a code: run opsctl verify <code>", st.Username)
	case opssdk.Unauthenticated:
		if st.Notice != "" {
			return opssdk.Authenticated{}, fmt.Errorf("%s: run opsctl login", st.Notice)
		}
	}
	return opssdk.Authenticated{}, errors.New("not logged in: run opsctl login")
}
