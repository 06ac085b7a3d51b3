package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aussiebroadwan/bizops/pkg/featuregate"
	"github.com/aussiebroadwan/bizops/pkg/opssdk"
)

func newLoginCmd(opts *options) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with username or e-mail and password",
		Long: `Sign in to the backend. Accounts with two-factor login enabled receive a
one-time code by e-mail; complete the login with "opsctl verify <code>".
Without --password the password is prompted for and not echoed.

Examples:
  opsctl login -u alice@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				if password, err = promptPassword(cmd); err != nil {
					return err
				}
			}
			return opts.run(cmd, func(ctx context.Context, e *env) error {
				if _, ok := e.session.State().(opssdk.Authenticated); ok {
					e.session.Logout(ctx)
				}
				st, err := e.session.Login(ctx, username, password)
				if err != nil {
					return fmt.Errorf("login failed: %w", err)
				}
				return reportState(e, st)
			})
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username or e-mail")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password, prompted for when omitted")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

// promptPassword asks for a password on stderr. A terminal stdin is read
// without echo; anything else is read up to the first newline.
func promptPassword(cmd *cobra.Command) (string, error) {
	prompt := cmd.ErrOrStderr()
	fmt.Fprint(prompt, "Password: ")

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newVerifyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <code>",
		Short: "Complete a login with the one-time code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, e *env) error {
				st, err := e.session.VerifySecondFactor(ctx, args[0])
				if errors.Is(err, opssdk.ErrInvalidState) {
					return errors.New("no login is waiting for a code: run opsctl login")
				}
				if err != nil {
					return fmt.Errorf("verification failed: %w", err)
				}
				return reportState(e, st)
			})
		},
	}
}

func newLogoutCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, e *env) error {
				e.session.Logout(ctx)
				fmt.Fprintln(e.out, "Logged out.")
				return nil
			})
		},
	}
}

func newWhoamiCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user and company",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, e *env) error {
				auth, err := e.authenticated()
				if err != nil {
					return err
				}
				return render(e.out, e.format, whoami{
					User:    auth.User.DisplayName(),
					Email:   auth.User.Email,
					Role:    auth.User.Role,
					Company: auth.Company.Name,
					Plan:    auth.Company.Plan,
					TwoFA:   auth.User.TwoFAEnabled,
				})
			})
		},
	}
}

type whoami struct {
	User    string           `json:"user"`
	Email   string           `json:"email"`
	Role    string           `json:"role"`
	Company string           `json:"company"`
	Plan    featuregate.Plan `json:"plan"`
	TwoFA   bool             `json:"twoFactor"`
}

func newRegisterCmd(opts *options) *cobra.Command {
	var req opssdk.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a company and its administrator",
		Long: `Register a new company on the Basic plan together with its first
administrator, then sign in as them.

Without --password the password is prompted for and not echoed.

Examples:
  opsctl register --first-name Ada --last-name Lovelace \
    --email ada@example.com --company "Analytical Engines"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Password == "" {
				var err error
				if req.Password, err = promptPassword(cmd); err != nil {
					return err
				}
			}
			return opts.run(cmd, func(ctx context.Context, e *env) error {
				if _, ok := e.session.State().(opssdk.Authenticated); ok {
					e.session.Logout(ctx)
				}
				st, err := e.session.Register(ctx, req)
				if err != nil {
					return fmt.Errorf("registration failed: %w", err)
				}
				return reportState(e, st)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.FirstName, "first-name", "", "administrator first name")
	f.StringVar(&req.LastName, "last-name", "", "administrator last name")
	f.StringVar(&req.Email, "email", "", "administrator e-mail, also the username")
	f.StringVar(&req.Password, "password", "", "password (min 8 characters), prompted for when omitted")
	f.StringVar(&req.CompanyName, "company", "", "company name")
	f.StringVar(&req.Industry, "industry", "", "industry")
	f.StringVar(&req.EmployeeCount, "employees", "", "employee count band, e.g. 1-10")
	return cmd
}

func newFeaturesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "features",
		Short: "List the modules your company's plan unlocks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, e *env) error {
				auth, err := e.authenticated()
				if err != nil {
					return err
				}
				api := e.session.API()
				rows := make([]moduleAccess, 0)
				for _, name := range api.Collections() {
					feature := api.Feature(name)
					rows = append(rows, moduleAccess{
						Module:  name,
						Feature: string(feature),
						Enabled: feature == "" || e.session.HasAccess(feature),
					})
				}
				if e.format == "table" {
					fmt.Fprintf(e.out, "Plan: %s\n\n", auth.Company.Plan)
				}
				return render(e.out, e.format, rows)
			})
		},
	}
}

type moduleAccess struct {
	Module  string `json:"module"`
	Feature string `json:"feature,omitempty"`
	Enabled bool   `json:"enabled"`
}

func newTwoFactorCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "2fa",
		Short: "Turn e-mailed login codes on or off",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	toggle := func(use string, enable bool) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: use + " two-factor login for your account",
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.run(cmd, func(ctx context.Context, e *env) error {
					if _, err := e.authenticated(); err != nil {
						return err
					}
					var err error
					if enable {
						err = e.session.EnableTwoFactor(ctx)
					} else {
						err = e.session.DisableTwoFactor(ctx)
					}
					if err != nil {
						return err
					}
					fmt.Fprintf(e.out, "Two-factor login %sd.\n", use)
					return nil
				})
			},
		}
	}
	cmd.AddCommand(toggle("enable", true), toggle("disable", false))
	return cmd
}

// reportState tells the user where a login attempt left them.
func reportState(e *env, st opssdk.State) error {
	switch st := st.(type) {
	case opssdk.Authenticated:
		fmt.Fprintf(e.out, "Logged in as %s (%s) at %s [%s plan].\n",
			st.User.DisplayName(), st.User.Role, st.Company.Name, st.Company.Plan)
	case opssdk.AwaitingSecondFactor:
		fmt.Fprintf(e.out, "A verification code was sent to %s. Run: opsctl verify <code>\n", st.Username)
	default:
		fmt.Fprintf(e.out, "Session state: %s\n", st.Name())
	}
	return nil
}
