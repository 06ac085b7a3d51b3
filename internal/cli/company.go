package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/bizops/pkg/featuregate"
	"github.com/aussiebroadwan/bizops/pkg/opssdk"
)

func newCompanyCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "company",
		Short: "Show or change your company",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, e *env) error {
				auth, err := e.authenticated()
				if err != nil {
					return err
				}
				return render(e.out, e.format, auth.Company)
			})
		},
	}
	cmd.AddCommand(newCompanyUpdateCmd(opts))
	return cmd
}

func newCompanyUpdateCmd(opts *options) *cobra.Command {
	values := map[string]*string{}
	fields := []string{
		"name", "industry", "employee-count", "address", "city", "state",
		"country", "postal-code", "phone", "email", "website", "logo",
	}
	var plan string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change company settings (admins only)",
		Long: `Change company settings. Only the flags you pass are sent.

Examples:
  opsctl company update --plan Professional
  opsctl company update --city Sydney --country Australia`,
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := opssdk.CompanyPatch{}
			set := func(flag string) *string {
				if !cmd.Flags().Changed(flag) {
					return nil
				}
				return values[flag]
			}
			patch.Name = set("name")
			patch.Industry = set("industry")
			patch.EmployeeCount = set("employee-count")
			patch.Address = set("address")
			patch.City = set("city")
			patch.State = set("state")
			patch.Country = set("country")
			patch.PostalCode = set("postal-code")
			patch.Phone = set("phone")
			patch.Email = set("email")
			patch.Website = set("website")
			patch.Logo = set("logo")
			if cmd.Flags().Changed("plan") {
				p, ok := featuregate.ParsePlan(plan)
				if !ok {
					return fmt.Errorf("unknown plan %q (want one of %v)", plan, featuregate.Plans())
				}
				patch.Plan = &p
			}

			return opts.run(cmd, func(ctx context.Context, e *env) error {
				if _, err := e.authenticated(); err != nil {
					return err
				}
				company, err := e.session.UpdateCompanySettings(ctx, patch)
				if err != nil {
					return fmt.Errorf("update failed: %w", err)
				}
				return render(e.out, e.format, company)
			})
		},
	}
	for _, f := range fields {
		values[f] = cmd.Flags().String(f, "", "company "+f)
	}
	cmd.Flags().StringVar(&plan, "plan", "", "subscription plan: Basic, Professional or Pro")
	return cmd
}
