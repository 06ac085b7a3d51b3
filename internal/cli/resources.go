package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/bizops/pkg/opssdk"
)

func newResourceCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "res",
		Aliases: []string{"resource"},
		Short:   "Work with business module records",
		Long: `List, read, delete and export records of any module your plan unlocks.

Examples:
  opsctl res list invoices --status DRAFT --size 20
  opsctl res get leaves 01J...
  opsctl res export invoices 01J... excel --dir ./exports`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(
		newResListCmd(opts),
		newResGetCmd(opts),
		newResDeleteCmd(opts),
		newResExportCmd(opts),
	)
	return cmd
}

// collection resolves a module name, refusing modules the plan locks.
func (e *env) collection(name string) (opssdk.Collection, error) {
	if _, err := e.authenticated(); err != nil {
		return nil, err
	}
	api := e.session.API()
	c, ok := api.Collection(name)
	if !ok {
		return nil, fmt.Errorf("unknown module %q (known: %s)", name, strings.Join(api.Collections(), ", "))
	}
	if f := api.Feature(name); f != "" && !e.session.HasAccess(f) {
		return nil, fmt.Errorf("module %q needs the %q feature, which your plan does not include", name, f)
	}
	return c, nil
}

func newResListCmd(opts *options) *cobra.Command {
	var filter opssdk.ListFilter

	cmd := &cobra.Command{
		Use:   "list <module>",
		Short: "List records of a module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, e *env) error {
				c, err := e.collection(args[0])
				if err != nil {
					return err
				}
				page, err := c.ListAny(ctx, filter)
				if err != nil {
					return err
				}
				if err := render(e.out, e.format, page.Items); err != nil {
					return err
				}
				if e.format == "table" && page.Paged {
					fmt.Fprintf(e.out, "\npage %d of %d, %d records\n", filter.Page+1, page.TotalPages, page.TotalElements)
				}
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&filter.Status, "status", "", "only records in this status")
	f.StringVar(&filter.StartDate, "from", "", "start date, YYYY-MM-DD")
	f.StringVar(&filter.EndDate, "to", "", "end date, YYYY-MM-DD")
	f.IntVar(&filter.Page, "page", 0, "zero based page, used with --size")
	f.IntVar(&filter.Size, "size", 0, "page size; 0 lists everything")
	return cmd
}

func newResGetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get <module> <id>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, e *env) error {
				c, err := e.collection(args[0])
				if err != nil {
					return err
				}
				rec, err := c.GetAny(ctx, opssdk.ID(args[1]))
				if err != nil {
					return err
				}
				return render(e.out, e.format, rec)
			})
		},
	}
}

func newResDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <module> <id>",
		Short: "Delete one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, e *env) error {
				c, err := e.collection(args[0])
				if err != nil {
					return err
				}
				if err := c.Remove(ctx, opssdk.ID(args[1])); err != nil {
					return err
				}
				fmt.Fprintf(e.out, "Deleted %s %s.\n", args[0], args[1])
				return nil
			})
		},
	}
}

func newResExportCmd(opts *options) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "export <module> <id> <format>",
		Short: "Download a rendered export (excel, pdf or calendar)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, e *env) error {
				c, err := e.collection(args[0])
				if err != nil {
					return err
				}
				format := opssdk.ExportFormat(args[2])
				if !offers(c, format) {
					return fmt.Errorf("%s cannot be exported as %s", args[0], format)
				}
				art, err := c.Export(ctx, opssdk.ID(args[1]), format)
				if err != nil {
					return err
				}
				if art.Filename == "" {
					return errors.New("export has no filename")
				}
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("failed to create %s: %w", dir, err)
				}
				dest := filepath.Join(dir, art.Filename)
				if err := os.WriteFile(dest, art.Data, 0o644); err != nil {
					return fmt.Errorf("failed to write export: %w", err)
				}
				fmt.Fprintf(e.out, "Saved %s (%d bytes).\n", dest, len(art.Data))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "directory to save the file in")
	return cmd
}

func offers(c opssdk.Collection, format opssdk.ExportFormat) bool {
	for _, f := range c.Formats() {
		if f == format {
			return true
		}
	}
	return false
}
