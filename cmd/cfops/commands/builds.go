package commands

import (
	"context"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/cfops/internal/constants"
	"github.com/fivetwenty-io/cfops/pkg/capi"
)

// NewBuildsCommand creates the builds command group. Builds need the v3 API.
func NewBuildsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "builds",
		Short: "Inspect application builds",
	}

	cmd.AddCommand(newAppChildrenCommand("builds", func(ctx context.Context, c capi.Client, appGUID string) ([]*capi.Build, error) {
		return c.Builds().ListForApplication(ctx, appGUID)
	}, func(table *tablewriter.Table, builds []*capi.Build) {
		table.Header("GUID", "State", "Package", "Staging Memory", "Created")

		for _, b := range builds {
			pkg := constants.NotAvailable
			if b.Package != nil {
				pkg = b.Package.GUID()
			}

			_ = table.Append(b.GUID(), string(b.State), pkg, fmt.Sprintf("%dM", b.StagingMemoryMB), formatTime(b.CreatedAt))
		}
	}))

	return cmd
}

// NewPackagesCommand creates the packages command group. Packages need the v3 API.
func NewPackagesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "packages",
		Aliases: []string{"pkgs"},
		Short:   "Inspect application packages",
	}

	cmd.AddCommand(newAppChildrenCommand("packages", func(ctx context.Context, c capi.Client, appGUID string) ([]*capi.Package, error) {
		return c.Packages().ListForApplication(ctx, appGUID)
	}, func(table *tablewriter.Table, packages []*capi.Package) {
		table.Header("GUID", "Type", "State", "Image", "Created")

		for _, p := range packages {
			_ = table.Append(p.GUID(), string(p.Type), string(p.State), orDefault(p.Image, constants.None), formatTime(p.CreatedAt))
		}
	}))

	return cmd
}

// newAppChildrenCommand lists resources that belong to the application named by --app.
func newAppChildrenCommand[T any](
	plural string,
	list func(context.Context, capi.Client, string) ([]*T, error),
	fill func(*tablewriter.Table, []*T),
) *cobra.Command {
	var appName string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the " + plural + " of an application",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if appName == "" {
				return constants.ErrAppFlagRequired
			}

			client, done, err := connect(cmd)
			if err != nil {
				return err
			}
			defer done()

			app, err := client.Applications().Get(cmd.Context(), appName)
			if err != nil {
				return err
			}

			items, err := list(cmd.Context(), client, app.GUID())
			if err != nil {
				return fmt.Errorf("failed to list %s for %s: %w", plural, appName, err)
			}

			if len(items) == 0 && isTable() {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "No %s found\n", plural)

				return nil
			}

			return render(cmd.OutOrStdout(), items, func(table *tablewriter.Table) {
				fill(table, items)
			})
		},
	}

	cmd.Flags().StringVar(&appName, "app", "", "application name")

	return cmd
}
