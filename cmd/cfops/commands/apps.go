package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/cfops/internal/constants"
	"github.com/fivetwenty-io/cfops/pkg/capi"
)

var appView = resourceView[capi.Application]{
	plural: "applications",
	key:    "NAME",
	client: func(c capi.Client) capi.ResourceClient[capi.Application] {
		return c.Applications()
	},
	columns: []any{"Name", "State", "Instances", "Memory", "Stack", "URLs"},
	row: func(app *capi.Application) []any {
		return []any{app.Name, string(app.State), appInstances(app), fmt.Sprintf("%dM", app.MemoryMB), appStack(app), strings.Join(app.URLs, ", ")}
	},
	details: func(app *capi.Application) [][2]string {
		return [][2]string{
			{"Name", app.Name},
			{"GUID", app.GUID()},
			{"State", string(app.State)},
			{"Instances", appInstances(app)},
			{"Memory", fmt.Sprintf("%dM", app.MemoryMB)},
			{"Disk", fmt.Sprintf("%dM", app.DiskMB)},
			{"Buildpacks", orDefault(strings.Join(app.Buildpacks, ", "), constants.None)},
			{"Stack", appStack(app)},
			{"Space", spaceName(app.Space)},
			{"Organization", spaceOrg(app.Space)},
			{"URLs", orDefault(strings.Join(app.URLs, ", "), constants.None)},
			{"Created", formatTime(app.CreatedAt)},
			{"Updated", formatTime(app.UpdatedAt)},
		}
	},
}

// NewAppsCommand creates the applications command group.
func NewAppsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "apps",
		Aliases: []string{"applications", "app"},
		Short:   "Manage applications",
	}

	cmd.AddCommand(newAppsListCommand())
	cmd.AddCommand(newGetCommand(appView))
	cmd.AddCommand(newAppsStateCommand("start", capi.ApplicationsClient.Start))
	cmd.AddCommand(newAppsStateCommand("stop", capi.ApplicationsClient.Stop))
	cmd.AddCommand(newAppsDeleteCommand())

	return cmd
}

func newAppsListCommand() *cobra.Command {
	var inSpace string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List applications",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, done, err := connect(cmd)
			if err != nil {
				return err
			}
			defer done()

			var apps []*capi.Application

			if inSpace == "" {
				apps, err = client.Applications().List(cmd.Context())
			} else {
				apps, err = appsInSpace(cmd.Context(), client, inSpace)
			}

			if err != nil {
				return fmt.Errorf("failed to list applications: %w", err)
			}

			return renderList(cmd, appView, apps)
		},
	}

	cmd.Flags().StringVarP(&inSpace, "space", "s", "", "only list applications in this space")

	return cmd
}

func appsInSpace(ctx context.Context, client capi.Client, name string) ([]*capi.Application, error) {
	space, err := client.Spaces().Get(ctx, name)
	if err != nil {
		return nil, err
	}

	return client.Applications().ListInSpace(ctx, space.GUID())
}

type stateChange func(capi.ApplicationsClient, context.Context, string) (*capi.Application, error)

func newAppsStateCommand(verb string, change stateChange) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " NAME",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " an application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, done, err := connect(cmd)
			if err != nil {
				return err
			}
			defer done()

			app, err := client.Applications().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			app, err = change(client.Applications(), cmd.Context(), app.GUID())
			if err != nil {
				return fmt.Errorf("failed to %s application %s: %w", verb, args[0], err)
			}

			if !isTable() {
				return render(cmd.OutOrStdout(), app, nil)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Application %s is %s\n", app.Name, app.State)

			return nil
		},
	}
}

func newAppsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete an application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, done, err := connect(cmd)
			if err != nil {
				return err
			}
			defer done()

			app, err := client.Applications().Lookup(cmd.Context(), args[0], false)
			if err != nil {
				return err
			}

			if app != nil {
				if err := client.Applications().Delete(cmd.Context(), app.GUID()); err != nil {
					return fmt.Errorf("failed to delete application %s: %w", args[0], err)
				}
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Application %s deleted\n", args[0])

			return nil
		},
	}
}

func appInstances(app *capi.Application) string {
	if app.RunningInstances == nil {
		return "?/" + strconv.Itoa(app.Instances)
	}

	return fmt.Sprintf("%d/%d", *app.RunningInstances, app.Instances)
}

func appStack(app *capi.Application) string {
	if app.Stack == nil {
		return constants.NotAvailable
	}

	return app.Stack.Name
}
