package commands

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/cfops/pkg/capi"
)

// resourceView describes how one resource kind is fetched and printed.
type resourceView[T any] struct {
	plural string
	// key names what get looks resources up by.
	key     string
	client  func(capi.Client) capi.ResourceClient[T]
	columns []any
	row     func(*T) []any
	details func(*T) [][2]string
}

// newResourceCommand creates the list and get subcommands for view.
func newResourceCommand[T any](use string, aliases []string, view resourceView[T]) *cobra.Command {
	cmd := &cobra.Command{
		Use:     use,
		Aliases: aliases,
		Short:   "Manage " + view.plural,
	}

	cmd.AddCommand(newListCommand(view), newGetCommand(view))

	return cmd
}

func newListCommand[T any](view resourceView[T]) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List " + view.plural,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, done, err := connect(cmd)
			if err != nil {
				return err
			}
			defer done()

			items, err := view.client(client).List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list %s: %w", view.plural, err)
			}

			return renderList(cmd, view, items)
		},
	}
}

func newGetCommand[T any](view resourceView[T]) *cobra.Command {
	var byGUID bool

	cmd := &cobra.Command{
		Use:   "get " + view.key,
		Short: "Show one of the " + view.plural,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, done, err := connect(cmd)
			if err != nil {
				return err
			}
			defer done()

			resources := view.client(client)

			var item *T
			if byGUID {
				item, err = resources.GetByGUID(cmd.Context(), args[0])
			} else {
				item, err = resources.Get(cmd.Context(), args[0])
			}

			if err != nil {
				return err
			}

			return renderDetails(cmd, item, view.details)
		},
	}

	cmd.Flags().BoolVar(&byGUID, "guid", false, "treat the argument as a GUID")

	return cmd
}

func renderList[T any](cmd *cobra.Command, view resourceView[T], items []*T) error {
	if len(items) == 0 && isTable() {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "No %s found\n", view.plural)

		return nil
	}

	return render(cmd.OutOrStdout(), items, func(table *tablewriter.Table) {
		table.Header(view.columns...)

		for _, item := range items {
			_ = table.Append(view.row(item)...)
		}
	})
}

func renderDetails[T any](cmd *cobra.Command, item *T, details func(*T) [][2]string) error {
	return render(cmd.OutOrStdout(), item, func(table *tablewriter.Table) {
		table.Header("Property", "Value")

		for _, kv := range details(item) {
			_ = table.Append(kv[0], kv[1])
		}
	})
}
