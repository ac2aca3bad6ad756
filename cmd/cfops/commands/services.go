package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/cfops/internal/constants"
	"github.com/fivetwenty-io/cfops/pkg/capi"
)

var serviceView = resourceView[capi.ServiceInstance]{
	plural: "service instances",
	key:    "NAME",
	client: func(c capi.Client) capi.ResourceClient[capi.ServiceInstance] {
		return c.ServiceInstances()
	},
	columns: []any{"Name", "Type", "Offering", "Plan", "Last Operation"},
	row: func(si *capi.ServiceInstance) []any {
		return []any{si.Name, string(si.Type), planOffering(si.Plan), planName(si.Plan), lastOperation(si.LastOperation)}
	},
	details: func(si *capi.ServiceInstance) [][2]string {
		return [][2]string{
			{"Name", si.Name},
			{"GUID", si.GUID()},
			{"Type", string(si.Type)},
			{"Offering", planOffering(si.Plan)},
			{"Plan", planName(si.Plan)},
			{"Tags", orDefault(strings.Join(si.Tags, ", "), constants.None)},
			{"Last Operation", lastOperation(si.LastOperation)},
			{"Space", spaceName(si.Space)},
			{"Created", formatTime(si.CreatedAt)},
		}
	},
}

// NewServicesCommand creates the service instances command group.
func NewServicesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "services",
		Aliases: []string{"service-instances", "si"},
		Short:   "Manage service instances",
	}

	cmd.AddCommand(newListCommand(serviceView))
	cmd.AddCommand(newGetCommand(serviceView))
	cmd.AddCommand(newServicesDeleteCommand())

	return cmd
}

func newServicesDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a service instance and wait for the broker to finish",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, done, err := connect(cmd)
			if err != nil {
				return err
			}
			defer done()

			si, err := client.ServiceInstances().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if err := client.ServiceInstances().Delete(cmd.Context(), si.GUID()); err != nil {
				return fmt.Errorf("failed to delete service instance %s: %w", args[0], err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Service instance %s deleted\n", args[0])

			return nil
		},
	}
}

func planName(plan *capi.ServicePlan) string {
	if plan == nil {
		return constants.NotAvailable
	}

	return plan.Name
}

func planOffering(plan *capi.ServicePlan) string {
	if plan == nil {
		return constants.NotAvailable
	}

	return plan.Offering
}

func lastOperation(op *capi.LastOperation) string {
	if op == nil {
		return constants.None
	}

	return string(op.Type) + " " + string(op.State)
}
