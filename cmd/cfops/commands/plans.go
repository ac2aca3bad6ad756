package commands

import (
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/cfops/pkg/capi"
)

// NewPlansCommand creates the service plans command group.
func NewPlansCommand() *cobra.Command {
	return newResourceCommand("plans", []string{"service-plans"}, resourceView[capi.ServicePlan]{
		plural:  "service plans",
		key:     "NAME",
		client:  capi.Client.ServicePlans,
		columns: []any{"Name", "Offering", "Free", "Description"},
		row: func(plan *capi.ServicePlan) []any {
			return []any{plan.Name, plan.Offering, yesNo(plan.Free), plan.Description}
		},
		details: func(plan *capi.ServicePlan) [][2]string {
			return [][2]string{
				{"Name", plan.Name},
				{"GUID", plan.GUID()},
				{"Offering", plan.Offering},
				{"Free", yesNo(plan.Free)},
				{"Description", plan.Description},
			}
		},
	})
}
