package commands

import (
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/cfops/pkg/capi"
)

// NewOrgsCommand creates the organizations command group.
func NewOrgsCommand() *cobra.Command {
	return newResourceCommand("orgs", []string{"organizations", "o"}, resourceView[capi.Organization]{
		plural:  "organizations",
		key:     "NAME",
		client:  capi.Client.Organizations,
		columns: []any{"Name", "GUID", "Status", "Created"},
		row: func(org *capi.Organization) []any {
			return []any{org.Name, org.GUID(), orgStatus(org), formatTime(org.CreatedAt)}
		},
		details: func(org *capi.Organization) [][2]string {
			return [][2]string{
				{"Name", org.Name},
				{"GUID", org.GUID()},
				{"Status", orgStatus(org)},
				{"Created", formatTime(org.CreatedAt)},
				{"Updated", formatTime(org.UpdatedAt)},
			}
		},
	})
}

func orgStatus(org *capi.Organization) string {
	if org.Suspended {
		return "suspended"
	}

	return "active"
}
