package commands

import (
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/cfops/internal/constants"
	"github.com/fivetwenty-io/cfops/pkg/capi"
)

// NewSpacesCommand creates the spaces command group.
func NewSpacesCommand() *cobra.Command {
	return newResourceCommand("spaces", []string{"space", "s"}, resourceView[capi.Space]{
		plural:  "spaces",
		key:     "NAME",
		client:  capi.Client.Spaces,
		columns: []any{"Name", "GUID", "Organization", "Created"},
		row: func(space *capi.Space) []any {
			return []any{space.Name, space.GUID(), spaceOrg(space), formatTime(space.CreatedAt)}
		},
		details: func(space *capi.Space) [][2]string {
			return [][2]string{
				{"Name", space.Name},
				{"GUID", space.GUID()},
				{"Organization", spaceOrg(space)},
				{"Created", formatTime(space.CreatedAt)},
				{"Updated", formatTime(space.UpdatedAt)},
			}
		},
	})
}

func spaceOrg(space *capi.Space) string {
	if space == nil || space.Organization == nil {
		return constants.NotAvailable
	}

	return space.Organization.Name
}
