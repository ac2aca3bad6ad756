package commands

import (
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/cfops/pkg/capi"
)

// NewDomainsCommand creates the domains command group.
func NewDomainsCommand() *cobra.Command {
	return newResourceCommand("domains", []string{"domain"}, resourceView[capi.Domain]{
		plural:  "domains",
		key:     "NAME",
		client:  capi.Client.Domains,
		columns: []any{"Name", "GUID", "Shared", "Internal"},
		row: func(domain *capi.Domain) []any {
			return []any{domain.Name, domain.GUID(), yesNo(domain.Shared), yesNo(domain.Internal)}
		},
		details: func(domain *capi.Domain) [][2]string {
			return [][2]string{
				{"Name", domain.Name},
				{"GUID", domain.GUID()},
				{"Shared", yesNo(domain.Shared)},
				{"Internal", yesNo(domain.Internal)},
				{"Created", formatTime(domain.CreatedAt)},
			}
		},
	})
}
