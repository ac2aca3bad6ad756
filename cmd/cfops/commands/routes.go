package commands

import (
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/cfops/internal/constants"
	"github.com/fivetwenty-io/cfops/pkg/capi"
)

// NewRoutesCommand creates the routes command group. Routes are looked up by host.
func NewRoutesCommand() *cobra.Command {
	return newResourceCommand("routes", []string{"route", "r"}, resourceView[capi.Route]{
		plural:  "routes",
		key:     "HOST",
		client:  capi.Client.Routes,
		columns: []any{"URL", "Host", "Domain", "Space"},
		row: func(route *capi.Route) []any {
			return []any{route.URL, route.Host, routeDomain(route), spaceName(route.Space)}
		},
		details: func(route *capi.Route) [][2]string {
			return [][2]string{
				{"URL", route.URL},
				{"GUID", route.GUID()},
				{"Host", route.Host},
				{"Path", orDefault(route.Path, constants.None)},
				{"Port", formatInt(route.Port)},
				{"Domain", routeDomain(route)},
				{"Space", spaceName(route.Space)},
			}
		},
	})
}

func routeDomain(route *capi.Route) string {
	if route.Domain == nil {
		return constants.NotAvailable
	}

	return route.Domain.Name
}

func spaceName(space *capi.Space) string {
	if space == nil {
		return constants.NotAvailable
	}

	return space.Name
}
