package commands

import (
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/cfops/pkg/capi"
)

// NewStacksCommand creates the stacks command group.
func NewStacksCommand() *cobra.Command {
	return newResourceCommand("stacks", []string{"stack"}, resourceView[capi.Stack]{
		plural:  "stacks",
		key:     "NAME",
		client:  capi.Client.Stacks,
		columns: []any{"Name", "GUID", "Description"},
		row: func(stack *capi.Stack) []any {
			return []any{stack.Name, stack.GUID(), stack.Description}
		},
		details: func(stack *capi.Stack) [][2]string {
			return [][2]string{
				{"Name", stack.Name},
				{"GUID", stack.GUID()},
				{"Description", stack.Description},
				{"Created", formatTime(stack.CreatedAt)},
			}
		},
	})
}
