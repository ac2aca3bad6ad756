package commands_test

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// commandAt walks path from root through the subcommand tree and fails the
// test when a step is missing.
func commandAt(t *testing.T, root *cobra.Command, path ...string) *cobra.Command {
	t.Helper()

	cmd := root

	for _, name := range path {
		var next *cobra.Command

		for _, c := range cmd.Commands() {
			if c.Name() == name {
				next = c

				break
			}
		}

		require.NotNil(t, next, "%s has no subcommand %q", cmd.CommandPath(), name)
		cmd = next
	}

	return cmd
}

// hasFlag reports whether cmd defines the local flag name.
func hasFlag(cmd *cobra.Command, name string) bool {
	return cmd.Flags().Lookup(name) != nil
}
