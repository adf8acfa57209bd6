package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Materialize the lockfile into the artifact cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			only, _ := cmd.Flags().GetStringSlice("only")
			a, err := c.provider(cmd.Context())
			if err != nil {
				return err
			}
			return a.Sync(cmd.Context(), only)
		},
	}
	cmd.Flags().StringSlice("only", nil, "Materialize only the closure of the named requirements")
	return cmd
}
