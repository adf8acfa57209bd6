package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newLockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lock",
		Short: "Resolve the manifest's requirements and write the lockfile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.provider(cmd.Context())
			if err != nil {
				return err
			}
			_, err = a.Lock(cmd.Context())
			return err
		},
	}
}
