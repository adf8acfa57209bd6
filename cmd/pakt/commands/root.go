// Package commands implements the CLI commands for the pakt tool.
package commands

import (
	"context"

	"github.com/spf13/cobra"
	"go.trai.ch/pakt/internal/app"
	"go.trai.ch/pakt/internal/build"
)

// AppProvider initializes the application on first use. Commands that do not
// need the application (version, help) never invoke it, so they work outside
// a project directory.
type AppProvider func(ctx context.Context) (*app.App, error)

// CLI represents the command line interface for pakt.
type CLI struct {
	provider AppProvider
	rootCmd  *cobra.Command
}

// New creates a new CLI instance with the given application provider.
func New(provider AppProvider) *CLI {
	rootCmd := &cobra.Command{
		Use:           "pakt",
		Short:         "Resolve, lock and materialize package requirements",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	c := &CLI{
		provider: provider,
		rootCmd:  rootCmd,
	}

	rootCmd.AddCommand(c.newLockCmd())
	rootCmd.AddCommand(c.newSyncCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}
