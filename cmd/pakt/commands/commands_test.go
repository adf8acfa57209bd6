package commands_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/pakt/cmd/pakt/commands"
	"go.trai.ch/pakt/internal/app"
)

func failingProvider(err error) commands.AppProvider {
	return func(_ context.Context) (*app.App, error) {
		return nil, err
	}
}

func TestVersionCommand(t *testing.T) {
	// The version command must not initialize the application.
	cli := commands.New(failingProvider(errors.New("provider must not be called")))
	cli.SetArgs([]string{"version"})
	require.NoError(t, cli.Execute(context.Background()))
}

func TestHelp(t *testing.T) {
	cli := commands.New(failingProvider(errors.New("provider must not be called")))
	cli.SetArgs([]string{"--help"})
	require.NoError(t, cli.Execute(context.Background()))
}

func TestUnknownCommand(t *testing.T) {
	cli := commands.New(failingProvider(errors.New("unused")))
	cli.SetArgs([]string{"frobnicate"})
	err := cli.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestLock_ProviderFailurePropagates(t *testing.T) {
	cli := commands.New(failingProvider(errors.New("no project here")))
	cli.SetArgs([]string{"lock"})
	err := cli.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no project here")
}

func TestSync_ProviderFailurePropagates(t *testing.T) {
	cli := commands.New(failingProvider(errors.New("no project here")))
	cli.SetArgs([]string{"sync", "--only", "requests"})
	err := cli.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no project here")
}

func TestLock_RejectsArguments(t *testing.T) {
	cli := commands.New(failingProvider(errors.New("unused")))
	cli.SetArgs([]string{"lock", "extra"})
	require.Error(t, cli.Execute(context.Background()))
}
