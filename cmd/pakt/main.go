// Package main is the entry point for the pakt tool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/grindlemire/graft"
	"go.trai.ch/pakt/cmd/pakt/commands"
	"go.trai.ch/pakt/internal/app"
	_ "go.trai.ch/pakt/internal/wiring"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cli := commands.New(func(ctx context.Context) (*app.App, error) {
		a, _, err := graft.ExecuteFor[*app.App](ctx)
		return a, err
	})

	if err := cli.Execute(ctx); err != nil {
		// zerr prints a full error report with metadata when using %+v.
		_, _ = fmt.Fprintf(os.Stderr, "%+v\n", err)
		return 1
	}
	return 0
}
