// Package main is the entry point of the mercury CLI.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/leapstack-labs/mercury/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
