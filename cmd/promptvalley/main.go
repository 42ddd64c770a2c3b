package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gear6io/promptvalley/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.ExecuteWithContext(ctx); err != nil {
		os.Exit(1)
	}
}
