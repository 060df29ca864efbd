package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nhle/inboxpeek/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.Execute(ctx, &cli.Runtime{}, os.Args[1:])
	cancel()
	os.Exit(code)
}
