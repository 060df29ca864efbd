package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nhle/inboxpeek/internal/agent"
	"github.com/nhle/inboxpeek/internal/app"
	"github.com/nhle/inboxpeek/internal/cli"
	"github.com/nhle/inboxpeek/internal/model"
	"github.com/nhle/inboxpeek/internal/source"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (default ~/.config/inboxpeek/config.yaml)")
	sourceName := flag.String("source", "", "configured source to read from")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn or error")
	flag.Parse()

	a, err := app.New(model.NewViper(), app.Options{
		ConfigPath: *configPath,
		LogLevel:   *logLevel,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	open := func() (source.Source, error) { return a.Source(*sourceName) }
	srv := agent.NewServer(cli.Version, open, a.Logger)

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error("mcp server stopped", "error", err)
		cancel()
		os.Exit(1)
	}
}
