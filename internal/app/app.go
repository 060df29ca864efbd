// Package app wires configuration, logging and mail client bindings
// together for the command-line and agent front ends.
package app

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/nhle/inboxpeek/internal/mailbox"
	"github.com/nhle/inboxpeek/internal/model"
	"github.com/nhle/inboxpeek/internal/source"
)

// App holds the loaded configuration and the shared logger.
type App struct {
	Config *model.AppConfig
	Logger *slog.Logger

	// Build turns a source configuration into a binding. Tests replace
	// it with a fixture factory.
	Build func(model.SourceConfig) (source.Source, error)
}

// Options selects the config file and the overrides given on the
// command line.
type Options struct {
	ConfigPath string
	LogLevel   string
	LogOutput  io.Writer
}

// New loads the configuration from opts.ConfigPath through v, which may
// carry bound flags, and sets up logging.
func New(v *viper.Viper, opts Options) (*App, error) {
	path := opts.ConfigPath
	if path == "" {
		path = model.DefaultConfigPath()
	}

	cfg, err := model.LoadConfigWith(v, path)
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}

	logger := NewLogger(opts.LogOutput, level)
	logger.Debug("loaded config", "path", path, "sources", len(cfg.Sources))

	return &App{
		Config: cfg,
		Logger: logger,
		Build:  BuildSource,
	}, nil
}

// Source resolves the named source, or the default one, to a binding.
func (a *App) Source(name string) (source.Source, error) {
	sc, err := a.Config.Source(name)
	if err != nil {
		return nil, err
	}
	src, err := a.Build(sc)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", sc.Name, err)
	}
	return src, nil
}

// SessionOptions returns the mailbox options every front end uses.
func (a *App) SessionOptions() []mailbox.Option {
	return []mailbox.Option{mailbox.WithLogger(a.Logger)}
}
