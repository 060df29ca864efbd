// Package cli implements the inboxpeek command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nhle/inboxpeek/internal/app"
	"github.com/nhle/inboxpeek/internal/mailbox"
	"github.com/nhle/inboxpeek/internal/model"
	"github.com/nhle/inboxpeek/internal/prompt"
	"github.com/nhle/inboxpeek/internal/send"
	"github.com/nhle/inboxpeek/internal/source"
	"github.com/nhle/inboxpeek/internal/theme"
)

// Version is set at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

// Runtime carries the process streams and the replaceable collaborators
// of the command tree. Zero fields fall back to the real implementations.
type Runtime struct {
	In  *os.File
	Out io.Writer
	Err io.Writer

	Prompter prompt.Prompter
	Sender   send.Sender

	// Build overrides app.BuildSource.
	Build func(model.SourceConfig) (source.Source, error)

	// SessionOptions are appended to the options every session is
	// opened with.
	SessionOptions []mailbox.Option
}

func (rt *Runtime) withDefaults() *Runtime {
	out := *rt
	if out.In == nil {
		out.In = os.Stdin
	}
	if out.Out == nil {
		out.Out = os.Stdout
	}
	if out.Err == nil {
		out.Err = os.Stderr
	}
	if out.Prompter == nil {
		out.Prompter = prompt.New(out.In, out.Out)
	}
	if out.Sender == nil {
		out.Sender = send.NewEchoWithWriter(out.Out)
	}
	return &out
}

// command holds the state shared by the subcommands of one invocation.
type command struct {
	rt  *Runtime
	v   *viper.Viper
	app *app.App

	configPath string
	sourceName string
}

// NewRootCommand builds the command tree.
func NewRootCommand(rt *Runtime) *cobra.Command {
	c := &command{rt: rt.withDefaults(), v: model.NewViper()}

	root := &cobra.Command{
		Use:           "inboxpeek",
		Short:         "Browse recent messages in your desktop mail client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load()
		},
	}
	root.SetIn(c.rt.In)
	root.SetOut(c.rt.Out)
	root.SetErr(c.rt.Err)

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default ~/.config/inboxpeek/config.yaml)")
	flags.StringVar(&c.sourceName, "source", "", "configured source to read from (default: default_source)")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	_ = c.v.BindPFlag("log.level", flags.Lookup("log-level"))

	root.AddCommand(
		c.getEmailsCmd(),
		c.sendEmailCmd(),
		c.setPasswordCmd(),
		c.sourcesCmd(),
		versionCmd(),
	)
	return root
}

func (c *command) load() error {
	a, err := app.New(c.v, app.Options{
		ConfigPath: c.configPath,
		LogOutput:  c.rt.Err,
	})
	if err != nil {
		return err
	}
	if c.rt.Build != nil {
		a.Build = c.rt.Build
	}
	c.app = a
	return nil
}

func (c *command) sessionOptions() []mailbox.Option {
	return append(c.app.SessionOptions(), c.rt.SessionOptions...)
}

// Execute runs the command tree with args and returns the process exit
// code. Errors are printed as a single "Error: ..." line on stderr.
func Execute(ctx context.Context, rt *Runtime, args []string) int {
	root := NewRootCommand(rt)
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		printError(root.ErrOrStderr(), err)
		return 1
	}
	return 0
}

// printError writes err as one styled line. Styling is dropped when w is
// not a terminal.
func printError(w io.Writer, err error) {
	style := lipgloss.NewRenderer(w).NewStyle().Inherit(theme.ErrorStyle)
	fmt.Fprintln(w, style.Render("Error: "+err.Error()))
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// Skip config loading.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "inboxpeek %s\n", Version)
		},
	}
}
