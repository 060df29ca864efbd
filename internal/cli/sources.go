package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/inboxpeek/internal/credential"
	"github.com/nhle/inboxpeek/internal/theme"
)

// storePassword is replaced in tests.
var storePassword = credential.Set

func (c *command) sourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the configured sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := c.app.Config
			for _, name := range cfg.SourceNames() {
				sc, err := cfg.Source(name)
				if err != nil {
					return err
				}
				marker := " "
				if name == cfg.DefaultSource {
					marker = "*"
				}
				fmt.Fprintf(c.rt.Out, "%s %s %s\n", marker, name, theme.SourceLabelStyle(sc.Type).Render(sc.Type))
			}
			return nil
		},
	}
}

func (c *command) setPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-password",
		Short: "Store the selected source's password in the system keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc, err := c.app.Config.Source(c.sourceName)
			if err != nil {
				return err
			}

			password, err := c.rt.Prompter.Password(cmd.Context(), "Password for "+sc.Name)
			if err != nil {
				return err
			}
			if strings.TrimSpace(password) == "" {
				return errors.New("password must not be empty")
			}

			if err := storePassword(credential.PasswordKey(sc.Name), password); err != nil {
				return fmt.Errorf("storing password for %s: %w", sc.Name, err)
			}
			fmt.Fprintf(c.rt.Out, "Password for %s saved.\n", sc.Name)
			return nil
		},
	}
}
