package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nhle/inboxpeek/internal/mailbox"
	"github.com/nhle/inboxpeek/internal/model"
	"github.com/nhle/inboxpeek/internal/prompt"
	"github.com/nhle/inboxpeek/internal/render"
	"github.com/nhle/inboxpeek/internal/ui/pager"
)

const selectTitle = "Enter the number of the email to view details (or press Enter to exit)"

// User-facing outcomes of the selection prompt.
const (
	msgNoEmails   = "No emails found."
	msgNoSelected = "No email selected."
	msgInvalid    = "Invalid selection."
	msgNotFound   = "Email not found."
)

// ErrInvalidSelection is returned by ParseSelection for a number outside
// the listed rows.
var ErrInvalidSelection = errors.New("invalid selection")

// errNotANumber is returned by ParseSelection for non-numeric input.
var errNotANumber = errors.New("selection is not a number")

func (c *command) getEmailsCmd() *cobra.Command {
	var usePager bool

	cmd := &cobra.Command{
		Use:   "get-emails",
		Short: "List recent emails and optionally show one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			hours := c.app.Config.Display.DefaultHours
			if cmd.Flags().Changed("hours") {
				hours, _ = cmd.Flags().GetInt("hours")
			}
			return c.getEmails(cmd.Context(), hours, usePager)
		},
	}

	cmd.Flags().Int("hours", model.DefaultHours, "number of hours to look back")
	cmd.Flags().BoolVar(&usePager, "pager", false, "show the selected email in a scrollable pager")
	_ = c.v.BindPFlag("display.default_hours", cmd.Flags().Lookup("hours"))
	return cmd
}

func (c *command) getEmails(ctx context.Context, hours int, usePager bool) error {
	src, err := c.app.Source(c.sourceName)
	if err != nil {
		return err
	}
	out := c.rt.Out

	return mailbox.WithSession(ctx, src, func(s *mailbox.Session) error {
		emails, err := s.ListRecent(ctx, hours)
		if err != nil {
			return err
		}
		if len(emails) == 0 {
			fmt.Fprintln(out, msgNoEmails)
			return nil
		}

		fmt.Fprintln(out, render.EmailTable(emails))
		return c.showSelected(ctx, s, emails, usePager)
	}, c.sessionOptions()...)
}

func (c *command) showSelected(ctx context.Context, s *mailbox.Session, emails []model.Email, usePager bool) error {
	out := c.rt.Out

	answer, err := c.rt.Prompter.Ask(ctx, selectTitle)
	if errors.Is(err, prompt.ErrCancelled) {
		fmt.Fprintln(out, msgNoSelected)
		return nil
	}
	if err != nil {
		return err
	}
	if answer == "" {
		return nil
	}

	idx, err := ParseSelection(answer, len(emails))
	switch {
	case errors.Is(err, errNotANumber):
		fmt.Fprintln(out, msgNoSelected)
		return nil
	case errors.Is(err, ErrInvalidSelection):
		fmt.Fprintln(out, msgInvalid)
		return nil
	}

	email, ok, err := s.Resolve(ctx, emails[idx].Identifier)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(out, msgNotFound)
		return nil
	}

	if usePager {
		return pager.Run(email, c.rt.In, out)
	}
	printEmail(out, email)
	return nil
}

// ParseSelection converts a 1-based row number typed by the user into an
// index into a list of n rows.
func ParseSelection(answer string, n int) (int, error) {
	num, err := strconv.Atoi(answer)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errNotANumber, answer)
	}
	if num < 1 || num > n {
		return 0, fmt.Errorf("%w: %d not in 1..%d", ErrInvalidSelection, num, n)
	}
	return num - 1, nil
}

func printEmail(w io.Writer, e model.Email) {
	fmt.Fprintln(w, render.DetailPanel(e))
	fmt.Fprintln(w, render.BodyPanel(e))
}
