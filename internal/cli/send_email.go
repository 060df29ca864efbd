package cli

import (
	"github.com/spf13/cobra"

	"github.com/nhle/inboxpeek/internal/send"
)

func (c *command) sendEmailCmd() *cobra.Command {
	var msg send.Message

	cmd := &cobra.Command{
		Use:   "send-email",
		Short: "Send an email (prints the message, nothing is delivered)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := msg.Validate(); err != nil {
				return err
			}
			c.app.Logger.Debug("sending email", "sender", c.rt.Sender.Name(), "to", msg.To)
			return c.rt.Sender.Send(cmd.Context(), msg)
		},
	}

	cmd.Flags().StringVar(&msg.To, "to", "", "recipient email address")
	cmd.Flags().StringVar(&msg.Subject, "subject", "", "email subject")
	cmd.Flags().StringVar(&msg.Body, "body", "", "email body")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("body")
	return cmd
}
