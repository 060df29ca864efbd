// Package send holds the outgoing side of the CLI. Delivery is not
// implemented: the only Sender echoes the message back to the user.
package send

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrMissingField is returned when a required message field is empty.
var ErrMissingField = errors.New("missing required field")

// Message is an outgoing message.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Validate reports the first empty required field.
func (m Message) Validate() error {
	for _, f := range []struct{ name, value string }{
		{"to", m.To},
		{"subject", m.Subject},
		{"body", m.Body},
	} {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
	}
	return nil
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	Name() string
}

// EchoSender prints the message instead of delivering it.
type EchoSender struct {
	writer io.Writer
}

// NewEcho creates an EchoSender that writes to os.Stdout.
func NewEcho() *EchoSender {
	return &EchoSender{writer: os.Stdout}
}

// NewEchoWithWriter creates an EchoSender that writes to w.
func NewEchoWithWriter(w io.Writer) *EchoSender {
	return &EchoSender{writer: w}
}

// Send validates msg and prints it.
func (s *EchoSender) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Sending email to: %s\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\n", msg.Subject)
	fmt.Fprintf(&b, "Body: %s\n", msg.Body)

	if _, err := io.WriteString(s.writer, b.String()); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	return nil
}

// Name returns the sender name.
func (s *EchoSender) Name() string {
	return "echo"
}
