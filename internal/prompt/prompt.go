// Package prompt reads short answers from the user: the row selection in
// get-emails and the password for set-password.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// ErrCancelled is returned when the user aborts a prompt.
var ErrCancelled = errors.New("prompt cancelled")

// Prompter asks the user for a single line of input.
type Prompter interface {
	Ask(ctx context.Context, title string) (string, error)
	Password(ctx context.Context, title string) (string, error)
}

// New returns an interactive huh prompter when in is a terminal and a
// plain line reader otherwise, so piped input keeps working.
func New(in *os.File, out io.Writer) Prompter {
	fd := in.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return &Form{In: in, Out: out}
	}
	return NewLine(in, out)
}

// Form prompts with a huh input field.
type Form struct {
	In  io.Reader
	Out io.Writer
}

func (f *Form) Ask(ctx context.Context, title string) (string, error) {
	return f.run(ctx, huh.NewInput().Title(title), false)
}

func (f *Form) Password(ctx context.Context, title string) (string, error) {
	return f.run(ctx, huh.NewInput().Title(title).EchoMode(huh.EchoModePassword), true)
}

func (f *Form) run(ctx context.Context, input *huh.Input, secret bool) (string, error) {
	var value string
	input.Value(&value)

	form := huh.NewForm(huh.NewGroup(input)).
		WithShowHelp(false).
		WithInput(f.In).
		WithOutput(f.Out)

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) || errors.Is(err, context.Canceled) {
			return "", ErrCancelled
		}
		return "", fmt.Errorf("running prompt: %w", err)
	}
	if secret {
		return value, nil
	}
	return strings.TrimSpace(value), nil
}

// Line prompts by printing the title and reading one line.
type Line struct {
	r   *bufio.Reader
	out io.Writer
}

// NewLine returns a Line prompter reading from in.
func NewLine(in io.Reader, out io.Writer) *Line {
	return &Line{r: bufio.NewReader(in), out: out}
}

func (l *Line) Ask(ctx context.Context, title string) (string, error) {
	s, err := l.read(ctx, title)
	return strings.TrimSpace(s), err
}

// Password reads a line without masking; only used when stdin is not a
// terminal.
func (l *Line) Password(ctx context.Context, title string) (string, error) {
	return l.read(ctx, title)
}

func (l *Line) read(ctx context.Context, title string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", ErrCancelled
	}
	fmt.Fprintf(l.out, "%s: ", title)

	s, err := l.r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading input: %w", err)
	}
	// A bare EOF reads as an empty answer.
	return strings.TrimRight(s, "\r\n"), nil
}
