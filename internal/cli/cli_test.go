package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/inboxpeek/internal/mailbox"
	"github.com/nhle/inboxpeek/internal/model"
	"github.com/nhle/inboxpeek/internal/prompt"
	"github.com/nhle/inboxpeek/internal/source"
	"github.com/nhle/inboxpeek/internal/source/memory"
	"github.com/nhle/inboxpeek/tests/testutil"
)

const testConfig = `
default_source: work
sources:
  - name: work
    type: outlook
  - name: archive
    type: mbox
    config:
      path: /nonexistent/Inbox
`

type harness struct {
	src    *memory.Source
	out    bytes.Buffer
	errOut bytes.Buffer
	config string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	msg := testutil.Message("b", "Quarterly report", 2*time.Hour)
	msg.Fields[source.FieldBody] = "Numbers attached."
	msg.Attachments = []source.RawAttachment{{FileName: "q1.pdf"}}

	h := &harness{
		src: memory.New(
			testutil.Message("a", "Lunch plans", time.Hour),
			msg,
			testutil.Message("c", "Old news", 30*time.Hour),
		),
		config: filepath.Join(t.TempDir(), "config.yaml"),
	}
	require.NoError(t, os.WriteFile(h.config, []byte(testConfig), 0o600))
	return h
}

func (h *harness) run(input string, args ...string) int {
	rt := &Runtime{
		Out:      &h.out,
		Err:      &h.errOut,
		Prompter: prompt.NewLine(strings.NewReader(input), &h.out),
		Build: func(model.SourceConfig) (source.Source, error) {
			return h.src, nil
		},
		SessionOptions: []mailbox.Option{mailbox.WithClock(testutil.Clock)},
	}
	return Execute(context.Background(), rt, append([]string{"--config", h.config}, args...))
}

func TestGetEmails_SelectRow(t *testing.T) {
	h := newHarness(t)

	code := h.run("2\n", "get-emails")
	require.Equal(t, 0, code, h.errOut.String())

	out := h.out.String()
	assert.Contains(t, out, "Lunch plans")
	assert.Contains(t, out, "Quarterly report")
	assert.NotContains(t, out, "Old news")
	assert.Contains(t, out, selectTitle)

	assert.Contains(t, out, "Email Info")
	assert.Contains(t, out, "Sender b <senderb@example.com>")
	assert.Contains(t, out, "2026-03-10 10:00:00")
	assert.Contains(t, out, "q1.pdf")
	assert.Contains(t, out, "Numbers attached.")
	assert.Equal(t, 1, h.src.Closed())
}

func TestGetEmails_BlankAnswerExits(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, 0, h.run("\n", "get-emails"))
	out := h.out.String()
	assert.NotContains(t, out, "Email Info")
	assert.NotContains(t, out, msgNoSelected)
	assert.NotContains(t, out, msgInvalid)
}

func TestGetEmails_OutOfRange(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, 0, h.run("9\n", "get-emails"))
	assert.Contains(t, h.out.String(), msgInvalid)
	assert.NotContains(t, h.out.String(), "Email Info")
}

func TestGetEmails_NotANumber(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, 0, h.run("abc\n", "get-emails"))
	assert.Contains(t, h.out.String(), msgNoSelected)
	assert.NotContains(t, h.out.String(), "Email Info")
}

func TestGetEmails_HoursFlag(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, 0, h.run("\n", "get-emails", "--hours", "48"))
	assert.Contains(t, h.out.String(), "Old news")

	h.out.Reset()
	require.Equal(t, 0, h.run("", "get-emails", "--hours", "0"))
	assert.Contains(t, h.out.String(), msgNoEmails)
	assert.NotContains(t, h.out.String(), selectTitle)
}

func TestGetEmails_EmptyMailbox(t *testing.T) {
	h := newHarness(t)
	h.src.Messages = nil

	require.Equal(t, 0, h.run("", "get-emails"))
	assert.Equal(t, msgNoEmails+"\n", h.out.String())
}

func TestGetEmails_ResolvedEmailGone(t *testing.T) {
	h := newHarness(t)
	h.src.MessageErr = source.ErrNotFound

	require.Equal(t, 0, h.run("1\n", "get-emails"))
	assert.Contains(t, h.out.String(), msgNotFound)
}

func TestGetEmails_ConnectionError(t *testing.T) {
	h := newHarness(t)
	h.src.OpenErr = errors.New("Outlook is not running")

	code := h.run("", "get-emails")
	assert.Equal(t, 1, code)
	assert.Empty(t, h.out.String())

	stderr := h.errOut.String()
	assert.True(t, strings.HasPrefix(stderr, "Error: "), stderr)
	assert.NotContains(t, stderr, "\x1b[")
	assert.Equal(t, 1, strings.Count(stderr, "\n"))
	assert.Contains(t, stderr, "Outlook is not running")
	assert.NotContains(t, stderr, "goroutine")
}

func TestGetEmails_UnknownSource(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, 1, h.run("", "--source", "nope", "get-emails"))
	assert.Contains(t, h.errOut.String(), "source not configured")
}

func TestSendEmail(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, 0, h.run("", "send-email", "--to", "bob@example.com", "--subject", "Hi", "--body", "Hello"))
	assert.Equal(t, "Sending email to: bob@example.com\nSubject: Hi\nBody: Hello\n", h.out.String())
}

func TestSendEmail_RequiresFlags(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, 1, h.run("", "send-email", "--to", "bob@example.com"))
	assert.Contains(t, h.errOut.String(), "required flag")
	assert.Empty(t, h.out.String())
}

func TestSources(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, 0, h.run("", "sources"))
	lines := strings.Split(strings.TrimRight(h.out.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "  archive"), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "* work"), lines[1])
}

func TestSetPassword(t *testing.T) {
	h := newHarness(t)

	stored := map[string]string{}
	prev := storePassword
	storePassword = func(key, value string) error {
		stored[key] = value
		return nil
	}
	t.Cleanup(func() { storePassword = prev })

	require.Equal(t, 0, h.run("hunter2\n", "--source", "archive", "set-password"))
	assert.Equal(t, map[string]string{"archive-password": "hunter2"}, stored)
	assert.Contains(t, h.out.String(), "Password for archive saved.")

	assert.Equal(t, 1, h.run("\n", "set-password"))
	assert.Contains(t, h.errOut.String(), "must not be empty")
}

func TestVersion(t *testing.T) {
	h := newHarness(t)
	h.config = filepath.Join(t.TempDir(), "missing", "broken.yaml")

	require.Equal(t, 0, h.run("", "version"))
	assert.Equal(t, "inboxpeek dev\n", h.out.String())
}

func TestParseSelection(t *testing.T) {
	idx, err := ParseSelection("3", 3)
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	_, err = ParseSelection("0", 3)
	assert.ErrorIs(t, err, ErrInvalidSelection)
	_, err = ParseSelection("4", 3)
	assert.ErrorIs(t, err, ErrInvalidSelection)
	_, err = ParseSelection("two", 3)
	assert.ErrorIs(t, err, errNotANumber)
	assert.NotErrorIs(t, err, ErrInvalidSelection)
}
