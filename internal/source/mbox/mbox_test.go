package mbox

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	gombox "github.com/emersion/go-mbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/inboxpeek/internal/mailbox"
	"github.com/nhle/inboxpeek/internal/source"
)

func writeMbox(t *testing.T, msgs ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "Inbox")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := gombox.NewWriter(f)
	for _, m := range msgs {
		mw, err := w.CreateMessage("sender@example.com", time.Now())
		require.NoError(t, err)
		_, err = io.WriteString(mw, m)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return path
}

func message(subject string, received time.Time, extra string) string {
	return fmt.Sprintf("Received: from mx.example.com by local; %s\r\n"+
		"Date: Mon, 02 Jan 2006 15:04:05 +0000\r\n"+
		"From: Alice <alice@example.com>\r\n"+
		"To: Bob <bob@example.com>\r\n"+
		"Subject: %s\r\n"+
		"%s"+
		"\r\n"+
		"Hello from %s.\r\n", received.Format(time.RFC1123Z), subject, extra, subject)
}

func TestAdapter_ListAndResolve(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	path := writeMbox(t,
		message("old", now.Add(-50*time.Hour), ""),
		message("recent", now.Add(-time.Hour), ""),
		message("expunged", now.Add(-time.Hour), "X-Mozilla-Status: 0009\r\n"),
		message("newest", now.Add(-time.Minute), ""),
	)

	ctx := context.Background()
	err := mailbox.WithSession(ctx, NewAdapter(path), func(s *mailbox.Session) error {
		emails, err := s.ListRecent(ctx, 7)
		require.NoError(t, err)
		require.Len(t, emails, 2)

		assert.Equal(t, "newest", emails[0].Subject)
		assert.Equal(t, "4", emails[0].Identifier)
		assert.Equal(t, "recent", emails[1].Subject)
		assert.Equal(t, "2", emails[1].Identifier)
		assert.Equal(t, "Alice", emails[1].SenderName)
		assert.Equal(t, "Bob", emails[1].To)
		assert.True(t, emails[1].ReceivedAt.Equal(now.Add(-time.Hour)))

		full, ok, err := s.Resolve(ctx, "2")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Contains(t, full.Body, "Hello from recent.")
		assert.Empty(t, full.Attachments)

		for _, id := range []string{"3", "0", "9", "x"} {
			_, ok, err := s.Resolve(ctx, id)
			require.NoError(t, err)
			assert.False(t, ok, id)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestAdapter_MissingFile(t *testing.T) {
	_, err := mailbox.Open(context.Background(), NewAdapter(filepath.Join(t.TempDir(), "none")))
	assert.True(t, source.IsConnectionError(err))
}
