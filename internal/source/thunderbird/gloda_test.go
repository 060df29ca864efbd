package thunderbird

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/inboxpeek/internal/mailbox"
	"github.com/nhle/inboxpeek/internal/source"
)

// glodaSchema is the subset of the gloda schema the adapter reads. The
// real messagesText is an FTS3 table whose content lives in
// messagesText_content.
const glodaSchema = `
CREATE TABLE folderLocations (
	id INTEGER PRIMARY KEY,
	folderURI TEXT NOT NULL,
	dirtyStatus INTEGER NOT NULL,
	name TEXT NOT NULL,
	indexingPriority INTEGER NOT NULL
);
CREATE TABLE messages (
	id INTEGER PRIMARY KEY,
	folderID INTEGER,
	messageKey INTEGER,
	conversationID INTEGER NOT NULL,
	date INTEGER,
	headerMessageID TEXT,
	deleted INTEGER NOT NULL DEFAULT 0,
	jsonAttributes TEXT,
	notability INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE messagesText_content (
	docid INTEGER PRIMARY KEY,
	c0body TEXT,
	c1subject TEXT,
	c2attachmentNames TEXT,
	c3author TEXT,
	c4recipients TEXT
);`

type fixtureMessage struct {
	id          int64
	folder      int64
	date        *time.Time
	deleted     bool
	subject     string
	author      string
	recipients  string
	body        string
	attachments string
}

func newGlodaDB(t *testing.T, msgs ...fixtureMessage) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), GlodaFile)
	db, err := sqlx.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(glodaSchema)
	require.NoError(t, err)

	db.MustExec(`INSERT INTO folderLocations VALUES (1, 'mailbox://me@example.com/Inbox', 0, 'Inbox', 0)`)
	db.MustExec(`INSERT INTO folderLocations VALUES (2, 'mailbox://me@example.com/Sent', 0, 'Sent', 0)`)

	for _, m := range msgs {
		var date any
		if m.date != nil {
			date = m.date.UnixMicro()
		}
		db.MustExec(`INSERT INTO messages (id, folderID, messageKey, conversationID, date, deleted)
			VALUES (?, ?, ?, 1, ?, ?)`, m.id, m.folder, m.id, date, m.deleted)
		db.MustExec(`INSERT INTO messagesText_content VALUES (?, ?, ?, ?, ?, ?)`,
			m.id, m.body, m.subject, m.attachments, m.author, m.recipients)
	}
	return path
}

func at(d time.Duration) *time.Time {
	t := time.Now().Add(-d).Truncate(time.Microsecond)
	return &t
}

func TestAdapter_ListAndResolve(t *testing.T) {
	received := at(2 * time.Hour)
	path := newGlodaDB(t,
		fixtureMessage{id: 1, folder: 1, date: received, subject: "Quarterly report",
			author: `"Doe, John" <john@example.com>`, recipients: "Alice <alice@example.com>, bob@example.com",
			body: "Numbers attached.", attachments: "q1.xlsx\nchart.png"},
		fixtureMessage{id: 2, folder: 1, date: at(30 * time.Hour), subject: "old"},
		fixtureMessage{id: 3, folder: 2, date: at(time.Hour), subject: "sent item"},
		fixtureMessage{id: 4, folder: 1, date: at(time.Hour), subject: "deleted", deleted: true},
		fixtureMessage{id: 5, folder: 1, subject: "no date"},
	)

	ctx := context.Background()
	err := mailbox.WithSession(ctx, NewAdapter(Config{Database: path}), func(s *mailbox.Session) error {
		emails, err := s.ListRecent(ctx, 7)
		require.NoError(t, err)
		require.Len(t, emails, 1)

		e := emails[0]
		assert.Equal(t, "1", e.Identifier)
		assert.Equal(t, "Quarterly report", e.Subject)
		assert.Equal(t, "Doe, John", e.SenderName)
		assert.Equal(t, "john@example.com", e.SenderEmail)
		assert.Equal(t, "Alice; bob@example.com", e.To)
		require.NotNil(t, e.ReceivedAt)
		assert.True(t, received.Equal(*e.ReceivedAt))
		assert.Empty(t, e.Body)

		full, ok, err := s.Resolve(ctx, "1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "Numbers attached.", full.Body)
		assert.Equal(t, []string{"q1.xlsx", "chart.png"}, full.AttachmentNames())

		for _, id := range []string{"3", "4", "99", "abc"} {
			_, ok, err := s.Resolve(ctx, id)
			require.NoError(t, err)
			assert.False(t, ok, id)
		}

		all, err := s.ListRecent(ctx, 48)
		require.NoError(t, err)
		assert.Len(t, all, 2)
		return nil
	})
	require.NoError(t, err)
}

func TestAdapter_MissingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", GlodaFile)

	_, err := mailbox.Open(context.Background(), NewAdapter(Config{Database: path}))
	require.Error(t, err)
	assert.True(t, source.IsConnectionError(err))
}

func TestResolveProfile(t *testing.T) {
	root := t.TempDir()
	ini := `[General]
StartWithLastProfile=1

[Profile1]
Name=work
IsRelative=1
Path=Profiles/abc.work

[Profile0]
Name=default
IsRelative=1
Path=Profiles/xyz.default
Default=1
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "profiles.ini"), []byte(ini), 0o600))

	dir, err := ResolveProfile(root, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "Profiles", "xyz.default"), dir)

	dir, err = ResolveProfile(root, "WORK")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "Profiles", "abc.work"), dir)

	_, err = ResolveProfile(root, "missing")
	assert.ErrorIs(t, err, ErrNoProfile)
}

func TestResolveProfile_InstallSection(t *testing.T) {
	root := t.TempDir()
	ini := `[Install4F96D1932A9F858E]
Default=Profiles/abc.work
Locked=1

[Profile0]
Name=default
IsRelative=1
Path=Profiles/xyz.default
Default=1

[Profile1]
Name=work
IsRelative=1
Path=Profiles/abc.work
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "profiles.ini"), []byte(ini), 0o600))

	dir, err := ResolveProfile(root, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "Profiles", "abc.work"), dir)
}

func TestParseAuthor(t *testing.T) {
	tests := []struct {
		in, name, addr string
	}{
		{`John Doe <john@example.com>`, "John Doe", "john@example.com"},
		{`john@example.com`, "", "john@example.com"},
		{`Mailer Daemon`, "Mailer Daemon", ""},
		{``, "", ""},
	}
	for _, tt := range tests {
		name, addr := parseAuthor(tt.in)
		assert.Equal(t, tt.name, name, tt.in)
		assert.Equal(t, tt.addr, addr, tt.in)
	}
}
