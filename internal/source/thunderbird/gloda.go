// Package thunderbird reads a Thunderbird profile through its global
// message index (gloda), the SQLite database Thunderbird maintains for
// search. The database is opened read-only while Thunderbird runs.
package thunderbird

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	netmail "net/mail"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/inboxpeek/internal/model"
	"github.com/nhle/inboxpeek/internal/source"
)

// Config holds the Thunderbird binding settings.
type Config struct {
	// Database is an explicit path to global-messages-db.sqlite. When
	// empty it is found from Root and Profile.
	Database string
	Root     string
	Profile  string
	// Folder is the folder name to read, "Inbox" by default.
	Folder string
}

// Adapter implements source.Source for Thunderbird.
type Adapter struct {
	cfg Config
}

// NewAdapter creates a new Thunderbird source adapter.
func NewAdapter(cfg Config) *Adapter {
	if cfg.Folder == "" {
		cfg.Folder = "Inbox"
	}
	if cfg.Root == "" {
		cfg.Root = DefaultRoot()
	}
	return &Adapter{cfg: cfg}
}

// Type returns the source type identifier for Thunderbird.
func (a *Adapter) Type() model.SourceType {
	return model.SourceTypeThunderbird
}

// DatabasePath returns the index database this adapter reads.
func (a *Adapter) DatabasePath() (string, error) {
	if a.cfg.Database != "" {
		return a.cfg.Database, nil
	}
	dir, err := ResolveProfile(a.cfg.Root, a.cfg.Profile)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, GlodaFile), nil
}

// Open opens the index read-only and checks that it can be queried.
func (a *Adapter) Open(ctx context.Context) (source.Session, error) {
	path, err := a.DatabasePath()
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open("sqlite", "file:"+filepath.ToSlash(path)+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening gloda db: %w", err)
	}
	// Thunderbird writes to the index concurrently; one reader is enough.
	db.SetMaxOpenConns(1)

	var n int
	if err := db.GetContext(ctx, &n, "SELECT COUNT(*) FROM folderLocations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("reading gloda db %s: %w", path, err)
	}

	return &session{db: db, folder: a.cfg.Folder}, nil
}

type session struct {
	db     *sqlx.DB
	folder string
}

// messageRow is one row of the message listing.
type messageRow struct {
	ID          int64          `db:"id"`
	Date        sql.NullInt64  `db:"date"`
	Subject     sql.NullString `db:"subject"`
	Author      sql.NullString `db:"author"`
	Recipients  sql.NullString `db:"recipients"`
	Body        sql.NullString `db:"body"`
	Attachments sql.NullString `db:"attachments"`
}

const selectMessages = `
	SELECT m.id, m.date,
	       c.c1subject AS subject,
	       c.c3author AS author,
	       c.c4recipients AS recipients,
	       %s
	FROM messages m
	JOIN folderLocations f ON f.id = m.folderID
	LEFT JOIN messagesText_content c ON c.docid = m.id
	WHERE m.deleted = 0 AND f.name = ? COLLATE NOCASE`

func (s *session) Messages(ctx context.Context, since time.Time) ([]source.RawMessage, error) {
	query := fmt.Sprintf(selectMessages, "NULL AS body, NULL AS attachments") +
		` AND (m.date IS NULL OR m.date >= ?)`

	var rows []messageRow
	if err := s.db.SelectContext(ctx, &rows, query, s.folder, prTime(since)); err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	out := make([]source.RawMessage, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.raw())
	}
	return out, nil
}

func (s *session) Message(ctx context.Context, id string) (source.RawMessage, error) {
	r, err := s.get(ctx, id)
	if err != nil {
		return source.RawMessage{}, err
	}
	return r.raw(), nil
}

func (s *session) Attachments(ctx context.Context, id string) ([]source.RawAttachment, error) {
	r, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	var out []source.RawAttachment
	for _, name := range strings.Split(r.Attachments.String, "\n") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, source.RawAttachment{FileName: name})
		}
	}
	return out, nil
}

func (s *session) Close() error {
	return s.db.Close()
}

func (s *session) get(ctx context.Context, id string) (messageRow, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return messageRow{}, source.ErrNotFound
	}

	query := fmt.Sprintf(selectMessages, "c.c0body AS body, c.c2attachmentNames AS attachments") +
		` AND m.id = ?`

	var r messageRow
	err = s.db.GetContext(ctx, &r, query, s.folder, n)
	if errors.Is(err, sql.ErrNoRows) {
		return messageRow{}, source.ErrNotFound
	}
	if err != nil {
		return messageRow{}, fmt.Errorf("reading message %d: %w", n, err)
	}
	return r, nil
}

func (r messageRow) raw() source.RawMessage {
	f := source.Fields{
		source.FieldSubject: r.Subject.String,
	}

	name, addr := parseAuthor(r.Author.String)
	f[source.FieldSenderName] = name
	f[source.FieldSenderEmail] = addr

	if to := recipientNames(r.Recipients.String); len(to) > 0 {
		f[source.FieldTo] = to
	}
	if r.Date.Valid && r.Date.Int64 > 0 {
		f[source.FieldReceived] = time.UnixMicro(r.Date.Int64).Local()
	}
	if r.Body.Valid {
		f[source.FieldBody] = r.Body.String
	}

	return source.RawMessage{ID: strconv.FormatInt(r.ID, 10), Fields: f}
}

// prTime converts t to PRTime, microseconds since the epoch.
func prTime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func parseAuthor(author string) (name, addr string) {
	author = strings.TrimSpace(author)
	if author == "" {
		return "", ""
	}
	if a, err := netmail.ParseAddress(author); err == nil {
		return a.Name, a.Address
	}
	if strings.Contains(author, "@") && !strings.ContainsAny(author, " <>") {
		return "", author
	}
	return author, ""
}

func recipientNames(recipients string) []string {
	recipients = strings.TrimSpace(recipients)
	if recipients == "" {
		return nil
	}

	list, err := netmail.ParseAddressList(recipients)
	if err != nil {
		return []string{recipients}
	}

	out := make([]string, 0, len(list))
	for _, a := range list {
		if a.Name != "" {
			out = append(out, a.Name)
		} else {
			out = append(out, a.Address)
		}
	}
	return out
}
