// Package pop3 reads a mailbox over POP3. Messages stay on the server:
// the binding never issues DELE.
package pop3

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"
	pop3client "github.com/knadh/go-pop3"

	"github.com/nhle/inboxpeek/internal/model"
	"github.com/nhle/inboxpeek/internal/source"
	"github.com/nhle/inboxpeek/internal/source/rfc822"
)

// Config holds the POP3 server settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	TLS      bool
}

// Adapter implements source.Source for POP3.
type Adapter struct {
	cfg Config
}

// NewAdapter creates a new POP3 source adapter.
func NewAdapter(cfg Config) *Adapter {
	if cfg.Port == 0 {
		cfg.Port = 110
		if cfg.TLS {
			cfg.Port = 995
		}
	}
	return &Adapter{cfg: cfg}
}

// Type returns the source type identifier for POP3.
func (a *Adapter) Type() model.SourceType {
	return model.SourceTypePOP3
}

// Open connects and authenticates.
func (a *Adapter) Open(ctx context.Context) (source.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := pop3client.New(pop3client.Opt{
		Host:       a.cfg.Host,
		Port:       a.cfg.Port,
		TLSEnabled: a.cfg.TLS,
	})

	conn, err := client.NewConn()
	if err != nil {
		return nil, fmt.Errorf("pop3 connect %s:%d: %w", a.cfg.Host, a.cfg.Port, err)
	}

	if err := conn.Auth(a.cfg.Username, a.cfg.Password); err != nil {
		_ = conn.Quit()
		return nil, fmt.Errorf("pop3 auth %s: %w", a.cfg.Username, err)
	}

	return &session{conn: conn}, nil
}

type session struct {
	conn *pop3client.Conn
	// seq maps UIDL identifiers to message numbers of this connection.
	seq map[string]int
}

func (s *session) Messages(ctx context.Context, _ time.Time) ([]source.RawMessage, error) {
	if err := s.refresh(); err != nil {
		return nil, err
	}

	out := make([]source.RawMessage, 0, len(s.seq))
	for uid, n := range s.seq {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		top, err := s.conn.Top(n, 0)
		if err != nil {
			return nil, fmt.Errorf("pop3 top %d: %w", n, err)
		}
		out = append(out, source.RawMessage{
			ID:     uid,
			Fields: rfc822.HeaderFields(mail.Header{Header: top.Header}),
		})
	}
	return out, nil
}

func (s *session) Message(ctx context.Context, id string) (source.RawMessage, error) {
	msg, err := s.retrieve(ctx, id)
	if err != nil {
		return source.RawMessage{}, err
	}
	return source.RawMessage{ID: id, Fields: msg.Fields}, nil
}

func (s *session) Attachments(ctx context.Context, id string) ([]source.RawAttachment, error) {
	msg, err := s.retrieve(ctx, id)
	if err != nil {
		return nil, err
	}
	return msg.Attachments, nil
}

func (s *session) Close() error {
	return s.conn.Quit()
}

func (s *session) refresh() error {
	ids, err := s.conn.Uidl(0)
	if err != nil {
		return fmt.Errorf("pop3 uidl: %w", err)
	}

	s.seq = make(map[string]int, len(ids))
	for _, m := range ids {
		uid := m.UID
		if uid == "" {
			uid = strconv.Itoa(m.ID)
		}
		s.seq[uid] = m.ID
	}
	return nil
}

func (s *session) retrieve(ctx context.Context, id string) (*rfc822.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.seq == nil {
		if err := s.refresh(); err != nil {
			return nil, err
		}
	}

	n, ok := s.seq[id]
	if !ok {
		return nil, source.ErrNotFound
	}

	raw, err := s.conn.RetrRaw(n)
	if err != nil {
		return nil, fmt.Errorf("pop3 retr %d: %w", n, err)
	}

	msg, err := rfc822.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing message %s: %w", id, err)
	}
	return msg, nil
}
