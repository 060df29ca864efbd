package email

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/inboxpeek/internal/model"
	"github.com/nhle/inboxpeek/internal/source"
)

// Adapter implements source.Source for a mailbox reachable over IMAP,
// such as the local endpoint of a desktop client bridge.
type Adapter struct {
	cfg Config
}

// NewAdapter creates a new IMAP source adapter.
func NewAdapter(cfg Config) *Adapter {
	if cfg.Port == "" {
		switch cfg.TLS {
		case TLSImplicit, "":
			cfg.Port = "993"
		default:
			cfg.Port = "143"
		}
	}
	if cfg.TLS == "" {
		cfg.TLS = TLSImplicit
	}
	return &Adapter{cfg: cfg}
}

// Type returns the source type identifier for IMAP.
func (a *Adapter) Type() model.SourceType {
	return model.SourceTypeIMAP
}

// Open connects and selects the configured folder.
func (a *Adapter) Open(ctx context.Context) (source.Session, error) {
	client, err := Connect(ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	return &session{client: client}, nil
}

type session struct {
	client *IMAPClient

	// last holds the most recently fetched full message, so that
	// Message followed by Attachments costs one FETCH.
	last *ParsedMessage
}

func (s *session) Messages(ctx context.Context, since time.Time) ([]source.RawMessage, error) {
	envelopes, err := s.client.FetchEnvelopes(ctx, since)
	if err != nil {
		return nil, err
	}

	out := make([]source.RawMessage, 0, len(envelopes))
	for _, env := range envelopes {
		out = append(out, source.RawMessage{
			ID:     s.messageID(env.UID),
			Fields: envelopeFields(env),
		})
	}
	return out, nil
}

func (s *session) Message(ctx context.Context, id string) (source.RawMessage, error) {
	msg, err := s.fetch(ctx, id)
	if err != nil {
		return source.RawMessage{}, err
	}

	fields := envelopeFields(msg.Envelope)
	if msg.TextBody != "" {
		fields[source.FieldBody] = msg.TextBody
	}
	if msg.HTMLBody != "" {
		fields[source.FieldHTMLBody] = msg.HTMLBody
	}
	return source.RawMessage{ID: id, Fields: fields}, nil
}

func (s *session) Attachments(ctx context.Context, id string) ([]source.RawAttachment, error) {
	msg, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	out := make([]source.RawAttachment, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		out = append(out, source.RawAttachment{FileName: a.Filename, DisplayName: a.DisplayName})
	}
	return out, nil
}

func (s *session) Close() error {
	return s.client.Close()
}

func (s *session) fetch(ctx context.Context, id string) (*ParsedMessage, error) {
	uid, ok := s.parseID(id)
	if !ok {
		return nil, source.ErrNotFound
	}
	if s.last != nil && s.last.Envelope.UID == uid {
		return s.last, nil
	}

	msg, err := s.client.FetchMessage(ctx, uid)
	if errors.Is(err, errNoMessage) {
		return nil, source.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.last = msg
	return msg, nil
}

// messageID builds an identifier that stays valid as long as the
// folder's UIDVALIDITY does.
func (s *session) messageID(uid uint32) string {
	return fmt.Sprintf("%d:%d", s.client.UIDValidity(), uid)
}

func (s *session) parseID(id string) (uint32, bool) {
	validity, uid, ok := strings.Cut(id, ":")
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseUint(validity, 10, 32)
	if err != nil || uint32(v) != s.client.UIDValidity() {
		return 0, false
	}
	u, err := strconv.ParseUint(uid, 10, 32)
	if err != nil || u == 0 {
		return 0, false
	}
	return uint32(u), true
}

// envelopeFields maps an envelope. The internal date is the time the
// server stored the message, which is what desktop clients show as the
// received time.
func envelopeFields(env Envelope) source.Fields {
	f := source.Fields{
		source.FieldSubject:     env.Subject,
		source.FieldSenderName:  env.FromName,
		source.FieldSenderEmail: env.FromAddr,
		source.FieldTo:          env.To,
		source.FieldCC:          env.CC,
	}
	if !env.InternalDate.IsZero() {
		f[source.FieldReceived] = env.InternalDate.Local()
	}
	return f
}
