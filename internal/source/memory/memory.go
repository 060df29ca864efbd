// Package memory provides an in-process mail client binding backed by a
// fixed message list. It implements the same narrow interface as the real
// bindings so that retrieval logic can be exercised without a live client.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nhle/inboxpeek/internal/model"
	"github.com/nhle/inboxpeek/internal/source"
)

// Message is one fixture message.
type Message struct {
	ID          string
	Fields      source.Fields
	Attachments []source.RawAttachment
}

// Source is an in-memory source.Source. The exported error fields inject
// failures into the corresponding operations.
type Source struct {
	Messages []Message

	OpenErr        error
	MessagesErr    error
	MessageErr     error
	AttachmentsErr error
	CloseErr       error

	mu     sync.Mutex
	opened int
	closed int
}

// New returns a Source holding msgs.
func New(msgs ...Message) *Source {
	return &Source{Messages: msgs}
}

// Type returns the binding type this fixture stands in for.
func (s *Source) Type() model.SourceType {
	return model.SourceTypeOutlook
}

// Open returns a session over a snapshot of the message list.
func (s *Source) Open(_ context.Context) (source.Session, error) {
	if s.OpenErr != nil {
		return nil, s.OpenErr
	}

	s.mu.Lock()
	s.opened++
	s.mu.Unlock()

	snapshot := make([]Message, len(s.Messages))
	copy(snapshot, s.Messages)
	return &session{src: s, msgs: snapshot}, nil
}

// Opened returns how many sessions have been opened.
func (s *Source) Opened() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

// Closed returns how many sessions have been closed.
func (s *Source) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type session struct {
	src    *Source
	msgs   []Message
	closed bool
}

var errClosed = errors.New("memory session closed")

func (s *session) Messages(ctx context.Context, _ time.Time) ([]source.RawMessage, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	if s.src.MessagesErr != nil {
		return nil, s.src.MessagesErr
	}

	out := make([]source.RawMessage, 0, len(s.msgs))
	for _, m := range s.msgs {
		out = append(out, summary(m))
	}
	return out, nil
}

func (s *session) Message(ctx context.Context, id string) (source.RawMessage, error) {
	if err := s.check(ctx); err != nil {
		return source.RawMessage{}, err
	}
	if s.src.MessageErr != nil {
		return source.RawMessage{}, s.src.MessageErr
	}

	m, ok := s.find(id)
	if !ok {
		return source.RawMessage{}, source.ErrNotFound
	}
	return source.RawMessage{ID: m.ID, Fields: m.Fields}, nil
}

func (s *session) Attachments(ctx context.Context, id string) ([]source.RawAttachment, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	if s.src.AttachmentsErr != nil {
		return nil, s.src.AttachmentsErr
	}

	m, ok := s.find(id)
	if !ok {
		return nil, source.ErrNotFound
	}
	return m.Attachments, nil
}

func (s *session) Close() error {
	if !s.closed {
		s.closed = true
		s.src.mu.Lock()
		s.src.closed++
		s.src.mu.Unlock()
	}
	return s.src.CloseErr
}

func (s *session) check(ctx context.Context) error {
	if s.closed {
		return errClosed
	}
	return ctx.Err()
}

func (s *session) find(id string) (Message, bool) {
	for _, m := range s.msgs {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}

// summary drops body fields, as a client listing would.
func summary(m Message) source.RawMessage {
	fields := make(source.Fields, len(m.Fields))
	for k, v := range m.Fields {
		if k == source.FieldBody || k == source.FieldHTMLBody {
			continue
		}
		fields[k] = v
	}
	return source.RawMessage{ID: m.ID, Fields: fields}
}
