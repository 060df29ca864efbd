// Package mailbox implements message retrieval on top of a mail client
// binding: scoped sessions, time-window enumeration, resolution of a single
// message by identifier, and normalization into model.Email.
package mailbox

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/inboxpeek/internal/model"
	"github.com/nhle/inboxpeek/internal/source"
)

// errSessionClosed is wrapped in a ConnectionError when a closed session
// is used.
var errSessionClosed = errors.New("mailbox session is closed")

type options struct {
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Session.
type Option func(*options)

// WithClock overrides the wall clock used for lookback windows.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the logger used for session diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func newOptions(opts []Option) options {
	o := options{
		now:    time.Now,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Session is a scoped handle on a mailbox. It is not safe for concurrent
// use; callers needing concurrency open independent sessions.
type Session struct {
	id         string
	sourceType model.SourceType
	raw        source.Session
	now        func() time.Time
	logger     *slog.Logger
	closed     bool
}

// Open acquires access to the default inbox of src. Any failure is
// reported as a *source.ConnectionError. The caller must Close the
// returned session; WithSession does that automatically.
func Open(ctx context.Context, src source.Source, opts ...Option) (*Session, error) {
	o := newOptions(opts)

	raw, err := src.Open(ctx)
	if err != nil {
		if source.IsConnectionError(err) {
			return nil, err
		}
		return nil, &source.ConnectionError{SourceType: src.Type(), Err: err}
	}

	id := uuid.NewString()
	s := &Session{
		id:         id,
		sourceType: src.Type(),
		raw:        raw,
		now:        o.now,
		logger:     o.logger.With("session", id, "source", string(src.Type())),
	}
	s.logger.Debug("mailbox session opened")
	return s, nil
}

// WithSession opens a session, runs fn with it and closes the session on
// every exit path, including a panic in fn.
func WithSession(
	ctx context.Context,
	src source.Source,
	fn func(*Session) error,
	opts ...Option,
) error {
	s, err := Open(ctx, src, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			s.logger.Warn("closing mailbox session", "error", cerr)
		}
	}()

	return fn(s)
}

// ID returns the session's log correlation identifier.
func (s *Session) ID() string {
	return s.id
}

// Close releases the underlying client session. It is safe to call more
// than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Debug("mailbox session closed")
	return s.raw.Close()
}

func (s *Session) checkOpen() error {
	if s.closed {
		return &source.ConnectionError{SourceType: s.sourceType, Err: errSessionClosed}
	}
	return nil
}

// enumerationError classifies a binding failure. Errors that already carry
// a classification pass through unchanged.
func (s *Session) enumerationError(err error) error {
	if source.IsConnectionError(err) || source.IsEnumerationError(err) {
		return err
	}
	return &source.EnumerationError{SourceType: s.sourceType, Err: err}
}
