package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/inboxpeek/internal/model"
)

// ConnectionError indicates that the mail client could not be reached:
// it is not installed, not running, or access was denied.
type ConnectionError struct {
	SourceType model.SourceType
	Err        error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error (%s): %v", e.SourceType, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// IsConnectionError reports whether err (or any error in its chain) is a
// ConnectionError.
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

// EnumerationError indicates that the message store could not be scanned,
// for example because the session was invalidated mid-scan.
type EnumerationError struct {
	SourceType model.SourceType
	Err        error
}

func (e *EnumerationError) Error() string {
	return fmt.Sprintf("enumeration error (%s): %v", e.SourceType, e.Err)
}

func (e *EnumerationError) Unwrap() error { return e.Err }

// IsEnumerationError reports whether err (or any error in its chain) is an
// EnumerationError.
func IsEnumerationError(err error) bool {
	var enumErr *EnumerationError
	return errors.As(err, &enumErr)
}

// ErrNotFound is returned by Session.Message and Session.Attachments when
// the identifier does not resolve to a message.
var ErrNotFound = errors.New("message not found")

// Field keys understood by the normalization layer. They follow the
// property names of the desktop client object models.
const (
	FieldSubject     = "Subject"
	FieldSenderName  = "SenderName"
	FieldSenderEmail = "SenderEmailAddress"
	FieldTo          = "To"
	FieldCC          = "CC"
	FieldReceived    = "ReceivedTime"
	FieldBody        = "Body"
	FieldHTMLBody    = "HTMLBody"
)

// Fields holds a message's properties as the client exposes them. A key
// may be missing, nil, or carry any of several representations
// (string, []string, time.Time, *time.Time, int64).
type Fields map[string]any

// RawMessage is one message as read from a mail client, before
// normalization.
type RawMessage struct {
	// ID is the client's stable reference to the message.
	ID string

	// Fields holds the message properties.
	Fields Fields
}

// RawAttachment is attachment metadata as read from a mail client.
type RawAttachment struct {
	FileName    string
	DisplayName string
}

// Session is an open handle on a mail client's default inbox. It is not
// safe for concurrent use.
type Session interface {
	// Messages returns the inbox's messages. since is a hint: a binding
	// may use it to narrow its scan but may also return older messages.
	Messages(ctx context.Context, since time.Time) ([]RawMessage, error)

	// Message returns the full message with the given ID, or ErrNotFound.
	Message(ctx context.Context, id string) (RawMessage, error)

	// Attachments returns the attachment list of the message with the
	// given ID, or ErrNotFound.
	Attachments(ctx context.Context, id string) ([]RawAttachment, error)

	// Close releases client-side resources held by the session.
	Close() error
}

// Source defines the contract that every mail client binding implements.
type Source interface {
	// Type returns the binding type identifier.
	Type() model.SourceType

	// Open acquires access to the client's default inbox.
	Open(ctx context.Context) (Session, error)
}
