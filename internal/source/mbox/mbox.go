// Package mbox reads a local mail folder stored as an mbox file, the
// format Thunderbird uses for its folders on disk.
package mbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	gombox "github.com/emersion/go-mbox"
	"github.com/emersion/go-message/mail"

	"github.com/nhle/inboxpeek/internal/model"
	"github.com/nhle/inboxpeek/internal/source"
	"github.com/nhle/inboxpeek/internal/source/rfc822"
)

// mozillaExpunged is the X-Mozilla-Status flag of a message that was
// deleted but not yet compacted out of the file.
const mozillaExpunged = 0x0008

// Adapter implements source.Source for an mbox file.
type Adapter struct {
	path string
}

// NewAdapter creates a new mbox source adapter for the file at path.
func NewAdapter(path string) *Adapter {
	return &Adapter{path: path}
}

// Type returns the source type identifier for mbox.
func (a *Adapter) Type() model.SourceType {
	return model.SourceTypeMbox
}

// Open checks that the file is readable. The file is re-read on every
// call so that the session sees messages the client appends.
func (a *Adapter) Open(_ context.Context) (source.Session, error) {
	fi, err := os.Stat(a.path)
	if err != nil {
		return nil, fmt.Errorf("opening mbox: %w", err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("opening mbox: %s is a directory", a.path)
	}
	return &session{path: a.path}, nil
}

type session struct {
	path string
}

// errStop ends a scan early.
var errStop = errors.New("stop")

// scan calls fn with the 1-based index and the raw bytes of each
// message in the file.
func (s *session) scan(ctx context.Context, fn func(n int, raw []byte) error) error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("opening mbox: %w", err)
	}
	defer f.Close()

	r := gombox.NewReader(f)
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := r.NextMessage()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading message %d: %w", n, err)
		}

		raw, err := io.ReadAll(msg)
		if err != nil {
			return fmt.Errorf("reading message %d: %w", n, err)
		}

		if err := fn(n, raw); err != nil {
			if errors.Is(err, errStop) {
				return nil
			}
			return err
		}
	}
}

func (s *session) Messages(ctx context.Context, _ time.Time) ([]source.RawMessage, error) {
	var out []source.RawMessage
	err := s.scan(ctx, func(n int, raw []byte) error {
		h, err := rfc822.ReadHeader(bytes.NewReader(raw))
		if err != nil {
			// A damaged header hides one message, not the folder.
			return nil
		}
		if expunged(h) {
			return nil
		}
		out = append(out, source.RawMessage{
			ID:     strconv.Itoa(n),
			Fields: rfc822.HeaderFields(h),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *session) Message(ctx context.Context, id string) (source.RawMessage, error) {
	msg, err := s.find(ctx, id)
	if err != nil {
		return source.RawMessage{}, err
	}
	return source.RawMessage{ID: id, Fields: msg.Fields}, nil
}

func (s *session) Attachments(ctx context.Context, id string) ([]source.RawAttachment, error) {
	msg, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return msg.Attachments, nil
}

func (s *session) Close() error {
	return nil
}

func (s *session) find(ctx context.Context, id string) (*rfc822.Message, error) {
	want, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil || want < 1 {
		return nil, source.ErrNotFound
	}

	var found []byte
	err = s.scan(ctx, func(n int, raw []byte) error {
		if n == want {
			found = raw
			return errStop
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, source.ErrNotFound
	}

	msg, err := rfc822.Parse(bytes.NewReader(found))
	if err != nil {
		return nil, fmt.Errorf("parsing message %d: %w", want, err)
	}

	h, err := rfc822.ReadHeader(bytes.NewReader(found))
	if err == nil && expunged(h) {
		return nil, source.ErrNotFound
	}
	return msg, nil
}

func expunged(h mail.Header) bool {
	status, err := strconv.ParseUint(strings.TrimSpace(h.Get("X-Mozilla-Status")), 16, 32)
	return err == nil && status&mozillaExpunged != 0
}
