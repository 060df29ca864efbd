package mailbox

import (
	"context"
	"errors"
	"strings"

	"github.com/nhle/inboxpeek/internal/model"
	"github.com/nhle/inboxpeek/internal/source"
)

// Resolve fetches the full record of the message with the given
// identifier, including body and attachments. ok is false, with a nil
// error, when the identifier does not resolve to a message; err is
// reserved for connection and enumeration failures.
func (s *Session) Resolve(ctx context.Context, id string) (email model.Email, ok bool, err error) {
	if strings.TrimSpace(id) == "" {
		return model.Email{}, false, nil
	}
	if err := s.checkOpen(); err != nil {
		return model.Email{}, false, err
	}

	raw, err := s.raw.Message(ctx, id)
	if errors.Is(err, source.ErrNotFound) {
		s.logger.Debug("message not found", "id", id)
		return model.Email{}, false, nil
	}
	if err != nil {
		return model.Email{}, false, s.enumerationError(err)
	}

	attachments, err := s.raw.Attachments(ctx, id)
	if errors.Is(err, source.ErrNotFound) {
		// Removed between the two lookups.
		return model.Email{}, false, nil
	}
	if err != nil {
		return model.Email{}, false, s.enumerationError(err)
	}

	if raw.ID == "" {
		raw.ID = id
	}
	return Normalize(raw, attachments), true, nil
}
