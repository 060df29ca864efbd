package mailbox

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/nhle/inboxpeek/internal/model"
)

// maxWindowHours is the largest lookback that fits in a time.Duration.
const maxWindowHours = math.MaxInt64 / int64(time.Hour)

// ListRecent returns summary records for the messages received within
// maxHours of the current time, newest first. Messages without a receipt
// time are never included. maxHours <= 0 yields an empty slice.
//
// Summary records carry no body and no attachments. The call fails as a
// whole: on error no records are returned.
func (s *Session) ListRecent(ctx context.Context, maxHours int) ([]model.Email, error) {
	if maxHours <= 0 {
		return []model.Email{}, nil
	}
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	now := s.now()
	window := lookback(maxHours)

	raws, err := s.raw.Messages(ctx, now.Add(-window))
	if err != nil {
		return nil, s.enumerationError(err)
	}

	emails := make([]model.Email, 0, len(raws))
	for _, raw := range raws {
		email := NormalizeSummary(raw)
		if !Within(email.ReceivedAt, now, window) {
			continue
		}
		emails = append(emails, email)
	}
	SortNewestFirst(emails)

	s.logger.Debug("listed recent messages",
		"max_hours", maxHours,
		"scanned", len(raws),
		"matched", len(emails),
	)
	return emails, nil
}

func lookback(maxHours int) time.Duration {
	if int64(maxHours) > maxWindowHours {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(maxHours) * time.Hour
}

// Within reports whether receivedAt lies no more than window before now.
// The boundary is inclusive; timestamps after now count as within.
func Within(receivedAt *time.Time, now time.Time, window time.Duration) bool {
	if receivedAt == nil {
		return false
	}
	return now.Sub(*receivedAt) <= window
}

// SortNewestFirst orders emails by receipt time, newest first, breaking
// ties by identifier. Emails without a receipt time sort last.
func SortNewestFirst(emails []model.Email) {
	sort.SliceStable(emails, func(i, j int) bool {
		a, b := emails[i].ReceivedAt, emails[j].ReceivedAt
		switch {
		case a == nil && b == nil:
			return emails[i].Identifier < emails[j].Identifier
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.After(*b)
		default:
			return emails[i].Identifier < emails[j].Identifier
		}
	})
}
