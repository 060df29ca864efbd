package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/nhle/inboxpeek/internal/mailbox"
	"github.com/nhle/inboxpeek/internal/source"
	"github.com/nhle/inboxpeek/internal/source/memory"
)

// Now is the fixed wall clock used by fixtures.
var Now = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

// Clock returns Now.
func Clock() time.Time { return Now }

// Message builds a fixture message received age before Now. A negative age
// leaves the receipt time unset, as for a draft.
func Message(id, subject string, age time.Duration) memory.Message {
	fields := source.Fields{
		source.FieldSubject:     subject,
		source.FieldSenderName:  "Sender " + id,
		source.FieldSenderEmail: "sender" + id + "@example.com",
		source.FieldTo:          "Team; Ops",
	}
	if age >= 0 {
		fields[source.FieldReceived] = Now.Add(-age)
	}
	return memory.Message{ID: id, Fields: fields}
}

// OpenSession opens a mailbox session on src with the fixture clock.
// It automatically closes the session when the test completes.
func OpenSession(t *testing.T, src source.Source) *mailbox.Session {
	t.Helper()

	s, err := mailbox.Open(context.Background(), src, mailbox.WithClock(Clock))
	if err != nil {
		t.Fatalf("opening test session: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test session: %v", err)
		}
	})

	return s
}
