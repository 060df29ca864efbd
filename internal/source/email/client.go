package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/nhle/inboxpeek/internal/model"
	"github.com/nhle/inboxpeek/internal/source"
	"github.com/nhle/inboxpeek/internal/source/rfc822"
)

// errNoMessage is returned by FetchMessage when the UID does not exist.
var errNoMessage = errors.New("no such message")

// IMAPClient is an authenticated IMAP connection with one mailbox
// selected read-only.
type IMAPClient struct {
	client      *imapclient.Client
	folder      string
	uidValidity uint32
}

// Connect dials the server, authenticates and selects the configured
// folder. The caller is responsible for calling Close.
func Connect(ctx context.Context, cfg Config) (*IMAPClient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(cfg.Host, cfg.Port)

	var client *imapclient.Client
	var err error

	switch cfg.TLS {
	case TLSStart:
		client, err = imapclient.DialStartTLS(addr, nil)
	case TLSNone:
		client, err = imapclient.DialInsecure(addr, nil)
	default:
		client, err = imapclient.DialTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(cfg.Username, cfg.Password).Wait(); err != nil {
		_ = client.Close()
		return nil, &source.ConnectionError{
			SourceType: model.SourceTypeIMAP,
			Err:        fmt.Errorf("authentication failed for %s: %w", cfg.Username, err),
		}
	}

	folder := cfg.Folder
	if folder == "" {
		folder = "INBOX"
	}

	selected, err := client.Select(folder, &imap.SelectOptions{ReadOnly: true}).Wait()
	if err != nil {
		_ = client.Logout().Wait()
		_ = client.Close()
		return nil, fmt.Errorf("selecting %s: %w", folder, err)
	}

	return &IMAPClient{
		client:      client,
		folder:      folder,
		uidValidity: selected.UIDValidity,
	}, nil
}

// UIDValidity returns the UIDVALIDITY of the selected folder.
func (c *IMAPClient) UIDValidity() uint32 {
	return c.uidValidity
}

// FetchEnvelopes returns the envelopes of the messages received at or
// after since, plus possibly some received up to a day earlier. Callers
// apply the exact cutoff.
func (c *IMAPClient) FetchEnvelopes(ctx context.Context, since time.Time) ([]Envelope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	criteria := &imap.SearchCriteria{}
	if !since.IsZero() {
		criteria.Since = searchSince(since)
	}

	searchData, err := c.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return []Envelope{}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fetchOpts := &imap.FetchOptions{
		Envelope:     true,
		InternalDate: true,
		UID:          true,
	}

	msgs, err := c.client.Fetch(imap.UIDSetNum(uids...), fetchOpts).Collect()
	if err != nil {
		return nil, fmt.Errorf("fetching envelopes: %w", err)
	}

	envelopes := make([]Envelope, 0, len(msgs))
	for _, buf := range msgs {
		envelopes = append(envelopes, envelopeFromBuffer(buf))
	}
	return envelopes, nil
}

// FetchMessage fetches the full message for uid and parses its MIME
// body. The message is not marked as read.
func (c *IMAPClient) FetchMessage(ctx context.Context, uid uint32) (*ParsedMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bodySection := &imap.FetchItemBodySection{
		Peek: true,
	}

	fetchOpts := &imap.FetchOptions{
		Envelope:     true,
		InternalDate: true,
		UID:          true,
		BodySection:  []*imap.FetchItemBodySection{bodySection},
	}

	msgs, err := c.client.Fetch(imap.UIDSetNum(imap.UID(uid)), fetchOpts).Collect()
	if err != nil {
		return nil, fmt.Errorf("fetching message UID %d: %w", uid, err)
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("message UID %d: %w", uid, errNoMessage)
	}

	buf := msgs[0]
	parsed := &ParsedMessage{
		Envelope: envelopeFromBuffer(buf),
	}

	if raw := buf.FindBodySection(bodySection); raw != nil {
		msg, err := rfc822.Parse(bytes.NewReader(raw))
		if err != nil {
			// Treat an unparseable message as plain text
			parsed.TextBody = string(raw)
			return parsed, nil
		}
		parsed.TextBody, _ = msg.Fields[source.FieldBody].(string)
		parsed.HTMLBody, _ = msg.Fields[source.FieldHTMLBody].(string)
		for _, a := range msg.Attachments {
			parsed.Attachments = append(parsed.Attachments, Attachment{
				Filename:    a.FileName,
				DisplayName: a.DisplayName,
			})
		}
	}

	return parsed, nil
}

// Close logs out and closes the connection.
func (c *IMAPClient) Close() error {
	logoutErr := c.client.Logout().Wait()
	closeErr := c.client.Close()
	if logoutErr != nil {
		return fmt.Errorf("logging out: %w", logoutErr)
	}
	return closeErr
}

// envelopeFromBuffer extracts an Envelope from a FetchMessageBuffer.
func envelopeFromBuffer(buf *imapclient.FetchMessageBuffer) Envelope {
	env := Envelope{
		UID:          uint32(buf.UID),
		InternalDate: buf.InternalDate,
	}

	if buf.Envelope != nil {
		env.Subject = buf.Envelope.Subject

		if len(buf.Envelope.From) > 0 {
			from := buf.Envelope.From[0]
			env.FromName = from.Name
			env.FromAddr = from.Addr()
		}

		env.To = addressNames(buf.Envelope.To)
		env.CC = addressNames(buf.Envelope.Cc)
	}

	return env
}

// addressNames prefers display names and falls back to the address.
func addressNames(addrs []imap.Address) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a.Name != "" {
			out = append(out, a.Name)
		} else if addr := a.Addr(); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// searchSince returns the SEARCH SINCE date for a cutoff. SINCE compares
// calendar dates in the server's time zone, which may be up to a day
// behind the client's, so the date is taken in UTC and moved back a day.
func searchSince(since time.Time) time.Time {
	y, m, d := since.UTC().Date()
	return time.Date(y, m, d-1, 0, 0, 0, 0, time.UTC)
}
