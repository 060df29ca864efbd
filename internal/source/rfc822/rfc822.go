// Package rfc822 maps raw RFC 5322 messages onto the field set the mailbox
// layer normalizes. It is shared by the bindings that read messages off
// the wire or out of local files (IMAP, mbox, POP3).
package rfc822

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"

	"github.com/nhle/inboxpeek/internal/source"
)

// Message is a parsed message.
type Message struct {
	Fields      source.Fields
	Attachments []source.RawAttachment
}

// Parse reads a full message: headers, text and HTML bodies and the
// attachment list. Parts in unknown charsets are kept undecoded.
func Parse(r io.Reader) (*Message, error) {
	mr, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("parsing message: %w", err)
	}
	defer mr.Close()

	msg := &Message{Fields: HeaderFields(mr.Header)}

	var textBody, htmlBody string
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			// Keep what was read so far; a truncated tail should not
			// hide the headers.
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, params, _ := h.ContentType()
			if !strings.HasPrefix(contentType, "text/") {
				if name := partName(&h.Header, params); name != "" {
					msg.Attachments = append(msg.Attachments, source.RawAttachment{FileName: name})
				}
				continue
			}

			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}
			switch {
			case contentType == "text/html" && htmlBody == "":
				htmlBody = string(body)
			case contentType != "text/html" && textBody == "":
				textBody = string(body)
			}

		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			att := source.RawAttachment{FileName: filename}
			if filename == "" {
				_, params, _ := h.ContentType()
				att.DisplayName = params["name"]
			}
			msg.Attachments = append(msg.Attachments, att)
		}
	}

	if textBody != "" {
		msg.Fields[source.FieldBody] = textBody
	}
	if htmlBody != "" {
		msg.Fields[source.FieldHTMLBody] = htmlBody
	}
	return msg, nil
}

// ReadHeader reads only the header block of a message.
func ReadHeader(r io.Reader) (mail.Header, error) {
	h, err := textproto.ReadHeader(bufio.NewReader(r))
	if err != nil {
		return mail.Header{}, fmt.Errorf("reading header: %w", err)
	}
	return mail.Header{Header: message.Header{Header: h}}, nil
}

// HeaderFields maps the header of a message. Missing headers are left
// out of the result.
func HeaderFields(h mail.Header) source.Fields {
	f := source.Fields{}

	if subject, err := h.Subject(); err == nil && subject != "" {
		f[source.FieldSubject] = subject
	} else if raw := h.Get("Subject"); raw != "" {
		f[source.FieldSubject] = raw
	}

	if from := addresses(h, "From"); len(from) > 0 {
		f[source.FieldSenderName] = from[0].Name
		f[source.FieldSenderEmail] = from[0].Address
	}

	if to := recipientNames(h, "To"); len(to) > 0 {
		f[source.FieldTo] = to
	}
	if cc := recipientNames(h, "Cc"); len(cc) > 0 {
		f[source.FieldCC] = cc
	}

	if t, ok := ReceivedTime(h); ok {
		f[source.FieldReceived] = t
	}
	return f
}

// ReceivedTime returns the time the message reached the local mailbox:
// the date stamp of the top-most Received header, which the last hop
// prepends, falling back to the Date header.
func ReceivedTime(h mail.Header) (time.Time, bool) {
	for _, received := range h.Values("Received") {
		i := strings.LastIndex(received, ";")
		if i < 0 {
			continue
		}
		if t, err := netmail.ParseDate(strings.TrimSpace(received[i+1:])); err == nil {
			return t.Local(), true
		}
	}

	if t, err := h.Date(); err == nil && !t.IsZero() {
		return t.Local(), true
	}
	return time.Time{}, false
}

func addresses(h mail.Header, key string) []*mail.Address {
	list, err := h.AddressList(key)
	if err == nil {
		return list
	}

	// Fall back to the raw text so that a malformed header still shows
	// something.
	raw, _ := h.Text(key)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return []*mail.Address{{Name: raw}}
}

// recipientNames prefers display names, as desktop clients do in their
// To and CC columns.
func recipientNames(h mail.Header, key string) []string {
	list := addresses(h, key)
	out := make([]string, 0, len(list))
	for _, a := range list {
		if a.Name != "" {
			out = append(out, a.Name)
		} else if a.Address != "" {
			out = append(out, a.Address)
		}
	}
	return out
}

func partName(h *message.Header, typeParams map[string]string) string {
	if _, params, err := h.ContentDisposition(); err == nil && params["filename"] != "" {
		return params["filename"]
	}
	return typeParams["name"]
}
