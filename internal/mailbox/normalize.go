package mailbox

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/nhle/inboxpeek/internal/model"
	"github.com/nhle/inboxpeek/internal/source"
)

// oleNoneYear is the year Outlook uses for "no date" (1/1/4501).
const oleNoneYear = 4501

// receivedLayouts are tried in order for string timestamps. Layouts
// without a zone are interpreted in the local time zone.
var receivedLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"02.01.2006 15:04",
}

// Normalize maps a raw client message and its attachment list into the
// full Email schema. Body and Attachments are never absent: they are an
// empty string and an empty slice when the client has nothing.
func Normalize(raw source.RawMessage, attachments []source.RawAttachment) model.Email {
	email := NormalizeSummary(raw)
	email.Body = normalizeBody(raw.Fields)
	email.Attachments = normalizeAttachments(attachments)
	return email
}

// NormalizeSummary maps the header-level fields of a raw message. The
// result has an empty body and no attachments.
func NormalizeSummary(raw source.RawMessage) model.Email {
	f := raw.Fields

	senderEmail := textField(f, source.FieldSenderEmail)
	senderName := textField(f, source.FieldSenderName)
	if senderName == "" {
		senderName = senderEmail
	}

	return model.Email{
		Identifier:  raw.ID,
		Subject:     textField(f, source.FieldSubject),
		SenderName:  senderName,
		SenderEmail: senderEmail,
		To:          joinRecipients(f[source.FieldTo]),
		CC:          joinRecipients(f[source.FieldCC]),
		ReceivedAt:  parseReceived(f[source.FieldReceived]),
		Attachments: []model.Attachment{},
	}
}

// textField returns the trimmed text of a field, or "" when it is
// missing or nil.
func textField(f source.Fields, key string) string {
	switch v := f[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case *string:
		if v == nil {
			return ""
		}
		return strings.TrimSpace(*v)
	case []string:
		return joinRecipients(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// joinRecipients flattens a recipient field into one string separated by
// model.RecipientSeparator. String values are split on ';' only, since
// display names such as "Doe, John" contain commas.
func joinRecipients(v any) string {
	var parts []string
	switch v := v.(type) {
	case string:
		parts = strings.Split(v, ";")
	case *string:
		if v != nil {
			parts = strings.Split(*v, ";")
		}
	case []string:
		parts = v
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, model.RecipientSeparator)
}

// parseReceived converts a receipt timestamp in any supported
// representation. Missing, zero, "none" and unparseable values yield nil,
// never the epoch.
func parseReceived(v any) *time.Time {
	var t time.Time
	switch v := v.(type) {
	case time.Time:
		t = v
	case *time.Time:
		if v == nil {
			return nil
		}
		t = *v
	case int64:
		if v <= 0 {
			return nil
		}
		t = time.Unix(v, 0)
	case int:
		if v <= 0 {
			return nil
		}
		t = time.Unix(int64(v), 0)
	case string:
		parsed, ok := parseTimeString(v)
		if !ok {
			return nil
		}
		t = parsed
	default:
		return nil
	}

	if t.IsZero() || t.Year() >= oleNoneYear {
		return nil
	}
	return &t
}

func parseTimeString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range receivedLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	if t, err := mail.ParseDate(s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// normalizeBody prefers the plain-text body and falls back to the HTML
// body with markup stripped.
func normalizeBody(f source.Fields) string {
	if body := rawText(f[source.FieldBody]); strings.TrimSpace(body) != "" {
		return body
	}
	return stripHTML(rawText(f[source.FieldHTMLBody]))
}

// rawText is textField without trimming, for message bodies.
func rawText(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case *string:
		if v != nil {
			return *v
		}
	case []byte:
		return string(v)
	}
	return ""
}

func normalizeAttachments(attachments []source.RawAttachment) []model.Attachment {
	out := make([]model.Attachment, 0, len(attachments))
	for _, a := range attachments {
		name := baseName(a.FileName)
		if name == "" {
			name = baseName(a.DisplayName)
		}
		if name == "" {
			continue
		}
		out = append(out, model.Attachment{Filename: name})
	}
	return out
}

// baseName drops any directory part, with either separator style.
func baseName(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// htmlTagPattern matches HTML tags for stripping.
var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// stripHTML removes HTML tags from a string and decodes common
// entities, providing a basic plain-text rendering.
func stripHTML(html string) string {
	if html == "" {
		return ""
	}

	result := html
	for _, tag := range []string{
		"<br>", "<br/>", "<br />", "</p>", "</div>", "</li>", "</tr>",
	} {
		result = strings.ReplaceAll(result, tag, "\n")
	}

	result = htmlTagPattern.ReplaceAllString(result, "")

	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	result = replacer.Replace(result)

	for strings.Contains(result, "\n\n\n") {
		result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(result)
}
