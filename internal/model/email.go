package model

import "time"

// Attachment describes a file attached to an email message.
type Attachment struct {
	// Filename is the attachment's file name without any directory part.
	Filename string `json:"filename" jsonschema:"file name of the attachment"`
}

// Email is the unified, client-independent representation of a message.
// Values are snapshots built per query; nothing writes them back.
type Email struct {
	// Identifier is an opaque reference to the message, stable for the
	// lifetime of the mailbox session that produced it.
	Identifier string `json:"identifier" jsonschema:"opaque message identifier"`

	// Subject is the message subject, empty when the message has none.
	Subject string `json:"subject" jsonschema:"message subject"`

	// SenderName is the sender's display name. It falls back to the
	// sender's address when the client has no display name.
	SenderName string `json:"sender_name" jsonschema:"sender display name"`

	// SenderEmail is the sender's address.
	SenderEmail string `json:"sender_email" jsonschema:"sender email address"`

	// To holds the primary recipients joined with RecipientSeparator.
	To string `json:"to" jsonschema:"primary recipients separated by '; '"`

	// CC holds the carbon-copy recipients joined with RecipientSeparator.
	CC string `json:"cc" jsonschema:"carbon-copy recipients separated by '; '"`

	// ReceivedAt is the mailbox's local receipt time. Nil for items that
	// were never received, such as drafts.
	ReceivedAt *time.Time `json:"received_at,omitempty" jsonschema:"local receipt time"`

	// Body is the plain-text body. Summary records leave it empty.
	Body string `json:"body" jsonschema:"plain-text body, empty in listings"`

	// Attachments lists the message's attachments in client order.
	Attachments []Attachment `json:"attachments" jsonschema:"attachments in client order"`
}

// RecipientSeparator joins multiple recipients into the To and CC fields.
const RecipientSeparator = "; "

// AttachmentNames returns the attachment file names in order.
func (e Email) AttachmentNames() []string {
	names := make([]string, 0, len(e.Attachments))
	for _, a := range e.Attachments {
		names = append(names, a.Filename)
	}
	return names
}
