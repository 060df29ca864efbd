package email

import "time"

// TLSMode selects how the IMAP connection is secured.
type TLSMode string

const (
	TLSImplicit TLSMode = "tls"
	TLSStart    TLSMode = "starttls"
	// TLSNone is for local bridges listening on loopback only.
	TLSNone TLSMode = "none"
)

// Config holds the IMAP endpoint settings.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	TLS      TLSMode
	Folder   string
}

// Envelope holds the header data fetched for one IMAP message.
type Envelope struct {
	UID          uint32
	Subject      string
	FromName     string
	FromAddr     string
	To           []string
	CC           []string
	InternalDate time.Time
}

// ParsedMessage holds the full parsed content of an email message.
type ParsedMessage struct {
	Envelope    Envelope
	TextBody    string
	HTMLBody    string
	Attachments []Attachment
}

// Attachment holds metadata about a message attachment.
type Attachment struct {
	Filename    string
	DisplayName string
}
