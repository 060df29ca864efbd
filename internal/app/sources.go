package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/nhle/inboxpeek/internal/credential"
	"github.com/nhle/inboxpeek/internal/model"
	"github.com/nhle/inboxpeek/internal/source"
	"github.com/nhle/inboxpeek/internal/source/email"
	"github.com/nhle/inboxpeek/internal/source/mbox"
	"github.com/nhle/inboxpeek/internal/source/outlook"
	"github.com/nhle/inboxpeek/internal/source/pop3"
	"github.com/nhle/inboxpeek/internal/source/thunderbird"
)

// ErrNoPassword is returned when a server source has no password in its
// config or in the keyring.
var ErrNoPassword = errors.New("no password configured")

// lookupPassword is replaced in tests.
var lookupPassword = credential.Lookup

// BuildSource creates the binding for a source configuration. Passwords
// for server sources come from the config or, failing that, from the
// system keyring under credential.PasswordKey(name).
func BuildSource(sc model.SourceConfig) (source.Source, error) {
	switch model.SourceType(sc.Type) {
	case model.SourceTypeOutlook:
		return outlook.NewAdapter(), nil

	case model.SourceTypeThunderbird:
		return thunderbird.NewAdapter(thunderbird.Config{
			Database: sc.Get("database", ""),
			Root:     sc.Get("root", ""),
			Profile:  sc.Get("profile", ""),
			Folder:   sc.Get("folder", "Inbox"),
		}), nil

	case model.SourceTypeIMAP:
		host := sc.Get("host", "")
		if host == "" {
			return nil, fmt.Errorf("imap source %s: host is required", sc.Name)
		}
		password, err := sourcePassword(sc)
		if err != nil {
			return nil, err
		}
		return email.NewAdapter(email.Config{
			Host:     host,
			Port:     sc.Get("port", ""),
			Username: sc.Get("username", ""),
			Password: password,
			TLS:      email.TLSMode(sc.Get("tls", string(email.TLSImplicit))),
			Folder:   sc.Get("folder", "INBOX"),
		}), nil

	case model.SourceTypePOP3:
		host := sc.Get("host", "")
		if host == "" {
			return nil, fmt.Errorf("pop3 source %s: host is required", sc.Name)
		}
		port := 0
		if p := sc.Get("port", ""); p != "" {
			n, err := strconv.Atoi(p)
			if err != nil {
				return nil, fmt.Errorf("pop3 source %s: invalid port %q", sc.Name, p)
			}
			port = n
		}
		password, err := sourcePassword(sc)
		if err != nil {
			return nil, err
		}
		return pop3.NewAdapter(pop3.Config{
			Host:     host,
			Port:     port,
			Username: sc.Get("username", ""),
			Password: password,
			TLS:      sc.Get("tls", "true") != "false",
		}), nil

	case model.SourceTypeMbox:
		path := sc.Get("path", "")
		if path == "" {
			dir, err := thunderbird.ResolveProfile(sc.Get("root", thunderbird.DefaultRoot()), sc.Get("profile", ""))
			if err != nil {
				return nil, fmt.Errorf("mbox source %s: %w", sc.Name, err)
			}
			path = filepath.Join(dir, "Mail", "Local Folders", sc.Get("folder", "Inbox"))
		}
		return mbox.NewAdapter(path), nil

	default:
		return nil, fmt.Errorf("unsupported source type %q", sc.Type)
	}
}

func sourcePassword(sc model.SourceConfig) (string, error) {
	if p, ok := sc.Config["password"]; ok && p != "" {
		return p, nil
	}

	p, ok, err := lookupPassword(credential.PasswordKey(sc.Name))
	if err != nil {
		return "", fmt.Errorf("reading password for %s: %w", sc.Name, err)
	}
	if !ok {
		return "", fmt.Errorf("%w for source %s; run set-password --source %s", ErrNoPassword, sc.Name, sc.Name)
	}
	return p, nil
}
