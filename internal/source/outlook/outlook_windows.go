//go:build windows

package outlook

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	ole "github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"

	"github.com/nhle/inboxpeek/internal/model"
	"github.com/nhle/inboxpeek/internal/source"
)

// sFalse is returned by CoInitializeEx when COM is already initialized
// on the thread.
const sFalse = 1

// Open attaches to the running Outlook instance, starting it if needed,
// and opens the default inbox. The calling goroutine is locked to its OS
// thread until Close, as COM apartments are per thread.
func (a *Adapter) Open(ctx context.Context) (source.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runtime.LockOSThread()
	s, err := open()
	if err != nil {
		runtime.UnlockOSThread()
		return nil, &source.ConnectionError{SourceType: model.SourceTypeOutlook, Err: err}
	}
	return s, nil
}

func open() (*session, error) {
	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		var oleErr *ole.OleError
		if !errors.As(err, &oleErr) || oleErr.Code() != sFalse {
			return nil, fmt.Errorf("initializing COM: %w", err)
		}
	}

	s := &session{}
	fail := func(step string, err error) (*session, error) {
		s.release()
		return nil, fmt.Errorf("%s: %w", step, err)
	}

	unknown, err := oleutil.CreateObject("Outlook.Application")
	if err != nil {
		return fail("starting Outlook", err)
	}
	s.app, err = unknown.QueryInterface(ole.IID_IDispatch)
	unknown.Release()
	if err != nil {
		return fail("querying Outlook", err)
	}

	ns, err := oleutil.CallMethod(s.app, "GetNamespace", "MAPI")
	if err != nil {
		return fail("opening MAPI namespace", err)
	}
	s.ns = ns.ToIDispatch()

	inbox, err := oleutil.CallMethod(s.ns, "GetDefaultFolder", olFolderInbox)
	if err != nil {
		return fail("opening inbox", err)
	}
	s.inbox = inbox.ToIDispatch()

	return s, nil
}

type session struct {
	app   *ole.IDispatch
	ns    *ole.IDispatch
	inbox *ole.IDispatch
}

func (s *session) Messages(ctx context.Context, since time.Time) ([]source.RawMessage, error) {
	itemsV, err := oleutil.GetProperty(s.inbox, "Items")
	if err != nil {
		return nil, fmt.Errorf("reading inbox items: %w", err)
	}
	items := itemsV.ToIDispatch()
	defer items.Release()

	if _, err := oleutil.CallMethod(items, "Sort", "[ReceivedTime]", true); err != nil {
		return nil, fmt.Errorf("sorting inbox items: %w", err)
	}

	restrictedV, err := oleutil.CallMethod(items, "Restrict", restrictFilter(since))
	if err != nil {
		return nil, fmt.Errorf("filtering inbox items: %w", err)
	}
	restricted := restrictedV.ToIDispatch()
	defer restricted.Release()

	var out []source.RawMessage
	err = oleutil.ForEach(restricted, func(v *ole.VARIANT) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		item := v.ToIDispatch()
		if item == nil {
			return nil
		}
		defer item.Release()

		out = append(out, source.RawMessage{
			ID:     stringProp(item, "EntryID"),
			Fields: summaryFields(item),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *session) Message(_ context.Context, id string) (source.RawMessage, error) {
	item, err := s.item(id)
	if err != nil {
		return source.RawMessage{}, err
	}
	defer item.Release()

	f := summaryFields(item)
	for _, name := range []string{source.FieldBody, source.FieldHTMLBody} {
		if v, ok := prop(item, name); ok {
			f[name] = v
		}
	}
	return source.RawMessage{ID: id, Fields: f}, nil
}

func (s *session) Attachments(_ context.Context, id string) ([]source.RawAttachment, error) {
	item, err := s.item(id)
	if err != nil {
		return nil, err
	}
	defer item.Release()

	attV, err := oleutil.GetProperty(item, "Attachments")
	if err != nil {
		// Items such as reports carry no attachment collection.
		return nil, nil
	}
	attachments := attV.ToIDispatch()
	defer attachments.Release()

	var out []source.RawAttachment
	err = oleutil.ForEach(attachments, func(v *ole.VARIANT) error {
		att := v.ToIDispatch()
		if att == nil {
			return nil
		}
		defer att.Release()
		out = append(out, source.RawAttachment{
			FileName:    stringProp(att, "FileName"),
			DisplayName: stringProp(att, "DisplayName"),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading attachments: %w", err)
	}
	return out, nil
}

func (s *session) Close() error {
	s.release()
	runtime.UnlockOSThread()
	return nil
}

func (s *session) release() {
	for _, d := range []**ole.IDispatch{&s.inbox, &s.ns, &s.app} {
		if *d != nil {
			(*d).Release()
			*d = nil
		}
	}
	ole.CoUninitialize()
}

// item resolves an EntryID. Unknown or malformed IDs are reported as
// not found; any other automation failure is returned as is.
func (s *session) item(id string) (*ole.IDispatch, error) {
	if strings.TrimSpace(id) == "" {
		return nil, source.ErrNotFound
	}
	v, err := oleutil.CallMethod(s.ns, "GetItemFromID", id)
	if isMissingItem(err) {
		return nil, source.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting item %s: %w", id, err)
	}
	item := v.ToIDispatch()
	if item == nil {
		return nil, source.ErrNotFound
	}
	return item, nil
}

// summaryFields reads the header-level properties. Properties an item
// type does not have are left out.
func summaryFields(item *ole.IDispatch) source.Fields {
	f := source.Fields{}
	for _, name := range []string{
		source.FieldSubject,
		source.FieldSenderName,
		source.FieldSenderEmail,
		source.FieldTo,
		source.FieldCC,
		source.FieldReceived,
	} {
		if v, ok := prop(item, name); ok {
			f[name] = v
		}
	}

	if stringProp(item, "SenderEmailType") == "EX" {
		if smtp := exchangeSMTPAddress(item); smtp != "" {
			f[source.FieldSenderEmail] = smtp
		}
	}
	return f
}

// exchangeSMTPAddress resolves an Exchange sender to its primary SMTP
// address.
func exchangeSMTPAddress(item *ole.IDispatch) string {
	senderV, err := oleutil.GetProperty(item, "Sender")
	if err != nil {
		return ""
	}
	sender := senderV.ToIDispatch()
	if sender == nil {
		return ""
	}
	defer sender.Release()

	userV, err := oleutil.CallMethod(sender, "GetExchangeUser")
	if err != nil {
		return ""
	}
	user := userV.ToIDispatch()
	if user == nil {
		return ""
	}
	defer user.Release()

	return stringProp(user, "PrimarySmtpAddress")
}

func prop(d *ole.IDispatch, name string) (any, bool) {
	v, err := oleutil.GetProperty(d, name)
	if err != nil {
		return nil, false
	}
	defer v.Clear()

	switch val := v.Value().(type) {
	case string:
		return val, true
	case time.Time:
		return val, true
	case nil:
		return nil, false
	default:
		return fmt.Sprint(val), true
	}
}

func stringProp(d *ole.IDispatch, name string) string {
	if v, ok := prop(d, name); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
