// Package outlook binds to the Outlook desktop client through its COM
// automation interface. It is only functional on Windows; elsewhere Open
// fails with a connection error.
package outlook

import (
	"errors"
	"time"

	"github.com/go-ole/go-ole"

	"github.com/nhle/inboxpeek/internal/model"
)

// olFolderInbox is the OlDefaultFolders value of the default inbox.
const olFolderInbox = 6

// restrictLayout is the date format Items.Restrict accepts.
const restrictLayout = "01/02/2006 03:04 PM"

// HRESULTs that mean the EntryID does not name an item in the store.
const (
	mapiNotFound       = 0x8004010F // MAPI_E_NOT_FOUND
	mapiInvalidEntryID = 0x80040107 // MAPI_E_INVALID_ENTRYID
	dispException      = 0x80020009 // DISP_E_EXCEPTION
)

// Adapter implements source.Source for Outlook.
type Adapter struct{}

// NewAdapter creates a new Outlook source adapter.
func NewAdapter() *Adapter {
	return &Adapter{}
}

// Type returns the source type identifier for Outlook.
func (a *Adapter) Type() model.SourceType {
	return model.SourceTypeOutlook
}

// restrictFilter returns the Items.Restrict filter selecting messages
// received at or after since, in local time. Restrict compares at minute
// granularity, so since is rounded down.
func restrictFilter(since time.Time) string {
	return "[ReceivedTime] >= '" + since.Local().Truncate(time.Minute).Format(restrictLayout) + "'"
}

// isMissingItem reports whether err from GetItemFromID means the item does
// not exist. Automation failures arrive as DISP_E_EXCEPTION with the MAPI
// code in the exception info.
func isMissingItem(err error) bool {
	var oleErr *ole.OleError
	if !errors.As(err, &oleErr) {
		return false
	}

	code := uint32(oleErr.Code())
	if code == dispException {
		sub, ok := oleErr.SubError().(interface{ SCODE() uint32 })
		if !ok {
			return false
		}
		code = sub.SCODE()
	}
	return code == mapiNotFound || code == mapiInvalidEntryID
}
