//go:build !windows

package outlook

import (
	"context"
	"errors"
	"runtime"

	"github.com/nhle/inboxpeek/internal/model"
	"github.com/nhle/inboxpeek/internal/source"
)

// Open fails: Outlook automation requires Windows.
func (a *Adapter) Open(_ context.Context) (source.Session, error) {
	return nil, &source.ConnectionError{
		SourceType: model.SourceTypeOutlook,
		Err:        errors.New("Outlook automation is not available on " + runtime.GOOS),
	}
}
