package history

import (
	"context"
	"time"
)

// Transport hands a log request to the daemon. It must not block on the
// answer: responses come back through Session.Deliver or Session.Fail.
type Transport interface {
	SendLogRequest(ctx context.Context, req LogWindowRequest) error
}

// Consumer is notified whenever the retrieved view changes.
type Consumer interface {
	OnSnapshotUpdated(root string, entries []VersionEntry, hasMore bool)
	OnHighlight(date time.Time, entry VersionEntry, found bool)
	OnRetrievalFailed(root string, err error)
}

type UpdateKind uint8

const (
	UpdateSnapshot UpdateKind = iota
	UpdateHighlight
	UpdateFailed
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateSnapshot:
		return "snapshot"
	case UpdateHighlight:
		return "highlight"
	case UpdateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Update is a Consumer notification delivered over a channel.
type Update struct {
	Kind    UpdateKind
	Root    string
	Entries []VersionEntry
	HasMore bool
	Date    time.Time
	Entry   VersionEntry
	Found   bool
	Err     error
}
