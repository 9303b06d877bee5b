// Package history retrieves the version log of a sync folder window by window
// and keeps a merged, date-keyed view of it for the front-end.
package history

import (
	"errors"
	"time"
)

const (
	DefaultMaxVersions        = 15
	DefaultMaxFilesPerVersion = 10
)

var (
	ErrNoRoot          = errors.New("history: root missing")
	ErrNegativeStart   = errors.New("history: negative start index")
	ErrInvalidWindow   = errors.New("history: window bounds must be positive")
	ErrRetrievalFailed = errors.New("history: retrieval failed")
	ErrRequestTimeout  = errors.New("history: request timed out")
	ErrSessionClosed   = errors.New("history: session closed")
	ErrUnknownRoot     = errors.New("history: unknown root")
)

// Window bounds a single log request.
type Window struct {
	MaxVersions        int
	MaxFilesPerVersion int
}

func DefaultWindow() Window {
	return Window{
		MaxVersions:        DefaultMaxVersions,
		MaxFilesPerVersion: DefaultMaxFilesPerVersion,
	}
}

func (w Window) Validate() error {
	if w.MaxVersions <= 0 || w.MaxFilesPerVersion <= 0 {
		return ErrInvalidWindow
	}
	return nil
}

type ChangeKind uint8

const (
	ChangeNew ChangeKind = iota
	ChangeChanged
	ChangeDeleted
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeNew:
		return "new"
	case ChangeChanged:
		return "changed"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

type FileChange struct {
	Path string
	Kind ChangeKind
}

// VersionEntry is one database version of a root as reported by the daemon.
type VersionEntry struct {
	Date       time.Time
	Client     string
	HasChanges bool
	Files      []FileChange
	// Index is the position of the version in the remote history.
	Index int
}

type LogWindowRequest struct {
	CorrelationID      string
	Root               string
	StartIndex         int
	MaxVersions        int
	MaxFilesPerVersion int
}

type LogWindowResponse struct {
	RequestCorrelationID string
	Versions             []VersionEntry
}
