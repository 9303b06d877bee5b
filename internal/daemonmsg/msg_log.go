package daemonmsg

import "time"

// LogOptions selects a window of the database-version log of a root.
type LogOptions struct {
	StartDatabaseVersionIndex int `json:"start"`
	MaxDatabaseVersionCount   int `json:"maxVersions"`
	MaxFileHistoryCount       int `json:"maxFiles"`
}

type LogFolderRequest struct {
	Root    string     `json:"root"`
	Options LogOptions `json:"opts"`
}

type LogFolderResponse struct {
	RequestId string            `json:"rid"`
	Root      string            `json:"root"`
	Versions  []DatabaseVersion `json:"versions"`
}

func (r *LogFolderResponse) CorrelationID() string { return r.RequestId }

// DatabaseVersion is a lightweight view of one database version: when it was
// written, by which client, and which files it touched.
type DatabaseVersion struct {
	Date      time.Time `json:"date"`
	Client    string    `json:"client,omitempty"`
	ChangeSet ChangeSet `json:"changes"`
}

type ChangeSet struct {
	New     []string `json:"new,omitempty"`
	Changed []string `json:"changed,omitempty"`
	Deleted []string `json:"deleted,omitempty"`
}

func (c ChangeSet) HasChanges() bool {
	return len(c.New) > 0 || len(c.Changed) > 0 || len(c.Deleted) > 0
}

func (c ChangeSet) Len() int {
	return len(c.New) + len(c.Changed) + len(c.Deleted)
}

func NewLogFolderRequest(root string, opts LogOptions) *Message {
	return New(MsgLogFolderRequest, &LogFolderRequest{Root: root, Options: opts})
}

func NewLogFolderResponse(requestID string, root string, versions []DatabaseVersion) *Message {
	return New(MsgLogFolderResponse, &LogFolderResponse{
		RequestId: requestID,
		Root:      root,
		Versions:  versions,
	})
}
