package daemonsdk

import (
	"fmt"
	"runtime"

	"github.com/syncany/syncany-go/internal/daemonmsg"
	"github.com/syncany/syncany-go/internal/version"
)

const (
	HeaderUserAgent     = "User-Agent"
	HeaderAuthorization = "Authorization"
	HeaderVersion       = "X-Syncany-Version"
	HeaderDeviceId      = "X-Syncany-Device-Id"
)

var UserAgent = fmt.Sprintf("%s/%s (%s; %s; %s)", version.AppName, version.Version, version.Revision, runtime.GOOS, runtime.GOARCH)

type StatusResponse struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"ts"`
	Version   string         `json:"version"`
	Revision  string         `json:"revision"`
	BuildDate string         `json:"buildDate"`
	Watches   int            `json:"watches"`
	Frontends int            `json:"frontends"`
	Versions  map[string]int `json:"versions,omitempty"`
	Runtime   *RuntimeStatus `json:"runtime,omitempty"`
}

type RuntimeStatus struct {
	PID        int32   `json:"pid"`
	StartedAt  string  `json:"startedAt"`
	Uptime     string  `json:"uptime"`
	RSSBytes   uint64  `json:"rssBytes"`
	CPUPercent float64 `json:"cpuPercent"`
	Goroutines int     `json:"goroutines"`
}

type WatchesResponse struct {
	Watches []daemonmsg.Watch `json:"watches"`
}

type HeadersResponse struct {
	Root    string                    `json:"root"`
	Headers []daemonmsg.VersionHeader `json:"headers"`
}

// LogParams selects a window of a root's log. Zero counts use the daemon defaults.
type LogParams struct {
	Root        string
	Start       int
	MaxVersions int
	MaxFiles    int
}

type LogResponse struct {
	Root     string                      `json:"root"`
	Start    int                         `json:"start"`
	Versions []daemonmsg.DatabaseVersion `json:"versions"`
	HasMore  bool                        `json:"hasMore"`
	Next     int                         `json:"next"`
}

type AppendVersionRequest struct {
	Root    string                    `json:"root"`
	Version daemonmsg.DatabaseVersion `json:"version"`
}

type StatusTextRequest struct {
	Root string `json:"root,omitempty"`
	Text string `json:"text"`
}

type StatusTextResponse struct {
	Code       string `json:"code"`
	Recipients int    `json:"recipients"`
}
