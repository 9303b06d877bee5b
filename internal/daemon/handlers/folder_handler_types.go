package handlers

import "github.com/syncany/syncany-go/internal/daemonmsg"

type WatchesResponse struct {
	Watches []daemonmsg.Watch `json:"watches"`
}

type HeadersRequest struct {
	Root string `form:"root" binding:"required"`
}

type HeadersResponse struct {
	Root    string                    `json:"root"`
	Headers []daemonmsg.VersionHeader `json:"headers"`
}

type LogRequest struct {
	Root        string `form:"root" binding:"required"`
	Start       int    `form:"start,default=0" binding:"min=0"`
	MaxVersions int    `form:"maxVersions,default=15" binding:"min=1,max=1000"`
	MaxFiles    int    `form:"maxFiles,default=10" binding:"min=0,max=10000"`
}

type LogResponse struct {
	Root     string                      `json:"root"`
	Start    int                         `json:"start"`
	Versions []daemonmsg.DatabaseVersion `json:"versions"`
	HasMore  bool                        `json:"hasMore"`
	Next     int                         `json:"next"`
}

type AppendVersionRequest struct {
	Root    string                    `json:"root" binding:"required"`
	Version daemonmsg.DatabaseVersion `json:"version"`
}

type StatusTextRequest struct {
	Root string `json:"root"`
	Text string `json:"text" binding:"required"`
}

type StatusTextResponse struct {
	Code       string `json:"code"`
	Recipients int    `json:"recipients"`
}
