package daemonmsg

import "time"

type Watch struct {
	Root    string `json:"root"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

type ListWatchesRequest struct{}

type ListWatchesResponse struct {
	RequestId string  `json:"rid"`
	Watches   []Watch `json:"watches"`
}

func (r *ListWatchesResponse) CorrelationID() string { return r.RequestId }

// VersionHeader is the date of one database version, used to place a root's
// history on a timeline without fetching any file lists.
type VersionHeader struct {
	Date   time.Time `json:"date"`
	Client string    `json:"client,omitempty"`
}

type HeadersRequest struct {
	Root string `json:"root"`
}

type HeadersResponse struct {
	RequestId string          `json:"rid"`
	Root      string          `json:"root"`
	Headers   []VersionHeader `json:"headers"`
}

func (r *HeadersResponse) CorrelationID() string { return r.RequestId }

func NewListWatchesRequest() *Message {
	return New(MsgListWatchesRequest, &ListWatchesRequest{})
}

func NewListWatchesResponse(requestID string, watches []Watch) *Message {
	return New(MsgListWatchesResponse, &ListWatchesResponse{RequestId: requestID, Watches: watches})
}

func NewHeadersRequest(root string) *Message {
	return New(MsgHeadersRequest, &HeadersRequest{Root: root})
}

func NewHeadersResponse(requestID string, root string, headers []VersionHeader) *Message {
	return New(MsgHeadersResponse, &HeadersResponse{RequestId: requestID, Root: root, Headers: headers})
}
