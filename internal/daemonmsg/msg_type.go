package daemonmsg

import "fmt"

type MessageType uint16

const (
	MsgSystem MessageType = iota
	MsgError
	MsgLogFolderRequest
	MsgLogFolderResponse
	MsgListWatchesRequest
	MsgListWatchesResponse
	MsgHeadersRequest
	MsgHeadersResponse
	MsgStatusText
)

func (t MessageType) String() string {
	switch t {
	case MsgSystem:
		return "SYSTEM"
	case MsgError:
		return "ERROR"
	case MsgLogFolderRequest:
		return "LOG_FOLDER_REQUEST"
	case MsgLogFolderResponse:
		return "LOG_FOLDER_RESPONSE"
	case MsgListWatchesRequest:
		return "LIST_WATCHES_REQUEST"
	case MsgListWatchesResponse:
		return "LIST_WATCHES_RESPONSE"
	case MsgHeadersRequest:
		return "HEADERS_REQUEST"
	case MsgHeadersResponse:
		return "HEADERS_RESPONSE"
	case MsgStatusText:
		return "STATUS_TEXT"
	default:
		return fmt.Sprintf("???(%d)", t)
	}
}
