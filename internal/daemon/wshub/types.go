package wshub

import (
	"net/http"

	"github.com/syncany/syncany-go/internal/daemonmsg"
	"github.com/syncany/syncany-go/internal/wsproto"
)

type ClientInfo struct {
	IPAddr     string
	Headers    http.Header
	Version    string
	WSEncoding wsproto.Encoding
}

type ClientMessage struct {
	ConnID     string
	ClientInfo *ClientInfo
	Message    *daemonmsg.Message
}
