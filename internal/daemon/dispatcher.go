package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/syncany/syncany-go/internal/daemon/folder"
	"github.com/syncany/syncany-go/internal/daemon/wshub"
	"github.com/syncany/syncany-go/internal/daemonmsg"
	"github.com/syncany/syncany-go/internal/metrics"
)

// Dispatcher answers socket requests. Every reply names the request it
// answers, so front-ends can drop replies they no longer wait for.
type Dispatcher struct {
	hub     *wshub.Hub
	folders *folder.Service
}

func NewDispatcher(hub *wshub.Hub, folders *folder.Service) *Dispatcher {
	return &Dispatcher{hub: hub, folders: folders}
}

func (d *Dispatcher) Run(ctx context.Context) error {
	slog.Info("dispatcher started")
	defer slog.Info("dispatcher stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		case cm, ok := <-d.hub.Messages():
			if !ok {
				return nil
			}
			reply := d.Handle(ctx, cm.Message)
			if reply == nil {
				continue
			}
			if !d.hub.SendMessage(cm.ConnID, reply) {
				slog.Warn("dispatcher reply dropped", "connId", cm.ConnID, "requestId", cm.Message.Id, "msgType", reply.Type)
			}
		}
	}
}

// Handle computes the reply to msg. Messages that need no reply return nil.
func (d *Dispatcher) Handle(ctx context.Context, msg *daemonmsg.Message) *daemonmsg.Message {
	reply := d.handle(ctx, msg)

	status := "ok"
	if reply != nil && reply.Type == daemonmsg.MsgError {
		status = "error"
	}
	metrics.DaemonMessagesTotal.WithLabelValues(msg.Type.String(), status).Inc()
	return reply
}

func (d *Dispatcher) handle(ctx context.Context, msg *daemonmsg.Message) *daemonmsg.Message {
	switch req := msg.Data.(type) {
	case *daemonmsg.LogFolderRequest:
		versions, err := d.folders.Log(ctx, req.Root, req.Options)
		if err != nil {
			return errorReply(msg, err)
		}
		slog.Debug("dispatcher log", "requestId", msg.Id, "root", req.Root, "start", req.Options.StartDatabaseVersionIndex, "versions", len(versions))
		return daemonmsg.NewLogFolderResponse(msg.Id, req.Root, versions)

	case *daemonmsg.ListWatchesRequest:
		return daemonmsg.NewListWatchesResponse(msg.Id, d.folders.Watches())

	case *daemonmsg.HeadersRequest:
		headers, err := d.folders.Headers(ctx, req.Root)
		if err != nil {
			return errorReply(msg, err)
		}
		return daemonmsg.NewHeadersResponse(msg.Id, req.Root, headers)

	case *daemonmsg.System:
		return nil

	default:
		return errorReply(msg, fmt.Errorf("unsupported request %s", msg.Type))
	}
}

func errorReply(msg *daemonmsg.Message, err error) *daemonmsg.Message {
	code := daemonmsg.CodeInternal
	switch {
	case errors.Is(err, folder.ErrUnknownRoot):
		code = daemonmsg.CodeUnknownRoot
	case errors.Is(err, folder.ErrInvalidOptions):
		code = daemonmsg.CodeBadRequest
	case msg.Type != daemonmsg.MsgLogFolderRequest && msg.Type != daemonmsg.MsgHeadersRequest:
		code = daemonmsg.CodeUnsupported
	}
	slog.Warn("dispatcher request failed", "requestId", msg.Id, "msgType", msg.Type, "code", code, "error", err)
	return daemonmsg.NewError(msg.Id, code, err.Error())
}
