package daemonsdk

import (
	"context"
	"log/slog"
	"sync"

	"github.com/syncany/syncany-go/internal/daemonmsg"
	"github.com/syncany/syncany-go/internal/history"
)

const statusBufferSize = 16

// Sink receives log answers; *history.Session is one.
type Sink interface {
	Deliver(resp history.LogWindowResponse)
	Fail(correlationID string, err error)
}

// LogBus carries history requests over the events socket and routes the
// daemon's answers back by request id. It implements history.Transport.
type LogBus struct {
	events *EventsAPI

	mu     sync.Mutex
	sink   Sink
	calls  map[string]chan *daemonmsg.Message
	status chan daemonmsg.StatusText
}

func NewLogBus(events *EventsAPI) *LogBus {
	return &LogBus{
		events: events,
		calls:  make(map[string]chan *daemonmsg.Message),
		status: make(chan daemonmsg.StatusText, statusBufferSize),
	}
}

// Attach sets the receiver of log answers. Answers that arrive with no sink
// attached are dropped.
func (b *LogBus) Attach(sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sink = sink
}

// SendLogRequest sends req with its correlation id as the message id, which the
// daemon echoes in its answer.
func (b *LogBus) SendLogRequest(_ context.Context, req history.LogWindowRequest) error {
	msg := daemonmsg.NewLogFolderRequest(req.Root, daemonmsg.LogOptions{
		StartDatabaseVersionIndex: req.StartIndex,
		MaxDatabaseVersionCount:   req.MaxVersions,
		MaxFileHistoryCount:       req.MaxFilesPerVersion,
	})
	msg.Id = req.CorrelationID
	return b.events.Send(msg)
}

// ListWatches asks the daemon for its watched roots and waits for the answer.
func (b *LogBus) ListWatches(ctx context.Context) ([]daemonmsg.Watch, error) {
	reply, err := b.call(ctx, daemonmsg.NewListWatchesRequest())
	if err != nil {
		return nil, err
	}
	resp, ok := reply.Data.(*daemonmsg.ListWatchesResponse)
	if !ok {
		return nil, unexpectedReply(reply)
	}
	return resp.Watches, nil
}

// Headers asks the daemon for the version dates of root and waits for the answer.
func (b *LogBus) Headers(ctx context.Context, root string) ([]daemonmsg.VersionHeader, error) {
	reply, err := b.call(ctx, daemonmsg.NewHeadersRequest(root))
	if err != nil {
		return nil, err
	}
	resp, ok := reply.Data.(*daemonmsg.HeadersResponse)
	if !ok {
		return nil, unexpectedReply(reply)
	}
	return resp.Headers, nil
}

// StatusTexts returns status lines pushed by the daemon. Lines are dropped
// when nobody reads them.
func (b *LogBus) StatusTexts() <-chan daemonmsg.StatusText {
	return b.status
}

// Run routes incoming messages until ctx is done.
func (b *LogBus) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-b.events.Get():
			b.route(msg)
		}
	}
}

func (b *LogBus) route(msg *daemonmsg.Message) {
	if msg == nil {
		return
	}

	if rid := msg.RequestID(); rid != "" {
		b.mu.Lock()
		ch, waiting := b.calls[rid]
		sink := b.sink
		b.mu.Unlock()

		if waiting {
			select {
			case ch <- msg:
			default:
			}
			return
		}

		switch data := msg.Data.(type) {
		case *daemonmsg.LogFolderResponse:
			if sink == nil {
				slog.Debug("logbus dropped log response", "requestId", rid)
				return
			}
			sink.Deliver(history.LogWindowResponse{
				RequestCorrelationID: rid,
				Versions:             ToVersionEntries(data.Versions),
			})
		case *daemonmsg.Error:
			if sink == nil {
				slog.Debug("logbus dropped error", "requestId", rid, "code", data.Code)
				return
			}
			sink.Fail(rid, data)
		default:
			slog.Debug("logbus unclaimed reply", "requestId", rid, "type", msg.Type)
		}
		return
	}

	switch data := msg.Data.(type) {
	case *daemonmsg.StatusText:
		select {
		case b.status <- *data:
		default:
			slog.Debug("logbus status dropped", "root", data.Root)
		}
	case *daemonmsg.System:
		slog.Info("daemon hello", "version", data.SystemVersion, "msg", data.Message)
	default:
		slog.Debug("logbus ignored", "id", msg.Id, "type", msg.Type)
	}
}

func (b *LogBus) call(ctx context.Context, msg *daemonmsg.Message) (*daemonmsg.Message, error) {
	ch := make(chan *daemonmsg.Message, 1)

	b.mu.Lock()
	b.calls[msg.Id] = ch
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.calls, msg.Id)
		b.mu.Unlock()
	}()

	if err := b.events.Send(msg); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case reply := <-ch:
		if e, ok := reply.Data.(*daemonmsg.Error); ok {
			return nil, e
		}
		return reply, nil
	}
}

// ToVersionEntries converts daemon versions to history entries. Index is left
// for the retriever to assign.
func ToVersionEntries(versions []daemonmsg.DatabaseVersion) []history.VersionEntry {
	entries := make([]history.VersionEntry, 0, len(versions))
	for _, v := range versions {
		files := make([]history.FileChange, 0, v.ChangeSet.Len())
		for _, p := range v.ChangeSet.New {
			files = append(files, history.FileChange{Path: p, Kind: history.ChangeNew})
		}
		for _, p := range v.ChangeSet.Changed {
			files = append(files, history.FileChange{Path: p, Kind: history.ChangeChanged})
		}
		for _, p := range v.ChangeSet.Deleted {
			files = append(files, history.FileChange{Path: p, Kind: history.ChangeDeleted})
		}
		entries = append(entries, history.VersionEntry{
			Date:       v.Date,
			Client:     v.Client,
			HasChanges: v.ChangeSet.HasChanges(),
			Files:      files,
		})
	}
	return entries
}

func unexpectedReply(msg *daemonmsg.Message) error {
	return &daemonmsg.Error{
		RequestId: msg.RequestID(),
		Code:      daemonmsg.CodeInternal,
		Message:   "unexpected reply " + msg.Type.String(),
	}
}

var _ history.Transport = (*LogBus)(nil)
var _ Sink = (*history.Session)(nil)
