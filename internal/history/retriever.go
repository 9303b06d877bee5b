package history

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/syncany/syncany-go/internal/metrics"
)

// retrievalState is Idle when req is nil and Pending(req.CorrelationID) otherwise.
type retrievalState struct {
	req *LogWindowRequest
}

func (s retrievalState) idle() bool {
	return s.req == nil
}

func (s retrievalState) pendingOn(correlationID string) bool {
	return s.req != nil && s.req.CorrelationID == correlationID
}

// Retriever pages through the version log of one root at a time with at most
// one request in flight. It is not safe for concurrent use; Session owns one
// on a single goroutine.
type Retriever struct {
	window    Window
	transport Transport
	consumer  Consumer
	newID     func() string

	root      string
	state     retrievalState
	known     map[versionKey]VersionEntry
	hasMore   bool
	nextIndex int
	selected  time.Time
}

func NewRetriever(window Window, transport Transport, consumer Consumer) (*Retriever, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, fmt.Errorf("history: transport missing")
	}
	if consumer == nil {
		consumer = nopConsumer{}
	}

	return &Retriever{
		window:    window,
		transport: transport,
		consumer:  consumer,
		newID:     uuid.NewString,
		known:     make(map[versionKey]VersionEntry),
	}, nil
}

// RequestPage issues a window request starting at startIndex. It returns false
// without error when a request is already pending; roots are switched with
// SwitchRoot, never by overriding a pending request.
func (r *Retriever) RequestPage(ctx context.Context, root string, startIndex int) (bool, error) {
	if root == "" {
		return false, ErrNoRoot
	}
	if startIndex < 0 {
		return false, ErrNegativeStart
	}

	if !r.state.idle() {
		metrics.HistoryRequestsTotal.WithLabelValues("suppressed").Inc()
		slog.Debug("history request suppressed", "root", root, "start", startIndex, "pendingId", r.state.req.CorrelationID, "pendingRoot", r.state.req.Root)
		return false, nil
	}

	if root != r.root {
		r.root = root
		r.resetView()
	}

	req := LogWindowRequest{
		CorrelationID:      r.newID(),
		Root:               root,
		StartIndex:         startIndex,
		MaxVersions:        r.window.MaxVersions,
		MaxFilesPerVersion: r.window.MaxFilesPerVersion,
	}
	r.state = retrievalState{req: &req}

	slog.Info("history log request", "id", req.CorrelationID, "root", root, "start", startIndex, "maxVersions", req.MaxVersions)
	if err := r.transport.SendLogRequest(ctx, req); err != nil {
		r.state = retrievalState{}
		metrics.HistoryRequestsTotal.WithLabelValues("send_failed").Inc()
		err = fmt.Errorf("%w: %w", ErrRetrievalFailed, err)
		slog.Warn("history log request failed", "id", req.CorrelationID, "root", root, "error", err)
		r.consumer.OnRetrievalFailed(root, err)
		return false, err
	}

	metrics.HistoryRequestsTotal.WithLabelValues("sent").Inc()
	return true, nil
}

// LoadMore requests the window following the last accepted one. It is a no-op
// when nothing more is available or a request is pending.
func (r *Retriever) LoadMore(ctx context.Context) (bool, error) {
	if r.root == "" || !r.hasMore || !r.state.idle() {
		return false, nil
	}
	return r.RequestPage(ctx, r.root, r.nextIndex)
}

// SwitchRoot abandons any pending request, clears the view and requests the
// first window of newRoot. A late answer to the abandoned request is stale.
func (r *Retriever) SwitchRoot(ctx context.Context, newRoot string) error {
	if newRoot == "" {
		return ErrNoRoot
	}

	if !r.state.idle() {
		slog.Debug("history pending request dropped", "id", r.state.req.CorrelationID, "root", r.state.req.Root)
	}
	r.state = retrievalState{}
	r.root = newRoot
	r.selected = time.Time{}
	r.resetView()

	_, err := r.RequestPage(ctx, newRoot, 0)
	return err
}

// OnResponse applies a response if it answers the pending request and reports
// whether it was accepted.
func (r *Retriever) OnResponse(resp LogWindowResponse) bool {
	if !r.state.pendingOn(resp.RequestCorrelationID) {
		metrics.HistoryResponsesTotal.WithLabelValues("stale").Inc()
		slog.Debug("history stale response", "id", resp.RequestCorrelationID, "versions", len(resp.Versions))
		return false
	}

	req := *r.state.req
	if req.StartIndex == 0 {
		clear(r.known)
	}

	for i, v := range resp.Versions {
		if !v.HasChanges {
			continue
		}
		v.Index = req.StartIndex + i
		r.known[keyOf(v.Date)] = v
	}

	r.hasMore = len(resp.Versions) == req.MaxVersions
	r.nextIndex = req.StartIndex + len(resp.Versions)
	r.state = retrievalState{}

	metrics.HistoryResponsesTotal.WithLabelValues("accepted").Inc()
	slog.Info("history log response", "id", req.CorrelationID, "root", req.Root, "versions", len(resp.Versions), "known", len(r.known), "hasMore", r.hasMore)

	r.consumer.OnSnapshotUpdated(req.Root, r.Snapshot(), r.hasMore)
	if !r.selected.IsZero() {
		r.Highlight(r.selected)
	}
	return true
}

// OnFailure ends the pending request with err if correlationID matches it.
// Failures for other ids are stale and ignored like responses.
func (r *Retriever) OnFailure(correlationID string, err error) bool {
	if !r.state.pendingOn(correlationID) {
		metrics.HistoryResponsesTotal.WithLabelValues("stale").Inc()
		slog.Debug("history stale failure", "id", correlationID, "error", err)
		return false
	}

	root := r.state.req.Root
	r.state = retrievalState{}

	metrics.HistoryResponsesTotal.WithLabelValues("failed").Inc()
	slog.Warn("history retrieval failed", "id", correlationID, "root", root, "error", err)
	r.consumer.OnRetrievalFailed(root, fmt.Errorf("%w: %w", ErrRetrievalFailed, err))
	return true
}

// Highlight selects date and tells the consumer whether a version with that
// date is loaded. The selection is re-applied after every snapshot.
func (r *Retriever) Highlight(date time.Time) {
	r.selected = date
	entry, found := r.FindByDate(date)
	r.consumer.OnHighlight(date, entry, found)
}

func (r *Retriever) FindByDate(date time.Time) (VersionEntry, bool) {
	if date.IsZero() {
		return VersionEntry{}, false
	}
	entry, ok := r.known[keyOf(date)]
	return entry, ok
}

// Snapshot returns the known versions, newest first.
func (r *Retriever) Snapshot() []VersionEntry {
	entries := make([]VersionEntry, 0, len(r.known))
	for _, v := range r.known {
		entries = append(entries, v)
	}
	slices.SortFunc(entries, func(a, b VersionEntry) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return a.Index - b.Index
	})
	return entries
}

func (r *Retriever) Pending() (LogWindowRequest, bool) {
	if r.state.idle() {
		return LogWindowRequest{}, false
	}
	return *r.state.req, true
}

func (r *Retriever) Root() string   { return r.root }
func (r *Retriever) HasMore() bool  { return r.hasMore }
func (r *Retriever) NextIndex() int { return r.nextIndex }
func (r *Retriever) Len() int       { return len(r.known) }

func (r *Retriever) resetView() {
	clear(r.known)
	r.hasMore = false
	r.nextIndex = 0
}

// versionKey identifies a version by its instant, independent of location.
type versionKey struct {
	sec  int64
	nsec int
}

func keyOf(t time.Time) versionKey {
	return versionKey{sec: t.Unix(), nsec: t.Nanosecond()}
}

type nopConsumer struct{}

func (nopConsumer) OnSnapshotUpdated(string, []VersionEntry, bool) {}
func (nopConsumer) OnHighlight(time.Time, VersionEntry, bool)     {}
func (nopConsumer) OnRetrievalFailed(string, error)               {}
