package history

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	sent []LogWindowRequest
	err  error
}

func (t *fakeTransport) SendLogRequest(_ context.Context, req LogWindowRequest) error {
	if t.err != nil {
		return t.err
	}
	t.sent = append(t.sent, req)
	return nil
}

func (t *fakeTransport) last() LogWindowRequest {
	return t.sent[len(t.sent)-1]
}

type snapshotCall struct {
	root    string
	entries []VersionEntry
	hasMore bool
}

type highlightCall struct {
	date  time.Time
	entry VersionEntry
	found bool
}

type failureCall struct {
	root string
	err  error
}

type recordingConsumer struct {
	snapshots  []snapshotCall
	highlights []highlightCall
	failures   []failureCall
}

func (c *recordingConsumer) OnSnapshotUpdated(root string, entries []VersionEntry, hasMore bool) {
	c.snapshots = append(c.snapshots, snapshotCall{root, entries, hasMore})
}

func (c *recordingConsumer) OnHighlight(date time.Time, entry VersionEntry, found bool) {
	c.highlights = append(c.highlights, highlightCall{date, entry, found})
}

func (c *recordingConsumer) OnRetrievalFailed(root string, err error) {
	c.failures = append(c.failures, failureCall{root, err})
}

func (c *recordingConsumer) lastSnapshot() snapshotCall {
	return c.snapshots[len(c.snapshots)-1]
}

var baseDate = time.Date(2014, 3, 1, 12, 0, 0, 0, time.UTC)

// versions returns n versions with dates counting down from offset, newest first.
func versions(offset, n int) []VersionEntry {
	out := make([]VersionEntry, n)
	for i := range n {
		out[i] = VersionEntry{
			Date:       baseDate.Add(-time.Duration(offset+i) * time.Minute),
			Client:     "laptop",
			HasChanges: true,
			Files:      []FileChange{{Path: fmt.Sprintf("file-%d.txt", offset+i), Kind: ChangeChanged}},
		}
	}
	return out
}

func newTestRetriever(t *testing.T) (*Retriever, *fakeTransport, *recordingConsumer) {
	t.Helper()
	transport := &fakeTransport{}
	consumer := &recordingConsumer{}
	r, err := NewRetriever(DefaultWindow(), transport, consumer)
	require.NoError(t, err)

	seq := 0
	r.newID = func() string {
		seq++
		return fmt.Sprintf("req-%d", seq)
	}
	return r, transport, consumer
}

func TestNewRetriever_Validation(t *testing.T) {
	_, err := NewRetriever(Window{MaxVersions: 0, MaxFilesPerVersion: 10}, &fakeTransport{}, nil)
	assert.ErrorIs(t, err, ErrInvalidWindow)

	_, err = NewRetriever(DefaultWindow(), nil, nil)
	assert.Error(t, err)

	r, err := NewRetriever(DefaultWindow(), &fakeTransport{}, nil)
	require.NoError(t, err)
	assert.Empty(t, r.Root())
}

func TestRequestPage_Arguments(t *testing.T) {
	r, transport, _ := newTestRetriever(t)
	ctx := context.Background()

	_, err := r.RequestPage(ctx, "", 0)
	assert.ErrorIs(t, err, ErrNoRoot)

	_, err = r.RequestPage(ctx, "/photos", -1)
	assert.ErrorIs(t, err, ErrNegativeStart)

	assert.Empty(t, transport.sent)
}

func TestRequestPage_UsesWindow(t *testing.T) {
	r, transport, _ := newTestRetriever(t)

	sent, err := r.RequestPage(context.Background(), "/photos", 0)
	require.NoError(t, err)
	assert.True(t, sent)

	require.Len(t, transport.sent, 1)
	req := transport.sent[0]
	assert.Equal(t, "req-1", req.CorrelationID)
	assert.Equal(t, "/photos", req.Root)
	assert.Equal(t, 0, req.StartIndex)
	assert.Equal(t, DefaultMaxVersions, req.MaxVersions)
	assert.Equal(t, DefaultMaxFilesPerVersion, req.MaxFilesPerVersion)

	pending, ok := r.Pending()
	assert.True(t, ok)
	assert.Equal(t, req, pending)
}

func TestRequestPage_AtMostOnePending(t *testing.T) {
	r, transport, _ := newTestRetriever(t)
	ctx := context.Background()

	_, err := r.RequestPage(ctx, "/photos", 0)
	require.NoError(t, err)

	// duplicate on the same root
	sent, err := r.RequestPage(ctx, "/photos", 0)
	require.NoError(t, err)
	assert.False(t, sent)

	// another root must go through SwitchRoot
	sent, err = r.RequestPage(ctx, "/docs", 0)
	require.NoError(t, err)
	assert.False(t, sent)

	assert.Len(t, transport.sent, 1)
	assert.Equal(t, "/photos", r.Root())
}

func TestOnResponse_SecondPageCompletesHistory(t *testing.T) {
	r, transport, consumer := newTestRetriever(t)
	ctx := context.Background()

	_, err := r.RequestPage(ctx, "/photos", 0)
	require.NoError(t, err)
	require.True(t, r.OnResponse(LogWindowResponse{
		RequestCorrelationID: transport.last().CorrelationID,
		Versions:             versions(0, 15),
	}))

	first := consumer.lastSnapshot()
	assert.Len(t, first.entries, 15)
	assert.True(t, first.hasMore)
	assert.Equal(t, 15, r.NextIndex())

	sent, err := r.LoadMore(ctx)
	require.NoError(t, err)
	require.True(t, sent)
	assert.Equal(t, 15, transport.last().StartIndex)

	require.True(t, r.OnResponse(LogWindowResponse{
		RequestCorrelationID: transport.last().CorrelationID,
		Versions:             versions(15, 3),
	}))

	second := consumer.lastSnapshot()
	assert.Len(t, second.entries, 18)
	assert.False(t, second.hasMore)
	assert.False(t, r.HasMore())

	for i := 1; i < len(second.entries); i++ {
		assert.True(t, second.entries[i-1].Date.After(second.entries[i].Date), "snapshot must be newest first")
	}
	assert.Equal(t, 17, second.entries[17].Index)

	// nothing left to load
	sent, err = r.LoadMore(ctx)
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Len(t, transport.sent, 2)
}

func TestOnResponse_StaleAfterSwitchRoot(t *testing.T) {
	r, transport, consumer := newTestRetriever(t)
	ctx := context.Background()

	_, err := r.RequestPage(ctx, "A", 0)
	require.NoError(t, err)
	staleID := transport.last().CorrelationID

	require.NoError(t, r.SwitchRoot(ctx, "B"))
	freshID := transport.last().CorrelationID
	assert.NotEqual(t, staleID, freshID)
	assert.Equal(t, "B", transport.last().Root)

	assert.False(t, r.OnResponse(LogWindowResponse{RequestCorrelationID: staleID, Versions: versions(0, 4)}))
	assert.Empty(t, consumer.snapshots)
	assert.Zero(t, r.Len())

	assert.True(t, r.OnResponse(LogWindowResponse{RequestCorrelationID: freshID, Versions: versions(100, 2)}))
	snap := consumer.lastSnapshot()
	assert.Equal(t, "B", snap.root)
	assert.Len(t, snap.entries, 2)
}

func TestOnResponse_UnknownIDWhileIdle(t *testing.T) {
	r, _, consumer := newTestRetriever(t)

	assert.False(t, r.OnResponse(LogWindowResponse{RequestCorrelationID: "nobody", Versions: versions(0, 1)}))
	assert.Empty(t, consumer.snapshots)
}

func TestOnResponse_ForeignIDLeavesLoadedViewUntouched(t *testing.T) {
	r, transport, consumer := newTestRetriever(t)
	ctx := context.Background()

	_, err := r.RequestPage(ctx, "/photos", 0)
	require.NoError(t, err)
	require.True(t, r.OnResponse(LogWindowResponse{RequestCorrelationID: transport.last().CorrelationID, Versions: versions(0, 15)}))
	require.True(t, r.HasMore())

	sent, err := r.LoadMore(ctx)
	require.NoError(t, err)
	require.True(t, sent)
	pending, ok := r.Pending()
	require.True(t, ok)
	snapshots := len(consumer.snapshots)

	// a full page under someone else's id, including a page-0 window
	assert.False(t, r.OnResponse(LogWindowResponse{RequestCorrelationID: "req-foreign", Versions: versions(100, 3)}))

	assert.Equal(t, 15, r.Len())
	assert.True(t, r.HasMore())
	assert.Equal(t, 15, r.NextIndex())
	still, ok := r.Pending()
	assert.True(t, ok)
	assert.Equal(t, pending, still)
	assert.Len(t, consumer.snapshots, snapshots)
	_, found := r.FindByDate(versions(100, 1)[0].Date)
	assert.False(t, found)
}

func TestOnResponse_SkipsVersionsWithoutChanges(t *testing.T) {
	r, transport, consumer := newTestRetriever(t)
	ctx := context.Background()

	page := versions(0, 15)
	for i := 0; i < 5; i++ {
		page[i*3].HasChanges = false
	}

	_, err := r.RequestPage(ctx, "/photos", 0)
	require.NoError(t, err)
	require.True(t, r.OnResponse(LogWindowResponse{RequestCorrelationID: transport.last().CorrelationID, Versions: page}))

	snap := consumer.lastSnapshot()
	assert.Len(t, snap.entries, 10)
	// hidden versions still count toward the window
	assert.True(t, snap.hasMore)
	assert.Equal(t, 15, r.NextIndex())

	_, found := r.FindByDate(page[0].Date)
	assert.False(t, found)
	entry, found := r.FindByDate(page[1].Date)
	assert.True(t, found)
	assert.Equal(t, 1, entry.Index)
}

func TestOnResponse_EmptyPageEndsPagination(t *testing.T) {
	r, transport, consumer := newTestRetriever(t)
	ctx := context.Background()

	_, err := r.RequestPage(ctx, "/photos", 0)
	require.NoError(t, err)
	require.True(t, r.OnResponse(LogWindowResponse{RequestCorrelationID: transport.last().CorrelationID, Versions: versions(0, 15)}))

	_, err = r.LoadMore(ctx)
	require.NoError(t, err)
	require.True(t, r.OnResponse(LogWindowResponse{RequestCorrelationID: transport.last().CorrelationID}))

	snap := consumer.lastSnapshot()
	assert.Len(t, snap.entries, 15)
	assert.False(t, snap.hasMore)

	_, ok := r.Pending()
	assert.False(t, ok)
}

func TestOnResponse_PageZeroReplacesView(t *testing.T) {
	r, transport, consumer := newTestRetriever(t)
	ctx := context.Background()

	_, err := r.RequestPage(ctx, "/photos", 0)
	require.NoError(t, err)
	require.True(t, r.OnResponse(LogWindowResponse{RequestCorrelationID: transport.last().CorrelationID, Versions: versions(0, 5)}))

	_, err = r.RequestPage(ctx, "/photos", 0)
	require.NoError(t, err)
	require.True(t, r.OnResponse(LogWindowResponse{RequestCorrelationID: transport.last().CorrelationID, Versions: versions(50, 2)}))

	snap := consumer.lastSnapshot()
	require.Len(t, snap.entries, 2)
	assert.Equal(t, baseDate.Add(-50*time.Minute), snap.entries[0].Date)
}

func TestOnResponse_SameDateOverwrites(t *testing.T) {
	r, transport, consumer := newTestRetriever(t)
	ctx := context.Background()

	first := versions(0, 15)
	_, err := r.RequestPage(ctx, "/photos", 0)
	require.NoError(t, err)
	require.True(t, r.OnResponse(LogWindowResponse{RequestCorrelationID: transport.last().CorrelationID, Versions: first}))

	// the history shifted by one; the overlapping date is replaced
	overlap := first[14]
	overlap.Client = "desktop"
	_, err = r.LoadMore(ctx)
	require.NoError(t, err)
	require.True(t, r.OnResponse(LogWindowResponse{
		RequestCorrelationID: transport.last().CorrelationID,
		Versions:             append([]VersionEntry{overlap}, versions(15, 2)...),
	}))

	snap := consumer.lastSnapshot()
	assert.Len(t, snap.entries, 17)
	entry, found := r.FindByDate(overlap.Date)
	require.True(t, found)
	assert.Equal(t, "desktop", entry.Client)
	assert.Equal(t, 15, entry.Index)
}

func TestOnFailure(t *testing.T) {
	r, transport, consumer := newTestRetriever(t)
	ctx := context.Background()
	boom := errors.New("daemon unreachable")

	_, err := r.RequestPage(ctx, "/photos", 0)
	require.NoError(t, err)
	id := transport.last().CorrelationID

	assert.False(t, r.OnFailure("other", boom))
	assert.Empty(t, consumer.failures)

	assert.True(t, r.OnFailure(id, boom))
	require.Len(t, consumer.failures, 1)
	assert.Equal(t, "/photos", consumer.failures[0].root)
	assert.ErrorIs(t, consumer.failures[0].err, ErrRetrievalFailed)
	assert.ErrorIs(t, consumer.failures[0].err, boom)
	assert.Empty(t, consumer.snapshots)

	_, ok := r.Pending()
	assert.False(t, ok)

	// a late response for the failed request is stale
	assert.False(t, r.OnResponse(LogWindowResponse{RequestCorrelationID: id, Versions: versions(0, 1)}))

	// and a retry is accepted
	sent, err := r.RequestPage(ctx, "/photos", 0)
	require.NoError(t, err)
	assert.True(t, sent)
}

func TestRequestPage_SendFailure(t *testing.T) {
	r, transport, consumer := newTestRetriever(t)
	transport.err = errors.New("connection refused")

	sent, err := r.RequestPage(context.Background(), "/photos", 0)
	assert.False(t, sent)
	assert.ErrorIs(t, err, ErrRetrievalFailed)

	require.Len(t, consumer.failures, 1)
	_, ok := r.Pending()
	assert.False(t, ok)
}

func TestSwitchRoot_ClearsView(t *testing.T) {
	r, transport, consumer := newTestRetriever(t)
	ctx := context.Background()

	_, err := r.RequestPage(ctx, "A", 0)
	require.NoError(t, err)
	require.True(t, r.OnResponse(LogWindowResponse{RequestCorrelationID: transport.last().CorrelationID, Versions: versions(0, 15)}))
	require.True(t, r.HasMore())

	require.NoError(t, r.SwitchRoot(ctx, "B"))
	assert.Zero(t, r.Len())
	assert.False(t, r.HasMore())
	assert.Equal(t, 0, transport.last().StartIndex)
	assert.Len(t, consumer.snapshots, 1)

	assert.ErrorIs(t, r.SwitchRoot(ctx, ""), ErrNoRoot)
}

func TestHighlight(t *testing.T) {
	r, transport, consumer := newTestRetriever(t)
	ctx := context.Background()
	page := versions(0, 3)

	r.Highlight(page[1].Date)
	require.Len(t, consumer.highlights, 1)
	assert.False(t, consumer.highlights[0].found)

	_, err := r.RequestPage(ctx, "/photos", 0)
	require.NoError(t, err)
	require.True(t, r.OnResponse(LogWindowResponse{RequestCorrelationID: transport.last().CorrelationID, Versions: page}))

	// selection is re-applied once the snapshot arrives
	require.Len(t, consumer.highlights, 2)
	assert.True(t, consumer.highlights[1].found)
	assert.Equal(t, page[1].Date, consumer.highlights[1].entry.Date)
}

func TestFindByDate_NoRequest(t *testing.T) {
	r, transport, _ := newTestRetriever(t)

	_, found := r.FindByDate(baseDate)
	assert.False(t, found)
	_, found = r.FindByDate(time.Time{})
	assert.False(t, found)
	assert.Empty(t, transport.sent)
}

func TestFindByDate_DatesOutsideNanosecondRange(t *testing.T) {
	r, transport, _ := newTestRetriever(t)

	// 2^64ns apart: their nanosecond Unix times wrap to the same value
	early := time.Date(1600, 6, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(math.MaxInt64).Add(math.MaxInt64).Add(2)
	require.Equal(t, early.UnixNano(), late.UnixNano())
	_, err := r.RequestPage(context.Background(), "/photos", 0)
	require.NoError(t, err)
	require.True(t, r.OnResponse(LogWindowResponse{
		RequestCorrelationID: transport.last().CorrelationID,
		Versions: []VersionEntry{
			{Date: late, Client: "future", HasChanges: true},
			{Date: early, Client: "past", HasChanges: true},
		},
	}))

	assert.Equal(t, 2, r.Len())
	entry, found := r.FindByDate(early)
	require.True(t, found)
	assert.Equal(t, "past", entry.Client)
	entry, found = r.FindByDate(late.In(time.FixedZone("CEST", 2*60*60)))
	require.True(t, found)
	assert.Equal(t, "future", entry.Client)
}
