package history

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const updatesBufferSize = 16

type SessionOption func(*Session)

// WithTimeout fails a pending request that has not been answered within d.
func WithTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		s.timeout = d
	}
}

// WithIDGenerator replaces the uuid correlation id source.
func WithIDGenerator(fn func() string) SessionOption {
	return func(s *Session) {
		s.newID = fn
	}
}

// Session runs a Retriever on its own goroutine. Transport callbacks and
// front-end calls are posted to the loop; updates come out of Updates().
type Session struct {
	retriever *Retriever
	inbox     chan func()
	updates   chan Update
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	timeout time.Duration
	newID   func() string
	timer   *time.Timer
}

func NewSession(window Window, transport Transport, opts ...SessionOption) (*Session, error) {
	s := &Session{
		inbox:   make(chan func()),
		updates: make(chan Update, updatesBufferSize),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	r, err := NewRetriever(window, transport, &channelConsumer{s: s})
	if err != nil {
		return nil, err
	}
	if s.newID != nil {
		r.newID = s.newID
	}
	s.retriever = r

	s.wg.Add(1)
	go s.loop()
	return s, nil
}

func (s *Session) loop() {
	defer s.wg.Done()
	defer close(s.updates)
	for {
		select {
		case <-s.done:
			s.stopTimer()
			return
		case fn := <-s.inbox:
			fn()
		}
	}
}

// Updates returns the notification channel. It is closed by Close.
func (s *Session) Updates() <-chan Update {
	return s.updates
}

// Close stops the loop. Pending requests are abandoned.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
}

// do runs fn on the loop goroutine and waits for it.
func (s *Session) do(fn func()) error {
	finished := make(chan struct{})
	select {
	case <-s.done:
		return ErrSessionClosed
	case s.inbox <- func() { fn(); close(finished) }:
	}
	<-finished
	return nil
}

// post queues fn on the loop without waiting.
func (s *Session) post(fn func()) {
	go func() {
		select {
		case <-s.done:
		case s.inbox <- fn:
		}
	}()
}

func (s *Session) RequestPage(ctx context.Context, root string, startIndex int) (bool, error) {
	var (
		sent bool
		err  error
	)
	if doErr := s.do(func() {
		sent, err = s.retriever.RequestPage(ctx, root, startIndex)
		s.armTimer(sent)
	}); doErr != nil {
		return false, doErr
	}
	return sent, err
}

func (s *Session) LoadMore(ctx context.Context) (bool, error) {
	var (
		sent bool
		err  error
	)
	if doErr := s.do(func() {
		sent, err = s.retriever.LoadMore(ctx)
		s.armTimer(sent)
	}); doErr != nil {
		return false, doErr
	}
	return sent, err
}

func (s *Session) SwitchRoot(ctx context.Context, root string) error {
	var err error
	if doErr := s.do(func() {
		s.stopTimer()
		err = s.retriever.SwitchRoot(ctx, root)
		_, pending := s.retriever.Pending()
		s.armTimer(pending)
	}); doErr != nil {
		return doErr
	}
	return err
}

// Refresh reloads the first window of the current root.
func (s *Session) Refresh(ctx context.Context) (bool, error) {
	var (
		sent bool
		err  error
	)
	if doErr := s.do(func() {
		root := s.retriever.Root()
		if root == "" {
			err = ErrNoRoot
			return
		}
		sent, err = s.retriever.RequestPage(ctx, root, 0)
		s.armTimer(sent)
	}); doErr != nil {
		return false, doErr
	}
	return sent, err
}

func (s *Session) Highlight(date time.Time) error {
	return s.do(func() {
		s.retriever.Highlight(date)
	})
}

func (s *Session) FindByDate(date time.Time) (VersionEntry, bool, error) {
	var (
		entry VersionEntry
		found bool
	)
	err := s.do(func() {
		entry, found = s.retriever.FindByDate(date)
	})
	return entry, found, err
}

func (s *Session) Snapshot() ([]VersionEntry, bool, error) {
	var (
		entries []VersionEntry
		hasMore bool
	)
	err := s.do(func() {
		entries = s.retriever.Snapshot()
		hasMore = s.retriever.HasMore()
	})
	return entries, hasMore, err
}

// Deliver hands a response to the loop. Safe to call from any goroutine.
func (s *Session) Deliver(resp LogWindowResponse) {
	s.post(func() {
		if s.retriever.OnResponse(resp) {
			s.stopTimer()
		}
	})
}

// Fail reports a failed request to the loop. Safe to call from any goroutine.
func (s *Session) Fail(correlationID string, err error) {
	s.post(func() {
		if s.retriever.OnFailure(correlationID, err) {
			s.stopTimer()
		}
	})
}

// armTimer must run on the loop.
func (s *Session) armTimer(sent bool) {
	if !sent || s.timeout <= 0 {
		return
	}
	req, ok := s.retriever.Pending()
	if !ok {
		return
	}
	s.stopTimer()
	id := req.CorrelationID
	s.timer = time.AfterFunc(s.timeout, func() {
		slog.Debug("history request timeout", "id", id, "timeout", s.timeout)
		s.Fail(id, ErrRequestTimeout)
	})
}

func (s *Session) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// emit runs on the loop; a slow reader blocks the loop until Close.
func (s *Session) emit(u Update) {
	select {
	case s.updates <- u:
	case <-s.done:
	}
}

type channelConsumer struct {
	s *Session
}

func (c *channelConsumer) OnSnapshotUpdated(root string, entries []VersionEntry, hasMore bool) {
	c.s.emit(Update{Kind: UpdateSnapshot, Root: root, Entries: entries, HasMore: hasMore})
}

func (c *channelConsumer) OnHighlight(date time.Time, entry VersionEntry, found bool) {
	c.s.emit(Update{Kind: UpdateHighlight, Date: date, Entry: entry, Found: found})
}

func (c *channelConsumer) OnRetrievalFailed(root string, err error) {
	c.s.emit(Update{Kind: UpdateFailed, Root: root, Err: err})
}
