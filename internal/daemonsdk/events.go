package daemonsdk

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/syncany/syncany-go/internal/daemonmsg"
	"github.com/syncany/syncany-go/internal/wsproto"
)

const (
	eventsBufferSize        = 64
	eventsReconnectDelay    = 1 * time.Second
	eventsMaxReconnectDelay = 8 * time.Second
	eventsReconnectTimeout  = 10 * time.Second
	wsClientMaxMessageSize  = 4 * 1024 * 1024 // 4MB
	eventsPath              = "/v1/events"
)

// EventsAPI keeps a socket to the daemon open and reconnects when it drops.
// Received messages from every connection are funnelled into one channel.
type EventsAPI struct {
	baseURL   string
	headers   http.Header
	encodings string
	messages  chan *daemonmsg.Message
	ctx       context.Context
	cancel    context.CancelFunc

	mu     sync.RWMutex
	conn   *wsClient
	closed bool
}

func newEventsAPI(baseURL string, headers http.Header) *EventsAPI {
	ctx, cancel := context.WithCancel(context.Background())

	return &EventsAPI{
		baseURL:   baseURL,
		headers:   headers,
		encodings: "msgpack,json",
		messages:  make(chan *daemonmsg.Message, eventsBufferSize),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// SetEncodings overrides the encoding preference sent on the next dial,
// e.g. "json" to force text frames.
func (e *EventsAPI) SetEncodings(list string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.encodings = list
}

// Connect dials the events socket. Later drops are redialled in the background
// until Close.
func (e *EventsAPI) Connect(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEventsClosed
	}
	if e.conn != nil {
		return nil
	}

	conn, err := e.dial(ctx, e.encodings)
	if err != nil {
		return fmt.Errorf("sdk: events: connect failed: %w", err)
	}
	e.conn = conn

	go e.pump(conn)
	return nil
}

func (e *EventsAPI) IsConnected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.conn != nil
}

// Get returns the channel of messages received from the daemon.
func (e *EventsAPI) Get() <-chan *daemonmsg.Message {
	return e.messages
}

// Send queues msg on the socket without waiting for it to be written.
func (e *EventsAPI) Send(msg *daemonmsg.Message) error {
	e.mu.RLock()
	conn := e.conn
	e.mu.RUnlock()

	if conn == nil {
		return ErrEventsNotConnected
	}

	select {
	case conn.msgTx <- msg:
		slog.Debug("events tx", "id", msg.Id, "type", msg.Type)
		return nil
	case <-conn.closing:
		return ErrEventsNotConnected
	default:
		return ErrEventsMessageQueueFull
	}
}

// Close terminates the socket and stops redialling.
func (e *EventsAPI) Close() {
	e.mu.Lock()
	conn := e.conn
	e.conn = nil
	e.closed = true
	e.mu.Unlock()

	e.cancel()
	if conn != nil {
		conn.Close()
	}
	slog.Info("events closed")
}

func (e *EventsAPI) dial(ctx context.Context, encodings string) (*wsClient, error) {
	url, err := e.fullURL()
	if err != nil {
		return nil, err
	}

	headers := e.headers.Clone()
	if headers == nil {
		headers = http.Header{}
	}
	headers.Set(wsproto.HeaderEncodings, encodings)

	ws, resp, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: headers})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	ws.SetReadLimit(wsClientMaxMessageSize)

	enc := wsproto.EncodingJSON
	if resp != nil {
		enc = wsproto.PreferredEncoding(resp.Header.Get(wsproto.HeaderEncoding))
	}

	conn := newWSClient(ws, enc)
	conn.Start(e.ctx)
	slog.Info("events connected", "url", url, "encoding", enc)
	return conn, nil
}

// pump forwards messages of conn until it closes, then redials.
func (e *EventsAPI) pump(conn *wsClient) {
	for {
		for msg := range conn.msgRx {
			select {
			case e.messages <- msg:
				slog.Debug("events rx", "id", msg.Id, "type", msg.Type)
			default:
				slog.Warn("events rx buffer full, dropped", "id", msg.Id, "type", msg.Type)
			}
		}

		e.mu.Lock()
		if e.conn == conn {
			e.conn = nil
		}
		e.mu.Unlock()

		if e.ctx.Err() != nil {
			return
		}
		slog.Info("events disconnected, redialling")

		next := e.redial()
		if next == nil {
			return
		}
		conn = next
	}
}

// redial retries with a doubling, jittered delay until it connects or the
// API is closed.
func (e *EventsAPI) redial() *wsClient {
	delay := eventsReconnectDelay

	for attempt := 1; ; attempt++ {
		select {
		case <-e.ctx.Done():
			return nil
		case <-time.After(delay):
		}

		e.mu.RLock()
		encodings := e.encodings
		e.mu.RUnlock()

		ctx, cancel := context.WithTimeout(e.ctx, eventsReconnectTimeout)
		conn, err := e.dial(ctx, encodings)
		cancel()

		if err == nil {
			e.mu.Lock()
			if e.closed {
				e.mu.Unlock()
				conn.Close()
				return nil
			}
			e.conn = conn
			e.mu.Unlock()
			return conn
		}
		slog.Info("events redial failed", "attempt", attempt, "delay", delay, "error", err)

		// jitter keeps several front-ends from redialling in lockstep
		delay = min(delay*2, eventsMaxReconnectDelay)
		delay = time.Duration(float64(delay) * (0.75 + rand.Float64()*0.5))
	}
}

func (e *EventsAPI) fullURL() (string, error) {
	u, err := url.JoinPath(e.baseURL, eventsPath)
	if err != nil {
		return "", fmt.Errorf("sdk: events: bad url: %w", err)
	}
	return toWebsocketURL(u), nil
}

func toWebsocketURL(u string) string {
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	default:
		return u
	}
}
