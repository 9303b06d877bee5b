package daemonsdk

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/syncany/syncany-go/internal/daemonmsg"
	"github.com/syncany/syncany-go/internal/wsproto"
)

const (
	wsClientChannelSize  = 256
	wsClientPingPeriod   = 15 * time.Second
	wsClientPingTimeout  = 5 * time.Second
	wsClientWriteTimeout = 5 * time.Second
)

// wsClient is one socket connection to the daemon.
type wsClient struct {
	conn      *websocket.Conn
	msgRx     chan *daemonmsg.Message // received from the daemon
	msgTx     chan *daemonmsg.Message // queued for the daemon
	closed    chan struct{}           // both loops are done
	closing   chan struct{}           // shutdown started
	encoding  wsproto.Encoding
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func newWSClient(conn *websocket.Conn, enc wsproto.Encoding) *wsClient {
	return &wsClient{
		conn:     conn,
		msgRx:    make(chan *daemonmsg.Message, wsClientChannelSize),
		msgTx:    make(chan *daemonmsg.Message, wsClientChannelSize),
		closed:   make(chan struct{}),
		closing:  make(chan struct{}),
		encoding: enc,
	}
}

func (c *wsClient) Start(ctx context.Context) {
	c.wg.Add(2)
	go c.writeLoop(ctx)
	go c.readLoop(ctx)
}

func (c *wsClient) Close() {
	c.closeConnection(websocket.StatusNormalClosure, "shutdown")
	c.wg.Wait()
}

// closeConnection leaves msgTx open; Send may still race with shutdown and
// selects on closing instead.
func (c *wsClient) closeConnection(status websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		close(c.closing)
		c.conn.Close(status, reason)

		c.wg.Wait()

		close(c.closed)
		close(c.msgRx)
	})
}

func (c *wsClient) readLoop(ctx context.Context) {
	defer func() {
		slog.Debug("events reader shutdown")
		c.wg.Done()
		c.closeConnection(websocket.StatusNormalClosure, "shutdown")
	}()

	for {
		typ, raw, err := c.conn.Read(ctx)
		if err != nil {
			if !isWSExpectedCloseError(err) {
				slog.Warn("events RECV", "error", err)
			}
			return
		}

		msg, _, err := wsproto.Unmarshal(typ, raw)
		if err != nil {
			slog.Warn("events RECV decode", "error", err)
			continue
		}

		select {
		case <-c.closing:
			return
		case c.msgRx <- msg:
		default:
			slog.Warn("events RECV buffer full", "id", msg.Id, "type", msg.Type)
		}
	}
}

func (c *wsClient) writeLoop(ctx context.Context) {
	pingTicker := time.NewTicker(wsClientPingPeriod)
	defer func() {
		slog.Debug("events writer shutdown")
		pingTicker.Stop()
		c.wg.Done()
		c.closeConnection(websocket.StatusNormalClosure, "shutdown")
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case <-c.closing:
			return

		case msg := <-c.msgTx:
			ctxWrite, cancel := context.WithTimeout(ctx, wsClientWriteTimeout)
			typ, payload, err := wsproto.Marshal(msg, c.encoding)
			if err == nil {
				err = c.conn.Write(ctxWrite, typ, payload)
			}
			cancel()

			if err != nil {
				slog.Error("events SEND", "id", msg.Id, "error", err)
				return
			}

		case <-pingTicker.C:
			ctxPing, cancel := context.WithTimeout(ctx, wsClientPingTimeout)
			err := c.conn.Ping(ctxPing)
			cancel()

			if err != nil {
				slog.Error("events PING", "error", err)
				return
			}
		}
	}
}

func isWSExpectedCloseError(err error) bool {
	if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
		return true
	}

	return errors.Is(err, io.EOF) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, net.ErrClosed)
}
