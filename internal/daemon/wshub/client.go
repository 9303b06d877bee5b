package wshub

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/syncany/syncany-go/internal/daemonmsg"
	"github.com/syncany/syncany-go/internal/wsproto"
)

const (
	writeTimeout   = 20 * time.Second
	shutdownReason = "shutdown"
	queueSize      = 64
)

// Client is one connected front-end.
type Client struct {
	ConnID string
	Info   *ClientInfo
	MsgRx  chan *daemonmsg.Message
	MsgTx  chan *daemonmsg.Message
	Closed chan struct{}

	conn      *websocket.Conn
	wsDone    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewClient(conn *websocket.Conn, info *ClientInfo) *Client {
	return &Client{
		ConnID: uuid.NewString()[:8],
		Info:   info,
		MsgRx:  make(chan *daemonmsg.Message, queueSize),
		MsgTx:  make(chan *daemonmsg.Message, queueSize),
		Closed: make(chan struct{}),
		wsDone: make(chan struct{}),
		conn:   conn,
	}
}

func (c *Client) Start(ctx context.Context) {
	slog.Debug("wsclient start", "connId", c.ConnID, "encoding", c.Info.WSEncoding)
	c.wg.Add(2)
	go c.writeLoop(ctx)
	go c.readLoop(ctx)
}

func (c *Client) Close() {
	c.closeConnection(websocket.StatusNormalClosure, shutdownReason)
}

// Send queues msg without blocking and reports whether it was queued.
func (c *Client) Send(msg *daemonmsg.Message) bool {
	select {
	case <-c.wsDone:
		return false
	case c.MsgTx <- msg:
		return true
	default:
		slog.Warn("wsclient send buffer full", "connId", c.ConnID, "msgType", msg.Type)
		return false
	}
}

func (c *Client) closeConnection(status websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		close(c.wsDone)
		c.conn.Close(status, reason)

		go func() {
			c.wg.Wait()
			close(c.MsgRx)
			close(c.Closed)
			slog.Debug("wsclient closed", "connId", c.ConnID)
		}()
	})
}

func (c *Client) readLoop(ctx context.Context) {
	defer func() {
		c.wg.Done()
		c.closeConnection(websocket.StatusNormalClosure, shutdownReason)
	}()

	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				// closed by either side
			} else if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure && status != websocket.StatusNoStatusRcvd && status != websocket.StatusGoingAway {
				slog.Warn("wsclient reader", "connId", c.ConnID, "error", err)
			}
			return
		}

		msg, _, err := wsproto.Unmarshal(typ, data)
		if err != nil {
			slog.Warn("wsclient decode", "connId", c.ConnID, "error", err)
			continue
		}

		select {
		case <-c.wsDone:
			return
		case c.MsgRx <- msg:
		default:
			slog.Warn("wsclient reader buffer full", "connId", c.ConnID, "msgId", msg.Id, "msgType", msg.Type)
		}
	}
}

func (c *Client) writeLoop(ctx context.Context) {
	defer func() {
		c.wg.Done()
		c.closeConnection(websocket.StatusNormalClosure, shutdownReason)
	}()

	for {
		select {
		case msg := <-c.MsgTx:
			typ, data, err := wsproto.Marshal(msg, c.Info.WSEncoding)
			if err != nil {
				slog.Error("wsclient encode", "connId", c.ConnID, "msgId", msg.Id, "msgType", msg.Type, "error", err)
				continue
			}

			ctxWrite, cancel := context.WithTimeout(ctx, writeTimeout)
			err = c.conn.Write(ctxWrite, typ, data)
			cancel()
			if err != nil {
				slog.Error("wsclient writer", "connId", c.ConnID, "msgId", msg.Id, "msgType", msg.Type, "error", err)
				return
			}
			slog.Debug("wsclient writer", "connId", c.ConnID, "msgId", msg.Id, "msgType", msg.Type)

		case <-c.wsDone:
			return

		case <-ctx.Done():
			return
		}
	}
}
