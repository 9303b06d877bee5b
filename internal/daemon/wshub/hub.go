// Package wshub keeps the event sockets of connected front-ends. Incoming
// messages are funnelled into one channel; replies go back by connection id.
package wshub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/syncany/syncany-go/internal/daemonmsg"
	"github.com/syncany/syncany-go/internal/metrics"
	"github.com/syncany/syncany-go/internal/version"
	"github.com/syncany/syncany-go/internal/wsproto"
)

const (
	maxMessageSize = 4 * 1024 * 1024
	HeaderVersion  = "X-Syncany-Version"
)

type Hub struct {
	clients  map[string]*Client
	register chan *Client
	msgs     chan *ClientMessage
	done     chan struct{}
	stopOnce sync.Once

	wg sync.WaitGroup
	mu sync.RWMutex
}

func New() *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		register: make(chan *Client),
		msgs:     make(chan *ClientMessage, 256),
		done:     make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	slog.Info("wshub started")
	defer slog.Info("wshub stopped")
	defer h.stopOnce.Do(func() { close(h.done) })

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ConnID] = client
			active := len(h.clients)
			h.mu.Unlock()
			metrics.ConnectedFrontends.Set(float64(active))
			slog.Debug("wshub registered", "connId", client.ConnID, "ip", client.Info.IPAddr, "active", active)

			h.wg.Add(1)
			client.Start(ctx)
			go h.handleClientMessages(client)
			go func() {
				<-client.Closed

				h.mu.Lock()
				delete(h.clients, client.ConnID)
				active := len(h.clients)
				h.mu.Unlock()
				metrics.ConnectedFrontends.Set(float64(active))
				slog.Debug("wshub removed", "connId", client.ConnID, "active", active)
				h.wg.Done()
			}()

		case <-h.done:
			return

		case <-ctx.Done():
			return
		}
	}
}

// Messages yields every message received from any client.
func (h *Hub) Messages() <-chan *ClientMessage {
	return h.msgs
}

// Shutdown closes every client and waits for them to be removed.
func (h *Hub) Shutdown() {
	h.stopOnce.Do(func() { close(h.done) })

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Close()
	}
	h.wg.Wait()
	slog.Info("wshub shutdown")
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Handler upgrades the request to a websocket and registers the client.
func (h *Hub) Handler(ctx *gin.Context) {
	enc := wsproto.PreferredEncoding(ctx.GetHeader(wsproto.HeaderEncodings))
	ctx.Writer.Header().Set(wsproto.HeaderEncoding, enc.String())

	conn, err := websocket.Accept(ctx.Writer, ctx.Request, nil)
	if err != nil {
		slog.Warn("wshub accept", "ip", ctx.ClientIP(), "error", err)
		ctx.Error(fmt.Errorf("websocket accept failed: %w", err))
		return
	}
	conn.SetReadLimit(maxMessageSize)

	client := NewClient(conn, &ClientInfo{
		IPAddr:     ctx.ClientIP(),
		Headers:    ctx.Request.Header.Clone(),
		Version:    ctx.GetHeader(HeaderVersion),
		WSEncoding: enc,
	})
	client.MsgTx <- daemonmsg.NewSystemMessage(version.Version, "ok")

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close(websocket.StatusGoingAway, shutdownReason)
	}
}

// SendMessage queues msg for one client.
func (h *Hub) SendMessage(connID string, msg *daemonmsg.Message) bool {
	h.mu.RLock()
	client, ok := h.clients[connID]
	h.mu.RUnlock()

	if !ok {
		slog.Debug("wshub client gone", "connId", connID, "msgType", msg.Type, "msgId", msg.Id)
		return false
	}
	return client.Send(msg)
}

// Broadcast queues msg for every client and returns how many accepted it.
func (h *Hub) Broadcast(msg *daemonmsg.Message) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for _, client := range h.clients {
		if client.Send(msg) {
			sent++
		}
	}
	return sent
}

func (h *Hub) handleClientMessages(client *Client) {
	for {
		select {
		case <-client.Closed:
			return
		case msg, ok := <-client.MsgRx:
			if !ok {
				return
			}
			select {
			case h.msgs <- &ClientMessage{ConnID: client.ConnID, ClientInfo: client.Info, Message: msg}:
			case <-h.done:
				return
			}
		}
	}
}
