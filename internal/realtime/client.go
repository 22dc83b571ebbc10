package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds how long a single frame write may take.
	writeWait = 10 * time.Second

	// pongWait is how long the connection may stay silent before the read
	// side gives up on it.
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait so a healthy peer always
	// answers in time.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize caps inbound frames. Join and leave requests are tiny.
	maxMessageSize = 1024

	// sendBufferSize is the per-connection outbound queue. A connection
	// that falls this far behind starts missing frames instead of
	// stalling fan-out.
	sendBufferSize = 64
)

// client is one accepted WebSocket connection. It runs two goroutines, a
// read pump feeding inbound frames to the hub and a write pump draining
// the send buffer, and acts as the registry sink for its own connection.
type client struct {
	id       ConnID
	identity uuid.UUID
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	logger   *slog.Logger

	// ctx ends when the client is torn down. The send channel is never
	// closed, so Push can always attempt a buffered send safely.
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn, identity uuid.UUID) *client {
	ctx, cancel := context.WithCancel(context.Background())
	id := ConnID(uuid.New().String())
	return &client{
		id:       id,
		identity: identity,
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		logger: hub.logger.With(
			slog.String("conn_id", string(id)),
			slog.String("user_id", identity.String())),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Push implements Sink. It never blocks: a frame that does not fit in the
// send buffer, or arrives after teardown began, is dropped and Push
// reports false.
func (c *client) Push(frame []byte) bool {
	if c.ctx.Err() != nil {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// close begins teardown. Safe to call from any goroutine, any number of
// times; the write pump notices the canceled context and closes the
// underlying socket, which in turn unblocks the read pump.
func (c *client) close() {
	c.closeOnce.Do(c.cancel)
}

// readPump relays inbound frames to the hub until the connection dies.
// Frames are processed one at a time in arrival order, so a connection's
// join and leave requests take effect in the order it sent them.
func (c *client) readPump() {
	defer c.hub.dropClient(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("connection closed unexpectedly", slog.String("error", err.Error()))
			}
			return
		}
		c.hub.handleMessage(c.ctx, c, data)
	}
}

// writePump drains the send buffer onto the socket and keeps the
// connection alive with periodic pings. It owns all writes; nothing else
// may touch the socket's write side.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-c.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
