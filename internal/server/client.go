// Package server manages individual WebSocket connections: read/write
// pumps, per-connection throttling, and the lifecycle of the session
// attached to each socket.
package server

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pongWait      = 60 * time.Second
	pingInterval  = 54 * time.Second
	writeDeadline = 10 * time.Second
)

type connState int

const (
	stateUnidentified connState = iota
	stateActive
	stateClosed
)

// Client is the connection handler for one live WebSocket. It owns the
// socket and its outbound queue; it holds a back-reference to its session
// identifier and current room code but owns neither; the Session Registry
// and Room Store do.
type Client struct {
	conn    *websocket.Conn
	send    chan []byte
	hub     *Hub
	log     *slog.Logger
	addr    string
	limiter *rateLimiter

	// Owned by the readPump goroutine.
	state     connState
	sessionID string
	roomCode  string

	// Guarded by the hub's client mutex.
	closed bool
}

// NewClient wraps a WebSocket connection in a handler attached to hub. The
// outbound queue is bounded; events for a stalled consumer are dropped
// rather than buffered without limit.
func NewClient(conn *websocket.Conn, hub *Hub, addr string) *Client {
	cfg := hub.cfg
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	return &Client{
		conn:    conn,
		send:    make(chan []byte, cfg.SendQueueSize),
		hub:     hub,
		log:     hub.log.With("addr", addr),
		addr:    addr,
		limiter: newRateLimiter(cfg.RateLimitBurst, cfg.RateLimitRefillInterval),
	}
}

func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Error("setting initial read deadline", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}

// logReadError classifies the error that ended the read loop. Orderly
// closes and timeouts are routine; anything else is logged loudly.
func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("inbound frame exceeded read limit", "limit", c.hub.cfg.MaxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.log.Debug("client disconnected", "error", err)
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		c.log.Debug("connection closed", "error", err)
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig):
		c.log.Warn("unexpected websocket error", "error", err)
	default:
		c.log.Warn("websocket read error", "error", err)
	}
}

// readPump consumes inbound frames and dispatches them as commands. On
// return it runs the disconnect cleanup exactly once: closing the transport
// is the only cancellation signal this core has.
func (c *Client) readPump() {
	defer func() {
		c.hub.disconnect(c)
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
			// The lifecycle loop is gone; nobody drains unregister anymore.
		}
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Debug("closing connection after read loop", "error", err)
		}
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		if !c.limiter.allow() {
			c.log.Debug("rate limit exceeded, rejecting command")
			c.hub.deliverTo(c, errorEvent(msgRateLimited, codeRateLimited))
			continue
		}

		c.hub.handleCommand(c, raw)
	}
}

// writePump drains the outbound queue to the socket and keeps the
// connection alive with periodic pings. Writes happen only here, decoupled
// from the room-state critical sections feeding the queue.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Debug("closing connection after write loop", "error", err)
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
				c.log.Debug("setting write deadline", "error", err)
				return
			}
			if !ok {
				// The hub closed the queue; say goodbye.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// One frame per event: clients parse each frame as a
			// standalone JSON envelope.
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				if !isExpectedCloseError(err) {
					c.log.Debug("writing event frame", "error", err)
				}
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if !isExpectedCloseError(err) {
					c.log.Debug("writing ping", "error", err)
				}
				return
			}
		case <-c.hub.ctx.Done():
			return
		}
	}
}

// isExpectedCloseError reports whether an error is routine fallout from a
// connection being torn down.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "websocket: close sent") ||
		strings.Contains(msg, "broken pipe")
}
