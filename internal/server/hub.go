// Package server coordinates client registration, event delivery, and
// connection cleanup via the Hub type.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// Hub owns the shared services of the coordinator, the Room Store and the
// Session Registry, and tracks every live client for graceful shutdown.
// It is constructed once at process start and injected into the HTTP
// handlers; there is no ambient global instance.
type Hub struct {
	cfg      Config
	log      *slog.Logger
	store    *RoomStore
	sessions *SessionRegistry
	validate *validator.Validate
	origins  *originPolicy

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates a Hub ready to manage connections under the given
// configuration.
func NewHub(cfg Config, log *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		cfg:        cfg,
		log:        log,
		store:      NewRoomStore(),
		sessions:   NewSessionRegistry(),
		validate:   validator.New(),
		origins:    newOriginPolicy(cfg.AllowedOrigins, log),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Store exposes the room store, primarily for tests.
func (h *Hub) Store() *RoomStore { return h.store }

// Sessions exposes the session registry, primarily for tests.
func (h *Hub) Sessions() *SessionRegistry { return h.sessions }

// Run is the hub's lifecycle loop, handling client registration and
// unregistration until Shutdown cancels it. Call it in its own goroutine.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.closeAllClients()
			return

		case c := <-h.register:
			if c == nil {
				h.log.Warn("nil client registration, skipping")
				continue
			}

			h.mu.Lock()
			c.closed = false
			h.clients[c] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.log.Info("client registered", "addr", c.addr, "clients", count)

			h.wg.Add(2)
			go func() {
				defer h.wg.Done()
				c.writePump()
			}()
			go func() {
				defer h.wg.Done()
				c.readPump()
			}()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.closed = true
				count := len(h.clients)
				h.mu.Unlock()
				// Close the queue after releasing the lock.
				close(c.send)
				h.log.Info("client unregistered", "addr", c.addr, "clients", count)
			} else {
				h.mu.Unlock()
			}
		}
	}
}

// deliver routes an event to the live connection bound to sessionID. A
// missing, closed, or saturated peer means the event is dropped: delivery
// is at-most-once and never retried, and history replay on join is the only
// compensation for what a peer misses while away.
func (h *Hub) deliver(sessionID string, frame []byte) {
	c, ok := h.sessions.ClientFor(sessionID)
	if !ok {
		return
	}
	if !h.deliverTo(c, frame) {
		h.log.Debug("dropping event for unreachable session", "session_id", sessionID)
	}
}

// deliverTo enqueues a frame on the client's bounded outbound queue without
// blocking. The registered/closed check and the send share the client lock
// so the queue cannot be closed out from under the enqueue.
func (h *Hub) deliverTo(c *Client, frame []byte) bool {
	if frame == nil {
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.clients[c]; !ok || c.closed {
		return false
	}

	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if c.conn == nil {
			continue
		}
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			h.log.Warn("closing client connection", "addr", c.addr, "error", err)
		}
	}

	h.log.Info("closed client connections", "count", len(clients))
}

// Shutdown stops the lifecycle loop, closes every live connection, and
// waits for the pump goroutines to drain, up to the timeout.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("hub shutting down")

	h.cancel()
	<-h.done

	finished := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		h.log.Info("hub shutdown complete")
		return nil
	case <-time.After(timeout):
		h.log.Warn("hub shutdown timed out")
		return context.DeadlineExceeded
	}
}
