// Package server exposes the HTTP surface: the WebSocket upgrade endpoint
// and a health check.
package server

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
)

// WebSocketHandler returns the handler for the /ws endpoint. It upgrades
// GET requests that pass the origin check, wraps the connection in a
// Client, and hands it to the hub, which launches the pump goroutines.
func WebSocketHandler(h *Hub) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.origins.check,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Warn("websocket upgrade failed", "error", err)
			return
		}

		select {
		case h.register <- NewClient(conn, h, r.RemoteAddr):
		case <-h.ctx.Done():
			_ = conn.Close()
		}
	}
}

// HealthHandler reports process liveness as plain text.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "PairLink server is running!")
}
