// Package server wires HTTP handlers into a ServeMux.
package server

import "net/http"

// SetupRoutes configures and returns the application's ServeMux: health
// check at the root and the WebSocket endpoint at /ws.
func SetupRoutes(h *Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.HandleFunc("/ws", WebSocketHandler(h))
	return mux
}
