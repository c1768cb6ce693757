package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()

	HealthHandler(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/plain", rr.Header().Get("Content-Type"))
	assert.Equal(t, "PairLink server is running!", rr.Body.String())
}

func TestWebSocketHandlerRejectsNonGet(t *testing.T) {
	hub := NewHub(NewConfig(), discardLogger())
	handler := WebSocketHandler(hub)

	req := httptest.NewRequest(http.MethodPost, "/ws", nil)
	rr := httptest.NewRecorder()
	handler(rr, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestWebSocketHandlerRejectsDisallowedOrigin(t *testing.T) {
	cfg := NewConfig()
	cfg.AllowedOrigins = []string{"http://allowed.test"}
	hub := NewHub(cfg, discardLogger())
	go hub.Run()
	t.Cleanup(func() { _ = hub.Shutdown(time.Second) })

	ts := httptest.NewServer(SetupRoutes(hub))
	t.Cleanup(ts.Close)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	header := http.Header{}
	header.Set("Origin", "http://evil.test")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if conn != nil {
		_ = conn.Close()
	}
	if resp != nil {
		_ = resp.Body.Close()
	}
	require.Error(t, err, "upgrade must fail for a disallowed origin")
}
