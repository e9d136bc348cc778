package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const reloadWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// reloadMessage is pushed to every browser when a watched file changes.
type reloadMessage struct {
	Action   string `json:"action"`
	FilePath string `json:"filePath,omitempty"`
}

// hub tracks live reload connections.
type hub struct {
	logger *slog.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newHub(logger *slog.Logger) *hub {
	return &hub{logger: logger, conns: make(map[*websocket.Conn]struct{})}
}

// ServeHTTP upgrades the request and holds the connection open until the
// client goes away. Clients never send anything meaningful; reads only
// detect the close.
func (h *hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("[Server] WebSocket upgrade failed", "error", err)
		return
	}
	h.register(conn)
	defer h.unregister(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("[Server] WebSocket closed", "error", err)
			}
			return
		}
	}
}

func (h *hub) register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
	h.logger.Debug("[Server] WebSocket connection registered", "active", len(h.conns))
}

func (h *hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	n := len(h.conns)
	h.mu.Unlock()
	_ = conn.Close()
	h.logger.Debug("[Server] WebSocket connection unregistered", "active", n)
}

func (h *hub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// broadcast sends a reload message to every connection. Writes happen under
// the lock since gorilla connections allow one concurrent writer.
func (h *hub) broadcast(filePath string) {
	data, err := json.Marshal(reloadMessage{Action: "reload", FilePath: filePath})
	if err != nil {
		h.logger.Error("[Server] Failed to marshal reload message", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.conns) == 0 {
		return
	}
	h.logger.Info("[Server] Broadcasting reload", "file", filePath, "connections", len(h.conns))
	for conn := range h.conns {
		_ = conn.SetWriteDeadline(time.Now().Add(reloadWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Warn("[Server] Failed to send reload", "error", err)
		}
	}
}

// closeAll closes every connection.
func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}
}
