package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/lanceo/pkg/logger"
)

// Event types pushed over the websocket.
const (
	EventSnapshot       = "snapshot"
	EventStateChanged   = "state_changed"
	EventSessionChanged = "session_changed"
)

const writeWait = 5 * time.Second

type wsEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// hub fans events out to every connected renderer. Writes to a connection
// are serialized by mu.
type hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	log     logger.Logger
}

func newHub(log logger.Logger) *hub {
	return &hub{clients: make(map[*websocket.Conn]bool), log: log}
}

func (h *hub) broadcast(evt wsEvent) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.log.Debug(context.Background(), "websocket client dropped", logger.Error(err))
			delete(h.clients, c)
			_ = c.Close()
		}
	}
}

// register sends first to c and adds it, so no broadcast can precede it.
func (h *hub) register(c *websocket.Conn, first wsEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	_ = c.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.WriteJSON(first); err != nil {
		return err
	}
	h.clients[c] = true
	return nil
}

func (h *hub) unregister(c *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (h *hub) size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.Close()
		delete(h.clients, c)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// stream upgrades the request and pushes a snapshot followed by change events.
func (s *Server) stream(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	first := wsEvent{Type: EventSnapshot, Data: s.state()}
	if err := s.hub.register(ws, first); err != nil {
		_ = ws.Close()
		return nil
	}

	// Read loop (discard client messages; protocol is server push)
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			s.hub.unregister(ws)
			_ = ws.Close()
			break
		}
	}
	return nil
}
