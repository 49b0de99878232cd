package notification

import (
	"sync"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

// Hub tracks live websocket connections per client and pushes notifications
// to every open connection of the target client.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]map[*websocket.Conn]bool
	log   *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		conns: make(map[string]map[*websocket.Conn]bool),
		log:   log,
	}
}

func (h *Hub) Register(clientID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[clientID] == nil {
		h.conns[clientID] = make(map[*websocket.Conn]bool)
	}
	h.conns[clientID][conn] = true
}

func (h *Hub) Unregister(clientID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.conns[clientID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.conns, clientID)
		}
	}
}

// Push writes the payload as JSON to all of the client's connections.
// Write failures only log; delivery is best-effort.
func (h *Hub) Push(clientID string, payload interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.conns[clientID] {
		if err := conn.WriteJSON(payload); err != nil {
			h.log.Warn("websocket push failed", zap.String("client", clientID), zap.Error(err))
		}
	}
}
