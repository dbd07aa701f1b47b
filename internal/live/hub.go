package live

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"leaderboard/internal/models"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// Hub fans leaderboard events out to every connected websocket client.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{clients: make(map[*Client]struct{}), logger: logger}
}

func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues the event for every client. Clients whose queue is full
// are dropped and closed.
func (h *Hub) Broadcast(event models.LeaderboardEvent) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if !c.Send(event) {
			h.logger.Debug("dropping slow websocket client")
			h.Remove(c)
			c.Close()
		}
	}
}

// Publish lets the hub act as the service's event publisher when no broker
// is configured.
func (h *Hub) Publish(_ context.Context, event models.LeaderboardEvent) error {
	h.Broadcast(event)
	return nil
}

// ServeWS upgrades the request and keeps the client registered until the
// peer disconnects. Inbound frames are ignored.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	client := NewClient(conn)
	h.Add(client)
	go client.writePump()
	h.logger.Info("websocket client connected", zap.String("remote", r.RemoteAddr))

	defer func() {
		h.Remove(client)
		client.Close()
		h.logger.Info("websocket client disconnected", zap.String("remote", r.RemoteAddr))
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
