// Package websocket streams nearby-user lists to connected clients. Every
// "user changed" event from the feed recomputes the list for each client.
package websocket

import (
	"context"
	"net/http"
	"sort"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/nearu/nearu-backend/internal/feed"
	"github.com/nearu/nearu-backend/internal/logging"
	"github.com/nearu/nearu-backend/internal/models"
)

// Message types
const (
	MessageTypeNearby = "nearby_update"
	MessageTypePing   = "ping"
	MessageTypePong   = "pong"
)

// Message is the websocket envelope
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// NearbyFunc computes the nearby users of userID
type NearbyFunc func(ctx context.Context, userID string) ([]models.NearbyUser, error)

// Hub keeps the connected clients and refreshes them on feed events
type Hub struct {
	nearby   NearbyFunc
	upgrader websocket.Upgrader

	clients    map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a hub that uses nearby to build updates
func NewHub(nearby NearbyFunc) *Hub {
	return &Hub{
		nearby: nearby,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Run processes registrations and feed events until ctx is done
func (h *Hub) Run(ctx context.Context, events <-chan feed.Event) error {
	for {
		select {
		case <-ctx.Done():
			n := h.ClientCount()
			h.closeAllClients()
			logging.Info().Str("component", "websocket-hub").Int("clients_closed", n).Msg("websocket hub stopped")
			return ctx.Err()

		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logging.Debug().Str("user_id", client.userID).Int("total_clients", h.ClientCount()).Msg("websocket client connected")
			h.refresh(ctx, []*Client{client})

		case client := <-h.Unregister:
			h.remove(client)
			logging.Debug().Str("user_id", client.userID).Int("total_clients", h.ClientCount()).Msg("websocket client disconnected")

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			logging.Debug().Str("type", ev.Type).Str("user_id", ev.UserID).Msg("refreshing nearby lists")
			h.refresh(ctx, h.snapshot())
		}
	}
}

// refresh computes nearby users once per user and sends them to clients
func (h *Hub) refresh(ctx context.Context, clients []*Client) {
	lists := make(map[string][]models.NearbyUser)
	var stale []*Client

	for _, c := range clients {
		list, ok := lists[c.userID]
		if !ok {
			var err error
			list, err = h.nearby(ctx, c.userID)
			if err != nil {
				logging.Warn().Err(err).Str("user_id", c.userID).Msg("failed to compute nearby users")
				continue
			}
			lists[c.userID] = list
		}

		select {
		case c.send <- Message{Type: MessageTypeNearby, Data: list}:
		default:
			stale = append(stale, c)
		}
	}

	for _, c := range stale {
		h.remove(c)
	}
}

func (h *Hub) snapshot() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })
	return clients
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve upgrades the request and attaches the connection to userID
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := NewClient(h, conn, userID)
	client.Start()
	h.Register <- client
	return nil
}
