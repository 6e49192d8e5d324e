package notify

import (
	"context"
	"log/slog"

	"fintrack/internal/observability"
)

// Event is the envelope pushed to browsers over the notification socket.
type Event struct {
	Type      string `json:"type"`
	InsightID string `json:"insight_id,omitempty"`
	Month     string `json:"month,omitempty"`
	Failed    bool   `json:"failed,omitempty"`
	Message   string `json:"message,omitempty"`
}

type pushMessage struct {
	UserID  string
	Payload []byte
}

// Hub maintains active notification clients keyed by user and fans pushed
// events out to every open connection that user has.
type Hub struct {
	// Registered clients by user
	clients map[string]map[*Client]bool

	push chan *pushMessage

	register chan *Client

	unregister chan *Client

	done chan struct{}
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		push:       make(chan *pushMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run(ctx context.Context) error {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			slog.Info("notification hub shutting down gracefully")
			return ctx.Err()

		case client := <-h.register:
			if h.clients[client.userID] == nil {
				h.clients[client.userID] = make(map[*Client]bool)
			}
			h.clients[client.userID][client] = true
			observability.NotificationConnectionsActive.Inc()
			slog.Info("notification client registered",
				slog.String("user_id", client.userID))

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.push:
			if clients, ok := h.clients[message.UserID]; ok {
				for client := range clients {
					select {
					case client.send <- message.Payload:
					default:
						// Client's send buffer is full, close connection
						h.closeClientSend(client)
						delete(clients, client)
						observability.NotificationConnectionsActive.Dec()
					}
				}
			}
		}
	}
}

// unregisterClient safely removes a client from the hub
func (h *Hub) unregisterClient(client *Client) {
	if clients, ok := h.clients[client.userID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			h.closeClientSend(client)
			observability.NotificationConnectionsActive.Dec()
			slog.Info("notification client unregistered",
				slog.String("user_id", client.userID))

			if len(clients) == 0 {
				delete(h.clients, client.userID)
			}
		}
	}
}

// closeClientSend closes a client's send channel exactly once. Only the hub
// goroutine calls this, so a plain flag is enough. Draining the channel to
// detect a prior close would swallow a buffered event when it is still open.
func (h *Hub) closeClientSend(client *Client) {
	if client.sendClosed {
		return
	}
	client.sendClosed = true
	close(client.send)
}

// shutdown performs graceful cleanup of all connections
func (h *Hub) shutdown() {
	close(h.done)

	for userID, clients := range h.clients {
		for client := range clients {
			h.closeClientSend(client)
			slog.Info("closed notification connection",
				slog.String("user_id", userID))
		}
	}

	slog.Info("notification hub shutdown complete")
}

// Push queues a payload for every open connection the user has. Users with
// no open connection miss the push; the underlying rows remain queryable.
func (h *Hub) Push(userID string, payload []byte) {
	select {
	case h.push <- &pushMessage{UserID: userID, Payload: payload}:
	case <-h.done:
	}
}

// Register registers a client with the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}
