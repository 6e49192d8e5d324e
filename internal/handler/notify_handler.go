package handler

import (
	"log/slog"
	"net/http"

	"fintrack/internal/middleware"
	"fintrack/internal/notify"

	"github.com/gorilla/websocket"
)

// NotifyHandler upgrades authenticated requests onto the notification stream.
type NotifyHandler struct {
	hub      *notify.Hub
	upgrader websocket.Upgrader
}

func NewNotifyHandler(hub *notify.Hub, allowedOrigins []string) *NotifyHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return &NotifyHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// Non-browser clients send no Origin header
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// HandleConnection handles WebSocket upgrade and connection
func (h *NotifyHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"Not authenticated"}`, http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade error",
			slog.String("error", err.Error()),
			slog.String("user_id", userID))
		return
	}

	client := notify.NewClient(h.hub, conn, userID)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
