package http

import (
	"net/http"

	"github.com/taskboardhq/taskboard-backend/internal/core/ports"
)

// StatusHandler reports live realtime statistics for monitoring dashboards.
type StatusHandler struct {
	rt ports.RealtimeStatus
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(rt ports.RealtimeStatus) *StatusHandler {
	return &StatusHandler{rt: rt}
}

// StatusResponse represents the realtime status payload
type StatusResponse struct {
	WebSocketEnabled bool   `json:"websocket_enabled"`
	ConnectedClients int    `json:"connected_clients"`
	OnlineUsers      int    `json:"online_users"`
	ActiveRooms      int    `json:"active_rooms"`
	Status           string `json:"status"`
}

// HandleStatus handles GET /api/v1/ws/status
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, StatusResponse{
		WebSocketEnabled: true,
		ConnectedClients: h.rt.ConnectionCount(),
		OnlineUsers:      h.rt.OnlineUserCount(),
		ActiveRooms:      h.rt.RoomCount(),
		Status:           "operational",
	})
}
