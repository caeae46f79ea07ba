package handlers

import (
	"log"
	"net/http"

	"estateSocialAPI/internal/realtime"
)

type RealtimeHandler struct {
	hub *realtime.Hub
}

func NewRealtimeHandler(hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{hub: hub}
}

// Connect upgrades the caller to a websocket that receives friend events.
func (h *RealtimeHandler) Connect(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	// Upgrade writes its own error response on failure.
	if err := h.hub.Serve(w, r, userID); err != nil {
		log.Printf("Connect: websocket upgrade failed for user %s: %v", userID, err)
	}
}
