package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"estateSocialAPI/internal/notification"
	"estateSocialAPI/services"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// POST /api/v1/notifications/register-device
func (h *NotificationHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req notification.RegisterDeviceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	device, err := h.notificationService.RegisterDevice(ctx, userID, &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, device)
}

// DELETE /api/v1/notifications/devices/{token}
func (h *NotificationHandler) UnregisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	token := mux.Vars(r)["token"]
	if err := h.notificationService.UnregisterDevice(ctx, userID, token); err != nil {
		respondWithServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
