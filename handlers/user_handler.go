package handlers

import (
	"context"
	"net/http"
	"time"

	"estateSocialAPI/services"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	user, err := h.userService.GetUser(ctx, userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, user)
}

// GetUserProfile returns another user's public profile by id.
func (h *UserHandler) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, ok := callerID(w, r); !ok {
		return
	}
	id, ok := uuidVar(w, r, "id")
	if !ok {
		return
	}

	profile, err := h.userService.GetPublicProfile(ctx, id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, profile)
}

func (h *UserHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		respondWithError(w, http.StatusBadRequest, "Search query parameter 'q' is required")
		return
	}

	users, err := h.userService.SearchUsers(ctx, userID, query)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithList(w, users)
}
