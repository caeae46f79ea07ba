package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"estateSocialAPI/internal/types/friendship"
	"estateSocialAPI/internal/user"
	"estateSocialAPI/services"
)

type FriendshipHandler struct {
	friendshipService *services.FriendshipService
}

func NewFriendshipHandler(friendshipService *services.FriendshipService) *FriendshipHandler {
	return &FriendshipHandler{
		friendshipService: friendshipService,
	}
}

func (h *FriendshipHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	friends, err := h.friendshipService.ListFriends(ctx, userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	public := make([]user.Public, 0, len(friends))
	for _, f := range friends {
		public = append(public, f.Public())
	}
	respondWithList(w, public)
}

func (h *FriendshipHandler) CreateFriendship(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req friendship.CreateFriendshipRequest
	if !decodeBody(w, r, &req) {
		return
	}
	otherID, err := uuid.Parse(req.UserID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Field 'userId' must be a valid user id")
		return
	}

	created, err := h.friendshipService.CreateFriendship(ctx, userID, otherID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusCreated, created)
}

func (h *FriendshipHandler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	otherID, ok := uuidVar(w, r, "userId")
	if !ok {
		return
	}

	status, err := h.friendshipService.CheckStatus(ctx, userID, otherID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, status)
}

func (h *FriendshipHandler) GetFriend(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	otherID, ok := uuidVar(w, r, "id")
	if !ok {
		return
	}

	friend, err := h.friendshipService.GetFriend(ctx, userID, otherID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, friend.Public())
}

// RemoveFriend takes the other user's id in the path.
func (h *FriendshipHandler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	otherID, ok := uuidVar(w, r, "id")
	if !ok {
		return
	}

	if err := h.friendshipService.RemoveFriendship(ctx, userID, otherID); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, map[string]string{"userId": otherID.String()})
}
