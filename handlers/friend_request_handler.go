package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"estateSocialAPI/internal/types/friend_request"
	"estateSocialAPI/services"
)

type FriendRequestHandler struct {
	friendRequestService *services.FriendRequestService
}

func NewFriendRequestHandler(friendRequestService *services.FriendRequestService) *FriendRequestHandler {
	return &FriendRequestHandler{
		friendRequestService: friendRequestService,
	}
}

func (h *FriendRequestHandler) ListFriendRequests(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	requests, err := h.friendRequestService.ListForUser(ctx, userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	h.respondWithDetails(ctx, w, requests)
}

func (h *FriendRequestHandler) CreateFriendRequest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req friend_request.CreateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	toID, err := uuid.Parse(req.To)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Field 'to' must be a valid user id")
		return
	}

	created, err := h.friendRequestService.CreateRequest(ctx, userID, toID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusCreated, created)
}

func (h *FriendRequestHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	requests, err := h.friendRequestService.ListPending(ctx, userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	h.respondWithDetails(ctx, w, requests)
}

func (h *FriendRequestHandler) ListSent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	requests, err := h.friendRequestService.ListSent(ctx, userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	h.respondWithDetails(ctx, w, requests)
}

func (h *FriendRequestHandler) GetFriendRequest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	requestID, ok := uuidVar(w, r, "id")
	if !ok {
		return
	}

	req, err := h.friendRequestService.GetRequest(ctx, requestID, userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	details, err := h.friendRequestService.Describe(ctx, []*friend_request.FriendRequest{req})
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, details[0])
}

func (h *FriendRequestHandler) UpdateFriendRequest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	requestID, ok := uuidVar(w, r, "id")
	if !ok {
		return
	}

	var body friend_request.UpdateStatusRequest
	if !decodeBody(w, r, &body) {
		return
	}

	updated, err := h.friendRequestService.UpdateStatus(ctx, requestID, body.Status, userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, updated)
}

func (h *FriendRequestHandler) DeleteFriendRequest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	requestID, ok := uuidVar(w, r, "id")
	if !ok {
		return
	}

	if err := h.friendRequestService.DeleteRequest(ctx, requestID, userID); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, map[string]string{"id": requestID.String()})
}

// respondWithDetails lists requests with their sender and recipient profiles.
func (h *FriendRequestHandler) respondWithDetails(ctx context.Context, w http.ResponseWriter, requests []*friend_request.FriendRequest) {
	details, err := h.friendRequestService.Describe(ctx, requests)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithList(w, details)
}
