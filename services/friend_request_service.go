package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"estateSocialAPI/internal/apperr"
	"estateSocialAPI/internal/metrics"
	"estateSocialAPI/internal/store"
	"estateSocialAPI/internal/types/friend_request"
	"estateSocialAPI/internal/types/friendship"
	"estateSocialAPI/internal/user"
)

// FriendNotifier is told about friend events after they commit.
type FriendNotifier interface {
	FriendRequestReceived(ctx context.Context, req *friend_request.FriendRequest)
	FriendRequestAccepted(ctx context.Context, req *friend_request.FriendRequest)
}

type FriendRequestService struct {
	store    store.Store
	notifier FriendNotifier
}

// NewFriendRequestService returns the service. notifier may be nil.
func NewFriendRequestService(s store.Store, notifier FriendNotifier) *FriendRequestService {
	return &FriendRequestService{store: s, notifier: notifier}
}

func (s *FriendRequestService) CreateRequest(ctx context.Context, fromID, toID uuid.UUID) (*friend_request.FriendRequest, error) {
	if fromID == toID {
		return nil, apperr.InvalidArgument("cannot send friend request to yourself")
	}

	if _, err := s.store.GetUser(ctx, toID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("recipient user not found")
		}
		return nil, internalOr("CreateRequest", "failed to look up recipient", err)
	}

	var created *friend_request.FriendRequest
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		existing, err := tx.FindFriendRequestBetween(ctx, fromID, toID)
		switch {
		case err == nil:
			switch existing.Status {
			case friend_request.StatusPending:
				return apperr.Conflict("friend request already exists")
			case friend_request.StatusAccepted:
				return apperr.Conflict("users are already friends")
			case friend_request.StatusRejected:
				if err := tx.DeleteFriendRequest(ctx, existing.ID); err != nil {
					return fmt.Errorf("failed to delete rejected request: %w", err)
				}
			}
		case !errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("failed to look up existing request: %w", err)
		}

		if _, err := tx.FindFriendship(ctx, fromID, toID); err == nil {
			return apperr.Conflict("users are already friends")
		} else if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("failed to look up friendship: %w", err)
		}

		now := time.Now().UTC()
		req := &friend_request.FriendRequest{
			ID:        uuid.New(),
			FromID:    fromID,
			ToID:      toID,
			Status:    friend_request.StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.CreateFriendRequest(ctx, req); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return apperr.Conflict("friend request already exists")
			}
			return fmt.Errorf("failed to insert friend request: %w", err)
		}
		created = req
		return nil
	})
	if err != nil {
		return nil, internalOr("CreateRequest", "failed to create friend request", err)
	}

	metrics.FriendRequestsCreated.Inc()
	if s.notifier != nil {
		s.notifier.FriendRequestReceived(ctx, created)
	}
	return created, nil
}

// UpdateStatus lets the recipient accept or reject a pending request.
// Accepting creates the friendship in the same transaction as the status
// change; if either write fails the request stays pending.
func (s *FriendRequestService) UpdateStatus(ctx context.Context, requestID uuid.UUID, status friend_request.Status, actingUserID uuid.UUID) (*friend_request.FriendRequest, error) {
	req, err := s.store.GetFriendRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("friend request not found")
		}
		return nil, internalOr("UpdateStatus", "failed to fetch friend request", err)
	}

	if req.ToID != actingUserID {
		return nil, apperr.Forbidden("only the recipient can respond to a friend request")
	}
	if req.Status != friend_request.StatusPending {
		return nil, apperr.Conflict("friend request has already been processed")
	}
	if !status.IsDecision() {
		return nil, apperr.InvalidArgument("status must be accepted or rejected")
	}

	var updated *friend_request.FriendRequest
	err = s.store.WithTx(ctx, func(tx store.Store) error {
		r, err := tx.TransitionFriendRequest(ctx, requestID, friend_request.StatusPending, status)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.Conflict("friend request has already been processed")
			}
			return fmt.Errorf("failed to update friend request: %w", err)
		}

		if status == friend_request.StatusAccepted {
			f := &friendship.Friendship{
				ID:        uuid.New(),
				User1ID:   r.FromID,
				User2ID:   r.ToID,
				CreatedAt: r.UpdatedAt,
			}
			if err := tx.CreateFriendship(ctx, f); err != nil {
				if errors.Is(err, store.ErrDuplicate) {
					return apperr.Conflict("users are already friends")
				}
				return fmt.Errorf("failed to create friendship: %w", err)
			}
		}

		updated = r
		return nil
	})
	if err != nil {
		return nil, internalOr("UpdateStatus", "failed to update friend request", err)
	}

	metrics.FriendRequestTransitions.WithLabelValues(string(status)).Inc()
	if status == friend_request.StatusAccepted {
		metrics.FriendshipsCreated.Inc()
		if s.notifier != nil {
			s.notifier.FriendRequestAccepted(ctx, updated)
		}
	}
	log.Printf("UpdateStatus: request %s is now %s", updated.ID, updated.Status)
	return updated, nil
}

func (s *FriendRequestService) ListPending(ctx context.Context, userID uuid.UUID) ([]*friend_request.FriendRequest, error) {
	requests, err := s.store.ListFriendRequests(ctx, friend_request.Filter{ToID: userID, Status: friend_request.StatusPending})
	if err != nil {
		return nil, internalOr("ListPending", "failed to list pending requests", err)
	}
	return requests, nil
}

func (s *FriendRequestService) ListSent(ctx context.Context, userID uuid.UUID) ([]*friend_request.FriendRequest, error) {
	requests, err := s.store.ListFriendRequests(ctx, friend_request.Filter{FromID: userID, Status: friend_request.StatusPending})
	if err != nil {
		return nil, internalOr("ListSent", "failed to list sent requests", err)
	}
	return requests, nil
}

// ListForUser returns every request the user sent or received, in any status.
func (s *FriendRequestService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*friend_request.FriendRequest, error) {
	requests, err := s.store.ListFriendRequests(ctx, friend_request.Filter{Participant: userID})
	if err != nil {
		return nil, internalOr("ListForUser", "failed to list friend requests", err)
	}
	return requests, nil
}

func (s *FriendRequestService) GetRequest(ctx context.Context, requestID, actingUserID uuid.UUID) (*friend_request.FriendRequest, error) {
	req, err := s.store.GetFriendRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("friend request not found")
		}
		return nil, internalOr("GetRequest", "failed to fetch friend request", err)
	}
	if !req.Involves(actingUserID) {
		return nil, apperr.Forbidden("you can only view your own friend requests")
	}
	return req, nil
}

// Describe expands the sender and recipient of each request, loading all
// participants in one query. A participant that no longer exists is reported
// by id only.
func (s *FriendRequestService) Describe(ctx context.Context, requests []*friend_request.FriendRequest) ([]*friend_request.Detail, error) {
	ids := make([]uuid.UUID, 0, len(requests)*2)
	for _, r := range requests {
		ids = append(ids, r.FromID, r.ToID)
	}

	users, err := s.store.GetUsers(ctx, ids)
	if err != nil {
		return nil, internalOr("Describe", "failed to load friend request users", err)
	}
	profiles := make(map[uuid.UUID]user.Public, len(users))
	for _, u := range users {
		profiles[u.ID] = u.Public()
	}
	profile := func(id uuid.UUID) user.Public {
		if p, ok := profiles[id]; ok {
			return p
		}
		return user.Public{ID: id}
	}

	details := make([]*friend_request.Detail, 0, len(requests))
	for _, r := range requests {
		details = append(details, &friend_request.Detail{
			ID:        r.ID,
			From:      profile(r.FromID),
			To:        profile(r.ToID),
			Status:    r.Status,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		})
	}
	return details, nil
}

// DeleteRequest removes a request. Only the sender may delete it, whatever
// its status.
func (s *FriendRequestService) DeleteRequest(ctx context.Context, requestID, actingUserID uuid.UUID) error {
	req, err := s.store.GetFriendRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("friend request not found")
		}
		return internalOr("DeleteRequest", "failed to fetch friend request", err)
	}
	if req.FromID != actingUserID {
		return apperr.Forbidden("only the sender can delete a friend request")
	}

	if err := s.store.DeleteFriendRequest(ctx, requestID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("friend request not found")
		}
		return internalOr("DeleteRequest", "failed to delete friend request", err)
	}
	return nil
}
