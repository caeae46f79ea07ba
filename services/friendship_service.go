package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"estateSocialAPI/internal/apperr"
	"estateSocialAPI/internal/metrics"
	"estateSocialAPI/internal/store"
	"estateSocialAPI/internal/types/friend_request"
	"estateSocialAPI/internal/types/friendship"
	"estateSocialAPI/internal/user"
)

type FriendshipService struct {
	store store.Store
}

func NewFriendshipService(s store.Store) *FriendshipService {
	return &FriendshipService{store: s}
}

// ListFriends resolves every friendship of userID to the user on the other side.
func (s *FriendshipService) ListFriends(ctx context.Context, userID uuid.UUID) ([]*user.User, error) {
	friendships, err := s.store.ListFriendships(ctx, userID)
	if err != nil {
		return nil, internalOr("ListFriends", "failed to list friendships", err)
	}

	ids := make([]uuid.UUID, 0, len(friendships))
	for _, f := range friendships {
		ids = append(ids, f.Other(userID))
	}

	friends, err := s.store.GetUsers(ctx, ids)
	if err != nil {
		return nil, internalOr("ListFriends", "failed to load friends", err)
	}
	return friends, nil
}

func (s *FriendshipService) GetFriend(ctx context.Context, userID, otherID uuid.UUID) (*user.User, error) {
	if _, err := s.store.FindFriendship(ctx, userID, otherID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("friendship not found")
		}
		return nil, internalOr("GetFriend", "failed to fetch friendship", err)
	}

	friend, err := s.store.GetUser(ctx, otherID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, internalOr("GetFriend", "failed to fetch user", err)
	}
	return friend, nil
}

// CreateFriendship links two users directly, without a request. It refuses
// when the pair is already linked or has a pending request.
func (s *FriendshipService) CreateFriendship(ctx context.Context, userID, otherID uuid.UUID) (*friendship.Friendship, error) {
	if userID == otherID {
		return nil, apperr.InvalidArgument("cannot befriend yourself")
	}

	for _, id := range []uuid.UUID{userID, otherID} {
		if _, err := s.store.GetUser(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, apperr.NotFound("user not found")
			}
			return nil, internalOr("CreateFriendship", "failed to look up user", err)
		}
	}

	var created *friendship.Friendship
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		if _, err := tx.FindFriendship(ctx, userID, otherID); err == nil {
			return apperr.Conflict("users are already friends")
		} else if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("failed to look up friendship: %w", err)
		}

		req, err := tx.FindFriendRequestBetween(ctx, userID, otherID)
		if err == nil && req.Status == friend_request.StatusPending {
			return apperr.Conflict("a friend request between these users is pending")
		} else if err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("failed to look up friend request: %w", err)
		}

		f := &friendship.Friendship{
			ID:        uuid.New(),
			User1ID:   userID,
			User2ID:   otherID,
			CreatedAt: time.Now().UTC(),
		}
		if err := tx.CreateFriendship(ctx, f); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return apperr.Conflict("users are already friends")
			}
			return fmt.Errorf("failed to insert friendship: %w", err)
		}
		created = f
		return nil
	})
	if err != nil {
		return nil, internalOr("CreateFriendship", "failed to create friendship", err)
	}

	metrics.FriendshipsCreated.Inc()
	return created, nil
}

// RemoveFriendship deletes the friendship between the pair along with the
// accepted request that produced it, so the two users can connect again later.
func (s *FriendshipService) RemoveFriendship(ctx context.Context, userID, otherID uuid.UUID) error {
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		f, err := tx.FindFriendship(ctx, userID, otherID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound("friendship not found")
			}
			return fmt.Errorf("failed to look up friendship: %w", err)
		}

		if err := tx.DeleteFriendship(ctx, f.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound("friendship not found")
			}
			return fmt.Errorf("failed to delete friendship: %w", err)
		}

		req, err := tx.FindFriendRequestBetween(ctx, userID, otherID)
		switch {
		case err == nil && req.Status == friend_request.StatusAccepted:
			if err := tx.DeleteFriendRequest(ctx, req.ID); err != nil {
				return fmt.Errorf("failed to delete accepted request: %w", err)
			}
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("failed to look up friend request: %w", err)
		}
		return nil
	})
	if err != nil {
		return internalOr("RemoveFriendship", "failed to remove friendship", err)
	}

	metrics.FriendshipsRemoved.Inc()
	return nil
}

// CheckStatus reports how otherID relates to userID. A friendship wins over
// any request; an outgoing pending request wins over an incoming one.
func (s *FriendshipService) CheckStatus(ctx context.Context, userID, otherID uuid.UUID) (*friendship.StatusResult, error) {
	if userID == otherID {
		return nil, apperr.InvalidArgument("cannot check friendship status with yourself")
	}

	if _, err := s.store.FindFriendship(ctx, userID, otherID); err == nil {
		return &friendship.StatusResult{Status: friendship.StatusFriends}, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, internalOr("CheckStatus", "failed to look up friendship", err)
	}

	req, err := s.store.FindFriendRequestBetween(ctx, userID, otherID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &friendship.StatusResult{Status: friendship.StatusNotFriends}, nil
		}
		return nil, internalOr("CheckStatus", "failed to look up friend request", err)
	}

	if req.Status == friend_request.StatusPending {
		if req.FromID == userID {
			return &friendship.StatusResult{Status: friendship.StatusRequestSent, Request: req}, nil
		}
		return &friendship.StatusResult{Status: friendship.StatusRequestReceived, Request: req}, nil
	}
	return &friendship.StatusResult{Status: friendship.StatusNotFriends}, nil
}
