// Package store is the persistence boundary for users, friend requests,
// friendships and device tokens. Services receive a Store in their
// constructor and never reach for a global connection.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"estateSocialAPI/internal/notification"
	"estateSocialAPI/internal/types/friend_request"
	"estateSocialAPI/internal/types/friendship"
	"estateSocialAPI/internal/user"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type Users interface {
	GetUser(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error)
	// GetUsers returns the users that exist among ids, ordered by username.
	GetUsers(ctx context.Context, ids []uuid.UUID) ([]*user.User, error)
	// SearchUsers matches query case-insensitively against username, first
	// and last name. Prefix matches rank first, then username order.
	SearchUsers(ctx context.Context, query string, excludeID uuid.UUID, limit int) ([]*user.User, error)
	CreateUser(ctx context.Context, u *user.User) error
	UpdateUser(ctx context.Context, u *user.User) error
	// DeleteUserByClerkID removes the user together with its requests,
	// friendships and device tokens.
	DeleteUserByClerkID(ctx context.Context, clerkID string) error
}

type FriendRequests interface {
	CreateFriendRequest(ctx context.Context, r *friend_request.FriendRequest) error
	GetFriendRequest(ctx context.Context, id uuid.UUID) (*friend_request.FriendRequest, error)
	// FindFriendRequestBetween returns the request between a and b in either
	// direction.
	FindFriendRequestBetween(ctx context.Context, a, b uuid.UUID) (*friend_request.FriendRequest, error)
	// ListFriendRequests returns matching requests, newest first.
	ListFriendRequests(ctx context.Context, filter friend_request.Filter) ([]*friend_request.FriendRequest, error)
	// TransitionFriendRequest moves the request from one status to another.
	// It returns ErrNotFound when no request with that id is in status from.
	TransitionFriendRequest(ctx context.Context, id uuid.UUID, from, to friend_request.Status) (*friend_request.FriendRequest, error)
	DeleteFriendRequest(ctx context.Context, id uuid.UUID) error
}

type Friendships interface {
	CreateFriendship(ctx context.Context, f *friendship.Friendship) error
	FindFriendship(ctx context.Context, a, b uuid.UUID) (*friendship.Friendship, error)
	ListFriendships(ctx context.Context, userID uuid.UUID) ([]*friendship.Friendship, error)
	DeleteFriendship(ctx context.Context, id uuid.UUID) error
}

type DeviceTokens interface {
	UpsertDeviceToken(ctx context.Context, t *notification.DeviceToken) error
	ListDeviceTokens(ctx context.Context, userID uuid.UUID) ([]*notification.DeviceToken, error)
	DeleteDeviceToken(ctx context.Context, userID uuid.UUID, token string) error
}

type Store interface {
	Users
	FriendRequests
	Friendships
	DeviceTokens

	// WithTx runs fn against a transaction-scoped Store. The transaction
	// commits when fn returns nil and rolls back otherwise. Calling WithTx
	// on a transaction-scoped Store reuses the outer transaction.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}
