package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"estateSocialAPI/internal/apperr"
	"estateSocialAPI/internal/store"
	"estateSocialAPI/internal/user"
)

const (
	searchLimit       = 50
	maxSearchQueryLen = 100
)

type UserService struct {
	store store.Users
}

func NewUserService(s store.Users) *UserService {
	return &UserService{store: s}
}

// ResolveUserID maps an identity provider subject to the internal user id.
func (s *UserService) ResolveUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	u, err := s.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return uuid.Nil, err
	}
	return u.ID, nil
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, internalOr("GetUser", "failed to fetch user", err)
	}
	return u, nil
}

func (s *UserService) GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error) {
	u, err := s.store.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, internalOr("GetUserByClerkID", "failed to fetch user", err)
	}
	return u, nil
}

// GetPublicProfile returns the view of a user other users may see.
func (s *UserService) GetPublicProfile(ctx context.Context, id uuid.UUID) (*user.Public, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	profile := u.Public()
	return &profile, nil
}

// SearchUsers finds people to befriend by name. The caller is never part of
// the result.
func (s *UserService) SearchUsers(ctx context.Context, callerID uuid.UUID, query string) ([]user.Public, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.InvalidArgument("search query is required")
	}
	if len(query) > maxSearchQueryLen {
		return nil, apperr.InvalidArgument("search query is too long")
	}

	users, err := s.store.SearchUsers(ctx, query, callerID, searchLimit)
	if err != nil {
		return nil, internalOr("SearchUsers", "failed to search users", err)
	}

	results := make([]user.Public, 0, len(users))
	for _, u := range users {
		results = append(results, u.Public())
	}
	return results, nil
}

func (s *UserService) CreateUser(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	if req.ClerkID == "" {
		return nil, apperr.InvalidArgument("clerk id is required")
	}

	now := time.Now().UTC()
	u := &user.User{
		ID:        uuid.New(),
		ClerkID:   req.ClerkID,
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		ImageURL:  req.ImageURL,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("user already exists")
		}
		return nil, internalOr("CreateUser", "failed to create user", err)
	}
	return u, nil
}

// UpdateUserByClerkID applies the non-empty fields of req.
func (s *UserService) UpdateUserByClerkID(ctx context.Context, clerkID string, email string, req *user.UpdateProfileRequest) (*user.User, error) {
	u, err := s.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	if email != "" {
		u.Email = email
	}
	if req.Username != "" {
		u.Username = req.Username
	}
	if req.FirstName != "" {
		u.FirstName = req.FirstName
	}
	if req.LastName != "" {
		u.LastName = req.LastName
	}
	if req.ImageURL != "" {
		u.ImageURL = req.ImageURL
	}
	u.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, internalOr("UpdateUserByClerkID", "failed to update user", err)
	}
	return u, nil
}

// DeleteUserByClerkID removes the user together with their requests,
// friendships and devices.
func (s *UserService) DeleteUserByClerkID(ctx context.Context, clerkID string) error {
	if err := s.store.DeleteUserByClerkID(ctx, clerkID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		return internalOr("DeleteUserByClerkID", "failed to delete user", err)
	}
	return nil
}
