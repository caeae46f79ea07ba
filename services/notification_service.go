package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"estateSocialAPI/internal/apperr"
	"estateSocialAPI/internal/notification"
	"estateSocialAPI/internal/store"
	"estateSocialAPI/internal/types/friend_request"
)

type NotificationService struct {
	store      store.Store
	dispatcher *NotificationDispatcher
}

func NewNotificationService(s store.Store, dispatcher *NotificationDispatcher) *NotificationService {
	return &NotificationService{store: s, dispatcher: dispatcher}
}

func (s *NotificationService) RegisterDevice(ctx context.Context, userID uuid.UUID, req *notification.RegisterDeviceRequest) (*notification.DeviceToken, error) {
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return nil, apperr.InvalidArgument("device token is required")
	}
	if !req.Platform.Valid() {
		return nil, apperr.InvalidArgument("platform must be android, ios or web")
	}

	now := time.Now().UTC()
	device := &notification.DeviceToken{
		UserID:   userID,
		Token:    token,
		Platform: req.Platform,
		AddedAt:  now,
		LastUsed: now,
	}
	if err := s.store.UpsertDeviceToken(ctx, device); err != nil {
		return nil, internalOr("RegisterDevice", "failed to register device", err)
	}
	return device, nil
}

func (s *NotificationService) UnregisterDevice(ctx context.Context, userID uuid.UUID, token string) error {
	if err := s.store.DeleteDeviceToken(ctx, userID, token); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("device not found")
		}
		return internalOr("UnregisterDevice", "failed to unregister device", err)
	}
	return nil
}

func (s *NotificationService) FriendRequestReceived(ctx context.Context, req *friend_request.FriendRequest) {
	name := s.displayName(ctx, req.FromID)
	s.send(ctx, &notification.Notification{
		UserID:  req.ToID,
		ActorID: req.FromID,
		Type:    notification.NotificationFriendRequestReceived,
		Title:   "New friend request",
		Body:    fmt.Sprintf("%s sent you a friend request", name),
		Data: map[string]any{
			"requestId":  req.ID.String(),
			"fromUserId": req.FromID.String(),
		},
	})
}

func (s *NotificationService) FriendRequestAccepted(ctx context.Context, req *friend_request.FriendRequest) {
	name := s.displayName(ctx, req.ToID)
	s.send(ctx, &notification.Notification{
		UserID:  req.FromID,
		ActorID: req.ToID,
		Type:    notification.NotificationFriendRequestAccepted,
		Title:   "Friend request accepted",
		Body:    fmt.Sprintf("%s accepted your friend request", name),
		Data: map[string]any{
			"requestId": req.ID.String(),
			"userId":    req.ToID.String(),
		},
	})
}

func (s *NotificationService) send(ctx context.Context, notif *notification.Notification) {
	if s.dispatcher == nil {
		return
	}
	notif.ID = uuid.New()
	notif.CreatedAt = time.Now().UTC()
	notif.Data["type"] = string(notif.Type)
	s.dispatcher.DispatchNotification(ctx, notif)
}

func (s *NotificationService) displayName(ctx context.Context, userID uuid.UUID) string {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		log.Printf("displayName: failed to fetch user %s: %v", userID, err)
		return "Someone"
	}
	if u.Username != "" {
		return u.Username
	}
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return "Someone"
}
