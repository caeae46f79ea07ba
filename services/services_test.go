package services

import (
	"context"
	"sync"
	"testing"

	"estateSocialAPI/internal/store"
	"estateSocialAPI/internal/testutil"
	"estateSocialAPI/internal/types/friend_request"
	"estateSocialAPI/internal/types/friendship"
	"estateSocialAPI/internal/user"
)

type recordingNotifier struct {
	mu       sync.Mutex
	received []*friend_request.FriendRequest
	accepted []*friend_request.FriendRequest
}

func (n *recordingNotifier) FriendRequestReceived(ctx context.Context, req *friend_request.FriendRequest) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.received = append(n.received, req)
}

func (n *recordingNotifier) FriendRequestAccepted(ctx context.Context, req *friend_request.FriendRequest) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.accepted = append(n.accepted, req)
}

type fixture struct {
	store    *store.Memory
	requests *FriendRequestService
	friends  *FriendshipService
	notifier *recordingNotifier
	alice    *user.User
	bob      *user.User
	carol    *user.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	s := store.NewMemory()
	notifier := &recordingNotifier{}
	return &fixture{
		store:    s,
		requests: NewFriendRequestService(s, notifier),
		friends:  NewFriendshipService(s),
		notifier: notifier,
		alice:    testutil.SeedUser(t, s, "alice"),
		bob:      testutil.SeedUser(t, s, "bob"),
		carol:    testutil.SeedUser(t, s, "carol"),
	}
}

// failingFriendshipStore rejects every friendship insert, inside and outside
// transactions.
type failingFriendshipStore struct {
	store.Store
	err error
}

func (s *failingFriendshipStore) CreateFriendship(ctx context.Context, f *friendship.Friendship) error {
	return s.err
}

func (s *failingFriendshipStore) WithTx(ctx context.Context, fn func(tx store.Store) error) error {
	return s.Store.WithTx(ctx, func(tx store.Store) error {
		return fn(&failingFriendshipStore{Store: tx, err: s.err})
	})
}
