package store_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estateSocialAPI/internal/notification"
	"estateSocialAPI/internal/store"
	"estateSocialAPI/internal/testutil"
	"estateSocialAPI/internal/types/friend_request"
	"estateSocialAPI/internal/types/friendship"
)

func newRequest(from, to uuid.UUID, at time.Time) *friend_request.FriendRequest {
	return &friend_request.FriendRequest{
		ID:        uuid.New(),
		FromID:    from,
		ToID:      to,
		Status:    friend_request.StatusPending,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func newFriendship(a, b uuid.UUID) *friendship.Friendship {
	return &friendship.Friendship{
		ID:        uuid.New(),
		User1ID:   a,
		User2ID:   b,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

// runStoreContract exercises behaviour every Store implementation shares.
func runStoreContract(t *testing.T, s store.Store) {
	ctx := context.Background()

	t.Run("user lookups", func(t *testing.T) {
		bob := testutil.SeedUser(t, s, "bob")
		alice := testutil.SeedUser(t, s, "alice")

		got, err := s.GetUserByClerkID(ctx, bob.ClerkID)
		require.NoError(t, err)
		assert.Equal(t, bob.ID, got.ID)

		_, err = s.GetUser(ctx, uuid.New())
		assert.ErrorIs(t, err, store.ErrNotFound)

		users, err := s.GetUsers(ctx, []uuid.UUID{bob.ID, alice.ID, uuid.New()})
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, "alice", users[0].Username)
		assert.Equal(t, "bob", users[1].Username)

		dup := *bob
		dup.ID = uuid.New()
		assert.ErrorIs(t, s.CreateUser(ctx, &dup), store.ErrDuplicate)
	})

	t.Run("user search", func(t *testing.T) {
		tag := uuid.New().String()[:8]
		inside := testutil.SeedUser(t, s, "0-"+tag)
		prefixed := testutil.SeedUser(t, s, tag+"b")
		testutil.SeedUser(t, s, "unrelated-"+uuid.New().String()[:8])

		users, err := s.SearchUsers(ctx, strings.ToUpper(tag), uuid.Nil, 10)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, prefixed.ID, users[0].ID, "prefix matches rank first")
		assert.Equal(t, inside.ID, users[1].ID)

		users, err = s.SearchUsers(ctx, tag, prefixed.ID, 10)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, inside.ID, users[0].ID)

		users, err = s.SearchUsers(ctx, tag, uuid.Nil, 1)
		require.NoError(t, err)
		assert.Len(t, users, 1)

		users, err = s.SearchUsers(ctx, "%"+tag, uuid.Nil, 10)
		require.NoError(t, err)
		assert.Empty(t, users, "wildcards in the query match literally")
	})

	t.Run("one request per pair in either direction", func(t *testing.T) {
		a := testutil.SeedUser(t, s, "pair-a")
		b := testutil.SeedUser(t, s, "pair-b")
		now := time.Now().UTC().Truncate(time.Microsecond)

		require.NoError(t, s.CreateFriendRequest(ctx, newRequest(a.ID, b.ID, now)))
		err := s.CreateFriendRequest(ctx, newRequest(b.ID, a.ID, now))
		assert.True(t, errors.Is(err, store.ErrDuplicate), "reverse request must collide, got %v", err)

		found, err := s.FindFriendRequestBetween(ctx, b.ID, a.ID)
		require.NoError(t, err)
		assert.Equal(t, a.ID, found.FromID)
	})

	t.Run("transition only from the expected status", func(t *testing.T) {
		a := testutil.SeedUser(t, s, "tr-a")
		b := testutil.SeedUser(t, s, "tr-b")
		r := newRequest(a.ID, b.ID, time.Now().UTC().Truncate(time.Microsecond))
		require.NoError(t, s.CreateFriendRequest(ctx, r))

		updated, err := s.TransitionFriendRequest(ctx, r.ID, friend_request.StatusPending, friend_request.StatusRejected)
		require.NoError(t, err)
		assert.Equal(t, friend_request.StatusRejected, updated.Status)

		_, err = s.TransitionFriendRequest(ctx, r.ID, friend_request.StatusPending, friend_request.StatusAccepted)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("list filters newest first", func(t *testing.T) {
		me := testutil.SeedUser(t, s, "list-me")
		x := testutil.SeedUser(t, s, "list-x")
		y := testutil.SeedUser(t, s, "list-y")
		base := time.Now().UTC().Truncate(time.Microsecond)

		older := newRequest(x.ID, me.ID, base)
		newer := newRequest(y.ID, me.ID, base.Add(time.Minute))
		sent := newRequest(me.ID, testutil.SeedUser(t, s, "list-z").ID, base)
		for _, r := range []*friend_request.FriendRequest{older, newer, sent} {
			require.NoError(t, s.CreateFriendRequest(ctx, r))
		}

		incoming, err := s.ListFriendRequests(ctx, friend_request.Filter{ToID: me.ID, Status: friend_request.StatusPending})
		require.NoError(t, err)
		require.Len(t, incoming, 2)
		assert.Equal(t, newer.ID, incoming[0].ID)
		assert.Equal(t, older.ID, incoming[1].ID)

		all, err := s.ListFriendRequests(ctx, friend_request.Filter{Participant: me.ID})
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("one friendship per pair", func(t *testing.T) {
		a := testutil.SeedUser(t, s, "fs-a")
		b := testutil.SeedUser(t, s, "fs-b")

		f := newFriendship(a.ID, b.ID)
		require.NoError(t, s.CreateFriendship(ctx, f))
		assert.ErrorIs(t, s.CreateFriendship(ctx, newFriendship(b.ID, a.ID)), store.ErrDuplicate)

		found, err := s.FindFriendship(ctx, b.ID, a.ID)
		require.NoError(t, err)
		assert.Equal(t, f.ID, found.ID)

		list, err := s.ListFriendships(ctx, b.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, a.ID, list[0].Other(b.ID))

		require.NoError(t, s.DeleteFriendship(ctx, f.ID))
		assert.ErrorIs(t, s.DeleteFriendship(ctx, f.ID), store.ErrNotFound)
	})

	t.Run("rolled back transaction leaves no trace", func(t *testing.T) {
		a := testutil.SeedUser(t, s, "tx-a")
		b := testutil.SeedUser(t, s, "tx-b")
		r := newRequest(a.ID, b.ID, time.Now().UTC().Truncate(time.Microsecond))
		require.NoError(t, s.CreateFriendRequest(ctx, r))

		boom := errors.New("boom")
		err := s.WithTx(ctx, func(tx store.Store) error {
			if _, err := tx.TransitionFriendRequest(ctx, r.ID, friend_request.StatusPending, friend_request.StatusAccepted); err != nil {
				return err
			}
			if err := tx.CreateFriendship(ctx, newFriendship(a.ID, b.ID)); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := s.GetFriendRequest(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, friend_request.StatusPending, got.Status)

		_, err = s.FindFriendship(ctx, a.ID, b.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("device tokens upsert", func(t *testing.T) {
		u := testutil.SeedUser(t, s, "device")
		now := time.Now().UTC().Truncate(time.Microsecond)
		token := &notification.DeviceToken{UserID: u.ID, Token: "tok-1", Platform: notification.PlatformAndroid, AddedAt: now, LastUsed: now}

		require.NoError(t, s.UpsertDeviceToken(ctx, token))
		token.Platform = notification.PlatformIOS
		token.LastUsed = now.Add(time.Minute)
		require.NoError(t, s.UpsertDeviceToken(ctx, token))

		tokens, err := s.ListDeviceTokens(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, tokens, 1)
		assert.Equal(t, notification.PlatformIOS, tokens[0].Platform)

		require.NoError(t, s.DeleteDeviceToken(ctx, u.ID, "tok-1"))
		assert.ErrorIs(t, s.DeleteDeviceToken(ctx, u.ID, "tok-1"), store.ErrNotFound)
	})

	t.Run("deleting a user cascades", func(t *testing.T) {
		a := testutil.SeedUser(t, s, "cascade-a")
		b := testutil.SeedUser(t, s, "cascade-b")
		r := newRequest(a.ID, b.ID, time.Now().UTC().Truncate(time.Microsecond))
		require.NoError(t, s.CreateFriendRequest(ctx, r))
		require.NoError(t, s.CreateFriendship(ctx, newFriendship(a.ID, b.ID)))

		require.NoError(t, s.DeleteUserByClerkID(ctx, a.ClerkID))

		_, err := s.GetFriendRequest(ctx, r.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
		list, err := s.ListFriendships(ctx, b.ID)
		require.NoError(t, err)
		assert.Empty(t, list)
		assert.ErrorIs(t, s.DeleteUserByClerkID(ctx, a.ClerkID), store.ErrNotFound)
	})
}
