package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estateSocialAPI/internal/apperr"
	"estateSocialAPI/internal/types/friend_request"
	"estateSocialAPI/internal/types/friendship"
)

func befriend(t *testing.T, f *fixture, from, to uuid.UUID) {
	t.Helper()
	req, err := f.requests.CreateRequest(context.Background(), from, to)
	require.NoError(t, err)
	_, err = f.requests.UpdateStatus(context.Background(), req.ID, friend_request.StatusAccepted, to)
	require.NoError(t, err)
}

func TestListFriends(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	befriend(t, f, f.alice.ID, f.carol.ID)
	befriend(t, f, f.bob.ID, f.alice.ID)

	friends, err := f.friends.ListFriends(ctx, f.alice.ID)
	require.NoError(t, err)
	require.Len(t, friends, 2)
	assert.Equal(t, "bob", friends[0].Username)
	assert.Equal(t, "carol", friends[1].Username)

	friends, err = f.friends.ListFriends(ctx, f.carol.ID)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, f.alice.ID, friends[0].ID)
}

func TestRemoveFriendship(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	befriend(t, f, f.alice.ID, f.bob.ID)

	require.NoError(t, f.friends.RemoveFriendship(ctx, f.bob.ID, f.alice.ID))

	status, err := f.friends.CheckStatus(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, friendship.StatusNotFriends, status.Status)

	err = f.friends.RemoveFriendship(ctx, f.alice.ID, f.bob.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, "friendship not found", apperr.Message(err))

	// The pair can connect again.
	befriend(t, f, f.bob.ID, f.alice.ID)
}

func TestCheckStatusPrecedence(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	status, err := f.friends.CheckStatus(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, friendship.StatusNotFriends, status.Status)
	assert.Nil(t, status.Request)

	_, err = f.friends.CheckStatus(ctx, f.alice.ID, f.alice.ID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))

	// A direct friendship wins even if a stale accepted request exists.
	befriend(t, f, f.alice.ID, f.bob.ID)
	status, err = f.friends.CheckStatus(ctx, f.bob.ID, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, friendship.StatusFriends, status.Status)
	assert.Nil(t, status.Request)
}

func TestGetFriend(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	befriend(t, f, f.alice.ID, f.bob.ID)

	friend, err := f.friends.GetFriend(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", friend.Username)

	_, err = f.friends.GetFriend(ctx, f.alice.ID, f.carol.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestCreateFriendshipDirect(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.friends.CreateFriendship(ctx, f.alice.ID, f.alice.ID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))

	_, err = f.friends.CreateFriendship(ctx, f.alice.ID, uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.requests.CreateRequest(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	_, err = f.friends.CreateFriendship(ctx, f.bob.ID, f.alice.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict), "pending request blocks direct create")

	created, err := f.friends.CreateFriendship(ctx, f.alice.ID, f.carol.ID)
	require.NoError(t, err)
	assert.Equal(t, f.alice.ID, created.User1ID)

	_, err = f.friends.CreateFriendship(ctx, f.carol.ID, f.alice.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}
