package friendship

import (
	"bytes"
	"time"

	"github.com/google/uuid"

	"estateSocialAPI/internal/types/friend_request"
)

type Friendship struct {
	ID        uuid.UUID `json:"id" db:"id"`
	User1ID   uuid.UUID `json:"user1" db:"user1_id"`
	User2ID   uuid.UUID `json:"user2" db:"user2_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Other returns the side of the friendship that is not userID.
func (f *Friendship) Other(userID uuid.UUID) uuid.UUID {
	if f.User1ID == userID {
		return f.User2ID
	}
	return f.User1ID
}

func (f *Friendship) Pair() PairKey {
	return NewPairKey(f.User1ID, f.User2ID)
}

// PairKey identifies an unordered pair of users. Low sorts before High in
// byte order, which matches how Postgres orders uuid values.
type PairKey struct {
	Low  uuid.UUID
	High uuid.UUID
}

func NewPairKey(a, b uuid.UUID) PairKey {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return PairKey{Low: a, High: b}
	}
	return PairKey{Low: b, High: a}
}

type RelationshipStatus string

const (
	StatusFriends         RelationshipStatus = "friends"
	StatusRequestSent     RelationshipStatus = "request_sent"
	StatusRequestReceived RelationshipStatus = "request_received"
	StatusNotFriends      RelationshipStatus = "not_friends"
)

// StatusResult is the answer to a relationship status check between the
// caller and another user. Request is set for the two request states.
type StatusResult struct {
	Status  RelationshipStatus            `json:"status"`
	Request *friend_request.FriendRequest `json:"data"`
}

type CreateFriendshipRequest struct {
	UserID string `json:"userId"`
}
