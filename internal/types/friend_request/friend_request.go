package friend_request

import (
	"time"

	"github.com/google/uuid"

	"estateSocialAPI/internal/user"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// IsDecision reports whether s is a status a recipient may move a pending
// request to.
func (s Status) IsDecision() bool {
	return s == StatusAccepted || s == StatusRejected
}

type FriendRequest struct {
	ID        uuid.UUID `json:"id" db:"id"`
	FromID    uuid.UUID `json:"from" db:"from_user_id"`
	ToID      uuid.UUID `json:"to" db:"to_user_id"`
	Status    Status    `json:"status" db:"status"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Detail is a request with both participants expanded to their public
// profiles.
type Detail struct {
	ID        uuid.UUID   `json:"id"`
	From      user.Public `json:"from"`
	To        user.Public `json:"to"`
	Status    Status      `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// Involves reports whether userID is the sender or the recipient.
func (r *FriendRequest) Involves(userID uuid.UUID) bool {
	return r.FromID == userID || r.ToID == userID
}

// Filter selects friend requests. Zero-valued fields are ignored;
// Participant matches either side of the request.
type Filter struct {
	FromID      uuid.UUID
	ToID        uuid.UUID
	Participant uuid.UUID
	Status      Status
}

func (f Filter) Matches(r *FriendRequest) bool {
	if f.FromID != uuid.Nil && r.FromID != f.FromID {
		return false
	}
	if f.ToID != uuid.Nil && r.ToID != f.ToID {
		return false
	}
	if f.Participant != uuid.Nil && !r.Involves(f.Participant) {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return true
}

type CreateRequest struct {
	To string `json:"to"`
}

type UpdateStatusRequest struct {
	Status Status `json:"status"`
}
