package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"estateSocialAPI/internal/notification"
	"estateSocialAPI/internal/types/friend_request"
	"estateSocialAPI/internal/types/friendship"
	"estateSocialAPI/internal/user"
)

var _ Store = (*Memory)(nil)

// Memory is an in-process Store. A single mutex serializes every operation;
// transactions work on a copy of the state that replaces the live state on
// commit. It enforces the same unique keys as the Postgres schema.
type Memory struct {
	mu   *sync.Mutex
	db   *memDB
	view *memState // non-nil inside WithTx
}

type memDB struct {
	cur *memState
}

type deviceKey struct {
	userID uuid.UUID
	token  string
}

type memState struct {
	users       map[uuid.UUID]user.User
	requests    map[uuid.UUID]friend_request.FriendRequest
	friendships map[uuid.UUID]friendship.Friendship
	devices     map[deviceKey]notification.DeviceToken
}

func newMemState() *memState {
	return &memState{
		users:       map[uuid.UUID]user.User{},
		requests:    map[uuid.UUID]friend_request.FriendRequest{},
		friendships: map[uuid.UUID]friendship.Friendship{},
		devices:     map[deviceKey]notification.DeviceToken{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.requests {
		c.requests[k] = v
	}
	for k, v := range s.friendships {
		c.friendships[k] = v
	}
	for k, v := range s.devices {
		c.devices[k] = v
	}
	return c
}

func NewMemory() *Memory {
	return &Memory{mu: &sync.Mutex{}, db: &memDB{cur: newMemState()}}
}

// lock takes the store mutex unless the caller is already inside a
// transaction, which holds it.
func (m *Memory) lock() (*memState, func()) {
	if m.view != nil {
		return m.view, func() {}
	}
	m.mu.Lock()
	return m.db.cur, m.mu.Unlock
}

func (m *Memory) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if m.view != nil {
		return fn(m)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.db.cur.clone()
	if err := fn(&Memory{mu: m.mu, db: m.db, view: snapshot}); err != nil {
		return err
	}
	m.db.cur = snapshot
	return nil
}

// ---------------------------------------------------------
// USERS
// ---------------------------------------------------------

func (m *Memory) GetUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	st, unlock := m.lock()
	defer unlock()

	u, ok := st.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *Memory) GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error) {
	st, unlock := m.lock()
	defer unlock()

	for _, u := range st.users {
		if u.ClerkID == clerkID {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) GetUsers(ctx context.Context, ids []uuid.UUID) ([]*user.User, error) {
	st, unlock := m.lock()
	defer unlock()

	seen := map[uuid.UUID]bool{}
	users := []*user.User{}
	for _, id := range ids {
		u, ok := st.users[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		users = append(users, &u)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Username != users[j].Username {
			return users[i].Username < users[j].Username
		}
		return users[i].ID.String() < users[j].ID.String()
	})
	return users, nil
}

func (m *Memory) SearchUsers(ctx context.Context, query string, excludeID uuid.UUID, limit int) ([]*user.User, error) {
	st, unlock := m.lock()
	defer unlock()

	q := strings.ToLower(query)
	rank := func(u *user.User) int {
		switch {
		case strings.HasPrefix(strings.ToLower(u.Username), q):
			return 0
		case strings.HasPrefix(strings.ToLower(u.FirstName), q), strings.HasPrefix(strings.ToLower(u.LastName), q):
			return 1
		}
		return 2
	}

	users := []*user.User{}
	for _, u := range st.users {
		if u.ID == excludeID {
			continue
		}
		fullName := strings.ToLower(u.FirstName + " " + u.LastName)
		if strings.Contains(strings.ToLower(u.Username), q) || strings.Contains(fullName, q) {
			users = append(users, &u)
		}
	}
	sort.Slice(users, func(i, j int) bool {
		if ri, rj := rank(users[i]), rank(users[j]); ri != rj {
			return ri < rj
		}
		if users[i].Username != users[j].Username {
			return users[i].Username < users[j].Username
		}
		return users[i].ID.String() < users[j].ID.String()
	})
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (m *Memory) CreateUser(ctx context.Context, u *user.User) error {
	st, unlock := m.lock()
	defer unlock()

	if _, ok := st.users[u.ID]; ok {
		return ErrDuplicate
	}
	for _, existing := range st.users {
		if existing.ClerkID == u.ClerkID {
			return ErrDuplicate
		}
	}
	st.users[u.ID] = *u
	return nil
}

func (m *Memory) UpdateUser(ctx context.Context, u *user.User) error {
	st, unlock := m.lock()
	defer unlock()

	existing, ok := st.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Email = u.Email
	existing.Username = u.Username
	existing.FirstName = u.FirstName
	existing.LastName = u.LastName
	existing.ImageURL = u.ImageURL
	existing.UpdatedAt = u.UpdatedAt
	st.users[u.ID] = existing
	return nil
}

func (m *Memory) DeleteUserByClerkID(ctx context.Context, clerkID string) error {
	st, unlock := m.lock()
	defer unlock()

	var id uuid.UUID
	found := false
	for _, u := range st.users {
		if u.ClerkID == clerkID {
			id, found = u.ID, true
			break
		}
	}
	if !found {
		return ErrNotFound
	}

	delete(st.users, id)
	for rid, r := range st.requests {
		if r.Involves(id) {
			delete(st.requests, rid)
		}
	}
	for fid, f := range st.friendships {
		if f.User1ID == id || f.User2ID == id {
			delete(st.friendships, fid)
		}
	}
	for k := range st.devices {
		if k.userID == id {
			delete(st.devices, k)
		}
	}
	return nil
}

// ---------------------------------------------------------
// FRIEND REQUESTS
// ---------------------------------------------------------

func (m *Memory) CreateFriendRequest(ctx context.Context, r *friend_request.FriendRequest) error {
	st, unlock := m.lock()
	defer unlock()

	if _, ok := st.requests[r.ID]; ok {
		return ErrDuplicate
	}
	key := friendship.NewPairKey(r.FromID, r.ToID)
	for _, existing := range st.requests {
		if friendship.NewPairKey(existing.FromID, existing.ToID) == key {
			return ErrDuplicate
		}
	}
	st.requests[r.ID] = *r
	return nil
}

func (m *Memory) GetFriendRequest(ctx context.Context, id uuid.UUID) (*friend_request.FriendRequest, error) {
	st, unlock := m.lock()
	defer unlock()

	r, ok := st.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *Memory) FindFriendRequestBetween(ctx context.Context, a, b uuid.UUID) (*friend_request.FriendRequest, error) {
	st, unlock := m.lock()
	defer unlock()

	key := friendship.NewPairKey(a, b)
	for _, r := range st.requests {
		if friendship.NewPairKey(r.FromID, r.ToID) == key {
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListFriendRequests(ctx context.Context, filter friend_request.Filter) ([]*friend_request.FriendRequest, error) {
	st, unlock := m.lock()
	defer unlock()

	requests := []*friend_request.FriendRequest{}
	for _, r := range st.requests {
		if filter.Matches(&r) {
			requests = append(requests, &r)
		}
	}
	sort.Slice(requests, func(i, j int) bool {
		if !requests[i].CreatedAt.Equal(requests[j].CreatedAt) {
			return requests[i].CreatedAt.After(requests[j].CreatedAt)
		}
		return requests[i].ID.String() < requests[j].ID.String()
	})
	return requests, nil
}

func (m *Memory) TransitionFriendRequest(ctx context.Context, id uuid.UUID, from, to friend_request.Status) (*friend_request.FriendRequest, error) {
	st, unlock := m.lock()
	defer unlock()

	r, ok := st.requests[id]
	if !ok || r.Status != from {
		return nil, ErrNotFound
	}
	r.Status = to
	r.UpdatedAt = time.Now().UTC()
	st.requests[id] = r
	return &r, nil
}

func (m *Memory) DeleteFriendRequest(ctx context.Context, id uuid.UUID) error {
	st, unlock := m.lock()
	defer unlock()

	if _, ok := st.requests[id]; !ok {
		return ErrNotFound
	}
	delete(st.requests, id)
	return nil
}

// ---------------------------------------------------------
// FRIENDSHIPS
// ---------------------------------------------------------

func (m *Memory) CreateFriendship(ctx context.Context, f *friendship.Friendship) error {
	st, unlock := m.lock()
	defer unlock()

	if _, ok := st.friendships[f.ID]; ok {
		return ErrDuplicate
	}
	key := f.Pair()
	for _, existing := range st.friendships {
		if existing.Pair() == key {
			return ErrDuplicate
		}
	}
	st.friendships[f.ID] = *f
	return nil
}

func (m *Memory) FindFriendship(ctx context.Context, a, b uuid.UUID) (*friendship.Friendship, error) {
	st, unlock := m.lock()
	defer unlock()

	key := friendship.NewPairKey(a, b)
	for _, f := range st.friendships {
		if f.Pair() == key {
			return &f, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListFriendships(ctx context.Context, userID uuid.UUID) ([]*friendship.Friendship, error) {
	st, unlock := m.lock()
	defer unlock()

	friendships := []*friendship.Friendship{}
	for _, f := range st.friendships {
		if f.User1ID == userID || f.User2ID == userID {
			friendships = append(friendships, &f)
		}
	}
	sort.Slice(friendships, func(i, j int) bool {
		if !friendships[i].CreatedAt.Equal(friendships[j].CreatedAt) {
			return friendships[i].CreatedAt.After(friendships[j].CreatedAt)
		}
		return friendships[i].ID.String() < friendships[j].ID.String()
	})
	return friendships, nil
}

func (m *Memory) DeleteFriendship(ctx context.Context, id uuid.UUID) error {
	st, unlock := m.lock()
	defer unlock()

	if _, ok := st.friendships[id]; !ok {
		return ErrNotFound
	}
	delete(st.friendships, id)
	return nil
}

// ---------------------------------------------------------
// DEVICE TOKENS
// ---------------------------------------------------------

func (m *Memory) UpsertDeviceToken(ctx context.Context, t *notification.DeviceToken) error {
	st, unlock := m.lock()
	defer unlock()

	key := deviceKey{userID: t.UserID, token: t.Token}
	if existing, ok := st.devices[key]; ok {
		existing.Platform = t.Platform
		existing.LastUsed = t.LastUsed
		st.devices[key] = existing
		return nil
	}
	st.devices[key] = *t
	return nil
}

func (m *Memory) ListDeviceTokens(ctx context.Context, userID uuid.UUID) ([]*notification.DeviceToken, error) {
	st, unlock := m.lock()
	defer unlock()

	tokens := []*notification.DeviceToken{}
	for k, t := range st.devices {
		if k.userID == userID {
			tokens = append(tokens, &t)
		}
	}
	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].LastUsed.After(tokens[j].LastUsed)
	})
	return tokens, nil
}

func (m *Memory) DeleteDeviceToken(ctx context.Context, userID uuid.UUID, token string) error {
	st, unlock := m.lock()
	defer unlock()

	key := deviceKey{userID: userID, token: token}
	if _, ok := st.devices[key]; !ok {
		return ErrNotFound
	}
	delete(st.devices, key)
	return nil
}
