package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"estateSocialAPI/internal/notification"
	"estateSocialAPI/internal/types/friend_request"
	"estateSocialAPI/internal/types/friendship"
	"estateSocialAPI/internal/user"
)

//go:embed schema.sql
var schemaSQL string

const uniqueViolation = "23505"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

var _ Store = (*Postgres)(nil)

// querier is the part of pgxpool.Pool and pgx.Tx the store needs.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Postgres struct {
	pool *pgxpool.Pool
	q    querier
	tx   pgx.Tx
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool, q: pool}
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.q.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (s *Postgres) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&Postgres{pool: s.pool, q: tx, tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

// ---------------------------------------------------------
// USERS
// ---------------------------------------------------------

const userColumns = `id, clerk_id, email, username, first_name, last_name, image_url, created_at, updated_at`

func scanUser(row pgx.Row) (*user.User, error) {
	u := &user.User{}
	err := row.Scan(
		&u.ID,
		&u.ClerkID,
		&u.Email,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.ImageURL,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return u, nil
}

func (s *Postgres) GetUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return scanUser(s.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Postgres) GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error) {
	return scanUser(s.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE clerk_id = $1`, clerkID))
}

func (s *Postgres) GetUsers(ctx context.Context, ids []uuid.UUID) ([]*user.User, error) {
	if len(ids) == 0 {
		return []*user.User{}, nil
	}

	params := make([]string, len(ids))
	for i, id := range ids {
		params[i] = id.String()
	}

	rows, err := s.q.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = ANY($1::uuid[])
		ORDER BY username, id
	`, params)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []*user.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Postgres) SearchUsers(ctx context.Context, query string, excludeID uuid.UUID, limit int) ([]*user.User, error) {
	containsPattern := "%" + escapeLike(query) + "%"
	startsWithPattern := escapeLike(query) + "%"

	rows, err := s.q.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id <> $3
			AND (
				username ILIKE $1 OR
				first_name ILIKE $1 OR
				last_name ILIKE $1 OR
				CONCAT(first_name, ' ', last_name) ILIKE $1
			)
		ORDER BY
			CASE
				WHEN username ILIKE $2 THEN 0
				WHEN first_name ILIKE $2 OR last_name ILIKE $2 THEN 1
				ELSE 2
			END,
			username,
			id
		LIMIT $4
	`, containsPattern, startsWithPattern, excludeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	users := []*user.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// escapeLike makes % and _ in user input match literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (s *Postgres) CreateUser(ctx context.Context, u *user.User) error {
	query := `
	INSERT INTO users (id, clerk_id, email, username, first_name, last_name, image_url, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.q.Exec(ctx, query,
		u.ID, u.ClerkID, u.Email, u.Username, u.FirstName, u.LastName, u.ImageURL, u.CreatedAt, u.UpdatedAt,
	)
	return mapError(err)
}

func (s *Postgres) UpdateUser(ctx context.Context, u *user.User) error {
	query := `
	UPDATE users
	SET email = $2, username = $3, first_name = $4, last_name = $5, image_url = $6, updated_at = $7
	WHERE id = $1
	`
	tag, err := s.q.Exec(ctx, query, u.ID, u.Email, u.Username, u.FirstName, u.LastName, u.ImageURL, u.UpdatedAt)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) DeleteUserByClerkID(ctx context.Context, clerkID string) error {
	// Requests, friendships and device tokens go with the user via ON DELETE CASCADE.
	tag, err := s.q.Exec(ctx, `DELETE FROM users WHERE clerk_id = $1`, clerkID)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------
// FRIEND REQUESTS
// ---------------------------------------------------------

const requestColumns = `id, from_user_id, to_user_id, status, created_at, updated_at`

func scanRequest(row pgx.Row) (*friend_request.FriendRequest, error) {
	r := &friend_request.FriendRequest{}
	var status string
	if err := row.Scan(&r.ID, &r.FromID, &r.ToID, &status, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, mapError(err)
	}
	r.Status = friend_request.Status(status)
	return r, nil
}

func (s *Postgres) CreateFriendRequest(ctx context.Context, r *friend_request.FriendRequest) error {
	query := `
		INSERT INTO friend_requests (id, from_user_id, to_user_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.q.Exec(ctx, query, r.ID, r.FromID, r.ToID, string(r.Status), r.CreatedAt, r.UpdatedAt)
	return mapError(err)
}

func (s *Postgres) GetFriendRequest(ctx context.Context, id uuid.UUID) (*friend_request.FriendRequest, error) {
	return scanRequest(s.q.QueryRow(ctx, `SELECT `+requestColumns+` FROM friend_requests WHERE id = $1`, id))
}

func (s *Postgres) FindFriendRequestBetween(ctx context.Context, a, b uuid.UUID) (*friend_request.FriendRequest, error) {
	key := friendship.NewPairKey(a, b)
	return scanRequest(s.q.QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM friend_requests
		WHERE pair_low = $1 AND pair_high = $2
	`, key.Low, key.High))
}

func (s *Postgres) ListFriendRequests(ctx context.Context, filter friend_request.Filter) ([]*friend_request.FriendRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM friend_requests WHERE TRUE`
	args := []any{}

	if filter.FromID != uuid.Nil {
		args = append(args, filter.FromID)
		query += fmt.Sprintf(" AND from_user_id = $%d", len(args))
	}
	if filter.ToID != uuid.Nil {
		args = append(args, filter.ToID)
		query += fmt.Sprintf(" AND to_user_id = $%d", len(args))
	}
	if filter.Participant != uuid.Nil {
		args = append(args, filter.Participant)
		query += fmt.Sprintf(" AND (from_user_id = $%d OR to_user_id = $%d)", len(args), len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query friend requests: %w", err)
	}
	defer rows.Close()

	requests := []*friend_request.FriendRequest{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan friend request: %w", err)
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

func (s *Postgres) TransitionFriendRequest(ctx context.Context, id uuid.UUID, from, to friend_request.Status) (*friend_request.FriendRequest, error) {
	return scanRequest(s.q.QueryRow(ctx, `
		UPDATE friend_requests
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
		RETURNING `+requestColumns,
		id, string(from), string(to), time.Now().UTC(),
	))
}

func (s *Postgres) DeleteFriendRequest(ctx context.Context, id uuid.UUID) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM friend_requests WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------
// FRIENDSHIPS
// ---------------------------------------------------------

const friendshipColumns = `id, user1_id, user2_id, created_at`

func scanFriendship(row pgx.Row) (*friendship.Friendship, error) {
	f := &friendship.Friendship{}
	if err := row.Scan(&f.ID, &f.User1ID, &f.User2ID, &f.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	return f, nil
}

func (s *Postgres) CreateFriendship(ctx context.Context, f *friendship.Friendship) error {
	query := `
		INSERT INTO friendships (id, user1_id, user2_id, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.q.Exec(ctx, query, f.ID, f.User1ID, f.User2ID, f.CreatedAt)
	return mapError(err)
}

func (s *Postgres) FindFriendship(ctx context.Context, a, b uuid.UUID) (*friendship.Friendship, error) {
	key := friendship.NewPairKey(a, b)
	return scanFriendship(s.q.QueryRow(ctx, `
		SELECT `+friendshipColumns+`
		FROM friendships
		WHERE pair_low = $1 AND pair_high = $2
	`, key.Low, key.High))
}

func (s *Postgres) ListFriendships(ctx context.Context, userID uuid.UUID) ([]*friendship.Friendship, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+friendshipColumns+`
		FROM friendships
		WHERE user1_id = $1 OR user2_id = $1
		ORDER BY created_at DESC, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query friendships: %w", err)
	}
	defer rows.Close()

	friendships := []*friendship.Friendship{}
	for rows.Next() {
		f, err := scanFriendship(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan friendship: %w", err)
		}
		friendships = append(friendships, f)
	}
	return friendships, rows.Err()
}

func (s *Postgres) DeleteFriendship(ctx context.Context, id uuid.UUID) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM friendships WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------
// DEVICE TOKENS
// ---------------------------------------------------------

func (s *Postgres) UpsertDeviceToken(ctx context.Context, t *notification.DeviceToken) error {
	query := `
		INSERT INTO device_tokens (user_id, token, platform, added_at, last_used)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, token)
		DO UPDATE SET platform = EXCLUDED.platform, last_used = EXCLUDED.last_used
	`
	_, err := s.q.Exec(ctx, query, t.UserID, t.Token, string(t.Platform), t.AddedAt, t.LastUsed)
	return mapError(err)
}

func (s *Postgres) ListDeviceTokens(ctx context.Context, userID uuid.UUID) ([]*notification.DeviceToken, error) {
	rows, err := s.q.Query(ctx, `
		SELECT user_id, token, platform, added_at, last_used
		FROM device_tokens
		WHERE user_id = $1
		ORDER BY last_used DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query device tokens: %w", err)
	}
	defer rows.Close()

	tokens := []*notification.DeviceToken{}
	for rows.Next() {
		t := &notification.DeviceToken{}
		var platform string
		if err := rows.Scan(&t.UserID, &t.Token, &platform, &t.AddedAt, &t.LastUsed); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		t.Platform = notification.Platform(platform)
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (s *Postgres) DeleteDeviceToken(ctx context.Context, userID uuid.UUID, token string) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM device_tokens WHERE user_id = $1 AND token = $2`, userID, token)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
