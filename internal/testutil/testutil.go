// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"estateSocialAPI/internal/store"
	"estateSocialAPI/internal/user"
)

// TestSigningKey signs the bearer tokens minted by GenerateMockClerkJWT.
var TestSigningKey = []byte("test-secret-key-for-testing-only")

// SetupTestDB connects to TEST_DATABASE_URL and applies the schema. Tests
// that need Postgres are skipped when the variable is unset.
func SetupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping Postgres test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}
	if err := store.NewPostgres(pool).Migrate(ctx); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { CleanupTestDB(t, pool) })
	return pool
}

// CleanupTestDB removes the users created by SeedUser; their requests,
// friendships and devices cascade.
func CleanupTestDB(t *testing.T, pool *pgxpool.Pool) {
	_, err := pool.Exec(context.Background(), "DELETE FROM users WHERE email LIKE 'test%@example.com'")
	if err != nil {
		t.Logf("Warning: failed to cleanup test data: %v", err)
	}
	pool.Close()
}

// SeedUser inserts a user with a unique clerk id.
func SeedUser(t *testing.T, s store.Users, username string) *user.User {
	t.Helper()

	id := uuid.New()
	now := time.Now().UTC().Truncate(time.Microsecond)
	u := &user.User{
		ID:        id,
		ClerkID:   "user_test_" + id.String(),
		Email:     fmt.Sprintf("test.%s@example.com", id.String()[:8]),
		Username:  username,
		FirstName: "Test",
		LastName:  username,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("Failed to seed user %s: %v", username, err)
	}
	return u
}

// GenerateMockClerkJWT mints an HS256 token shaped like a Clerk session token.
func GenerateMockClerkJWT(clerkID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": clerkID,
		"iss": "https://clerk.test",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"azp": "test-app-id",
		"sid": "sess_test123",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(TestSigningKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// VerifyMockClerkJWT is the counterpart of GenerateMockClerkJWT and returns
// the token subject.
func VerifyMockClerkJWT(ctx context.Context, token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return TestSigningKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	return parsed.Claims.GetSubject()
}
