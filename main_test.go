package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estateSocialAPI/internal/config"
	"estateSocialAPI/internal/realtime"
	"estateSocialAPI/internal/store"
	"estateSocialAPI/internal/testutil"
	"estateSocialAPI/internal/user"
)

type testServer struct {
	*httptest.Server
	store *store.Memory
	app   *app
}

func newTestServer(t *testing.T, ping func(ctx context.Context) error) *testServer {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := &config.Config{
		StorageDriver:       config.DriverMemory,
		RateLimitRPS:        1000,
		RateLimitBurst:      1000,
		NotificationWorkers: 2,
		CORSAllowedOrigins:  []string{"*"},
		MetricsUser:         "metrics",
		MetricsPass:         "secret",
	}

	st := store.NewMemory()
	hub := realtime.NewHub()
	go hub.Run(ctx)

	a := newApp(cfg, st, hub, testutil.VerifyMockClerkJWT, ping)
	t.Cleanup(a.dispatcher.Stop)

	server := httptest.NewServer(a.routes())
	t.Cleanup(server.Close)

	return &testServer{Server: server, store: st, app: a}
}

func (s *testServer) do(t *testing.T, method, path string, as *user.User, body any) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, s.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		token, err := testutil.GenerateMockClerkJWT(as.ClerkID)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func dataField(t *testing.T, body map[string]any, key string) any {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %v", body)
	return data[key]
}

func TestFriendRequestFlow(t *testing.T) {
	srv := newTestServer(t, func(ctx context.Context) error { return nil })
	alice := testutil.SeedUser(t, srv.store, "alice")
	bob := testutil.SeedUser(t, srv.store, "bob")

	code, body := srv.do(t, http.MethodGet, "/api/v1/users/search?q=bo", alice, nil)
	require.Equal(t, http.StatusOK, code, body)
	found := body["data"].([]any)
	require.Len(t, found, 1)
	bobID := found[0].(map[string]any)["id"].(string)
	assert.Equal(t, bob.ID.String(), bobID)

	code, body = srv.do(t, http.MethodGet, "/api/v1/users/"+bobID, alice, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "bob", dataField(t, body, "username"))

	code, body = srv.do(t, http.MethodPost, "/api/v1/friend-requests", alice, map[string]string{"to": bobID})
	require.Equal(t, http.StatusCreated, code, body)
	requestID := dataField(t, body, "id").(string)
	assert.Equal(t, "pending", dataField(t, body, "status"))

	code, body = srv.do(t, http.MethodPost, "/api/v1/friend-requests", bob, map[string]string{"to": alice.ID.String()})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "friend request already exists", body["error"])

	code, body = srv.do(t, http.MethodGet, "/api/v1/friend-requests/pending", bob, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["meta"].(map[string]any)["total"])
	sender := body["data"].([]any)[0].(map[string]any)["from"].(map[string]any)
	assert.Equal(t, "alice", sender["username"])

	code, body = srv.do(t, http.MethodGet, "/api/v1/friends/status/"+bob.ID.String(), alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "request_sent", body["status"])

	code, _ = srv.do(t, http.MethodPut, "/api/v1/friend-requests/"+requestID, alice, map[string]string{"status": "accepted"})
	assert.Equal(t, http.StatusForbidden, code)

	code, body = srv.do(t, http.MethodPut, "/api/v1/friend-requests/"+requestID, bob, map[string]string{"status": "accepted"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "accepted", dataField(t, body, "status"))

	code, body = srv.do(t, http.MethodGet, "/api/v1/friends", alice, nil)
	require.Equal(t, http.StatusOK, code)
	friends := body["data"].([]any)
	require.Len(t, friends, 1)
	assert.Equal(t, bob.ID.String(), friends[0].(map[string]any)["id"])

	code, body = srv.do(t, http.MethodGet, "/api/v1/friends/status/"+alice.ID.String(), bob, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "friends", body["status"])

	code, _ = srv.do(t, http.MethodDelete, "/api/v1/friends/"+bob.ID.String(), alice, nil)
	require.Equal(t, http.StatusOK, code)

	code, body = srv.do(t, http.MethodGet, "/api/v1/friends/status/"+bob.ID.String(), alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "not_friends", body["status"])
}

func TestRoutesRequireRegisteredUser(t *testing.T) {
	srv := newTestServer(t, func(ctx context.Context) error { return nil })

	code, _ := srv.do(t, http.MethodGet, "/api/v1/friends", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	stranger := &user.User{ClerkID: "user_never_synced"}
	code, body := srv.do(t, http.MethodGet, "/api/v1/friends", stranger, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "User is not registered", body["error"])

	alice := testutil.SeedUser(t, srv.store, "alice")
	code, _ = srv.do(t, http.MethodGet, "/api/v1/friend-requests/not-a-uuid", alice, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRealtimeReceivesFriendRequest(t *testing.T) {
	srv := newTestServer(t, func(ctx context.Context) error { return nil })
	alice := testutil.SeedUser(t, srv.store, "alice")
	bob := testutil.SeedUser(t, srv.store, "bob")

	token, err := testutil.GenerateMockClerkJWT(bob.ClerkID)
	require.NoError(t, err)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return srv.app.hub.IsOnline(bob.ID) }, 2*time.Second, 10*time.Millisecond)

	code, _ := srv.do(t, http.MethodPost, "/api/v1/friend-requests", alice, map[string]string{"to": bob.ID.String()})
	require.Equal(t, http.StatusCreated, code)

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Event string         `json:"event"`
		Data  map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "friend_request_received", msg.Event)
	assert.Equal(t, "New friend request", msg.Data["title"])
	assert.Equal(t, "alice sent you a friend request", msg.Data["body"])
}

func TestHealthAndMetricsAccess(t *testing.T) {
	healthy := newTestServer(t, func(ctx context.Context) error { return nil })
	code, body := healthy.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])

	down := newTestServer(t, func(ctx context.Context) error { return errors.New("connection refused") })
	code, body = down.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body["status"])

	resp, err := http.Get(healthy.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, healthy.URL+"/metrics", nil)
	require.NoError(t, err)
	req.SetBasicAuth("metrics", "secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
