package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estateSocialAPI/internal/apperr"
	"estateSocialAPI/internal/store"
	"estateSocialAPI/services"
)

var testWebhookKey = []byte("clerk-webhook-test-key")

func testWebhookSecret() string {
	return "whsec_" + base64.StdEncoding.EncodeToString(testWebhookKey)
}

func userPayload(eventType, clerkID, username string) []byte {
	return []byte(fmt.Sprintf(`{
		"type": %q,
		"object": "event",
		"data": {
			"id": %q,
			"username": %q,
			"first_name": "Test",
			"last_name": "User",
			"image_url": "https://img.clerk.com/test.png",
			"primary_email_address_id": "idn_2",
			"email_addresses": [
				{"id": "idn_1", "email_address": "old@example.com"},
				{"id": "idn_2", "email_address": "test.user@example.com"}
			]
		}
	}`, eventType, clerkID, username))
}

func signedRequest(body []byte, ts time.Time) *http.Request {
	id := "msg_test"
	stamp := strconv.FormatInt(ts.Unix(), 10)

	mac := hmac.New(sha256.New, testWebhookKey)
	mac.Write([]byte(id + "." + stamp + "." + string(body)))
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(body))
	req.Header.Set("svix-id", id)
	req.Header.Set("svix-timestamp", stamp)
	req.Header.Set("svix-signature", "v1,bm90LXRoZS1zaWc= v1,"+sig)
	return req
}

func TestWebhookUserLifecycle(t *testing.T) {
	ctx := context.Background()
	userService := services.NewUserService(store.NewMemory())
	h := NewWebhookHandler(userService, testWebhookSecret())

	rr := httptest.NewRecorder()
	h.HandleClerkWebhook(rr, signedRequest(userPayload("user.created", "user_wh", "webhooker"), time.Now()))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	u, err := userService.GetUserByClerkID(ctx, "user_wh")
	require.NoError(t, err)
	assert.Equal(t, "test.user@example.com", u.Email)
	assert.Equal(t, "webhooker", u.Username)

	// A redelivered create is acknowledged.
	rr = httptest.NewRecorder()
	h.HandleClerkWebhook(rr, signedRequest(userPayload("user.created", "user_wh", "webhooker"), time.Now()))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.HandleClerkWebhook(rr, signedRequest(userPayload("user.updated", "user_wh", ""), time.Now()))
	require.Equal(t, http.StatusOK, rr.Code)

	u, err = userService.GetUserByClerkID(ctx, "user_wh")
	require.NoError(t, err)
	assert.Equal(t, "TestUser", u.Username)

	rr = httptest.NewRecorder()
	h.HandleClerkWebhook(rr, signedRequest([]byte(`{"type":"user.deleted","data":{"id":"user_wh"}}`), time.Now()))
	require.Equal(t, http.StatusOK, rr.Code)

	_, err = userService.GetUserByClerkID(ctx, "user_wh")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestWebhookRejectsBadSignatures(t *testing.T) {
	h := NewWebhookHandler(services.NewUserService(store.NewMemory()), testWebhookSecret())
	body := userPayload("user.created", "user_bad", "bad")

	tampered := signedRequest(body, time.Now())
	tampered.Header.Set("svix-signature", "v1,"+base64.StdEncoding.EncodeToString([]byte("forged")))

	stale := signedRequest(body, time.Now().Add(-time.Hour))

	missing := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(body))

	for name, req := range map[string]*http.Request{"tampered": tampered, "stale": stale, "missing headers": missing} {
		rr := httptest.NewRecorder()
		h.HandleClerkWebhook(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, name)
	}
}

func TestWebhookWithoutSecretSkipsVerification(t *testing.T) {
	h := NewWebhookHandler(services.NewUserService(store.NewMemory()), "")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(userPayload("user.created", "user_dev", "dev")))
	rr := httptest.NewRecorder()
	h.HandleClerkWebhook(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader([]byte("{not json")))
	rr = httptest.NewRecorder()
	h.HandleClerkWebhook(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
