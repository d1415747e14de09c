package integration

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navyaJuicesAPI/handlers"
	"navyaJuicesAPI/services"
	"navyaJuicesAPI/tests/helpers"
)

// TestClerkWebhookUserLifecycle drives created, updated and deleted events
// through the webhook endpoint and checks the local users table follows.
func TestClerkWebhookUserLifecycle(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	userService := services.NewUserService(pool)
	webhookHandler := handlers.NewWebhookHandler(userService)

	// Empty secret disables signature verification for the test.
	os.Setenv("CLERK_WEBHOOK_SECRET", "")
	defer os.Unsetenv("CLERK_WEBHOOK_SECRET")

	ctx := context.Background()
	clerkID := "user_test_wh_" + time.Now().Format("20060102150405.000")

	post := func(payload []byte) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(payload))
		rr := httptest.NewRecorder()
		webhookHandler.HandleClerkWebhook(rr, req)
		return rr
	}

	// user.created inserts the row.
	rr := post(helpers.MockClerkWebhookPayload("user.created", clerkID))
	require.Equal(t, http.StatusOK, rr.Code)

	u, err := userService.GetUserByClerkID(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, "Test", u.FirstName)

	// user.updated upserts onto the same row.
	rr = post(helpers.MockClerkWebhookPayload("user.updated", clerkID))
	require.Equal(t, http.StatusOK, rr.Code)

	u, err = userService.GetUserByClerkID(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, "Updated", u.FirstName)

	// Replaying the same event stays idempotent.
	rr = post(helpers.MockClerkWebhookPayload("user.updated", clerkID))
	require.Equal(t, http.StatusOK, rr.Code)

	// user.deleted removes the row.
	rr = post(helpers.MockClerkWebhookPayload("user.deleted", clerkID))
	require.Equal(t, http.StatusOK, rr.Code)

	_, err = userService.GetUserByClerkID(ctx, clerkID)
	assert.ErrorIs(t, err, services.ErrUserNotFound)
}

func TestClerkWebhookSignatureVerification(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	webhookHandler := handlers.NewWebhookHandler(services.NewUserService(pool))

	rawKey := []byte("test-webhook-signing-key-32bytes")
	os.Setenv("CLERK_WEBHOOK_SECRET", "whsec_"+base64.StdEncoding.EncodeToString(rawKey))
	defer os.Unsetenv("CLERK_WEBHOOK_SECRET")

	clerkID := "user_test_sig_" + time.Now().Format("20060102150405.000")
	payload := helpers.MockClerkWebhookPayload("user.created", clerkID)

	svixID := "msg_test123"
	svixTimestamp := fmt.Sprintf("%d", time.Now().Unix())

	mac := hmac.New(sha256.New, rawKey)
	fmt.Fprintf(mac, "%s.%s.%s", svixID, svixTimestamp, payload)
	signature := "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil))

	// A correctly signed request is accepted.
	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(payload))
	req.Header.Set("svix-id", svixID)
	req.Header.Set("svix-timestamp", svixTimestamp)
	req.Header.Set("svix-signature", signature)
	rr := httptest.NewRecorder()
	webhookHandler.HandleClerkWebhook(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	// A tampered body is rejected.
	req = httptest.NewRequest(http.MethodPost, "/webhooks/clerk",
		bytes.NewReader(append(payload, ' ')))
	req.Header.Set("svix-id", svixID)
	req.Header.Set("svix-timestamp", svixTimestamp)
	req.Header.Set("svix-signature", signature)
	rr = httptest.NewRecorder()
	webhookHandler.HandleClerkWebhook(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// Missing signature headers are rejected outright.
	req = httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(payload))
	rr = httptest.NewRecorder()
	webhookHandler.HandleClerkWebhook(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestClerkWebhookUnknownEventIgnored(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	webhookHandler := handlers.NewWebhookHandler(services.NewUserService(pool))

	os.Setenv("CLERK_WEBHOOK_SECRET", "")
	defer os.Unsetenv("CLERK_WEBHOOK_SECRET")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk",
		bytes.NewReader([]byte(`{"type": "session.created", "data": {}}`)))
	rr := httptest.NewRecorder()
	webhookHandler.HandleClerkWebhook(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}
