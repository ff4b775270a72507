package app_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keelworks/vaultward/internal/app"
	_ "github.com/keelworks/vaultward/testing"
)

const webhookSecret = "test-secret"

func sign(ts, body string) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write([]byte(ts + "." + body))
	return hex.EncodeToString(mac.Sum(nil))
}

func webhookHandler(t *testing.T, gotBody *string) http.Handler {
	t.Helper()
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		*gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	})
	return app.VerifyWebhook(webhookSecret, 5*time.Minute, nil)(inner)
}

func TestVerifyWebhookAcceptsSignedRequest(t *testing.T) {
	var gotBody string
	handler := webhookHandler(t, &gotBody)

	body := `{"email":"ada@example.com"}`
	ts := fmt.Sprintf("%d", time.Now().Unix())
	req := httptest.NewRequest(http.MethodPost, "/commands/provision", strings.NewReader(body))
	req.Header.Set("X-Vaultward-Timestamp", ts)
	req.Header.Set("X-Vaultward-Signature", sign(ts, body))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, body, gotBody, "body must be readable downstream after verification")
}

func TestVerifyWebhookRejectsBadSignature(t *testing.T) {
	var gotBody string
	handler := webhookHandler(t, &gotBody)

	ts := fmt.Sprintf("%d", time.Now().Unix())
	req := httptest.NewRequest(http.MethodPost, "/commands/provision", strings.NewReader(`{}`))
	req.Header.Set("X-Vaultward-Timestamp", ts)
	req.Header.Set("X-Vaultward-Signature", "deadbeef")

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusUnauthorized, res.Code)
	require.Empty(t, gotBody)
}

func TestVerifyWebhookRejectsStaleTimestamp(t *testing.T) {
	var gotBody string
	handler := webhookHandler(t, &gotBody)

	body := `{}`
	ts := fmt.Sprintf("%d", time.Now().Add(-time.Hour).Unix())
	req := httptest.NewRequest(http.MethodPost, "/commands/provision", strings.NewReader(body))
	req.Header.Set("X-Vaultward-Timestamp", ts)
	req.Header.Set("X-Vaultward-Signature", sign(ts, body))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestVerifyWebhookRejectsFutureTimestamp(t *testing.T) {
	var gotBody string
	handler := webhookHandler(t, &gotBody)

	body := `{}`
	ts := fmt.Sprintf("%d", time.Now().Add(time.Hour).Unix())
	req := httptest.NewRequest(http.MethodPost, "/commands/provision", strings.NewReader(body))
	req.Header.Set("X-Vaultward-Timestamp", ts)
	req.Header.Set("X-Vaultward-Signature", sign(ts, body))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusUnauthorized, res.Code)
	require.Empty(t, gotBody)
}

func TestVerifyWebhookRejectsMissingHeaders(t *testing.T) {
	var gotBody string
	handler := webhookHandler(t, &gotBody)

	req := httptest.NewRequest(http.MethodPost, "/commands/provision", strings.NewReader(`{}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusUnauthorized, res.Code)
}
