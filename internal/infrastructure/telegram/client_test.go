package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "123456:ABC-DEF"

func newBotServer(t *testing.T, handle func(method string, params map[string]any) (int, string)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prefix := "/bot" + testToken + "/"
		assert.Equal(t, http.MethodPost, r.Method)
		method, ok := strings.CutPrefix(r.URL.Path, prefix)
		if !assert.True(t, ok, "unexpected path %s", r.URL.Path) {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		params := map[string]any{}
		if r.ContentLength > 0 {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		}
		status, body := handle(method, params)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClient_SetWebhook(t *testing.T) {
	var gotMethod string
	var gotParams map[string]any
	server := newBotServer(t, func(method string, params map[string]any) (int, string) {
		gotMethod, gotParams = method, params
		return http.StatusOK, `{"ok":true,"result":true,"description":"Webhook was set"}`
	})

	client, err := NewClient(server.URL, testToken, time.Second, nil)
	require.NoError(t, err)

	err = client.SetWebhook(context.Background(), SetWebhookParams{
		URL:                "https://crm.example.com/api/telegram/webhook",
		SecretToken:        "s3cret",
		DropPendingUpdates: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "setWebhook", gotMethod)
	assert.Equal(t, "https://crm.example.com/api/telegram/webhook", gotParams["url"])
	assert.Equal(t, "s3cret", gotParams["secret_token"])
	assert.Equal(t, true, gotParams["drop_pending_updates"])
}

func TestClient_SetWebhook_Validation(t *testing.T) {
	client, err := NewClient("http://127.0.0.1:1", testToken, time.Second, nil)
	require.NoError(t, err)

	assert.Error(t, client.SetWebhook(context.Background(), SetWebhookParams{}))
	assert.Error(t, client.SetWebhook(context.Background(), SetWebhookParams{URL: "http://insecure.example.com"}))
}

func TestClient_APIError(t *testing.T) {
	server := newBotServer(t, func(string, map[string]any) (int, string) {
		return http.StatusUnauthorized, `{"ok":false,"error_code":401,"description":"Unauthorized"}`
	})

	client, err := NewClient(server.URL, testToken, time.Second, nil)
	require.NoError(t, err)

	err = client.DeleteWebhook(context.Background(), false)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.Code)
	assert.Equal(t, "Unauthorized", apiErr.Description)
}

func TestClient_DeleteWebhook(t *testing.T) {
	var gotParams map[string]any
	server := newBotServer(t, func(method string, params map[string]any) (int, string) {
		assert.Equal(t, "deleteWebhook", method)
		gotParams = params
		return http.StatusOK, `{"ok":true,"result":true}`
	})

	client, err := NewClient(server.URL, testToken, time.Second, nil)
	require.NoError(t, err)
	require.NoError(t, client.DeleteWebhook(context.Background(), true))
	assert.Equal(t, true, gotParams["drop_pending_updates"])
}

func TestClient_GetWebhookInfo(t *testing.T) {
	server := newBotServer(t, func(method string, _ map[string]any) (int, string) {
		assert.Equal(t, "getWebhookInfo", method)
		return http.StatusOK, `{"ok":true,"result":{"url":"https://crm.example.com/hook","has_custom_certificate":false,"pending_update_count":3,"last_error_date":1700000000,"last_error_message":"Connection refused"}}`
	})

	client, err := NewClient(server.URL+"/", testToken, time.Second, nil)
	require.NoError(t, err)

	info, err := client.GetWebhookInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://crm.example.com/hook", info.URL)
	assert.Equal(t, 3, info.PendingUpdateCount)
	assert.Equal(t, "Connection refused", info.LastErrorMessage)
	require.NotNil(t, info.LastError())
	assert.Equal(t, int64(1700000000), info.LastError().Unix())
}

func TestClient_TransportErrorHidesToken(t *testing.T) {
	client, err := NewClient("http://127.0.0.1:1", testToken, time.Second, nil)
	require.NoError(t, err)

	_, err = client.GetWebhookInfo(context.Background())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), testToken)
}

func TestNewClient_RequiresToken(t *testing.T) {
	_, err := NewClient("", "", time.Second, nil)
	assert.ErrorIs(t, err, ErrMissingToken)
}
