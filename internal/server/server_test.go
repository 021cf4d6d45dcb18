package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/walletledger/internal/config"
	"github.com/congo-pay/walletledger/internal/logging"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	cfg := config.Config{AppName: "test", AppEnv: "test", Port: "0"}
	srv, err := New(cfg, nil, nil, nil, logging.Discard())
	require.NoError(t, err)
	return srv.App()
}

func call(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	decoded := map[string]any{}
	_ = json.Unmarshal(raw, &decoded)
	return resp.StatusCode, decoded, raw
}

func createUser(t *testing.T, app *fiber.App, name string) int64 {
	t.Helper()
	status, body, _ := call(t, app, http.MethodPost, "/api/v1/users",
		fmt.Sprintf(`{"name":%q,"email":"%s@example.com"}`, name, strings.ToLower(name)))
	require.Equal(t, http.StatusCreated, status)
	return int64(body["id"].(float64))
}

func TestLedgerFlowOverHTTP(t *testing.T) {
	app := newTestApp(t)
	alice := createUser(t, app, "Alice")
	bob := createUser(t, app, "Bob")

	status, body, _ := call(t, app, http.MethodPost, fmt.Sprintf("/api/v1/users/%d/deposit", alice), `{"amount": 1000.0}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Operation successful", body["message"])
	tx := body["transaction"].(map[string]any)
	assert.Equal(t, "deposit", tx["transaction_type"])
	assert.Nil(t, tx["sender_id"])

	status, _, _ = call(t, app, http.MethodPost, fmt.Sprintf("/api/v1/users/%d/withdraw", alice), `{"amount": "100"}`)
	require.Equal(t, http.StatusOK, status)

	status, _, _ = call(t, app, http.MethodPost, fmt.Sprintf("/api/v1/users/%d/transfer", alice),
		fmt.Sprintf(`{"receiver_id": %d, "amount": 300}`, bob))
	require.Equal(t, http.StatusOK, status)

	status, body, _ = call(t, app, http.MethodGet, fmt.Sprintf("/api/v1/users/%d/balance", alice), "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "600", body["balance"])

	status, _, raw := call(t, app, http.MethodGet, fmt.Sprintf("/api/v1/users/%d/transactions", alice), "")
	require.Equal(t, http.StatusOK, status)
	var history []map[string]any
	require.NoError(t, json.Unmarshal(raw, &history))
	require.Len(t, history, 3)
	assert.Equal(t, "outgoing", history[0]["transfer_type"])
	assert.Equal(t, "Bob", history[0]["counterparty"].(map[string]any)["name"])
	assert.Nil(t, history[2]["transfer_type"])
	assert.Nil(t, history[2]["counterparty"])
}

func TestLedgerErrorMapping(t *testing.T) {
	app := newTestApp(t)
	alice := createUser(t, app, "Alice")

	cases := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"unknown user", "/api/v1/users/999/deposit", `{"amount": 10}`, http.StatusNotFound},
		{"malformed user id", "/api/v1/users/abc/deposit", `{"amount": 10}`, http.StatusNotFound},
		{"negative amount", fmt.Sprintf("/api/v1/users/%d/deposit", alice), `{"amount": -5}`, http.StatusUnprocessableEntity},
		{"missing amount", fmt.Sprintf("/api/v1/users/%d/deposit", alice), `{}`, http.StatusBadRequest},
		{"malformed body", fmt.Sprintf("/api/v1/users/%d/deposit", alice), `{"amount": "lots"}`, http.StatusBadRequest},
		{"insufficient funds", fmt.Sprintf("/api/v1/users/%d/withdraw", alice), `{"amount": 2000}`, http.StatusUnprocessableEntity},
		{"same party", fmt.Sprintf("/api/v1/users/%d/transfer", alice), fmt.Sprintf(`{"receiver_id": %d, "amount": 1}`, alice), http.StatusUnprocessableEntity},
		{"unknown receiver", fmt.Sprintf("/api/v1/users/%d/transfer", alice), `{"receiver_id": 999, "amount": 1}`, http.StatusNotFound},
		{"missing receiver", fmt.Sprintf("/api/v1/users/%d/transfer", alice), `{"amount": 1}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body, _ := call(t, app, http.MethodPost, tc.path, tc.body)
			assert.Equal(t, tc.status, status)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestUserLifecycleOverHTTP(t *testing.T) {
	app := newTestApp(t)
	alice := createUser(t, app, "Alice")

	status, body, _ := call(t, app, http.MethodPost, "/api/v1/users", `{"name":"Again","email":"alice@example.com"}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.NotEmpty(t, body["error"])

	status, body, _ = call(t, app, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", alice), "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Alice", body["name"])

	status, _, _ = call(t, app, http.MethodDelete, fmt.Sprintf("/api/v1/users/%d", alice), "")
	require.Equal(t, http.StatusNoContent, status)

	status, _, _ = call(t, app, http.MethodGet, fmt.Sprintf("/api/v1/users/%d/balance", alice), "")
	assert.Equal(t, http.StatusNotFound, status)
	status, _, _ = call(t, app, http.MethodDelete, fmt.Sprintf("/api/v1/users/%d", alice), "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHealthWithoutBackends(t *testing.T) {
	app := newTestApp(t)
	status, body, _ := call(t, app, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"postgres": "disabled", "redis": "disabled"}, body["status"])
}

func TestSetupRequiresBackendsOutsideDev(t *testing.T) {
	_, err := New(config.Config{AppEnv: "production"}, nil, nil, nil, logging.Discard())
	assert.Error(t, err)
}
