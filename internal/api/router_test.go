package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harshverma7/payment-web/internal/auth"
	"github.com/harshverma7/payment-web/internal/directory"
	"github.com/harshverma7/payment-web/internal/ledger"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := auth.NewTokens([]byte("test-secret"), "payment-web", time.Hour)

	ledgerStore := ledger.NewMemoryStore()
	dirStore := directory.NewMemoryStore()
	resolver := directory.NewResolver(dirStore, nil)

	deps := Dependencies{
		Logger:       logger,
		Tokens:       tokens,
		Directory:    directory.NewService(dirStore, ledgerStore, tokens, logger),
		Resolver:     resolver,
		Engine:       ledger.NewEngine(ledgerStore, logger, nil),
		Queries:      ledger.NewQueries(ledgerStore, resolver),
		MaxBodyBytes: 1 << 20,
	}

	handler, err := NewRouter(deps)
	require.NoError(t, err)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, srv.URL+path, buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func signup(t *testing.T, srv *httptest.Server, username, first, last string) (userID, token string) {
	t.Helper()

	resp, body := doJSON(t, srv, http.MethodPost, "/api/v1/user/signup", "", map[string]any{
		"username":  username,
		"password":  "Str0ng!pass",
		"firstname": first,
		"lastname":  last,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return body["user_id"].(string), body["token"].(string)
}

func balanceOf(t *testing.T, srv *httptest.Server, token string) int64 {
	t.Helper()

	resp, body := doJSON(t, srv, http.MethodGet, "/api/v1/account/balance", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return int64(body["balance"].(float64))
}

func TestSignupSigninAndBalance(t *testing.T) {
	srv := newTestServer(t)

	userID, token := signup(t, srv, "alice@example.com", "Alice", "Smith")
	assert.NotEmpty(t, userID)
	assert.NotEmpty(t, token)

	// Opening balance is random but always at least 1.
	assert.GreaterOrEqual(t, balanceOf(t, srv, token), int64(1))

	resp, body := doJSON(t, srv, http.MethodPost, "/api/v1/user/signin", "", map[string]any{
		"username": "alice@example.com",
		"password": "Str0ng!pass",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["token"])
}

func TestSignupRejectsDuplicateAndWeakInputs(t *testing.T) {
	srv := newTestServer(t)

	signup(t, srv, "bob@example.com", "Bob", "Jones")

	resp, body := doJSON(t, srv, http.MethodPost, "/api/v1/user/signup", "", map[string]any{
		"username":  "bob@example.com",
		"password":  "Str0ng!pass",
		"firstname": "Bob",
		"lastname":  "Jones",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "username_taken", body["code"])

	resp, body = doJSON(t, srv, http.MethodPost, "/api/v1/user/signup", "", map[string]any{
		"username":  "carol@example.com",
		"password":  "weak",
		"firstname": "Carol",
		"lastname":  "White",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", body["code"])

	resp, body = doJSON(t, srv, http.MethodPost, "/api/v1/user/signup", "", map[string]any{
		"username":  "not-an-email",
		"password":  "Str0ng!pass",
		"firstname": "Carol",
		"lastname":  "White",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", body["code"])
}

func TestSigninRejectsBadCredentials(t *testing.T) {
	srv := newTestServer(t)

	signup(t, srv, "dave@example.com", "Dave", "Brown")

	resp, body := doJSON(t, srv, http.MethodPost, "/api/v1/user/signin", "", map[string]any{
		"username": "dave@example.com",
		"password": "Wrong!pass1",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid_credentials", body["code"])

	resp, body = doJSON(t, srv, http.MethodPost, "/api/v1/user/signin", "", map[string]any{
		"username": "nobody@example.com",
		"password": "Wrong!pass1",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid_credentials", body["code"])
}

func TestAccountRoutesRequireAuth(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/api/v1/account/balance", "/api/v1/account/history"} {
		resp, body := doJSON(t, srv, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
		assert.Equal(t, "unauthorized", body["code"], path)
	}

	resp, body := doJSON(t, srv, http.MethodGet, "/api/v1/account/balance", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", body["code"])
}

func TestTransferMovesFundsEndToEnd(t *testing.T) {
	srv := newTestServer(t)

	_, aliceToken := signup(t, srv, "alice@example.com", "Alice", "Smith")
	bobID, bobToken := signup(t, srv, "bob@example.com", "Bob", "Jones")

	aliceBefore := balanceOf(t, srv, aliceToken)
	bobBefore := balanceOf(t, srv, bobToken)

	resp, body := doJSON(t, srv, http.MethodPost, "/api/v1/account/transfer", aliceToken, map[string]any{
		"to":     bobID,
		"amount": 1,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Transfer successful", body["message"])
	assert.NotEmpty(t, body["entry_id"])

	assert.Equal(t, aliceBefore-1, balanceOf(t, srv, aliceToken))
	assert.Equal(t, bobBefore+1, balanceOf(t, srv, bobToken))
}

func TestTransferErrorMapping(t *testing.T) {
	srv := newTestServer(t)

	aliceID, aliceToken := signup(t, srv, "alice@example.com", "Alice", "Smith")
	bobID, _ := signup(t, srv, "bob@example.com", "Bob", "Jones")
	aliceBalance := balanceOf(t, srv, aliceToken)

	cases := []struct {
		name       string
		payload    map[string]any
		wantStatus int
		wantCode   string
	}{
		{"zero amount", map[string]any{"to": bobID, "amount": 0}, http.StatusBadRequest, "invalid_amount"},
		{"negative amount", map[string]any{"to": bobID, "amount": -5}, http.StatusBadRequest, "invalid_amount"},
		{"non-numeric amount", map[string]any{"to": bobID, "amount": "ten"}, http.StatusBadRequest, "invalid_amount"},
		{"missing amount", map[string]any{"to": bobID}, http.StatusBadRequest, "invalid_amount"},
		{"missing recipient", map[string]any{"amount": 1}, http.StatusBadRequest, "invalid_recipient"},
		{"self transfer", map[string]any{"to": aliceID, "amount": 1}, http.StatusBadRequest, "self_transfer"},
		{"unknown receiver", map[string]any{"to": "no-such-user", "amount": 1}, http.StatusBadRequest, "invalid_receiver"},
		{"insufficient funds", map[string]any{"to": bobID, "amount": aliceBalance + 1}, http.StatusBadRequest, "insufficient_funds"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := doJSON(t, srv, http.MethodPost, "/api/v1/account/transfer", aliceToken, tc.payload)
			assert.Equal(t, tc.wantStatus, resp.StatusCode)
			assert.Equal(t, tc.wantCode, body["code"])

			if tc.wantCode == "insufficient_funds" {
				detail, ok := body["detail"].(map[string]any)
				require.True(t, ok)
				assert.Equal(t, float64(aliceBalance), detail["balance"])
			}
		})
	}

	// None of the rejected transfers moved any money.
	assert.Equal(t, aliceBalance, balanceOf(t, srv, aliceToken))
}

func TestHistoryShowsBothDirections(t *testing.T) {
	srv := newTestServer(t)

	aliceID, aliceToken := signup(t, srv, "alice@example.com", "Alice", "Smith")
	bobID, bobToken := signup(t, srv, "bob@example.com", "Bob", "Jones")

	resp, _ := doJSON(t, srv, http.MethodPost, "/api/v1/account/transfer", aliceToken, map[string]any{
		"to": bobID, "amount": 2,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, srv, http.MethodPost, "/api/v1/account/transfer", bobToken, map[string]any{
		"to": aliceID, "amount": 1,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, srv, http.MethodGet, "/api/v1/account/history", aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	history, ok := body["history"].([]any)
	require.True(t, ok)
	require.Len(t, history, 2)

	// Newest first: the received transfer, then the sent one.
	newest := history[0].(map[string]any)
	assert.Equal(t, "received", newest["direction"])
	assert.Equal(t, "Bob Jones", newest["counterparty"])
	assert.Equal(t, float64(1), newest["amount"])

	oldest := history[1].(map[string]any)
	assert.Equal(t, "sent", oldest["direction"])
	assert.Equal(t, "Bob Jones", oldest["counterparty"])
	assert.Equal(t, float64(2), oldest["amount"])
}

func TestUpdateUserAndSearch(t *testing.T) {
	srv := newTestServer(t)

	_, token := signup(t, srv, "alice@example.com", "Alice", "Smith")
	signup(t, srv, "bob@example.com", "Bob", "Jones")

	resp, _ := doJSON(t, srv, http.MethodPut, "/api/v1/user", token, map[string]any{
		"firstname": "Alicia",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, srv, http.MethodGet, "/api/v1/user/bulk?filter=alicia", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	users, ok := body["users"].([]any)
	require.True(t, ok)
	require.Len(t, users, 1)
	assert.Equal(t, "Alicia", users[0].(map[string]any)["firstname"])

	resp, body = doJSON(t, srv, http.MethodGet, "/api/v1/user/bulk", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	users, ok = body["users"].([]any)
	require.True(t, ok)
	assert.Len(t, users, 2)
}

func TestUnknownRouteReturnsJSON(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, srv, http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["code"])
}

func TestCorrelationIDEchoedOnResponses(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("X-Correlation-ID", "cid-123")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "cid-123", resp.Header.Get("X-Correlation-ID"))
}

func TestBodySizeLimitRejectsHugePayloads(t *testing.T) {
	srv := newTestServer(t)

	huge := fmt.Sprintf(`{"username":"a@b.co","password":%q,"firstname":"A","lastname":"B"}`,
		bytes.Repeat([]byte("x"), 2<<20))

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/user/signup", bytes.NewReader([]byte(huge)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}
