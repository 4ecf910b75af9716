package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/finbook/statement-service/internal/app"
	"github.com/finbook/statement-service/internal/store"
)

const testSecret = "handler-test-secret"

func newTestServer(t *testing.T) (*httptest.Server, *store.MemoryRepository) {
	t.Helper()
	repo := store.NewMemoryRepository()
	statementService := app.NewService(repo, repo, nil)
	userService := app.NewUserService(repo, testSecret, time.Hour)
	handlers := NewStatementHandlers(statementService, userService)

	server := httptest.NewServer(Routes(handlers, testSecret))
	t.Cleanup(server.Close)
	return server, repo
}

func doJSON(t *testing.T, method, url, token string, body interface{}) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

// registerAndLogin creates an account through the API and returns its ID and
// session token.
func registerAndLogin(t *testing.T, server *httptest.Server, email string) (uuid.UUID, string) {
	t.Helper()
	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/users", "", map[string]string{
		"name": "Test User", "email": email, "password": "12345",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 from user creation, got %d", resp.StatusCode)
	}
	created := decodeBody(t, resp)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/sessions", "", map[string]string{
		"email": email, "password": "12345",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from session creation, got %d", resp.StatusCode)
	}
	session := decodeBody(t, resp)

	id, err := uuid.Parse(created["id"].(string))
	if err != nil {
		t.Fatalf("invalid user id in response: %v", err)
	}
	token, _ := session["token"].(string)
	if token == "" {
		t.Fatal("expected session token in response")
	}
	return id, token
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	server, _ := newTestServer(t)

	body := map[string]string{"name": "A", "email": "dup@example.com", "password": "12345"}
	if resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/users", "", body); resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/users", "", body); resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", resp.StatusCode)
	}
}

func TestSession_WrongPassword(t *testing.T) {
	server, _ := newTestServer(t)
	registerAndLogin(t, server, "login@example.com")

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/sessions", "", map[string]string{
		"email": "login@example.com", "password": "nope",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", resp.StatusCode)
	}
}

func TestStatements_RequireAuthentication(t *testing.T) {
	server, _ := newTestServer(t)

	endpoints := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/statements/deposit"},
		{http.MethodPost, "/api/v1/statements/withdraw"},
		{http.MethodGet, "/api/v1/statements/balance"},
		{http.MethodGet, "/api/v1/profile"},
	}
	for _, e := range endpoints {
		resp := doJSON(t, e.method, server.URL+e.path, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401 without token, got %d", e.method, e.path, resp.StatusCode)
		}
	}
}

func TestDeposit_RendersTwoDecimalAmount(t *testing.T) {
	server, _ := newTestServer(t)
	userID, token := registerAndLogin(t, server, "deposit@example.com")

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/statements/deposit", token, map[string]interface{}{
		"amount": 400, "description": "income",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["amount"] != "400.00" {
		t.Fatalf("expected amount rendered as \"400.00\", got %v", body["amount"])
	}
	if body["type"] != "deposit" {
		t.Fatalf("expected type deposit, got %v", body["type"])
	}
	if body["user_id"] != userID.String() {
		t.Fatalf("expected user_id %s, got %v", userID, body["user_id"])
	}
	if _, ok := body["receiver_user_id"]; ok {
		t.Fatal("expected receiver_user_id omitted for deposit")
	}
}

func TestWithdraw_InsufficientFunds(t *testing.T) {
	server, _ := newTestServer(t)
	_, token := registerAndLogin(t, server, "poor@example.com")

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/statements/withdraw", token, map[string]interface{}{
		"amount": 50, "description": "overdraft",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for insufficient funds, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if !strings.Contains(fmt.Sprint(body["message"]), "Insufficient funds") {
		t.Fatalf("expected insufficient funds message, got %v", body["message"])
	}
}

func TestTransfer_UnknownReceiver(t *testing.T) {
	server, _ := newTestServer(t)
	_, token := registerAndLogin(t, server, "alone@example.com")

	doJSON(t, http.MethodPost, server.URL+"/api/v1/statements/deposit", token, map[string]interface{}{
		"amount": 100, "description": "income",
	})

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/statements/transfer/"+uuid.NewString(), token, map[string]interface{}{
		"amount": 50, "description": "to nobody",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown receiver, got %d", resp.StatusCode)
	}
}

func TestTransfer_BetweenUsers(t *testing.T) {
	server, _ := newTestServer(t)
	_, senderToken := registerAndLogin(t, server, "a@example.com")
	receiverID, receiverToken := registerAndLogin(t, server, "b@example.com")

	doJSON(t, http.MethodPost, server.URL+"/api/v1/statements/deposit", senderToken, map[string]interface{}{
		"amount": 5000, "description": "income",
	})

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/statements/transfer/"+receiverID.String(), senderToken, map[string]interface{}{
		"amount": 3000, "description": "loan",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 for transfer, got %d", resp.StatusCode)
	}
	created := decodeBody(t, resp)
	if created["receiver_user_id"] != receiverID.String() {
		t.Fatalf("expected receiver_user_id %s, got %v", receiverID, created["receiver_user_id"])
	}

	senderBalance := decodeBody(t, doJSON(t, http.MethodGet, server.URL+"/api/v1/statements/balance", senderToken, nil))
	if senderBalance["balance"] != "2000.00" {
		t.Fatalf("expected sender balance \"2000.00\", got %v", senderBalance["balance"])
	}

	receiverBalance := decodeBody(t, doJSON(t, http.MethodGet, server.URL+"/api/v1/statements/balance", receiverToken, nil))
	if receiverBalance["balance"] != "3000.00" {
		t.Fatalf("expected receiver balance \"3000.00\", got %v", receiverBalance["balance"])
	}
	statements, ok := receiverBalance["statement"].([]interface{})
	if !ok || len(statements) != 1 {
		t.Fatalf("expected one entry in receiver statement list, got %v", receiverBalance["statement"])
	}
}

func TestGetStatement_Lookup(t *testing.T) {
	server, _ := newTestServer(t)
	_, token := registerAndLogin(t, server, "lookup@example.com")

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/statements/deposit", token, map[string]interface{}{
		"amount": 100, "description": "income",
	})
	created := decodeBody(t, resp)
	statementID := created["id"].(string)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/statements/"+statementID, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for statement lookup, got %d", resp.StatusCode)
	}
	got := decodeBody(t, resp)
	if got["id"] != statementID {
		t.Fatalf("expected statement %s, got %v", statementID, got["id"])
	}

	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/statements/"+uuid.NewString(), token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown statement, got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/statements/not-a-uuid", token, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed statement ID, got %d", resp.StatusCode)
	}
}

func TestDeposit_InvalidAmount(t *testing.T) {
	server, _ := newTestServer(t)
	_, token := registerAndLogin(t, server, "zero@example.com")

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/statements/deposit", token, map[string]interface{}{
		"amount": 0, "description": "nothing",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero amount, got %d", resp.StatusCode)
	}
}

type stubRateLimiter struct {
	count int
}

func (s *stubRateLimiter) ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (int, int, error) {
	s.count++
	return s.count, 30, nil
}

func TestDeposit_RateLimitedSetsRetryAfter(t *testing.T) {
	repo := store.NewMemoryRepository()
	statementService := app.NewService(repo, repo, nil)
	statementService.SetStatementRateLimiter(&stubRateLimiter{}, 1)
	userService := app.NewUserService(repo, testSecret, time.Hour)
	server := httptest.NewServer(Routes(NewStatementHandlers(statementService, userService), testSecret))
	t.Cleanup(server.Close)

	_, token := registerAndLogin(t, server, "throttled@example.com")

	body := map[string]interface{}{"amount": 10, "description": "ok"}
	if resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/statements/deposit", token, body); resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected first deposit to pass, got %d", resp.StatusCode)
	}

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/statements/deposit", token, body)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 once over the limit, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Retry-After"); got != "30" {
		t.Fatalf("expected Retry-After header of 30, got %q", got)
	}
}

func TestProfile_ReturnsUserWithoutPassword(t *testing.T) {
	server, _ := newTestServer(t)
	userID, token := registerAndLogin(t, server, "profile@example.com")

	resp := doJSON(t, http.MethodGet, server.URL+"/api/v1/profile", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["id"] != userID.String() {
		t.Fatalf("expected profile for %s, got %v", userID, body["id"])
	}
	if _, ok := body["password"]; ok {
		t.Fatal("expected password to be absent from profile response")
	}
}
