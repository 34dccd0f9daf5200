package auth0

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{
		Domain:       server.URL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Connection:   "Username-Password-Authentication",
	})
}

func TestCreateUserSendsManagementRequest(t *testing.T) {
	var tokenRequests atomic.Int32
	var userRequests atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		tokenRequests.Add(1)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "client_credentials", body["grant_type"])
		fmt.Fprint(w, `{"access_token": "mgmt-token", "expires_in": 3600}`)
	})
	mux.HandleFunc("/api/v2/users", func(w http.ResponseWriter, r *http.Request) {
		userRequests.Add(1)
		assert.Equal(t, "Bearer mgmt-token", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@x.com", body["email"])
		assert.Equal(t, "passverd", body["password"])
		assert.Equal(t, "Username-Password-Authentication", body["connection"])
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"user_id": "auth0|1"}`)
	})

	client := newTestClient(t, mux)
	defer client.Close()

	require.NoError(t, client.CreateUser(context.Background(), "a@x.com", "passverd"))
	require.NoError(t, client.CreateUser(context.Background(), "b@y.com", "passverd"))

	// トークンはキャッシュされ、2 回目の操作で再取得しない
	assert.Equal(t, int32(1), tokenRequests.Load())
	assert.Equal(t, int32(2), userRequests.Load())
}

func TestCreateUserConflictReturnsError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"access_token": "mgmt-token", "expires_in": 3600}`)
	})
	mux.HandleFunc("/api/v2/users", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"statusCode":409,"message":"The user already exists."}`, http.StatusConflict)
	})

	client := newTestClient(t, mux)
	defer client.Close()

	err := client.CreateUser(context.Background(), "a@x.com", "passverd")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=409")
}

func TestResetPasswordLinkReturnsTicket(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"access_token": "mgmt-token", "expires_in": 3600}`)
	})
	mux.HandleFunc("/api/v2/tickets/password-change", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@x.com", body["email"])
		fmt.Fprint(w, `{"ticket": "https://tenant.auth0.com/lo/reset?ticket=abc"}`)
	})

	client := newTestClient(t, mux)
	defer client.Close()

	link, err := client.ResetPasswordLink(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "https://tenant.auth0.com/lo/reset?ticket=abc", link)
}

func TestClosedClientRefusesRequests(t *testing.T) {
	client := newTestClient(t, http.NewServeMux())
	client.Close()

	err := client.CreateUser(context.Background(), "a@x.com", "passverd")
	require.Error(t, err)
}
