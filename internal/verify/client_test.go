package verify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/config"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/errors"
)

func newVerifyServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/usernames/AlexBuilds", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(Identity{Name: "AlexBuilds", UUID: "uuid-42"})
	})
	mux.HandleFunc("/authorize", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		if payload["code"] != "1234" {
			http.Error(w, "wrong code", http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	return httptest.NewServer(mux)
}

func newTestClient(serverURL string) *Client {
	return NewClient(config.VerifyConfig{BaseURL: serverURL, Timeout: 5000})
}

func TestValidateUsername(t *testing.T) {
	server := newVerifyServer(t)
	defer server.Close()
	client := newTestClient(server.URL)

	identity, err := client.ValidateUsername(context.Background(), "AlexBuilds")
	require.NoError(t, err)
	assert.Equal(t, "uuid-42", identity.UUID)

	_, err = client.ValidateUsername(context.Background(), "NoSuchPlayer")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestAuthorize(t *testing.T) {
	server := newVerifyServer(t)
	defer server.Close()
	client := newTestClient(server.URL)

	assert.NoError(t, client.Authorize(context.Background(), "AlexBuilds", "1234"))

	err := client.Authorize(context.Background(), "AlexBuilds", "9999")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err), "a wrong code is the player's mistake, not an outage")
}

func TestAuthorize_ServiceDown(t *testing.T) {
	server := newVerifyServer(t)
	client := newTestClient(server.URL)
	server.Close()

	err := client.Authorize(context.Background(), "AlexBuilds", "1234")
	require.Error(t, err)
	assert.True(t, errors.IsUpstream(err))
}
