package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/config"
)

// ==========================
// Test Helpers
// ==========================

// newTokenServer counts exchanges and hands out sequentially numbered
// tokens valid for expiresIn seconds.
func newTokenServer(t *testing.T, expiresIn int, exchanges *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		require.Equal(t, "test-client", r.Form.Get("client_id"))

		n := exchanges.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"token-%d","expires_in":%d,"token_type":"Bearer"}`, n, expiresIn)
	}))
}

func newTestSource(serverURL string) *TokenSource {
	return NewTokenSource(config.BackendConfig{
		TokenURL:         serverURL,
		ClientID:         "test-client",
		ClientSecret:     "test-secret",
		TokenSkewSeconds: 30,
		Timeout:          5000,
	})
}

// ==========================
// Refresh Tests
// ==========================

func TestTokenSource_SingleExchangeUnderConcurrency(t *testing.T) {
	var exchanges atomic.Int64
	server := newTokenServer(t, 3600, &exchanges)
	defer server.Close()

	source := newTestSource(server.URL)

	// Make the cached token expired so every caller arrives wanting a
	// refresh.
	source.token = "stale"
	source.expiry = time.Now().Add(-5 * time.Second)

	const callers = 10
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			tokens[n], errs[n] = source.Token(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "token-1", tokens[i], "every caller sees the one refreshed token")
	}
	assert.Equal(t, int64(1), exchanges.Load(), "an expired-token storm performs exactly one exchange")
}

func TestTokenSource_CachedTokenReused(t *testing.T) {
	var exchanges atomic.Int64
	server := newTokenServer(t, 3600, &exchanges)
	defer server.Close()

	source := newTestSource(server.URL)

	for i := 0; i < 5; i++ {
		token, err := source.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "token-1", token)
	}
	assert.Equal(t, int64(1), exchanges.Load())
}

func TestTokenSource_SkewShortensLifetime(t *testing.T) {
	var exchanges atomic.Int64
	server := newTokenServer(t, 100, &exchanges)
	defer server.Close()

	source := newTestSource(server.URL)

	now := time.Now()
	source.now = func() time.Time { return now }

	_, err := source.Token(context.Background())
	require.NoError(t, err)

	// 100s lifetime minus 30s skew.
	assert.Equal(t, now.Add(70*time.Second), source.expiry)

	// Just before effective expiry the token is still served.
	source.now = func() time.Time { return now.Add(69 * time.Second) }
	token, err := source.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-1", token)
	assert.Equal(t, int64(1), exchanges.Load())

	// At effective expiry it is exchanged again even though the raw
	// lifetime has 30s left.
	source.now = func() time.Time { return now.Add(70 * time.Second) }
	token, err = source.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-2", token)
	assert.Equal(t, int64(2), exchanges.Load())
}

func TestTokenSource_Invalidate(t *testing.T) {
	var exchanges atomic.Int64
	server := newTokenServer(t, 3600, &exchanges)
	defer server.Close()

	source := newTestSource(server.URL)

	_, err := source.Token(context.Background())
	require.NoError(t, err)

	source.Invalidate()

	token, err := source.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-2", token)
	assert.Equal(t, int64(2), exchanges.Load())
}

// ==========================
// Failure Tests
// ==========================

func TestTokenSource_ExchangeFailureNotCached(t *testing.T) {
	var failures atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if failures.Add(1) == 1 {
			http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"recovered","expires_in":3600,"token_type":"Bearer"}`)
	}))
	defer server.Close()

	source := newTestSource(server.URL)

	_, err := source.Token(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")

	// The failure left nothing cached; the next caller retries and
	// succeeds.
	token, err := source.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "recovered", token)
}

func TestTokenSource_EmptyTokenRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"","expires_in":3600}`)
	}))
	defer server.Close()

	source := newTestSource(server.URL)

	_, err := source.Token(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no access token")
}
