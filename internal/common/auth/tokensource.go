// internal/common/auth/tokensource.go
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/config"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/metrics"
)

// TokenSource maintains the short-lived bearer token shared by every
// backend API call. Refresh happens on demand under an exclusive lock;
// callers that queued up behind a refresh re-check freshness after
// acquiring the lock, so a storm of expired callers produces exactly one
// token exchange.
type TokenSource struct {
	tokenURL     string
	clientID     string
	clientSecret string
	skew         time.Duration
	httpClient   *http.Client

	mu     sync.Mutex
	token  string
	expiry time.Time

	// now is swappable for tests.
	now func() time.Time
}

// TokenResponse holds the response from the credential endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope,omitempty"`
}

// NewTokenSource creates a TokenSource from backend configuration.
func NewTokenSource(cfg config.BackendConfig) *TokenSource {
	return &TokenSource{
		tokenURL:     cfg.TokenURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		skew:         time.Duration(cfg.TokenSkewSeconds) * time.Second,
		httpClient:   &http.Client{Timeout: config.GetDuration(cfg.Timeout)},
		now:          time.Now,
	}
}

// Token returns a fresh bearer token, refreshing it first when the cached
// one is absent or past expiry. A refresh failure is returned to the
// caller that triggered it and leaves the cache empty, so the next caller
// simply retries the exchange.
func (t *TokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && t.now().Before(t.expiry) {
		return t.token, nil
	}

	if err := t.refresh(ctx); err != nil {
		metrics.TokenRefreshes.WithLabelValues("failure").Inc()
		return "", err
	}

	metrics.TokenRefreshes.WithLabelValues("success").Inc()
	return t.token, nil
}

// Invalidate drops the cached token so the next caller refreshes. Used
// when the backend rejects a token before its advertised expiry.
func (t *TokenSource) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.token = ""
	t.expiry = time.Time{}
}

func (t *TokenSource) refresh(ctx context.Context) error {
	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", t.clientID)
	data.Set("client_secret", t.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return fmt.Errorf("failed to decode token response: %w", err)
	}

	if tokenResp.AccessToken == "" {
		return fmt.Errorf("token response contained no access token")
	}

	t.token = tokenResp.AccessToken
	t.expiry = t.now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - t.skew)

	return nil
}
