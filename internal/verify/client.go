// Package verify is the thin client for the external identity-proofing
// service. The engine only consumes the two-call contract: prove a
// Minecraft username exists, then confirm ownership with a code the
// player enters in game.
package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/config"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/errors"
)

// Identity is a resolved Minecraft account.
type Identity struct {
	Name string `json:"name"`
	UUID string `json:"uuid"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg config.VerifyConfig) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: config.GetDuration(cfg.Timeout)},
	}
}

// ValidateUsername resolves a claimed username to a canonical identity.
// An unknown username comes back as NOT_FOUND.
func (c *Client) ValidateUsername(ctx context.Context, name string) (*Identity, error) {
	endpoint := c.baseURL + "/usernames/" + url.PathEscape(name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewUpstreamFailure("validate-username", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.NewNotFound(fmt.Sprintf("minecraft account %q", name))
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, errors.NewUpstreamFailure("validate-username", fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}

	var identity Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, errors.NewUpstreamFailure("validate-username", fmt.Errorf("failed to decode response: %w", err))
	}

	return &identity, nil
}

// Authorize confirms the player proved ownership of the account with the
// given code. A wrong code is a validation failure, not an upstream one.
func (c *Client) Authorize(ctx context.Context, name, code string) error {
	payload, err := json.Marshal(map[string]string{"name": name, "code": code})
	if err != nil {
		return errors.NewInternal(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/authorize", strings.NewReader(string(payload)))
	if err != nil {
		return errors.NewInternal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NewUpstreamFailure("authorize", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusNoContent:
		return nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return errors.NewValidationFailed([]string{"the verification code did not match, double-check it in game"})
	default:
		body, _ := io.ReadAll(resp.Body)
		return errors.NewUpstreamFailure("authorize", fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}
}
