// internal/backend/client.go
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/auth"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/config"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/errors"
)

// Client is the typed façade over the community backend HTTP API. Every
// request carries a bearer token from the shared TokenSource.
type Client struct {
	baseURL    string
	tokens     *auth.TokenSource
	httpClient *http.Client
}

// NewClient creates a backend API client.
func NewClient(cfg config.BackendConfig, tokens *auth.TokenSource) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: config.GetDuration(cfg.Timeout)},
	}
}

// GetUser resolves a community member by their chat user id.
func (c *Client) GetUser(ctx context.Context, ownerID string) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(ownerID), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetConnectionByName looks up the account link holding a Minecraft name.
// Returns NOT_FOUND when the name is unlinked.
func (c *Client) GetConnectionByName(ctx context.Context, minecraftName string) (*Connection, error) {
	var conn Connection
	path := "/connections?minecraftName=" + url.QueryEscape(minecraftName)
	if err := c.do(ctx, http.MethodGet, path, nil, &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

// GetConnectionByOwner looks up the account link of one owner.
func (c *Client) GetConnectionByOwner(ctx context.Context, ownerID string) (*Connection, error) {
	var conn Connection
	path := "/connections?ownerId=" + url.QueryEscape(ownerID)
	if err := c.do(ctx, http.MethodGet, path, nil, &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

// CreateConnection records a verified account link.
func (c *Client) CreateConnection(ctx context.Context, conn *Connection) (*Connection, error) {
	var created Connection
	if err := c.do(ctx, http.MethodPost, "/connections", conn, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// CreateApplication persists a submitted form and returns its id.
func (c *Client) CreateApplication(ctx context.Context, app *Application) (string, error) {
	var created Application
	if err := c.do(ctx, http.MethodPost, "/applications", app, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", errors.NewUpstreamFailure("create-application", fmt.Errorf("backend returned no application id"))
	}
	return created.ID, nil
}

// GetApplication fetches one application by id.
func (c *Client) GetApplication(ctx context.Context, applicationID string) (*Application, error) {
	var app Application
	if err := c.do(ctx, http.MethodGet, "/applications/"+url.PathEscape(applicationID), nil, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// GetApplicationsByOwner lists an owner's applications, newest first.
func (c *Client) GetApplicationsByOwner(ctx context.Context, ownerID string) ([]Application, error) {
	var apps []Application
	path := "/applications?ownerId=" + url.QueryEscape(ownerID)
	if err := c.do(ctx, http.MethodGet, path, nil, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

// ListStatuses returns the append-only status history of an application.
func (c *Client) ListStatuses(ctx context.Context, applicationID string) ([]Status, error) {
	var history []Status
	path := "/applications/" + url.PathEscape(applicationID) + "/statuses"
	if err := c.do(ctx, http.MethodGet, path, nil, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// AddStatus appends one audit-trail entry. Entries are never edited or
// removed; the backend rejects anything but an append.
func (c *Client) AddStatus(ctx context.Context, applicationID string, status Status) error {
	if status.CreatedAt.IsZero() {
		status.CreatedAt = time.Now().UTC()
	}
	path := "/applications/" + url.PathEscape(applicationID) + "/statuses"
	return c.do(ctx, http.MethodPost, path, status, nil)
}

// ListImages returns the asset records of an application.
func (c *Client) ListImages(ctx context.Context, applicationID string) ([]Image, error) {
	var images []Image
	path := "/applications/" + url.PathEscape(applicationID) + "/images"
	if err := c.do(ctx, http.MethodGet, path, nil, &images); err != nil {
		return nil, err
	}
	return images, nil
}

// UpdateImageURL repoints one asset record at its durable location.
func (c *Client) UpdateImageURL(ctx context.Context, imageID, newURL string) error {
	payload := map[string]string{"url": newURL}
	return c.do(ctx, http.MethodPatch, "/images/"+url.PathEscape(imageID), payload, nil)
}

// do executes one authenticated round-trip. out may be nil for calls
// whose response body is irrelevant.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return errors.NewUpstreamFailure("credential-refresh", err)
	}

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return errors.NewInternal(fmt.Errorf("failed to marshal request body: %w", err))
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create request: %w", err))
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	// Writes carry a one-shot key so a retried request after a dropped
	// response cannot double-create records.
	if method == http.MethodPost {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NewUpstreamFailure(opName(method, path), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errors.NewNotFound("backend record")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return errors.NewUpstreamFailure(
			opName(method, path),
			fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody)),
		)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.NewUpstreamFailure(opName(method, path), fmt.Errorf("failed to decode response: %w", err))
	}

	return nil
}

func opName(method, path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return strings.ToLower(method) + " " + path
}
