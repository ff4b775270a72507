// Package directory looks up people in the external identity directory.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Identity is a directory record keyed by personal email.
type Identity struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Team       string `json:"team"`
	Role       string `json:"role"`
	ChatHandle string `json:"chatHandle"`
}

// Client wraps the directory lookup service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Lookup resolves a personal email to an identity. A miss returns (nil, nil);
// it is not an error condition.
func (c *Client) Lookup(ctx context.Context, email string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/people?email=%s", c.baseURL, url.QueryEscape(email)), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory: lookup %s: %w", email, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("directory: lookup returned status %d", resp.StatusCode)
	}
	var identity Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, fmt.Errorf("directory: decode identity: %w", err)
	}
	if identity.Name == "" && identity.Role == "" {
		return nil, nil
	}
	return &identity, nil
}

// Ping checks if the directory service is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/health", c.baseURL), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("directory returned status %d", resp.StatusCode)
	}
	return nil
}
