package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// memberTypeUser is the non-admin membership type on invite.
const memberTypeUser = 2

// Client is the REST client for the vault administration API. All operations
// fetch a token from the TokenSource; a 401 invalidates the cached token and
// is retried exactly once with a fresh one.
type Client struct {
	apiURL     string
	orgID      string
	tokens     TokenSource
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient constructs a Client.
func NewClient(apiURL, orgID string, tokens TokenSource, logger *slog.Logger) *Client {
	return &Client{
		apiURL:     strings.TrimRight(apiURL, "/"),
		orgID:      orgID,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Invite sends an organization invitation with the given collection grants.
func (c *Client) Invite(ctx context.Context, email string, grants []CollectionGrant) error {
	if grants == nil {
		grants = []CollectionGrant{}
	}
	body := map[string]any{
		"emails":               []string{email},
		"type":                 memberTypeUser,
		"collections":          grants,
		"groups":               []string{},
		"accessSecretsManager": false,
	}
	resp, err := c.do(ctx, http.MethodPost, c.orgPath("/users/invite"), body)
	if err != nil {
		return err
	}
	defer drain(resp)
	return c.classify(resp)
}

// FindByEmail returns the member with the given email, or nil when the
// organization has no such member. The match is case-insensitive.
func (c *Client) FindByEmail(ctx context.Context, email string) (*Member, error) {
	members, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range members {
		if strings.EqualFold(members[i].Email, email) {
			return &members[i], nil
		}
	}
	return nil, nil
}

// List fetches all organization members, draining paginated responses.
func (c *Client) List(ctx context.Context) ([]Member, error) {
	var members []Member
	continuation := ""
	for {
		path := c.orgPath("/users?includeCollections=true")
		if continuation != "" {
			path += "&continuationToken=" + url.QueryEscape(continuation)
		}
		resp, err := c.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}
		if err := c.classify(resp); err != nil {
			drain(resp)
			return nil, err
		}
		var page struct {
			Data              []Member `json:"data"`
			ContinuationToken string   `json:"continuationToken"`
		}
		err = json.NewDecoder(resp.Body).Decode(&page)
		drain(resp)
		if err != nil {
			return nil, fmt.Errorf("vault: decode member list: %w", err)
		}
		members = append(members, page.Data...)
		if page.ContinuationToken == "" {
			return members, nil
		}
		continuation = page.ContinuationToken
	}
}

// Reinvite resends an invitation. Safe for members in invited or accepted
// state; this is the designed path for "invite again".
func (c *Client) Reinvite(ctx context.Context, memberID string) error {
	resp, err := c.do(ctx, http.MethodPost, c.orgPath("/users/"+memberID+"/reinvite"), nil)
	if err != nil {
		return err
	}
	defer drain(resp)
	return c.classify(resp)
}

// PublicKey fetches the member's public key. The vault only allows
// confirmation once the user has generated key material; a 404 here maps to
// ErrKeyNotReady.
func (c *Client) PublicKey(ctx context.Context, userID string) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/users/"+userID+"/public-key", nil)
	if err != nil {
		return "", err
	}
	defer drain(resp)
	if resp.StatusCode == http.StatusNotFound {
		return "", ErrKeyNotReady
	}
	if err := c.classify(resp); err != nil {
		return "", err
	}
	var payload struct {
		PublicKey string `json:"publicKey"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("vault: decode public key: %w", err)
	}
	if payload.PublicKey == "" {
		return "", ErrKeyNotReady
	}
	return payload.PublicKey, nil
}

// Confirm completes the membership lifecycle for an accepted member. The
// public key precondition is checked first so a not-yet-ready member surfaces
// as ErrKeyNotReady without touching the confirm endpoint.
func (c *Client) Confirm(ctx context.Context, memberID, userID string) error {
	if _, err := c.PublicKey(ctx, userID); err != nil {
		return err
	}
	body := map[string]any{"key": userID}
	resp, err := c.do(ctx, http.MethodPost, c.orgPath("/users/"+memberID+"/confirm"), body)
	if err != nil {
		return err
	}
	defer drain(resp)
	return c.classify(resp)
}

// Delete removes a member from the organization.
func (c *Client) Delete(ctx context.Context, memberID string) error {
	resp, err := c.do(ctx, http.MethodPost, c.orgPath("/users/"+memberID+"/delete"), nil)
	if err != nil {
		return err
	}
	defer drain(resp)
	return c.classify(resp)
}

func (c *Client) orgPath(suffix string) string {
	return "/organizations/" + c.orgID + suffix
}

// do executes one authenticated request. A 401 response invalidates the token
// cache and the request is retried once with a fresh token; a second 401 is
// returned to the caller via classify.
func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("vault: encode request: %w", err)
		}
	}

	resp, err := c.attempt(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	drain(resp)

	c.tokens.Invalidate()
	if c.logger != nil {
		c.logger.Warn("vault token rejected, retrying with fresh token", slog.String("path", path))
	}
	return c.attempt(ctx, method, path, payload)
}

func (c *Client) attempt(ctx context.Context, method, path string, payload []byte) (*http.Response, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("vault: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vault: %s %s: %w", method, path, err)
	}
	return resp, nil
}

// classify maps a terminal response status to the error taxonomy. The body is
// read only on failure and is limited to keep diagnostics bounded.
func (c *Client) classify(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	message := strings.TrimSpace(string(body))

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: request unauthorized after token refresh", ErrAuthentication)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrAlreadyExists, message)
	case http.StatusBadRequest:
		lower := strings.ToLower(message)
		if strings.Contains(lower, "already invited") || strings.Contains(lower, "already exists") {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, message)
		}
	}
	return &APIError{Status: resp.StatusCode, Body: message}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}
