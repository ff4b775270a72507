package vault

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

	"golang.org/x/sync/singleflight"
)

// TokenSource supplies bearer tokens for the administration API.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// SessionCache holds a short-lived bearer token obtained via the OAuth
// client-credentials grant. The token is process-local and never persisted.
type SessionCache struct {
	identityURL  string
	clientID     string
	clientSecret string
	margin       time.Duration
	httpClient   *http.Client
	now          func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time

	group singleflight.Group
}

// SessionCacheConfig collects SessionCache dependencies. Clock and HTTPClient
// default to time.Now and a 30s-timeout client when nil.
type SessionCacheConfig struct {
	IdentityURL  string
	ClientID     string
	ClientSecret string
	SafetyMargin time.Duration
	HTTPClient   *http.Client
	Clock        func() time.Time
}

// NewSessionCache constructs a SessionCache.
func NewSessionCache(cfg SessionCacheConfig) *SessionCache {
	margin := cfg.SafetyMargin
	if margin < time.Minute {
		margin = 90 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &SessionCache{
		identityURL:  strings.TrimRight(cfg.IdentityURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		margin:       margin,
		httpClient:   client,
		now:          clock,
	}
}

// Token returns the cached token while it remains inside the safety margin,
// otherwise performs a client-credentials exchange. Concurrent refreshes are
// collapsed into one request; the last completed refresh wins the cache.
func (c *SessionCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.token != "" && c.now().Before(c.expiry.Add(-c.margin)) {
		token := c.token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	token, err, _ := c.group.Do("token", func() (any, error) {
		return c.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

// Invalidate discards the cached token so the next Token call refreshes.
// Called by the client on any 401 from a downstream request.
func (c *SessionCache) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.expiry = time.Time{}
	c.mu.Unlock()
}

func (c *SessionCache) refresh(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", "api.organization")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.identityURL+"/connect/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: token endpoint returned %d: %s", ErrAuthentication, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: decode token response: %v", ErrAuthentication, err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrAuthentication)
	}

	c.mu.Lock()
	c.token = payload.AccessToken
	c.expiry = c.now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	c.mu.Unlock()
	return payload.AccessToken, nil
}
