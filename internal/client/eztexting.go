// Package client talks to the EZ Texting REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// tokenSafetyMargin is how long before expiry a cached token is treated
// as stale.
const tokenSafetyMargin = 60 * time.Second

// EZTextingClient sends SMS through EZ Texting. The bearer token is a
// process-wide cache: cold-started lazily, refreshed when absent or within
// the safety margin of expiry, and shared by every delivery attempt.
// Refresh runs single-flight so racing deliveries trigger one token call.
type EZTextingClient struct {
	baseURL     string
	messagePath string
	appKey      string
	appSecret   string

	client *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time

	refresh singleflight.Group
	now     func() time.Time
}

func NewEZTextingClient(baseURL, messagePath, appKey, appSecret string) *EZTextingClient {
	return &EZTextingClient{
		baseURL:     baseURL,
		messagePath: messagePath,
		appKey:      appKey,
		appSecret:   appSecret,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		now: time.Now,
	}
}

type sendRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

type tokenRequest struct {
	AppKey    string `json:"appKey"`
	AppSecret string `json:"appSecret"`
}

type tokenResponse struct {
	AccessToken      string `json:"accessToken"`
	RefreshToken     string `json:"refreshToken"`
	ExpiresInSeconds int    `json:"expiresInSeconds"`
}

// Send delivers one message. A non-2xx response is a delivery failure with
// the provider's status and body in the error text.
func (c *EZTextingClient) Send(ctx context.Context, toNumber, message string) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	reqBody, err := json.Marshal(sendRequest{To: toNumber, Message: message})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.messagePath, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("eztexting send failed: status %d body=%q", resp.StatusCode, string(body))
	}
	return nil
}

func (c *EZTextingClient) accessToken(ctx context.Context) (string, error) {
	if token, ok := c.cachedToken(); ok {
		return token, nil
	}

	v, err, _ := c.refresh.Do("token", func() (any, error) {
		// Another flight may have refreshed while we waited.
		if token, ok := c.cachedToken(); ok {
			return token, nil
		}

		tok, err := c.createToken(ctx)
		if err != nil {
			return "", err
		}

		c.mu.Lock()
		c.token = tok.AccessToken
		c.expiresAt = c.now().Add(time.Duration(tok.ExpiresInSeconds) * time.Second)
		c.mu.Unlock()

		return tok.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *EZTextingClient) cachedToken() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == "" {
		return "", false
	}
	if !c.now().Before(c.expiresAt.Add(-tokenSafetyMargin)) {
		return "", false
	}
	return c.token, true
}

func (c *EZTextingClient) createToken(ctx context.Context) (*tokenResponse, error) {
	reqBody, err := json.Marshal(tokenRequest{AppKey: c.appKey, AppSecret: c.appSecret})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/tokens/create", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("eztexting token create failed: status %d body=%q", resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w body=%q", err, string(body))
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("missing accessToken in response body=%q", string(body))
	}
	return &tr, nil
}
