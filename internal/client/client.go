// Package client wraps the scheduling backend's REST API for CallBook.
//
// Every request carries the stored bearer token when one exists. A request
// rejected with 401 while a token was present triggers exactly one re-login
// and one retry; refreshes are single-flight, so concurrent failures reuse
// the token obtained by whichever request logged in first.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	"callbook/internal/models"
	"callbook/internal/store"
)

// Opts holds configuration options for the backend client.
type Opts struct {
	BaseURL    string
	Username   string
	Password   string
	HTTPClient *http.Client
	TokenStore store.Store
}

// Option defines a configuration option for the backend client.
type Option func(*Opts)

// WithBaseURL sets the backend base URL.
func WithBaseURL(u string) Option {
	return func(o *Opts) { o.BaseURL = u }
}

// WithCredentials sets the login credentials for token acquisition.
func WithCredentials(username, password string) Option {
	return func(o *Opts) { o.Username = username; o.Password = password }
}

// WithHTTPClient injects the underlying HTTP client (used by tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = hc }
}

// WithTokenStore sets the durable token store.
func WithTokenStore(st store.Store) Option {
	return func(o *Opts) { o.TokenStore = st }
}

// Client is the authenticated backend API client.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	tokens   store.Store

	// mu guards token reads and serializes login so that two requests
	// failing at once issue a single credential exchange.
	mu         sync.Mutex
	generation uint64
}

// NewClient creates a backend client, falling back to environment variables
// for any option not provided.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("CALLBOOK_BACKEND_URL")
	}
	if cfg.Username == "" {
		cfg.Username = os.Getenv("CALLBOOK_USERNAME")
	}
	if cfg.Password == "" {
		cfg.Password = os.Getenv("CALLBOOK_PASSWORD")
	}
	slog.Debug("Backend client config loaded",
		"BaseURL_set", cfg.BaseURL != "",
		"Username_set", cfg.Username != "",
		"Password_set", cfg.Password != "")

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("backend base URL must be provided")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.TokenStore == nil {
		cfg.TokenStore = store.NewInMemoryStore()
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		http:     cfg.HTTPClient,
		tokens:   cfg.TokenStore,
	}, nil
}

// Init performs the startup login when no token is stored yet. A failure here
// is non-fatal: the service starts anyway and individual requests fail until
// credentials work, so callers should log the returned error and continue.
func (c *Client) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	token, err := c.tokens.GetToken(store.TokenKey)
	if err != nil {
		return fmt.Errorf("failed to read stored token: %w", err)
	}
	if token != "" {
		slog.Debug("Client.Init: token already stored, skipping login")
		return nil
	}
	if _, err := c.loginLocked(ctx); err != nil {
		slog.Warn("Client.Init: startup login failed, continuing without token", "error", err)
		return err
	}
	return nil
}

// loginLocked exchanges credentials for a bearer token and persists it.
// Callers must hold c.mu.
func (c *Client) loginLocked(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("username", c.username)
	form.Set("password", c.password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Error("Client.loginLocked: login request failed", "error", err)
		return "", fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeAPIError(resp)
		slog.Error("Client.loginLocked: login rejected", "status", apiErr.Status, "detail", apiErr.Detail)
		return "", apiErr
	}

	var lr models.LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return "", fmt.Errorf("failed to decode login response: %w", err)
	}
	if lr.AccessToken == "" {
		return "", fmt.Errorf("login response carried no access token")
	}

	if err := c.tokens.SaveToken(store.TokenKey, lr.AccessToken); err != nil {
		slog.Error("Client.loginLocked: failed to persist token", "error", err)
		return "", fmt.Errorf("failed to persist token: %w", err)
	}
	c.generation++

	if exp, ok := TokenExpiry(lr.AccessToken); ok {
		slog.Info("Client.loginLocked: token acquired", "expires_at", exp)
	} else {
		slog.Info("Client.loginLocked: token acquired", "expires_at", "unknown")
	}
	return lr.AccessToken, nil
}

// currentToken reads the stored token and the login generation it belongs to.
func (c *Client) currentToken() (string, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	token, err := c.tokens.GetToken(store.TokenKey)
	return token, c.generation, err
}

// refreshToken re-authenticates unless another request already did so since
// generation gen, in which case the newer token is returned as-is.
func (c *Client) refreshToken(ctx context.Context, gen uint64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		slog.Debug("Client.refreshToken: token already refreshed by another request", "generation", c.generation)
		return c.tokens.GetToken(store.TokenKey)
	}
	return c.loginLocked(ctx)
}

// Send issues a JSON request against the backend and decodes a 2xx response
// body into out (when out is non-nil). Non-2xx responses come back as an
// *APIError carrying the HTTP status and the extracted detail message.
func (c *Client) Send(ctx context.Context, method, path string, body, out interface{}) error {
	token, gen, err := c.currentToken()
	if err != nil {
		return fmt.Errorf("failed to read stored token: %w", err)
	}

	resp, err := c.do(ctx, method, path, body, token)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && token != "" {
		// The token was present but rejected: one re-login, one retry.
		originalErr := decodeAPIError(resp)
		resp.Body.Close()

		fresh, loginErr := c.refreshToken(ctx, gen)
		if loginErr != nil {
			slog.Warn("Client.Send: re-authentication failed, surfacing original 401", "method", method, "path", path, "error", loginErr)
			return originalErr
		}
		slog.Debug("Client.Send: retrying with refreshed token", "method", method, "path", path)
		resp, err = c.do(ctx, method, path, body, fresh)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeAPIError(resp)
		slog.Warn("Client.Send: backend request failed", "method", method, "path", path, "status", apiErr.Status, "detail", apiErr.Detail)
		return apiErr
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// do builds and issues a single request with the given token attached.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, token string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s %s request: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Error("Client.do: request failed", "method", method, "path", path, "error", err)
		return nil, fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	return resp, nil
}
