// Package api is the JSON-over-HTTP client of the assistant backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const maxResponseBytes = 10 << 20

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Signup registers a new account. Any 2xx status is success.
func (c *Client) Signup(ctx context.Context, name, email, password string) error {
	_, err := c.do(ctx, "signup", http.MethodPost, "/signup", "", signupRequest{
		Name:     name,
		Email:    email,
		Password: password,
	})
	return err
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body, err := c.do(ctx, "login", http.MethodPost, "/login", "", loginRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return "", err
	}
	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("login: %w: %v", ErrMalformedResponse, err)
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("login: %w: empty access_token", ErrMalformedResponse)
	}
	return resp.AccessToken, nil
}

// Ask sends one prompt and returns the raw assistant response.
func (c *Client) Ask(ctx context.Context, token, message string) (string, error) {
	if token == "" {
		return "", ErrMissingToken
	}
	if strings.TrimSpace(message) == "" {
		return "", ErrBlankMessage
	}
	body, err := c.do(ctx, "ask", http.MethodPost, "/ask", token, askRequest{Message: message})
	if err != nil {
		return "", err
	}
	var resp askResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("ask: %w: %v", ErrMalformedResponse, err)
	}
	return resp.Response, nil
}

// History returns the backend's record of past prompts in backend order.
func (c *Client) History(ctx context.Context, token string) ([]HistoryEntry, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	body, err := c.do(ctx, "history", http.MethodGet, "/history", token, nil)
	if err != nil {
		return nil, err
	}
	var entries []HistoryEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("history: %w: %v", ErrMalformedResponse, err)
	}
	if entries == nil {
		entries = []HistoryEntry{}
	}
	return entries, nil
}

// do performs one round trip and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, op, method, path, token string, payload interface{}) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to marshal request body: %w", op, err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed", zap.String("op", op), zap.Error(err))
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	c.logger.Debug("request done",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ValidationError{Op: op, Status: resp.StatusCode, Detail: parseDetail(body)}
	}
	return body, nil
}

// parseDetail extracts a string "detail" field; structured details
// (e.g. validation error lists) are ignored.
func parseDetail(body []byte) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err != nil || len(er.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(er.Detail, &s); err != nil {
		return ""
	}
	return s
}
