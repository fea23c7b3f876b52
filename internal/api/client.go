// Package api is the REST client for the healthcare backend. Every request
// carries the session's bearer token, resource responses are unwrapped from
// the {code, message, data} envelope, and a 401 tears the session down.
package api

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

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenSource supplies the current bearer token, "" when signed out.
type TokenSource interface {
	Token() string
}

// Client talks JSON to the backend.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	tokens         TokenSource
	onUnauthorized func()
	logger         *zap.Logger
	retryWait      time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithUnauthorizedHandler is called when a request that carried a token
// comes back 401.
func WithUnauthorizedHandler(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// WithRetryWait sets the pause before the single read retry.
func WithRetryWait(d time.Duration) Option {
	return func(c *Client) { c.retryWait = d }
}

// NewClient creates a client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		logger:     zap.NewNop(),
		retryWait:  300 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	// anonymous requests never send the token (login).
	anonymous bool
	// raw responses are decoded as-is instead of from the envelope.
	raw bool
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// do sends r and decodes the response into out (nil to discard).
// GET requests are retried once on transient failure.
func (c *Client) do(ctx context.Context, r request, out any) error {
	var payload []byte
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		payload = b
	}

	if r.method != http.MethodGet {
		return c.send(ctx, r, payload, out)
	}

	attempt := func() error {
		err := c.send(ctx, r, payload, out)
		if err != nil && (ctx.Err() != nil || !transient(err)) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryWait), 1), ctx)
	return backoff.RetryNotify(attempt, policy, func(err error, wait time.Duration) {
		c.logger.Warn("retrying request",
			zap.String("method", r.method),
			zap.String("path", r.path),
			zap.Duration("wait", wait),
			zap.Error(err))
	})
}

func (c *Client) send(ctx context.Context, r request, payload []byte, out any) error {
	reqURL := c.baseURL + r.path
	if len(r.query) > 0 {
		reqURL += "?" + r.query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, reqURL, body)
	if err != nil {
		return fmt.Errorf("request creation failed: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	token := ""
	if !r.anonymous && c.tokens != nil {
		token = c.tokens.Token()
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			zap.String("method", r.method),
			zap.String("path", r.path),
			zap.String("request_id", requestID),
			zap.Error(err))
		return fmt.Errorf("%w: %w", errNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %w", errNetwork, err)
	}

	c.logger.Debug("request",
		zap.String("method", r.method),
		zap.String("path", r.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
		zap.String("request_id", requestID))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{
			Status:    resp.StatusCode,
			Message:   errorMessage(data),
			RequestID: requestID,
		}
		if resp.StatusCode == http.StatusUnauthorized && token != "" && c.onUnauthorized != nil {
			c.logger.Info("token rejected, tearing down session", zap.String("request_id", requestID))
			c.onUnauthorized()
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if r.raw {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("JSON decode error: %w", err)
		}
		return nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("JSON decode error: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("JSON decode error: %w", err)
	}
	return nil
}
