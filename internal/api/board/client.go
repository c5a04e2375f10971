package board

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"jobboard-bot/internal/logger"
)

const (
	defaultAttempts = 3
	defaultBackoff  = 500 * time.Millisecond
	maxErrorBody    = 512
)

var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrMalformedResponse = errors.New("malformed response")
)

// APIError is a non-2xx answer from the backend. Message carries the JSON
// "error" field when the backend sent one.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error: %d", e.Status)
	}
	return fmt.Sprintf("server error %d: %s", e.Status, e.Message)
}

// Unwrap makes rejected credentials match ErrUnauthorized. The backend
// answers an expired token with 400 "Invalid Token" on some routes.
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if e.Status == http.StatusBadRequest && strings.Contains(strings.ToLower(e.Message), "token") {
		return ErrUnauthorized
	}
	return nil
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Client for requests to the job-board REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	userAgent  string
	attempts   int
	backoff    time.Duration
}

type Option func(*Client)

// WithRetry sets how often idempotent reads are attempted and the base
// backoff between attempts
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(c *Client) {
		c.attempts = max(attempts, 1)
		c.backoff = backoff
	}
}

func New(baseURL string, timeout time.Duration, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger:    logger,
		userAgent: "JobBoard-Bot/1.0",
		attempts:  defaultAttempts,
		backoff:   defaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	method string
	path   string
	params url.Values
	body   any
	token  string
}

// do sends one request. GETs are retried on transport errors, 429 and 5xx;
// mutations go out exactly once.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	fullURL := c.baseURL + r.path
	if len(r.params) > 0 {
		fullURL += "?" + r.params.Encode()
	}

	var payload []byte
	if r.body != nil {
		var err error
		payload, err = json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}

	attempts := 1
	if r.method == http.MethodGet {
		attempts = c.attempts
	}

	reqID := uuid.NewString()

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * c.backoff
			c.logger.Debug("retrying request",
				zap.String("url", fullURL),
				zap.String("request_id", reqID),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
			)
			if err := sleep(ctx, backoff); err != nil {
				return nil, err
			}
		}

		body, retry, err := c.send(ctx, r, fullURL, reqID, payload)
		if err == nil {
			return body, nil
		}
		if !retry || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", attempts, lastErr)
}

func (c *Client) send(ctx context.Context, r request, fullURL, reqID string, payload []byte) ([]byte, bool, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, fullURL, reader)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.logger.Debug("successful request",
			zap.String("method", r.method),
			zap.String("url", fullURL),
			zap.String("request_id", reqID),
			zap.Int("status", resp.StatusCode),
		)
		return body, false, nil
	}

	apiErr := &APIError{Status: resp.StatusCode}
	var er errorResponse
	if json.Unmarshal(body, &er) == nil {
		apiErr.Message = er.Error
		if apiErr.Message == "" {
			apiErr.Message = er.Message
		}
	}

	c.logger.Error("API error",
		zap.String("method", r.method),
		zap.String("url", fullURL),
		zap.String("request_id", reqID),
		zap.Int("status", resp.StatusCode),
		zap.String("body", logger.Redact(truncate(string(body), maxErrorBody))),
	)

	retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
	if resp.StatusCode == http.StatusTooManyRequests {
		c.logger.Warn("rate limit hit, backing off", zap.String("url", fullURL))
	}

	return nil, retry, apiErr
}

func (c *Client) get(ctx context.Context, path string, params url.Values, token string, dest any) error {
	data, err := c.do(ctx, request{method: http.MethodGet, path: path, params: params, token: token})
	if err != nil {
		return err
	}
	return c.parseResponse(data, dest)
}

// send a mutation; dest may be nil when the answer is not needed
func (c *Client) mutate(ctx context.Context, method, path string, body any, token string, dest any) error {
	data, err := c.do(ctx, request{method: method, path: path, body: body, token: token})
	if err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	return c.parseResponse(data, dest)
}

func (c *Client) parseResponse(data []byte, dest any) error {
	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Error("failed to parse response",
			zap.String("body", truncate(string(data), maxErrorBody)),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
