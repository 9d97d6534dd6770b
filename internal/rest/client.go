// Package rest is the request/response transport: one JSON envelope per call,
// rate limited on the client side.
package rest

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
	"golang.org/x/time/rate"

	"hstrader/internal/metrics"
	"hstrader/logger"
)

// Envelope is the standard response body of every endpoint.
type Envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// Decode unmarshals the data member into v. Empty or null data leaves v
// untouched.
func (e *Envelope) Decode(v interface{}) error {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// UpstreamError is a non-200 response whose envelope reports failure.
type UpstreamError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return e.Message
}

// TokenSource returns the bearer token for authenticated calls.
type TokenSource func() (string, error)

// Options configure a Client.
type Options struct {
	BaseURL           string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	BurstSize         int
	Token             TokenSource
	HTTPClient        *http.Client
}

// Client sends requests to the server.
type Client struct {
	baseURL   string
	userAgent string
	token     TokenSource
	http      *http.Client
	limiter   *rate.Limiter
	log       *logger.Log
}

func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := opts.BurstSize
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		token:     opts.Token,
		http:      httpClient,
		limiter:   rate.NewLimiter(rate.Limit(rps), burst),
		log:       logger.GetLogger(),
	}
}

type requestConfig struct {
	basicUser, basicPass string
	basic                bool
}

// RequestOption adjusts a single call.
type RequestOption func(*requestConfig)

// WithBasicAuth authenticates the call with client credentials instead of
// the bearer token.
func WithBasicAuth(user, pass string) RequestOption {
	return func(c *requestConfig) {
		c.basic = true
		c.basicUser, c.basicPass = user, pass
	}
}

// Do sends one request and returns the decoded envelope. body, when not nil,
// is sent as JSON. A 200 response returns its envelope as is; any other
// status with success=false yields *UpstreamError.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body interface{}, opts ...RequestOption) (*Envelope, error) {
	var rc requestConfig
	for _, opt := range opts {
		opt(&rc)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if err := c.authorize(req, rc); err != nil {
		return nil, err
	}

	entry := c.log.WithComponent("rest").WithFields(logger.Fields{
		"method":     method,
		"path":       path,
		"request_id": requestID,
	})

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.EmitMetric(c.log, "rest", "request_errors", 1, "counter", logger.Fields{"reason": "transport"})
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	env, err := readEnvelope(resp)
	logger.LogPerformanceEntry(entry, "rest", "request", time.Since(start), logger.Fields{"status": resp.StatusCode})
	metrics.EmitMetric(c.log, "rest", "requests", 1, "counter", nil)
	if err != nil {
		metrics.EmitMetric(c.log, "rest", "request_errors", 1, "counter", logger.Fields{"reason": "upstream"})
		entry.WithError(err).Debug("request failed")
		return nil, err
	}
	return env, nil
}

func (c *Client) authorize(req *http.Request, rc requestConfig) error {
	switch {
	case rc.basic:
		req.SetBasicAuth(rc.basicUser, rc.basicPass)
		return nil
	case c.token == nil:
		return nil
	}
	token, err := c.token()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

func readEnvelope(resp *http.Response) (*Envelope, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var env Envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode == http.StatusOK {
		if decodeErr != nil {
			return nil, fmt.Errorf("decode response: %w", decodeErr)
		}
		return &env, nil
	}

	if decodeErr != nil {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Code: env.Code, Message: msg}
	}
	return &env, nil
}
