// Package transport is the HTTP caller shared by every probe: base URL
// resolution, bearer auth, per-call timeouts, rate limiting and opt-in retry.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"claimprobe/internal/logging"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig configures the HTTP client behavior.
type ClientConfig struct {
	// BaseURL is the base URL for all relative request paths.
	BaseURL string

	// Timeout applies to requests that do not set their own (default: 30s).
	Timeout time.Duration

	// MaxRetries for 429/5xx responses (default: 0, probes observe raw behavior).
	MaxRetries int

	// RateLimit requests per second (default: 5).
	RateLimit float64

	// RateBurst maximum burst size (default: 1).
	RateBurst int

	// UserAgent string.
	UserAgent string

	// InsecureSkipVerify disables TLS verification for self-signed backends.
	InsecureSkipVerify bool

	// Transport allows injecting a custom HTTP transport (for tests/stubs).
	Transport http.RoundTripper
}

// DefaultClientConfig returns a client config with sensible defaults.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Timeout:   30 * time.Second,
		RateLimit: 5,
		RateBurst: 1,
		UserAgent: "claimprobe",
	}
}

// =============================================================================
// HTTP CLIENT
// =============================================================================

// Client is a rate-limited HTTP client bound to one backend.
type Client struct {
	config      *ClientConfig
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	auth        Authorizer
}

// NewClient creates a new HTTP client with the given configuration.
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultClientConfig()
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 5
	}
	if config.RateBurst == 0 {
		config.RateBurst = 1
	}
	if config.UserAgent == "" {
		config.UserAgent = "claimprobe"
	}

	rt := config.Transport
	if rt == nil && config.InsecureSkipVerify {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // pre-prod self-signed chain
		rt = t
	}

	return &Client{
		config:      config,
		httpClient:  &http.Client{Transport: rt},
		rateLimiter: rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst),
		auth:        NoAuth{},
	}
}

// WithAuth returns a client sharing the connection pool and limiter but
// authorizing requests with a.
func (c *Client) WithAuth(a Authorizer) *Client {
	if a == nil {
		a = NoAuth{}
	}
	clone := *c
	clone.auth = a
	return &clone
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// CloseIdleConnections releases pooled connections.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// Request represents an HTTP request to be made. Body is a byte slice so a
// retried attempt can replay it.
type Request struct {
	Method  string
	Path    string // relative to BaseURL, or absolute
	Query   url.Values
	Headers map[string]string
	Body    []byte
	Timeout time.Duration
}

// Response wraps an HTTP response with convenience methods.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
	RequestID  string
}

// JSON unmarshals the response body into the given target.
func (r *Response) JSON(target any) error {
	if err := json.Unmarshal(r.Body, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// IsSuccess returns true if the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Text returns the body as text, truncated to limit bytes when limit > 0.
func (r *Response) Text(limit int) string {
	return truncate(string(r.Body), limit)
}

// =============================================================================
// CLIENT METHODS
// =============================================================================

// Do executes a request with rate limiting and retry.
// For status >= 400 it returns both the response and an *HTTPError.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := c.doOnce(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !isRetryable(err) || attempt == c.config.MaxRetries {
			return resp, err
		}

		backoff := time.Duration(1<<uint(attempt)) * 100 * time.Millisecond
		logging.APIDebug("retrying %s %s after %v (attempt %d): %v", req.Method, req.Path, backoff, attempt+1, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, lastErr
}

func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if path == "" {
		return c.config.BaseURL
	}
	return strings.TrimSuffix(c.config.BaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}

// doOnce executes a single request attempt.
func (c *Client) doOnce(ctx context.Context, req *Request) (*Response, error) {
	timeout := req.Timeout
	if timeout == 0 {
		timeout = c.config.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fullURL := c.resolve(req.Path)
	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("User-Agent", c.config.UserAgent)
	httpReq.Header.Set("X-Request-ID", requestID)
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	c.auth.Apply(httpReq)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		logging.API("%s %s failed after %v [%s]: %v", req.Method, req.Path, time.Since(start), requestID, err)
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	elapsed := time.Since(start)

	logging.Get(logging.CategoryAPI).Fields("exchange",
		"method", req.Method,
		"path", req.Path,
		"status", resp.StatusCode,
		"duration", elapsed,
		"bytes", len(data),
		"request_id", requestID,
	)

	response := &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       data,
		Duration:   elapsed,
		RequestID:  requestID,
	}

	if resp.StatusCode >= 400 {
		return response, &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       data,
		}
	}

	return response, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, timeout time.Duration) (*Response, error) {
	return c.Do(ctx, &Request{
		Method:  http.MethodGet,
		Path:    path,
		Timeout: timeout,
	})
}

// PostJSON performs a POST request with a JSON body.
func (c *Client) PostJSON(ctx context.Context, path string, body any, timeout time.Duration) (*Response, error) {
	var data []byte
	if body != nil {
		var err error
		data, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
	}

	return c.Do(ctx, &Request{
		Method:  http.MethodPost,
		Path:    path,
		Body:    data,
		Timeout: timeout,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	})
}

// PostForm performs a POST request with a form-encoded body.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values, timeout time.Duration) (*Response, error) {
	return c.Do(ctx, &Request{
		Method:  http.MethodPost,
		Path:    path,
		Body:    []byte(form.Encode()),
		Timeout: timeout,
		Headers: map[string]string{
			"Content-Type": "application/x-www-form-urlencoded",
		},
	})
}

// FilePart is a file field of a multipart request.
type FilePart struct {
	Field       string
	Filename    string
	ContentType string
	Content     []byte
}

// PostMultipart performs a multipart/form-data POST with plain fields and an
// optional file part.
func (c *Client) PostMultipart(ctx context.Context, path string, fields [][2]string, file *FilePart, timeout time.Duration) (*Response, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if file != nil {
		ct := file.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h := make(map[string][]string)
		h["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name=%q; filename=%q`, file.Field, file.Filename)}
		h["Content-Type"] = []string{ct}
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("create file part: %w", err)
		}
		if _, err := part.Write(file.Content); err != nil {
			return nil, fmt.Errorf("write file part: %w", err)
		}
	}
	for _, kv := range fields {
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return nil, fmt.Errorf("write field %s: %w", kv[0], err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	return c.Do(ctx, &Request{
		Method:  http.MethodPost,
		Path:    path,
		Body:    buf.Bytes(),
		Timeout: timeout,
		Headers: map[string]string{
			"Content-Type": w.FormDataContentType(),
		},
	})
}

// truncate cuts s to at most limit bytes without splitting a UTF-8 sequence.
func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
