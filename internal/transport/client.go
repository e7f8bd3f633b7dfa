package transport

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/oshokin/paper-fetch/internal/logger"
	"github.com/oshokin/paper-fetch/internal/version"
)

const (
	// DefaultTimeout bounds every request including reading the body.
	DefaultTimeout = 30 * time.Second

	// StatusPreviewLength is the number of body characters quoted in status errors.
	StatusPreviewLength = 200

	// DecodePreviewLength is the number of body characters logged on JSON decode failures.
	DecodePreviewLength = 500

	// MaxJSONBodySize caps the metadata responses read into memory.
	MaxJSONBodySize = 8 << 20

	secureScheme        = "https"
	tlsHandshakeTimeout = 10 * time.Second
	idleConnTimeout     = 90 * time.Second
)

var (
	// ErrInsecureURL is returned for URLs that do not use https.
	ErrInsecureURL = errors.New("refusing non-https URL")
	// ErrUnexpectedStatus matches every *StatusError.
	ErrUnexpectedStatus = errors.New("unexpected http status")
	// ErrDecode is returned when a response body is not the expected JSON.
	ErrDecode = errors.New("API may have changed")
	// errBodyTooLarge is returned when a JSON response exceeds MaxJSONBodySize.
	errBodyTooLarge = errors.New("response body too large")
)

// StatusError describes a non-2xx response.
type StatusError struct {
	// URL is the requested address.
	URL string
	// Status is the status line, e.g. "404 Not Found".
	Status string
	// StatusCode is the numeric status.
	StatusCode int
	// Preview holds at most StatusPreviewLength characters of the body.
	Preview string
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s from %s: %s", ErrUnexpectedStatus, e.Status, e.URL, e.Preview)
}

// Is makes errors.Is(err, ErrUnexpectedStatus) hold.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

// Client performs https requests with a fixed timeout and user agent.
type Client struct {
	// httpClient is the underlying client, shared and never mutated.
	httpClient *http.Client
	// timeout is applied to httpClient at construction.
	timeout time.Duration
	// userAgent is sent with every request.
	userAgent string
}

// Option configures client behaviour.
type Option func(*Client)

// WithTimeout replaces DefaultTimeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithHTTPClient uses a copy of hc instead of a freshly built client,
// for example the client of an httptest TLS server.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			clone := *hc
			c.httpClient = &clone
		}
	}
}

// WithUserAgent overrides the default User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// New builds the client. Call it once and share the result.
func New(opts ...Option) *Client {
	c := &Client{
		timeout:   DefaultTimeout,
		userAgent: version.UserAgent(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
				ForceAttemptHTTP2:   true,
				TLSHandshakeTimeout: tlsHandshakeTimeout,
				IdleConnTimeout:     idleConnTimeout,
			},
		}
	}

	c.httpClient.Timeout = c.timeout

	return c
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// ValidateSecureURL parses raw and fails with ErrInsecureURL unless it is an https URL with a host.
func ValidateSecureURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse URL %q: %w", raw, err)
	}

	if u.Scheme != secureScheme || u.Host == "" {
		return nil, fmt.Errorf("%w: %s", ErrInsecureURL, raw)
	}

	return u, nil
}

// Get issues one GET request. The caller owns the response body and the status check.
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	u, err := ValidateSecureURL(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", rawURL, err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	logger.DebugKV(ctx, "HTTP request", "url", rawURL)

	response, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", rawURL, err)
	}

	return response, nil
}

// CheckStatus returns a *StatusError for non-2xx responses, quoting the start of the body.
func CheckStatus(response *http.Response) error {
	if response.StatusCode >= http.StatusOK && response.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	return &StatusError{
		URL:        response.Request.URL.String(),
		Status:     response.Status,
		StatusCode: response.StatusCode,
		Preview:    readPreview(response, StatusPreviewLength),
	}
}

// GetJSON fetches rawURL and decodes the JSON body into out.
// what names the document in errors and logs.
func (c *Client) GetJSON(ctx context.Context, rawURL, what string, out any) error {
	response, err := c.Get(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", what, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if err = CheckStatus(response); err != nil {
		return fmt.Errorf("fetch %s: %w", what, err)
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, MaxJSONBodySize+1))
	if err != nil {
		return fmt.Errorf("read %s response body: %w", what, err)
	}

	if len(body) > MaxJSONBodySize {
		return fmt.Errorf("%w: parse %s JSON: %w", ErrDecode, what, errBodyTooLarge)
	}

	if err = json.Unmarshal(body, out); err != nil {
		logger.WarnKV(ctx, "Failed to parse JSON response",
			"document", what,
			"response", Preview(string(body), DecodePreviewLength))

		return fmt.Errorf("parse %s JSON, %w: %w", what, ErrDecode, err)
	}

	return nil
}

// Preview returns at most n characters of s.
func Preview(s string, n int) string {
	if n <= 0 {
		return ""
	}

	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}

		count++
	}

	return s
}

// readPreview reads just enough of the body to quote n characters.
func readPreview(response *http.Response, n int) string {
	data, err := io.ReadAll(io.LimitReader(response.Body, int64(n*utf8.UTFMax)))
	if err != nil {
		return fmt.Sprintf("failed to read error response body (status: %s)", response.Status)
	}

	return Preview(string(data), n)
}
