package airtable

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

	"golang.org/x/time/rate"

	pkgerrors "github.com/AlazarG19/Test-Bulk-Buddy/pkg/errors"
)

const (
	defaultBaseURL               = "https://api.airtable.com/v0"
	defaultTimeout               = 15 * time.Second
	errorBodyReadLimit     int64 = 4096
	maxPageSize                  = 100
	defaultRequestsPerSec        = 5
)

var (
	errAPIKeyRequired = errors.New("airtable api key is required")
	errBaseIDRequired = errors.New("airtable base id is required")
)

// RequestObserver receives one call per HTTP round trip to the store.
type RequestObserver interface {
	ObserveRequest(table, method string, status int, duration time.Duration)
}

// Client talks to a single Airtable base over the REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	baseID     string
	limiter    *rate.Limiter
	observer   RequestObserver
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the API root (useful for tests and proxies).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithRateLimit caps outgoing requests. A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithObserver attaches request instrumentation.
func WithObserver(observer RequestObserver) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

// NewClient builds an Airtable client for the given personal access token and base.
func NewClient(apiKey, baseID string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}
	trimmedBase := strings.TrimSpace(baseID)
	if trimmedBase == "" {
		return nil, errBaseIDRequired
	}

	client := &Client{
		apiKey:     trimmedKey,
		baseID:     trimmedBase,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(defaultRequestsPerSec), defaultRequestsPerSec),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return client, nil
}

// Table returns a handle for the named table in this base.
func (c *Client) Table(name string) *Table {
	return &Table{client: c, name: name}
}

// APIError is a non-2xx response from the store.
type APIError struct {
	Status  int
	Type    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("airtable status %d %s: %s", e.Status, e.Type, e.Message)
	}
	return fmt.Sprintf("airtable status %d %s", e.Status, e.Type)
}

// StatusCode returns the HTTP status reported by the store.
func (e *APIError) StatusCode() int { return e.Status }

// ErrorType returns the store's error type, e.g. INVALID_FILTER_BY_FORMULA.
func (e *APIError) ErrorType() string { return e.Type }

func (c *Client) do(ctx context.Context, method, table, recordID string, query url.Values, body any, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "airtable client not configured")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "airtable rate limiter")
		}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal airtable request")
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.buildURL(table, recordID, query), reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build airtable request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.observe(table, method, 0, time.Since(start))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute airtable request")
	}
	defer func() { _ = resp.Body.Close() }()
	c.observe(table, method, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeAPIError(resp)
		code := pkgerrors.CodeDependency
		if resp.StatusCode == http.StatusNotFound && recordID != "" {
			code = pkgerrors.CodeNotFound
		}
		return pkgerrors.Wrap(code, apiErr, fmt.Sprintf("airtable %s %s failed", method, table))
	}

	if out == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	if err := decoder.Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode airtable response")
	}
	return nil
}

func (c *Client) observe(table, method string, status int, d time.Duration) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveRequest(table, method, status, d)
}

func (c *Client) buildURL(table, recordID string, query url.Values) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(c.baseURL, "/"))
	b.WriteString("/")
	b.WriteString(url.PathEscape(c.baseID))
	b.WriteString("/")
	b.WriteString(url.PathEscape(table))
	if recordID != "" {
		b.WriteString("/")
		b.WriteString(url.PathEscape(recordID))
	}
	if len(query) > 0 {
		b.WriteString("?")
		b.WriteString(query.Encode())
	}
	return b.String()
}

// decodeAPIError accepts both error shapes the API returns:
// {"error":"NOT_FOUND"} and {"error":{"type":"...","message":"..."}}.
func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))

	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || len(envelope.Error) == 0 {
		apiErr.Message = strings.TrimSpace(string(raw))
		return apiErr
	}

	var asString string
	if err := json.Unmarshal(envelope.Error, &asString); err == nil {
		apiErr.Type = asString
		return apiErr
	}

	var detail struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(envelope.Error, &detail); err == nil {
		apiErr.Type = detail.Type
		apiErr.Message = detail.Message
	}
	return apiErr
}
