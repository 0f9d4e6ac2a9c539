package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sitesage/gateway/internal/model"
	"github.com/sitesage/gateway/internal/token"
)

const (
	// apiPrefix is the backend's versioned API mount point.
	apiPrefix = "api/v1"

	// DefaultCacheTTL is how long a successful GET response is served from
	// cache before the network is hit again.
	DefaultCacheTTL = 30 * time.Second

	defaultTimeout = 30 * time.Second
	maxBody        = 10 << 20 // 10 MB
)

// Client issues requests against the SiteSage backend. It attaches bearer
// tokens when a token source is configured, retries exactly once on a 401
// after a forced token refresh, and caches successful GET responses for a
// short window. A Client without a token source is the public client used
// for guest report reads.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	tokens      token.Source
	internalKey string
	cache       *Cache
	cacheTTL    time.Duration
	now         func() time.Time
}

// Option configures a Client
type Option func(*Client)

// WithTokenSource attaches bearer tokens from src to every request.
func WithTokenSource(src token.Source) Option {
	return func(c *Client) { c.tokens = src }
}

// WithInternalKey sets the confidential service key sent on the
// X-INTERNAL-API-KEY header. Server-side use only.
func WithInternalKey(key string) Option {
	return func(c *Client) { c.internalKey = key }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithCacheTTL overrides the GET response cache window.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) { c.cacheTTL = ttl }
}

// WithClock overrides the clock used for cache expiry. Tests only.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New creates a Client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		cacheTTL: DefaultCacheTTL,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.cache = NewCache(c.cacheTTL, c.now)
	return c
}

// NewPublic creates a Client with no token source, for endpoints that allow
// unauthenticated guest reads.
func NewPublic(baseURL string, opts ...Option) *Client {
	return New(baseURL, opts...)
}

// ClearCache drops all cached GET responses. Any code path that mutates
// backend state must call this to avoid serving stale reads.
func (c *Client) ClearCache() {
	c.cache.Clear()
}

// Get issues a cached, authenticated GET and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	if body, ok := c.cache.Get(path); ok {
		return decode(body, out)
	}

	body, err := c.roundTrip(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}

	c.cache.Set(path, body)
	return decode(body, out)
}

// Post issues an authenticated POST and decodes the JSON response into out.
// The read cache is cleared on success.
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.mutate(ctx, http.MethodPost, path, in, out)
}

// Put issues an authenticated PUT and decodes the JSON response into out.
func (c *Client) Put(ctx context.Context, path string, in, out any) error {
	return c.mutate(ctx, http.MethodPut, path, in, out)
}

// Delete issues an authenticated DELETE.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.mutate(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) mutate(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	body, err := c.roundTrip(ctx, method, path, payload)
	if err != nil {
		return err
	}

	c.cache.Clear()
	if out == nil {
		return nil
	}
	return decode(body, out)
}

// roundTrip sends one request, replaying it exactly once after a forced
// token refresh if the backend answers 401. When the refresh or the replay
// fails too, the original 401 is what the caller sees, so it can surface an
// in-context error instead of being bounced around by a refresh failure.
func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	body, err := c.send(ctx, method, path, payload, false)
	if err == nil || c.tokens == nil || !IsUnauthorized(err) {
		return body, err
	}

	origErr := err
	if _, refreshErr := c.tokens.Refresh(ctx); refreshErr != nil {
		log.Printf("Token refresh failed: %v", refreshErr)
		return nil, origErr
	}

	body, err = c.send(ctx, method, path, payload, true)
	if err != nil {
		return nil, origErr
	}
	return body, nil
}

// send performs a single HTTP exchange.
func (c *Client) send(ctx context.Context, method, path string, payload []byte, replay bool) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+strings.TrimLeft(path, "/"), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.internalKey != "" {
		req.Header.Set("X-INTERNAL-API-KEY", c.internalKey)
	}

	if c.tokens != nil {
		tok, err := c.tokens.Token(ctx)
		if err != nil {
			if !replay {
				return nil, fmt.Errorf("failed to obtain token: %w", err)
			}
			// The refresh already succeeded before a replay; this should
			// not happen, but a replay without a token is still a valid
			// request for public endpoints.
			log.Printf("Token unavailable on replay: %v", err)
		} else if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp, body)
	}
	return body, nil
}

func decode(body []byte, out any) error {
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Analyze submits a URL for analysis and returns the freshly created report.
// Lighthouse scores are populated asynchronously; see the poll package.
func (c *Client) Analyze(ctx context.Context, targetURL string) (*model.Report, error) {
	var report model.Report
	err := c.Post(ctx, apiPrefix+"/analyze", model.AnalyzeRequest{URL: targetURL}, &report)
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// Report fetches one report by ID.
func (c *Client) Report(ctx context.Context, id int) (*model.Report, error) {
	var report model.Report
	if err := c.Get(ctx, fmt.Sprintf("%s/reports/%d", apiPrefix, id), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Reports fetches the current user's reports with pagination.
func (c *Client) Reports(ctx context.Context, skip, limit int) ([]model.Report, error) {
	var reports []model.Report
	path := fmt.Sprintf("%s/reports?skip=%d&limit=%d", apiPrefix, skip, limit)
	if err := c.Get(ctx, path, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

// UniqueHistory fetches the distinct URLs the current user has analyzed.
func (c *Client) UniqueHistory(ctx context.Context) ([]model.HistoryURL, error) {
	var history []model.HistoryURL
	if err := c.Get(ctx, apiPrefix+"/history/unique", &history); err != nil {
		return nil, err
	}
	return history, nil
}

// HistoryByURL fetches every report for one URL, newest first.
func (c *Client) HistoryByURL(ctx context.Context, targetURL string) ([]model.Report, error) {
	var reports []model.Report
	path := apiPrefix + "/history/by-url?url=" + url.QueryEscape(targetURL)
	if err := c.Get(ctx, path, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

// Health checks backend reachability. Bypasses the cache so callers always
// get a live answer.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.roundTrip(ctx, http.MethodGet, "health", nil)
	return err
}
