package feedapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/catsync/backend/internal/domain/feed"
	"github.com/catsync/backend/internal/infrastructure/config"
)

// maxResponseSize is the maximum allowed response size from the feed API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// dateLayout is the reference-date format the feed API expects
const dateLayout = "2006-01-02"

// Client implements feed.Source against a JSON feed endpoint. It knows
// nothing about product semantics; it only turns page requests into rows of
// strings.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rateLimiter
	logger     *zap.Logger
}

// Option is a functional option for Client configuration.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a feed API client from the feed configuration.
func NewClient(cfg *config.FeedConfig, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("feedapi: base_url is required")
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		limiter: newRateLimiter(cfg.RequestsPerSecond),
		logger:  zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

type countResponse struct {
	Count int `json:"count"`
}

type pageResponse struct {
	Rows [][]string `json:"rows"`
}

// ExpectedCount implements feed.Source.
func (c *Client) ExpectedCount(ctx context.Context, group string, referenceDate time.Time) (int, error) {
	params := url.Values{}
	params.Set("date", referenceDate.Format(dateLayout))
	endpoint := fmt.Sprintf("%s/feeds/%s/count?%s", c.baseURL, url.PathEscape(group), params.Encode())

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return 0, err
	}

	var resp countResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("feedapi: decoding count for %s: %w", group, err)
	}
	return resp.Count, nil
}

// FetchPage implements feed.Source.
func (c *Client) FetchPage(ctx context.Context, q feed.Query) ([][]string, error) {
	params := url.Values{}
	params.Set("date", q.ReferenceDate.Format(dateLayout))
	params.Set("first", strconv.Itoa(q.FirstRow))
	params.Set("count", strconv.Itoa(q.MaxRows))
	if len(q.ExtraFields) > 0 {
		params.Set("fields", strings.Join(q.ExtraFields, ","))
	}
	endpoint := fmt.Sprintf("%s/feeds/%s?%s", c.baseURL, url.PathEscape(q.Group), params.Encode())

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var resp pageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("feedapi: decoding page for %s (first=%d, count=%d): %w", q.Group, q.FirstRow, q.MaxRows, err)
	}
	return resp.Rows, nil
}

// get performs one rate-limited GET and returns the bounded response body.
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("feedapi: building request %s: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	c.logger.Debug("feed request", zap.String("url", endpoint))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feedapi: GET %s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feedapi: GET %s: unexpected status %d", endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("feedapi: reading response from %s: %w", endpoint, err)
	}
	if len(body) > maxResponseSize {
		return nil, fmt.Errorf("feedapi: response from %s exceeds %d bytes", endpoint, maxResponseSize)
	}

	return body, nil
}
