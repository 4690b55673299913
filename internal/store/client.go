// Package store is the HTTP client for the external record store holding the
// cutoff dataset. It exposes exactly the store's filter/sort/paginate query
// contract; query semantics beyond that live in the usecase layer.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/meritview/cutoffd/internal/domain"
	"github.com/meritview/cutoffd/internal/domain/query"
	"github.com/meritview/cutoffd/internal/metrics"
)

// Config holds record-store connection settings.
type Config struct {
	BaseURL  string
	Identity string
	Password string
	Timeout  time.Duration
	TokenTTL time.Duration
}

// Client talks to the record store. Safe for concurrent use.
type Client struct {
	httpc   *http.Client
	baseURL string
	auth    *TokenProvider
	logger  *zap.Logger
}

// NewClient creates a record-store client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("store base URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpc := &http.Client{Timeout: timeout}

	return &Client{
		httpc:   httpc,
		baseURL: cfg.BaseURL,
		auth:    NewTokenProvider(httpc, cfg.BaseURL, cfg.Identity, cfg.Password, cfg.TokenTTL, logger),
		logger:  logger,
	}, nil
}

// EnsureAuthenticated acquires (or refreshes) the store credential. A
// failure means no query against the store can succeed.
func (c *Client) EnsureAuthenticated(ctx context.Context) error {
	if _, err := c.auth.Token(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrAuthenticationRequired, err)
	}
	return nil
}

// Query runs one filtered, sorted, paginated list request against a
// collection. The store performs the sorting and pagination.
func (c *Client) Query(
	ctx context.Context, collection, filter, sort string, page, perPage int,
) (query.Page, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("perPage", strconv.Itoa(perPage))
	if filter != "" {
		params.Set("filter", filter)
	}
	if sort != "" {
		params.Set("sort", sort)
	}

	endpoint := fmt.Sprintf("%s/api/collections/%s/records?%s",
		c.baseURL, url.PathEscape(collection), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return query.Page{}, fmt.Errorf("build query request: %w", err)
	}

	token, err := c.auth.Token(ctx)
	if err != nil {
		return query.Page{}, fmt.Errorf("%w: %w", domain.ErrAuthenticationRequired, err)
	}
	req.Header.Set("Authorization", token)

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		metrics.ShardQueriesTotal.WithLabelValues("error").Inc()
		return query.Page{}, fmt.Errorf("query request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		metrics.ShardQueriesTotal.WithLabelValues("error").Inc()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return query.Page{}, fmt.Errorf("query failed: status %d: %s", resp.StatusCode, snippet)
	}

	var payload queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		metrics.ShardQueriesTotal.WithLabelValues("error").Inc()
		return query.Page{}, fmt.Errorf("decode query response: %w", err)
	}

	metrics.ShardQueriesTotal.WithLabelValues("success").Inc()
	metrics.ShardQueryDuration.Observe(time.Since(start).Seconds())

	items := make([]domain.CutoffRecord, len(payload.Items))
	for i, d := range payload.Items {
		items[i] = d.toDomain()
	}

	return query.Page{
		Items:      items,
		TotalItems: payload.TotalItems,
		TotalPages: payload.TotalPages,
		Page:       payload.Page,
		PerPage:    payload.PerPage,
	}, nil
}

// Ping checks store availability.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("store health: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("store health: status %d", resp.StatusCode)
	}
	return nil
}

// WaitForReady polls Ping until the store responds or the timeout expires.
func (c *Client) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		if err := c.Ping(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for record store: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
