// Package upstream provides an HTTP client for the marketplace backend REST API.
package upstream

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

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	cfotel "github.com/circularsync/gateway/internal/adapter/otel"
	"github.com/circularsync/gateway/internal/config"
	"github.com/circularsync/gateway/internal/domain"
	"github.com/circularsync/gateway/internal/domain/snapshot"
	"github.com/circularsync/gateway/internal/resilience"
)

// maxBodyBytes caps how much of an upstream response is read.
const maxBodyBytes = 8 << 20

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Code, e.Body)
}

// Unwrap classifies the status: 404 is ErrNotFound, anything else ErrUpstream.
func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusNotFound {
		return domain.ErrNotFound
	}
	return domain.ErrUpstream
}

// Client talks to the marketplace backend.
type Client struct {
	baseURL    string
	token      func() string
	bulkhead   *resilience.Bulkhead
	routes     map[string]config.Route
	httpClient *http.Client
	breaker    *resilience.Breaker
	metrics    *cfotel.Metrics
}

// NewClient creates a backend client. Every call is bounded by cfg.Timeout.
func NewClient(cfg config.Upstream, routes map[string]config.Route) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   func() string { return cfg.Token },
		routes:  routes,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfotel.Transport(nil),
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// SetTokenSource replaces the static bearer token with a getter read on
// every call, so rotated credentials apply without a restart.
func (c *Client) SetTokenSource(token func() string) {
	c.token = token
}

// SetBulkhead caps the number of concurrent outgoing calls.
func (c *Client) SetBulkhead(b *resilience.Bulkhead) {
	c.bulkhead = b
}

// SetMetrics enables upstream error and latency instruments.
func (c *Client) SetMetrics(m *cfotel.Metrics) {
	c.metrics = m
}

// ListMaterialSubmissions returns every material submission.
func (c *Client) ListMaterialSubmissions(ctx context.Context) ([]snapshot.Submission, error) {
	data, err := c.get(ctx, c.path(config.RouteSubmissions, ""))
	if err != nil {
		return nil, fmt.Errorf("list material submissions: %w", err)
	}
	subs, err := decodeList[snapshot.Submission](data)
	if err != nil {
		return nil, fmt.Errorf("list material submissions: %w", err)
	}
	return subs, nil
}

// ListWarehouseInventory returns the inventory lines of one warehouse.
func (c *Client) ListWarehouseInventory(ctx context.Context, warehouseID string) ([]snapshot.InventoryItem, error) {
	data, err := c.get(ctx, c.path(config.RouteWarehouseStats, warehouseID))
	if err != nil {
		return nil, fmt.Errorf("list warehouse %s inventory: %w", warehouseID, err)
	}
	items, err := decodeList[snapshot.InventoryItem](data)
	if err != nil {
		return nil, fmt.Errorf("list warehouse %s inventory: %w", warehouseID, err)
	}
	return items, nil
}

// GetUser returns a user's profile.
func (c *Client) GetUser(ctx context.Context, userID string) (*snapshot.UserProfile, error) {
	data, err := c.get(ctx, c.path(config.RouteUserProfile, userID))
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", userID, err)
	}
	u, err := decodeOne[snapshot.UserProfile](data)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", userID, err)
	}
	if u.ID == "" {
		return nil, fmt.Errorf("get user %s: missing id: %w", userID, domain.ErrMalformed)
	}
	return u, nil
}

// GetPriceRecommendation returns the raw recommendation for a material type.
func (c *Client) GetPriceRecommendation(ctx context.Context, materialType string) (*snapshot.PriceRecommendation, error) {
	data, err := c.get(ctx, c.path(config.RoutePricing, materialType))
	if err != nil {
		return nil, fmt.Errorf("get price recommendation %s: %w", materialType, err)
	}
	rec, err := decodeOne[snapshot.PriceRecommendation](data)
	if err != nil {
		return nil, fmt.Errorf("get price recommendation %s: %w", materialType, err)
	}
	if rec.MaterialType == "" {
		rec.MaterialType = materialType
	}
	return rec, nil
}

// Health checks if the backend answers on /health.
func (c *Client) Health(ctx context.Context) (bool, error) {
	_, err := c.get(ctx, "/health")
	return err == nil, err
}

func (c *Client) path(route, id string) string {
	p := c.routes[route].UpstreamPath
	return strings.ReplaceAll(p, "{id}", url.PathEscape(id))
}

func (c *Client) get(ctx context.Context, path string) (result []byte, err error) {
	ctx, span := cfotel.StartUpstreamSpan(ctx, http.MethodGet, path)
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			attrs := metric.WithAttributes(attribute.String("path", path))
			c.metrics.UpstreamDuration.Record(ctx, time.Since(start).Seconds(), attrs)
			if err != nil {
				c.metrics.UpstreamErrors.Add(ctx, 1, attrs)
			}
		}
		cfotel.EndSpan(span, err)
	}()

	// Client errors (4xx) are returned to the caller but do not trip the breaker.
	var clientErr *StatusError
	call := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		req.Header.Set("Accept", "application/json")
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w: %w", domain.ErrUpstream, err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return fmt.Errorf("read response: %w: %w", domain.ErrUpstream, err)
		}

		if resp.StatusCode >= 500 {
			return &StatusError{Code: resp.StatusCode, Body: truncate(data)}
		}
		if resp.StatusCode >= 300 {
			clientErr = &StatusError{Code: resp.StatusCode, Body: truncate(data)}
			return nil
		}

		result = data
		return nil
	}

	// Waiting for a bulkhead slot happens outside the breaker so local
	// queueing is never counted against the backend.
	err = c.bulkhead.Run(ctx, func() error {
		if c.breaker != nil {
			return c.breaker.Execute(call)
		}
		return call()
	})
	if err != nil {
		return nil, err
	}
	if clientErr != nil {
		return nil, clientErr
	}
	return result, nil
}

func truncate(b []byte) string {
	const maxLen = 512
	if len(b) > maxLen {
		return string(b[:maxLen]) + "..."
	}
	return string(b)
}

// decodeList accepts a bare JSON array or an object wrapping it in "data".
func decodeList[T any](data []byte) ([]T, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var out []T
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("decode list: %w: %w", domain.ErrMalformed, err)
		}
		return out, nil
	}

	var wrapped struct {
		Data *[]T `json:"data"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decode list: %w: %w", domain.ErrMalformed, err)
	}
	if wrapped.Data == nil {
		return nil, fmt.Errorf("decode list: no array or data field: %w", domain.ErrMalformed)
	}
	return *wrapped.Data, nil
}

// decodeOne accepts a bare JSON object or one wrapped as {"data": {...}}.
func decodeOne[T any](data []byte) (*T, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode object: %w: %w", domain.ErrMalformed, err)
	}
	if inner, ok := fields["data"]; ok {
		inner = bytes.TrimSpace(inner)
		if len(inner) > 0 && inner[0] == '{' {
			data = inner
		}
	}

	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode object: %w: %w", domain.ErrMalformed, err)
	}
	return &out, nil
}
