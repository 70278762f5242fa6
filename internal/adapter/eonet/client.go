package eonet

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/eonet-report/internal/config"
	"github.com/couchcryptid/eonet-report/internal/domain"
	"github.com/couchcryptid/eonet-report/internal/observability"
)

// Client fetches per-category event listings from the EONET API.
// It implements pipeline.Fetcher.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	status       string
	lookbackDays int
	metrics      *observability.Metrics
	logger       *slog.Logger
}

// NewClient creates an EONET client from the configured base URL, status
// filter, lookback window and timeout.
func NewClient(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.EONETTimeout,
		},
		baseURL:      cfg.EONETBaseURL,
		status:       cfg.EONETStatus,
		lookbackDays: cfg.EONETLookbackDays,
		metrics:      metrics,
		logger:       logger,
	}
}

// FetchCategory requests {base}/categories/{id}?status=..&days=.. and
// decodes the events array.
func (c *Client) FetchCategory(ctx context.Context, categoryID string) (domain.Response, error) {
	params := url.Values{
		"status": {c.status},
		"days":   {strconv.Itoa(c.lookbackDays)},
	}
	u := fmt.Sprintf("%s/categories/%s?%s", c.baseURL, url.PathEscape(categoryID), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.Response{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Response{}, fmt.Errorf("fetch category %s: %w", categoryID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.Response{}, fmt.Errorf("eonet API error: category %s: status %d: %s", categoryID, resp.StatusCode, body)
	}

	out, err := domain.DecodeResponse(categoryID, resp.Body)
	if err != nil {
		return domain.Response{}, err
	}

	c.metrics.EventsFetched.WithLabelValues(categoryID).Add(float64(len(out.Events)))
	c.logger.Debug("category fetched",
		"category", categoryID,
		"events", len(out.Events),
		"duration", time.Since(start),
	)
	return out, nil
}
