// Package hindcast collocates acquisitions against a WAVEWATCH-III wave
// hindcast served over HTTP. Collocation is optional: when disabled the
// retrieval runs uncorrected.
package hindcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/umr-lops/asar-seastate-processor/internal/domain"
	"github.com/umr-lops/asar-seastate-processor/internal/observability"
)

// ErrNoCollocation is returned when the service has no hindcast node within
// reach of the requested position and time.
var ErrNoCollocation = errors.New("no collocated hindcast node")

// Client implements domain.HindcastProvider against a collocation service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a collocation client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		logger:  logger,
		metrics: metrics,
	}
}

// Collocate returns the hindcast sea state at the model node nearest
// (lat, lon) for the model time step nearest t.
func (c *Client) Collocate(ctx context.Context, lat, lon float64, t time.Time) (result domain.HindcastResult, err error) {
	start := time.Now()
	defer func() {
		c.metrics.HindcastDuration.Observe(time.Since(start).Seconds())
		outcome := "success"
		switch {
		case errors.Is(err, ErrNoCollocation):
			outcome = "empty"
		case err != nil:
			outcome = "error"
		}
		c.metrics.HindcastRequests.WithLabelValues(outcome).Inc()
	}()

	params := url.Values{
		"lat":  {fmt.Sprintf("%.6f", lat)},
		"lon":  {fmt.Sprintf("%.6f", lon)},
		"time": {t.UTC().Format(time.RFC3339)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/collocate?"+params.Encode(), nil)
	if err != nil {
		return domain.HindcastResult{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.HindcastResult{}, fmt.Errorf("collocation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.HindcastResult{}, ErrNoCollocation
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.HindcastResult{}, fmt.Errorf("collocation service error: status %d: %s", resp.StatusCode, body)
	}

	var cr response
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return domain.HindcastResult{}, fmt.Errorf("decode response: %w", err)
	}

	return domain.HindcastResult{
		SWH:        cr.SWH,
		DistanceKM: cr.DistanceKM,
		AgeHours:   cr.AgeHours,
	}, nil
}

// Collocation service response types.

type response struct {
	SWH        float64 `json:"swh"`
	DistanceKM float64 `json:"distance_km"`
	AgeHours   float64 `json:"age_hours"`
}
