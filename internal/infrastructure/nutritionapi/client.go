// Package nutritionapi talks to a remote nutrition calculation service.
package nutritionapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/snacksmith/backend/internal/domain"
	"golang.org/x/time/rate"
)

const (
	maxAttempts     = 3
	maxResponseSize = 1 << 20
	calculatePath   = "/api/nutrition/calculate"
)

// Client is a domain.NutritionEngine backed by the remote calculation endpoint
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rate.Limiter
	backoff     func(attempt int) time.Duration
	log         *slog.Logger
	debug       bool
}

var _ domain.NutritionEngine = (*Client)(nil)

type ingredientPayload struct {
	Name    string  `json:"name"`
	AmountG float64 `json:"amount_g"`
}

type calculateRequest struct {
	Ingredients  []ingredientPayload `json:"ingredients"`
	ServingSizeG float64             `json:"serving_size_g,omitempty"`
}

type calculateResponse struct {
	Success bool                      `json:"success"`
	Data    *domain.NutritionAnalysis `json:"data"`
	Error   string                    `json:"error,omitempty"`
}

// NewClient creates a rate limited client. rps <= 0 disables limiting.
func NewClient(baseURL string, timeout time.Duration, rps float64, burst int, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(baseURL, "/"),
		rateLimiter: rate.NewLimiter(limit, burst),
		backoff:     exponentialBackoff,
		log:         logger,
	}
}

// SetDebug toggles logging of request and response bodies
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// exponentialBackoff returns 500ms, 1s, 2s, ... for attempts 1, 2, 3, ...
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

func readLimitedBody(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}

// Calculate posts the entries and decodes the returned analysis
func (c *Client) Calculate(ctx context.Context, entries []domain.IngredientEntry, servingSizeG float64) (*domain.NutritionAnalysis, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	payload := calculateRequest{ServingSizeG: servingSizeG}
	for _, e := range entries {
		payload.Ingredients = append(payload.Ingredients, ingredientPayload{Name: e.Name, AmountG: e.AmountG})
	}
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", domain.ErrAggregationUnavailable, err)
	}
	if c.debug {
		c.log.Debug("Nutrition request", "body", string(reqBody))
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", domain.ErrAggregationUnavailable, ctx.Err())
			case <-time.After(c.backoff(attempt - 1)):
			}
		}
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %v", domain.ErrAggregationUnavailable, err)
		}

		status, body, err := c.post(ctx, reqBody)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrAggregationUnavailable, ctx.Err())
			}
			c.log.Warn("Nutrition request failed", "attempt", attempt, "error", err)
			lastErr = fmt.Errorf("%w: %v", domain.ErrAggregationUnavailable, err)
			continue
		}
		if c.debug {
			c.log.Debug("Nutrition response", "status", status, "body", string(body))
		}

		if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
			c.log.Warn("Nutrition service error", "attempt", attempt, "status", status)
			lastErr = fmt.Errorf("%w: status %d", domain.ErrAggregationUnavailable, status)
			continue
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("%w: status %d: %s", domain.ErrAggregationUnavailable, status, strings.TrimSpace(string(body)))
		}
		return decodeAnalysis(body)
	}

	c.log.Error("Nutrition service unreachable", "attempts", maxAttempts, "error", lastErr)
	return nil, lastErr
}

func (c *Client) post(ctx context.Context, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+calculatePath, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "SnackSmith/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := readLimitedBody(resp.Body, maxResponseSize)
	if err != nil {
		return 0, nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, data, nil
}

func decodeAnalysis(body []byte) (*domain.NutritionAnalysis, error) {
	var resp calculateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", domain.ErrAggregationUnavailable, err)
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "service reported failure"
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrAggregationUnavailable, msg)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("%w: response has no data", domain.ErrAggregationUnavailable)
	}
	if resp.Data.TotalWeightG <= 0 {
		return nil, fmt.Errorf("%w: non-positive total weight %g", domain.ErrAggregationUnavailable, resp.Data.TotalWeightG)
	}
	return resp.Data, nil
}
