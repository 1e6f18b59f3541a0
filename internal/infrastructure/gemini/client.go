// Package gemini is a minimal client for the Generative Language generateContent endpoint.
package gemini

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
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.0-flash"

	maxResponseSize = 1 << 20
)

// Config holds the settings for a Client
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	RPS     float64
	Burst   int
}

// Client implements domain.AIClient
type Client struct {
	httpClient  *http.Client
	apiKey      string
	endpoint    string
	rateLimiter *rate.Limiter
	log         *slog.Logger
}

var _ domain.AIClient = (*Client)(nil)

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
	Error      *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewClient creates a client for the configured model
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}

	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		apiKey:      cfg.APIKey,
		endpoint:    fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(cfg.BaseURL, "/"), cfg.Model),
		rateLimiter: rate.NewLimiter(limit, cfg.Burst),
		log:         logger,
	}
}

// Generate sends a single-turn prompt and returns the concatenated text of the first candidate
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: rate limiter: %v", domain.ErrAIFailure, err)
	}

	body, err := json.Marshal(generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{Temperature: 0.7, MaxOutputTokens: 1024},
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", domain.ErrAIFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", domain.ErrAIFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrAIFailure, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", domain.ErrAIFailure, err)
	}
	if resp.StatusCode != http.StatusOK {
		c.log.Warn("Gemini request failed", "status", resp.StatusCode, "duration", time.Since(start))
		return "", fmt.Errorf("%w: status %d: %s", domain.ErrAIFailure, resp.StatusCode, errorMessage(data))
	}

	var out generateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", domain.ErrAIFailure, err)
	}
	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates in response", domain.ErrAIFailure)
	}

	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("%w: empty reply (finish reason %q)", domain.ErrAIFailure, out.Candidates[0].FinishReason)
	}

	c.log.Debug("Gemini reply", "chars", len(text), "duration", time.Since(start))
	return text, nil
}

func errorMessage(body []byte) string {
	var out generateResponse
	if err := json.Unmarshal(body, &out); err == nil && out.Error != nil && out.Error.Message != "" {
		return out.Error.Message
	}
	return strings.TrimSpace(string(body))
}
