package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/snacksmith/backend/internal/domain"
)

// maxCatalogBytes caps how much of a remote catalog response is read
const maxCatalogBytes = 4 << 20

// Fetcher downloads the ingredient catalog from the external catalog service once at startup
type Fetcher struct {
	httpClient *http.Client
	url        string
	log        *slog.Logger
}

// NewFetcher creates a catalog fetcher for the given endpoint
func NewFetcher(url string, timeout time.Duration, logger *slog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		log:        logger,
	}
}

// Fetch retrieves and parses the remote catalog
func (f *Fetcher) Fetch(ctx context.Context) (*Catalog, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "SnackSmith/1.0")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrCatalogUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", domain.ErrCatalogUnavailable, resp.StatusCode)
	}

	c, err := Parse(body)
	if err != nil {
		return nil, err
	}
	f.log.Info("Ingredient catalog fetched", "url", f.url, "ingredients", c.Len())
	return c, nil
}
