package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/snacksmith/backend/internal/domain"
)

// NutritionServiceConfig holds configuration for the nutrition service
type NutritionServiceConfig struct {
	CacheTTL time.Duration
}

// NutritionService is the in-process nutrition engine: it resolves entries
// against the catalog, aggregates them and caches the analysis.
type NutritionService struct {
	cache    domain.CacheRepository
	catalog  domain.IngredientCatalog
	cacheTTL time.Duration
	log      *slog.Logger
}

// Ensure NutritionService implements domain.NutritionEngine
var _ domain.NutritionEngine = (*NutritionService)(nil)

// NewNutritionService creates a new nutrition service with dependencies
func NewNutritionService(
	cache domain.CacheRepository,
	catalog domain.IngredientCatalog,
	config NutritionServiceConfig,
	logger *slog.Logger,
) *NutritionService {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = time.Hour
	}

	return &NutritionService{
		cache:    cache,
		catalog:  catalog,
		cacheTTL: cacheTTL,
		log:      logger,
	}
}

// Calculate aggregates the nutrition of an ingredient list.
// Flow: canonicalize -> check cache -> aggregate -> cache -> return.
// An empty list yields (nil, nil).
func (s *NutritionService) Calculate(
	ctx context.Context,
	entries []domain.IngredientEntry,
	servingSizeG float64,
) (*domain.NutritionAnalysis, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	if err := ValidateServingSize(servingSizeG); err != nil {
		return nil, err
	}

	canonical, err := CanonicalizeEntries(s.catalog, entries)
	if err != nil {
		return nil, err
	}

	cacheKey := generateCacheKey(canonical, servingSizeG)

	if cached, err := s.getFromCache(ctx, cacheKey); err == nil && cached != nil {
		s.log.Debug("Nutrition cache hit", "key", cacheKey)
		return cached, nil
	}

	resolved, err := ResolveEntries(s.catalog, canonical)
	if err != nil {
		return nil, err
	}

	analysis := Aggregate(resolved, AggregateOptions{ServingSizeG: servingSizeG})
	if analysis == nil {
		return nil, nil
	}

	if err := s.cache.Set(ctx, cacheKey, analysis, s.cacheTTL); err != nil {
		// Caching is best effort
		s.log.Warn("Failed to cache nutrition analysis", "key", cacheKey, "error", err)
	}

	return analysis, nil
}

// generateCacheKey encodes the ordered entry list and serving size.
// Format: "nutrition:{name}={grams}|...:{serving}"
func generateCacheKey(entries []domain.IngredientEntry, servingSizeG float64) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = e.Name + "=" + strconv.FormatFloat(e.AmountG, 'g', -1, 64)
	}
	return fmt.Sprintf("nutrition:%s:%s", strings.Join(parts, "|"), strconv.FormatFloat(servingSizeG, 'g', -1, 64))
}

// getFromCache retrieves an analysis from cache
func (s *NutritionService) getFromCache(ctx context.Context, key string) (*domain.NutritionAnalysis, error) {
	value, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	switch v := value.(type) {
	case *domain.NutritionAnalysis:
		out := v.Clone()
		return &out, nil
	case map[string]interface{}:
		// JSON-normalized caches hand back generic maps
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, domain.ErrCacheMiss
		}
		var analysis domain.NutritionAnalysis
		if err := json.Unmarshal(raw, &analysis); err != nil {
			return nil, domain.ErrCacheMiss
		}
		return &analysis, nil
	default:
		return nil, domain.ErrCacheMiss
	}
}
