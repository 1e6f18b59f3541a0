package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/snacksmith/backend/internal/domain"
	"github.com/snacksmith/backend/internal/infrastructure/catalog"
)

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	mu        sync.Mutex
	data      map[string]interface{}
	getError  error
	setError  error
	getCalled bool
	setCalled bool
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		data: make(map[string]interface{}),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.getCalled = true
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.setCalled = true
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.data[key]
	return ok, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixtureCatalog holds round-number ingredients for exact arithmetic checks
func fixtureCatalog() *catalog.Catalog {
	return catalog.New([]domain.Ingredient{
		{
			Name:      "almonds",
			Category:  "nuts_seeds",
			Allergens: []string{"tree_nuts"},
			Nutrition: domain.NutrientFacts{Calories: 579, ProteinG: 21, FatG: 50, CarbohydratesG: 22, SugarsG: 4, FiberG: 12.5},
		},
		{
			Name:      "dates",
			Category:  "dried_fruit",
			Nutrition: domain.NutrientFacts{Calories: 277, ProteinG: 2, CarbohydratesG: 75, SugarsG: 63},
		},
		{Name: "ingredient a", Nutrition: domain.NutrientFacts{ProteinG: 10}},
		{Name: "ingredient b", Nutrition: domain.NutrientFacts{ProteinG: 20}},
		{Name: "water", Nutrition: domain.NutrientFacts{}},
	})
}

// embeddedCatalog is the catalog shipped with the binary
func embeddedCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.NewEmbedded()
	if err != nil {
		t.Fatalf("load embedded catalog: %v", err)
	}
	return c
}

func TestNewNutritionService(t *testing.T) {
	cache := NewMockCacheRepository()

	t.Run("creates service with default values", func(t *testing.T) {
		svc := NewNutritionService(cache, fixtureCatalog(), NutritionServiceConfig{}, testLogger())
		if svc == nil {
			t.Fatal("expected service to be created")
		}
		if svc.cacheTTL != time.Hour {
			t.Errorf("cacheTTL = %v, want 1h", svc.cacheTTL)
		}
	})

	t.Run("creates service with custom values", func(t *testing.T) {
		svc := NewNutritionService(cache, fixtureCatalog(), NutritionServiceConfig{CacheTTL: 24 * time.Hour}, testLogger())
		if svc.cacheTTL != 24*time.Hour {
			t.Errorf("cacheTTL = %v, want 24h", svc.cacheTTL)
		}
	})
}

func TestNutritionServiceCalculate(t *testing.T) {
	ctx := context.Background()

	t.Run("returns nil analysis for empty list", func(t *testing.T) {
		cache := NewMockCacheRepository()
		svc := NewNutritionService(cache, fixtureCatalog(), NutritionServiceConfig{}, testLogger())

		analysis, err := svc.Calculate(ctx, nil, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if analysis != nil {
			t.Errorf("analysis = %+v, want nil", analysis)
		}
		if cache.getCalled {
			t.Error("expected cache not to be consulted for empty list")
		}
	})

	t.Run("rejects unknown ingredient", func(t *testing.T) {
		svc := NewNutritionService(NewMockCacheRepository(), fixtureCatalog(), NutritionServiceConfig{}, testLogger())

		_, err := svc.Calculate(ctx, []domain.IngredientEntry{{Name: "unobtainium", AmountG: 10}}, 0)
		var unknown *domain.UnknownIngredientError
		if !errors.As(err, &unknown) {
			t.Fatalf("error = %v, want UnknownIngredientError", err)
		}
		if unknown.Name != "unobtainium" {
			t.Errorf("Name = %q, want unobtainium", unknown.Name)
		}
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		svc := NewNutritionService(NewMockCacheRepository(), fixtureCatalog(), NutritionServiceConfig{}, testLogger())

		_, err := svc.Calculate(ctx, []domain.IngredientEntry{{Name: "almonds", AmountG: 0}}, 0)
		if !errors.Is(err, domain.ErrInvalidAmount) {
			t.Errorf("error = %v, want ErrInvalidAmount", err)
		}
	})

	t.Run("computes and caches analysis", func(t *testing.T) {
		cache := NewMockCacheRepository()
		svc := NewNutritionService(cache, fixtureCatalog(), NutritionServiceConfig{}, testLogger())

		entries := []domain.IngredientEntry{{Name: "Almonds", AmountG: 30}, {Name: "dates", AmountG: 20}}
		analysis, err := svc.Calculate(ctx, entries, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !almostEqual(analysis.NutritionPer100g.ProteinG, 13.4) {
			t.Errorf("protein per 100g = %v, want 13.4", analysis.NutritionPer100g.ProteinG)
		}
		if !cache.setCalled {
			t.Error("expected analysis to be cached")
		}
		if _, ok := cache.data["nutrition:almonds=30|dates=20:0"]; !ok {
			t.Errorf("cache keys = %v, want canonical key", cache.data)
		}
	})

	t.Run("returns cached analysis on hit", func(t *testing.T) {
		cache := NewMockCacheRepository()
		cache.data["nutrition:almonds=30:0"] = &domain.NutritionAnalysis{TotalWeightG: 999}
		svc := NewNutritionService(cache, fixtureCatalog(), NutritionServiceConfig{}, testLogger())

		analysis, err := svc.Calculate(ctx, []domain.IngredientEntry{{Name: "almonds", AmountG: 30}}, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if analysis.TotalWeightG != 999 {
			t.Errorf("TotalWeightG = %v, want cached 999", analysis.TotalWeightG)
		}
	})

	t.Run("decodes JSON-normalized cache values", func(t *testing.T) {
		cache := NewMockCacheRepository()
		raw, _ := json.Marshal(domain.NutritionAnalysis{TotalWeightG: 42, HealthScore: 77})
		var generic map[string]interface{}
		_ = json.Unmarshal(raw, &generic)
		cache.data["nutrition:almonds=42:0"] = generic
		svc := NewNutritionService(cache, fixtureCatalog(), NutritionServiceConfig{}, testLogger())

		analysis, err := svc.Calculate(ctx, []domain.IngredientEntry{{Name: "almonds", AmountG: 42}}, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if analysis.HealthScore != 77 {
			t.Errorf("HealthScore = %v, want 77", analysis.HealthScore)
		}
	})

	t.Run("succeeds when cache write fails", func(t *testing.T) {
		cache := NewMockCacheRepository()
		cache.setError = errors.New("cache down")
		svc := NewNutritionService(cache, fixtureCatalog(), NutritionServiceConfig{}, testLogger())

		analysis, err := svc.Calculate(ctx, []domain.IngredientEntry{{Name: "almonds", AmountG: 30}}, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if analysis == nil {
			t.Fatal("expected analysis")
		}
	})

	t.Run("merges duplicate entries before computing", func(t *testing.T) {
		svc := NewNutritionService(NewMockCacheRepository(), fixtureCatalog(), NutritionServiceConfig{}, testLogger())

		analysis, err := svc.Calculate(ctx, []domain.IngredientEntry{
			{Name: "almonds", AmountG: 30},
			{Name: "dates", AmountG: 20},
			{Name: "dates", AmountG: 20},
		}, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(analysis.IngredientBreakdown) != 2 {
			t.Errorf("breakdown has %d entries, want 2", len(analysis.IngredientBreakdown))
		}
		if !almostEqual(analysis.TotalWeightG, 70) {
			t.Errorf("TotalWeightG = %v, want 70", analysis.TotalWeightG)
		}
	})
}

func TestGenerateCacheKey(t *testing.T) {
	got := generateCacheKey([]domain.IngredientEntry{{Name: "almonds", AmountG: 30.5}, {Name: "dates", AmountG: 20}}, 40)
	want := "nutrition:almonds=30.5|dates=20:40"
	if got != want {
		t.Errorf("generateCacheKey() = %q, want %q", got, want)
	}
}
