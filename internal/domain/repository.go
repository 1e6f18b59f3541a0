package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// IngredientCatalog is read-only reference data queried by ingredient name
type IngredientCatalog interface {
	Lookup(name string) (Ingredient, bool)
	List(category string) []Ingredient
	Categories() []CategoryCount
}

// NutritionEngine turns an ingredient list into an aggregated analysis.
// A nil analysis with a nil error means the list was empty.
type NutritionEngine interface {
	Calculate(ctx context.Context, entries []IngredientEntry, servingSizeG float64) (*NutritionAnalysis, error)
}

// SnackRepository persists saved snacks
type SnackRepository interface {
	Save(ctx context.Context, snack *Snack) error
	Get(ctx context.Context, id string) (*Snack, error)
	List(ctx context.Context, filter SnackFilter) ([]*Snack, error)
	Delete(ctx context.Context, id string) error
}

// AIClient sends a prompt to a generative-language model and returns its text reply
type AIClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
