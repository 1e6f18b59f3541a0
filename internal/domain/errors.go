package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownIngredient is returned when an ingredient name has no catalog entry
	ErrUnknownIngredient = errors.New("unknown ingredient")

	// ErrUnknownBase is returned when a snack base type is not registered
	ErrUnknownBase = errors.New("unknown snack base")

	// ErrInvalidAmount is returned when an ingredient amount is not a positive number of grams
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrAggregationUnavailable is returned when the nutrition calculation failed or returned malformed data
	ErrAggregationUnavailable = errors.New("nutrition calculation unavailable")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrSnackNotFound is returned when a saved snack does not exist
	ErrSnackNotFound = errors.New("snack not found")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCatalogUnavailable is returned when the ingredient catalog cannot be loaded
	ErrCatalogUnavailable = errors.New("ingredient catalog unavailable")

	// ErrAIUnavailable is returned when no generative-language client is configured
	ErrAIUnavailable = errors.New("AI features are not configured")

	// ErrAIFailure is returned when the generative-language API request fails
	ErrAIFailure = errors.New("AI request failed")

	// ErrInvalidAIOutput is returned when a model reply does not satisfy the suggestion schema
	ErrInvalidAIOutput = errors.New("invalid AI output")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")
)

// UnknownIngredientError names the ingredient that failed to resolve.
type UnknownIngredientError struct {
	Name string
}

func (e *UnknownIngredientError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnknownIngredient, e.Name)
}

// Is lets errors.Is(err, ErrUnknownIngredient) match.
func (e *UnknownIngredientError) Is(target error) bool {
	return target == ErrUnknownIngredient
}
