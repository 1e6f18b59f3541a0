package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/snacksmith/backend/internal/domain"
)

// Suggestion is a snack proposed by the AI coach. Only values returned by
// ParseSuggestion or ValidateSuggestion are safe to apply to a SnackState.
type Suggestion struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description,omitempty"`
	Base        domain.BaseType          `json:"base,omitempty"`
	Ingredients []domain.IngredientEntry `json:"ingredients"`
	Reasoning   string                   `json:"reasoning,omitempty"`
}

// ValidationError lists every problem found in an AI-sourced suggestion
type ValidationError struct {
	Problems []string
	// Unknown holds ingredient names with no catalog entry
	Unknown []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", domain.ErrInvalidAIOutput, strings.Join(e.Problems, "; "))
}

// Is matches domain.ErrInvalidAIOutput, and domain.ErrUnknownIngredient when
// the suggestion named ingredients outside the catalog.
func (e *ValidationError) Is(target error) bool {
	if target == domain.ErrInvalidAIOutput {
		return true
	}
	return target == domain.ErrUnknownIngredient && len(e.Unknown) > 0
}

func (e *ValidationError) add(format string, args ...interface{}) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// ParseSuggestion decodes a model reply into a validated Suggestion.
// Code fences and prose around the JSON object are ignored; unknown fields are not.
func ParseSuggestion(catalog domain.IngredientCatalog, reply string) (Suggestion, error) {
	payload := extractJSONObject(reply)
	if payload == "" {
		return Suggestion{}, &ValidationError{Problems: []string{"reply contains no JSON object"}}
	}

	dec := json.NewDecoder(strings.NewReader(payload))
	dec.DisallowUnknownFields()

	var s Suggestion
	if err := dec.Decode(&s); err != nil {
		return Suggestion{}, &ValidationError{Problems: []string{fmt.Sprintf("decode: %v", err)}}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Suggestion{}, &ValidationError{Problems: []string{"trailing data after JSON object"}}
	}

	return ValidateSuggestion(catalog, s)
}

// ValidateSuggestion checks a suggestion against the catalog and base registry.
// The returned copy carries canonical ingredient names with duplicates merged.
// An empty base means the default base.
func ValidateSuggestion(catalog domain.IngredientCatalog, s Suggestion) (Suggestion, error) {
	verr := &ValidationError{}

	s.Name = strings.TrimSpace(s.Name)
	s.Description = strings.TrimSpace(s.Description)
	if s.Name == "" {
		verr.add("name is required")
	}

	if s.Base == "" {
		s.Base = domain.DefaultBase
	}
	if _, err := domain.LookupBase(s.Base); err != nil {
		verr.add("base %q is not a known snack base", s.Base)
	}

	if len(s.Ingredients) == 0 {
		verr.add("at least one ingredient is required")
	}

	var merged []domain.IngredientEntry
	for i, entry := range s.Ingredients {
		name := strings.TrimSpace(entry.Name)
		switch {
		case name == "":
			verr.add("ingredient %d has no name", i)
			continue
		case ValidateAmount(name, entry.AmountG) != nil:
			verr.add("ingredient %q has invalid amount %v", name, entry.AmountG)
			continue
		}

		ing, ok := catalog.Lookup(name)
		if !ok {
			verr.Unknown = append(verr.Unknown, name)
			verr.add("ingredient %q is not in the catalog", name)
			continue
		}
		merged = mergeEntry(merged, ing.Name, entry.AmountG)
	}
	for _, entry := range merged {
		if ValidateAmount(entry.Name, entry.AmountG) != nil {
			verr.add("ingredient %q totals %vg after merging duplicates", entry.Name, entry.AmountG)
		}
	}

	if len(verr.Problems) > 0 {
		return Suggestion{}, verr
	}

	s.Ingredients = merged
	return s, nil
}

// extractJSONObject strips markdown fences and returns the outermost {...} span
func extractJSONObject(reply string) string {
	reply = strings.ReplaceAll(reply, "```json", "")
	reply = strings.ReplaceAll(reply, "```", "")
	reply = strings.TrimSpace(reply)

	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start == -1 || end <= start {
		return ""
	}

	return reply[start : end+1]
}
