package usecase

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/snacksmith/backend/internal/domain"
)

// MaxAmountG caps the grams of a single entry and of a serving (100 kg).
const MaxAmountG = 100_000.0

// ValidateAmount accepts finite grams in (0, MaxAmountG].
func ValidateAmount(name string, amountG float64) error {
	if math.IsNaN(amountG) || math.IsInf(amountG, 0) || amountG <= 0 || amountG > MaxAmountG {
		return fmt.Errorf("%w: %q has %vg, want more than 0 and at most %gg", domain.ErrInvalidAmount, name, amountG, MaxAmountG)
	}
	return nil
}

// ValidateServingSize accepts 0 (whole snack) or finite grams up to MaxAmountG.
func ValidateServingSize(servingSizeG float64) error {
	if math.IsNaN(servingSizeG) || math.IsInf(servingSizeG, 0) || servingSizeG < 0 || servingSizeG > MaxAmountG {
		return fmt.Errorf("%w: serving size %vg must be between 0 and %gg", domain.ErrInvalidRequest, servingSizeG, MaxAmountG)
	}
	return nil
}

// CanonicalizeEntries resolves every entry against the catalog, rewrites names
// to their catalog spelling and merges duplicates by summing grams. Entries
// with amounts outside (0, MaxAmountG], before or after merging, are rejected
// with domain.ErrInvalidAmount.
func CanonicalizeEntries(catalog domain.IngredientCatalog, entries []domain.IngredientEntry) ([]domain.IngredientEntry, error) {
	out := make([]domain.IngredientEntry, 0, len(entries))
	for _, entry := range entries {
		if err := ValidateAmount(entry.Name, entry.AmountG); err != nil {
			return nil, err
		}
		ing, ok := catalog.Lookup(entry.Name)
		if !ok {
			return nil, &domain.UnknownIngredientError{Name: entry.Name}
		}
		out = mergeEntry(out, ing.Name, entry.AmountG)
	}
	for _, entry := range out {
		if err := ValidateAmount(entry.Name, entry.AmountG); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// mergeEntry adds grams to an existing entry of the same name or appends a new one.
// The list holds tens of entries, so a linear scan is enough.
func mergeEntry(entries []domain.IngredientEntry, name string, amountG float64) []domain.IngredientEntry {
	for i := range entries {
		if entries[i].Name == name {
			entries[i].AmountG += amountG
			return entries
		}
	}
	return append(entries, domain.IngredientEntry{Name: name, AmountG: amountG})
}

func indexOfEntry(entries []domain.IngredientEntry, name string) int {
	for i := range entries {
		if entries[i].Name == name {
			return i
		}
	}
	return -1
}

// ParseEntrySpec parses "name=grams" (also "name:grams") into an entry.
// Used by the CLI and the MCP tool surface.
func ParseEntrySpec(spec string) (domain.IngredientEntry, error) {
	sep := strings.LastIndexAny(spec, "=:")
	if sep <= 0 || sep == len(spec)-1 {
		return domain.IngredientEntry{}, fmt.Errorf("%w: expected name=grams, got %q", domain.ErrInvalidRequest, spec)
	}

	name := strings.TrimSpace(spec[:sep])
	raw := strings.TrimSuffix(strings.TrimSpace(spec[sep+1:]), "g")
	amount, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return domain.IngredientEntry{}, fmt.Errorf("%w: bad amount in %q", domain.ErrInvalidRequest, spec)
	}
	if name == "" {
		return domain.IngredientEntry{}, fmt.Errorf("%w: missing name in %q", domain.ErrInvalidRequest, spec)
	}
	if err := ValidateAmount(name, amount); err != nil {
		return domain.IngredientEntry{}, err
	}
	return domain.IngredientEntry{Name: name, AmountG: amount}, nil
}

// ParseEntrySpecs parses a comma-separated list of "name=grams" pairs
func ParseEntrySpecs(list string) ([]domain.IngredientEntry, error) {
	var out []domain.IngredientEntry
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		entry, err := ParseEntrySpec(part)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}
