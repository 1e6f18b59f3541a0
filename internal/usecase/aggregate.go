package usecase

import (
	"sort"

	"github.com/snacksmith/backend/internal/domain"
)

// Atwater energy factors in kcal per gram
const (
	proteinKcalPerGram = 4.0
	carbKcalPerGram    = 4.0
	fatKcalPerGram     = 9.0
)

// Neutral property values for ingredients the catalog has not rated
const (
	defaultGlycemicIndex       = 50.0
	defaultSustainabilityScore = 0.5
)

// ResolvedEntry pairs a catalog ingredient with the grams used in a snack
type ResolvedEntry struct {
	Ingredient domain.Ingredient
	AmountG    float64
}

// AggregateOptions tunes derived views of an analysis
type AggregateOptions struct {
	// ServingSizeG overrides the serving size. Zero or negative means the whole snack is one serving.
	ServingSizeG float64
}

// ResolveEntries looks every entry up in the catalog. The first unresolvable
// name aborts resolution with an *domain.UnknownIngredientError.
func ResolveEntries(catalog domain.IngredientCatalog, entries []domain.IngredientEntry) ([]ResolvedEntry, error) {
	resolved := make([]ResolvedEntry, 0, len(entries))
	for _, entry := range entries {
		ing, ok := catalog.Lookup(entry.Name)
		if !ok {
			return nil, &domain.UnknownIngredientError{Name: entry.Name}
		}
		resolved = append(resolved, ResolvedEntry{Ingredient: ing, AmountG: entry.AmountG})
	}
	return resolved, nil
}

// Aggregate derives the nutrition analysis of a blend. It returns nil for an
// empty blend (or one whose total weight is not positive) so callers can tell
// "no ingredients" apart from "all-zero nutrition". No rounding is applied.
func Aggregate(entries []ResolvedEntry, opts AggregateOptions) *domain.NutritionAnalysis {
	if len(entries) == 0 {
		return nil
	}

	var totalWeight float64
	var totals domain.NutrientFacts
	breakdown := make([]domain.IngredientContribution, 0, len(entries))
	allergenSet := make(map[string]struct{})

	for _, e := range entries {
		contribution := e.Ingredient.Nutrition.Scale(e.AmountG / 100)
		totals = totals.Add(contribution)
		totalWeight += e.AmountG

		if e.AmountG > 0 {
			for _, a := range e.Ingredient.Allergens {
				allergenSet[a] = struct{}{}
			}
		}

		breakdown = append(breakdown, domain.IngredientContribution{
			Name:      e.Ingredient.Name,
			AmountG:   e.AmountG,
			Category:  e.Ingredient.Category,
			Nutrition: contribution,
		})
	}

	if totalWeight <= 0 {
		return nil
	}

	per100g := totals.Scale(100 / totalWeight)

	serving := totalWeight
	if opts.ServingSizeG > 0 {
		serving = opts.ServingSizeG
	}
	perServing := per100g.Scale(serving / 100)

	allergens := make([]string, 0, len(allergenSet))
	for a := range allergenSet {
		allergens = append(allergens, a)
	}
	sort.Strings(allergens)

	score := HealthScore(per100g, len(entries))

	analysis := &domain.NutritionAnalysis{
		TotalWeightG:        totalWeight,
		ServingSizeG:        serving,
		NutritionPer100g:    per100g,
		NutritionPerServing: perServing,
		Macros:              CalculateMacros(perServing),
		HealthScore:         score,
		HealthLabel:         HealthLabel(score),
		Allergens:           allergens,
		GlycemicLoad:        glycemicLoad(breakdown, entries),
		SustainabilityScore: sustainabilityScore(entries, totalWeight),
		IngredientBreakdown: breakdown,
	}
	analysis.Highlights = nutritionalHighlights(per100g, entries)
	analysis.Recommendations = improvementRecommendations(per100g, analysis.Macros, entries)

	return analysis
}

// CalculateMacros splits energy across macronutrients. All percentages are
// zero when the three macronutrients contribute no energy.
func CalculateMacros(n domain.NutrientFacts) domain.Macros {
	m := domain.Macros{
		ProteinG:        n.ProteinG,
		CarbohydratesG:  n.CarbohydratesG,
		FatG:            n.FatG,
		ProteinCalories: n.ProteinG * proteinKcalPerGram,
		CarbCalories:    n.CarbohydratesG * carbKcalPerGram,
		FatCalories:     n.FatG * fatKcalPerGram,
	}

	total := m.ProteinCalories + m.CarbCalories + m.FatCalories
	if total == 0 {
		return m
	}
	m.ProteinPercent = m.ProteinCalories / total * 100
	m.CarbPercent = m.CarbCalories / total * 100
	m.FatPercent = m.FatCalories / total * 100
	return m
}

// glycemicLoad sums GI x available carbohydrate grams / 100 over the blend
func glycemicLoad(breakdown []domain.IngredientContribution, entries []ResolvedEntry) float64 {
	var gl float64
	for i, c := range breakdown {
		gi := defaultGlycemicIndex
		if p := entries[i].Ingredient.Properties.GlycemicIndex; p != nil {
			gi = *p
		}
		gl += gi * c.Nutrition.CarbohydratesG / 100
	}
	return gl
}

// sustainabilityScore is the mass-weighted mean sustainability on a 0-100 scale
func sustainabilityScore(entries []ResolvedEntry, totalWeight float64) float64 {
	var weighted float64
	for _, e := range entries {
		s := defaultSustainabilityScore
		if p := e.Ingredient.Properties.SustainabilityScore; p != nil {
			s = *p
		}
		weighted += s * e.AmountG
	}
	return weighted / totalWeight * 100
}
