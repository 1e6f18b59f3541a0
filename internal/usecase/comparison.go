package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/snacksmith/backend/internal/domain"
)

// Comparison winners
const (
	WinnerA   = "A"
	WinnerB   = "B"
	WinnerTie = "tie"
)

// SnackVersion is one side of a comparison
type SnackVersion struct {
	Name        string                   `json:"name"`
	Ingredients []domain.IngredientEntry `json:"ingredients"`
}

// MetricDifference compares one metric between two versions
type MetricDifference struct {
	Metric             string  `json:"metric"`
	VersionA           float64 `json:"version_a_value"`
	VersionB           float64 `json:"version_b_value"`
	AbsoluteDifference float64 `json:"absolute_difference"`
	PercentDifference  float64 `json:"percent_difference"`
	Winner             string  `json:"winner"`
}

// Comparison is the side-by-side result of two snack versions
type Comparison struct {
	NameA          string                    `json:"name_a"`
	NameB          string                    `json:"name_b"`
	VersionA       *domain.NutritionAnalysis `json:"version_a"`
	VersionB       *domain.NutritionAnalysis `json:"version_b"`
	Differences    []MetricDifference        `json:"differences"`
	Recommendation string                    `json:"overall_recommendation"`
	IngredientDiff string                    `json:"ingredient_diff"`
}

type comparedMetric struct {
	name          string
	lowerIsBetter bool
	value         func(*domain.NutritionAnalysis) float64
}

var comparedMetrics = []comparedMetric{
	{"health_score", false, func(a *domain.NutritionAnalysis) float64 { return a.HealthScore }},
	{"protein_g", false, func(a *domain.NutritionAnalysis) float64 { return a.NutritionPer100g.ProteinG }},
	{"fiber_g", false, func(a *domain.NutritionAnalysis) float64 { return a.NutritionPer100g.FiberG }},
	{"sugars_g", true, func(a *domain.NutritionAnalysis) float64 { return a.NutritionPer100g.SugarsG }},
	{"calories", true, func(a *domain.NutritionAnalysis) float64 { return a.NutritionPer100g.Calories }},
	{"sustainability_score", false, func(a *domain.NutritionAnalysis) float64 { return a.SustainabilityScore }},
}

// CompareSnacks analyzes two versions of a snack and reports per-metric
// winners, an overall verdict and a unified diff of the ingredient lists.
func CompareSnacks(ctx context.Context, engine domain.NutritionEngine, a, b SnackVersion) (*Comparison, error) {
	if len(a.Ingredients) == 0 || len(b.Ingredients) == 0 {
		return nil, fmt.Errorf("%w: both versions need at least one ingredient", domain.ErrInvalidRequest)
	}
	if a.Name == "" {
		a.Name = "Version A"
	}
	if b.Name == "" {
		b.Name = "Version B"
	}

	analysisA, err := engine.Calculate(ctx, a.Ingredients, 0)
	if err != nil {
		return nil, fmt.Errorf("version A: %w", err)
	}
	analysisB, err := engine.Calculate(ctx, b.Ingredients, 0)
	if err != nil {
		return nil, fmt.Errorf("version B: %w", err)
	}

	cmp := &Comparison{
		NameA:    a.Name,
		NameB:    b.Name,
		VersionA: analysisA,
		VersionB: analysisB,
	}

	var winsA, winsB int
	for _, m := range comparedMetrics {
		va, vb := m.value(analysisA), m.value(analysisB)
		diff := vb - va
		d := MetricDifference{
			Metric:             m.name,
			VersionA:           va,
			VersionB:           vb,
			AbsoluteDifference: diff,
			PercentDifference:  diff / math.Max(math.Abs(va), 0.1) * 100,
			Winner:             metricWinner(va, vb, m.lowerIsBetter),
		}
		switch d.Winner {
		case WinnerA:
			winsA++
		case WinnerB:
			winsB++
		}
		cmp.Differences = append(cmp.Differences, d)
	}

	switch {
	case winsA > winsB:
		cmp.Recommendation = fmt.Sprintf("%s is nutritionally superior", a.Name)
	case winsB > winsA:
		cmp.Recommendation = fmt.Sprintf("%s is nutritionally superior", b.Name)
	default:
		cmp.Recommendation = "Both versions are nutritionally similar"
	}

	diff, err := IngredientDiff(a, b)
	if err != nil {
		return nil, err
	}
	cmp.IngredientDiff = diff
	return cmp, nil
}

func metricWinner(a, b float64, lowerIsBetter bool) string {
	if a == b {
		return WinnerTie
	}
	if (a < b) == lowerIsBetter {
		return WinnerA
	}
	return WinnerB
}

// IngredientDiff renders a unified diff between two ingredient lists, one
// "name: grams" line per entry sorted by name. Identical lists give "".
func IngredientDiff(a, b SnackVersion) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(recipeText(a.Ingredients)),
		B:        difflib.SplitLines(recipeText(b.Ingredients)),
		FromFile: a.Name,
		ToFile:   b.Name,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("render ingredient diff: %w", err)
	}
	return text, nil
}

func recipeText(entries []domain.IngredientEntry) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = fmt.Sprintf("%s: %gg", strings.ToLower(strings.TrimSpace(e.Name)), e.AmountG)
	}
	sort.Strings(lines)
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// Contribution is one ingredient's share of a snack's nutrition
type Contribution struct {
	Name           string   `json:"name"`
	AmountG        float64  `json:"amount_g"`
	Calories       float64  `json:"calories"`
	CaloriePercent float64  `json:"calorie_contribution_percent"`
	ProteinG       float64  `json:"protein_contribution_g"`
	FiberG         float64  `json:"fiber_contribution_g"`
	SugarsG        float64  `json:"sugar_contribution_g"`
	Benefits       []string `json:"key_benefits"`
}

// ContributionReport ranks ingredients by their calorie contribution
type ContributionReport struct {
	Contributions      []Contribution `json:"ingredient_contributions"`
	TotalIngredients   int            `json:"total_ingredients"`
	PrimaryContributor string         `json:"primary_contributor,omitempty"`
}

// AnalyzeContributions breaks a snack down by ingredient, largest calorie share first
func AnalyzeContributions(
	ctx context.Context,
	engine domain.NutritionEngine,
	catalog domain.IngredientCatalog,
	entries []domain.IngredientEntry,
) (*ContributionReport, error) {
	analysis, err := engine.Calculate(ctx, entries, 0)
	if err != nil {
		return nil, err
	}
	report := &ContributionReport{}
	if analysis == nil {
		return report, nil
	}

	var totalCalories float64
	for _, c := range analysis.IngredientBreakdown {
		totalCalories += c.Nutrition.Calories
	}

	for _, c := range analysis.IngredientBreakdown {
		contribution := Contribution{
			Name:           c.Name,
			AmountG:        c.AmountG,
			Calories:       c.Nutrition.Calories,
			CaloriePercent: c.Nutrition.Calories / math.Max(totalCalories, 1) * 100,
			ProteinG:       c.Nutrition.ProteinG,
			FiberG:         c.Nutrition.FiberG,
			SugarsG:        c.Nutrition.SugarsG,
		}
		if ing, ok := catalog.Lookup(c.Name); ok {
			contribution.Benefits = ingredientBenefits(ing)
		}
		report.Contributions = append(report.Contributions, contribution)
	}

	sort.SliceStable(report.Contributions, func(i, j int) bool {
		return report.Contributions[i].Calories > report.Contributions[j].Calories
	})

	report.TotalIngredients = len(report.Contributions)
	if report.TotalIngredients > 0 {
		report.PrimaryContributor = report.Contributions[0].Name
	}
	return report, nil
}

// ingredientBenefits names up to three nutritional strengths of an ingredient
func ingredientBenefits(ing domain.Ingredient) []string {
	n := ing.Nutrition
	p := ing.Properties

	var benefits []string
	if n.ProteinG > 15 {
		benefits = append(benefits, "High protein")
	}
	if n.FiberG > 10 {
		benefits = append(benefits, "High fiber")
	}
	if p.AntioxidantScore > 70 {
		benefits = append(benefits, "Rich antioxidants")
	}
	if n.FatG > 10 && n.SaturatedFatG/math.Max(n.FatG, 1) < 0.3 {
		benefits = append(benefits, "Healthy fats")
	}
	if p.GlycemicIndex != nil && *p.GlycemicIndex < 35 {
		benefits = append(benefits, "Low glycemic")
	}
	if n.IronMg > 3 {
		benefits = append(benefits, "Iron source")
	}
	if n.CalciumMg > 100 {
		benefits = append(benefits, "Calcium source")
	}
	if n.PotassiumMg > 400 {
		benefits = append(benefits, "Potassium source")
	}

	if len(benefits) > 3 {
		benefits = benefits[:3]
	}
	return benefits
}
