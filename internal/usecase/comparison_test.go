package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snacksmith/backend/internal/domain"
)

func TestCompareSnacks(t *testing.T) {
	ctx := context.Background()
	engine := localEngine()

	a := SnackVersion{Name: "original", Ingredients: []domain.IngredientEntry{
		{Name: "almonds", AmountG: 30},
		{Name: "dates", AmountG: 40},
	}}
	b := SnackVersion{Name: "less sugar", Ingredients: []domain.IngredientEntry{
		{Name: "almonds", AmountG: 30},
		{Name: "dates", AmountG: 20},
	}}

	cmp, err := CompareSnacks(ctx, engine, a, b)
	require.NoError(t, err)

	assert.Equal(t, "less sugar is nutritionally superior", cmp.Recommendation)
	require.Len(t, cmp.Differences, len(comparedMetrics))

	byMetric := make(map[string]MetricDifference)
	for _, d := range cmp.Differences {
		byMetric[d.Metric] = d
	}
	assert.Equal(t, WinnerB, byMetric["protein_g"].Winner)
	assert.Equal(t, WinnerB, byMetric["sugars_g"].Winner)
	assert.Equal(t, WinnerTie, byMetric["sustainability_score"].Winner)
	assert.InDelta(t, 13.4-10.142857142857142, byMetric["protein_g"].AbsoluteDifference, 1e-9)

	assert.Contains(t, cmp.IngredientDiff, "--- original")
	assert.Contains(t, cmp.IngredientDiff, "+++ less sugar")
	assert.Contains(t, cmp.IngredientDiff, "-dates: 40g")
	assert.Contains(t, cmp.IngredientDiff, "+dates: 20g")
}

func TestCompareSnacks_RequiresIngredients(t *testing.T) {
	_, err := CompareSnacks(context.Background(), localEngine(), SnackVersion{}, SnackVersion{
		Ingredients: []domain.IngredientEntry{{Name: "almonds", AmountG: 30}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestCompareSnacks_UnknownIngredient(t *testing.T) {
	_, err := CompareSnacks(context.Background(), localEngine(),
		SnackVersion{Ingredients: []domain.IngredientEntry{{Name: "almonds", AmountG: 30}}},
		SnackVersion{Ingredients: []domain.IngredientEntry{{Name: "gravel", AmountG: 30}}},
	)
	assert.ErrorIs(t, err, domain.ErrUnknownIngredient)
}

func TestIngredientDiff_IdenticalIsEmpty(t *testing.T) {
	v := SnackVersion{Name: "a", Ingredients: []domain.IngredientEntry{{Name: "almonds", AmountG: 30}}}
	w := SnackVersion{Name: "b", Ingredients: []domain.IngredientEntry{{Name: "Almonds", AmountG: 30}}}

	diff, err := IngredientDiff(v, w)
	require.NoError(t, err)
	assert.Empty(t, diff)
}

func TestAnalyzeContributions(t *testing.T) {
	ctx := context.Background()
	c := embeddedCatalog(t)
	engine := NewNutritionService(NewMockCacheRepository(), c, NutritionServiceConfig{}, testLogger())

	report, err := AnalyzeContributions(ctx, engine, c, []domain.IngredientEntry{
		{Name: "banana", AmountG: 50},
		{Name: "almonds", AmountG: 30},
		{Name: "chia seeds", AmountG: 10},
	})
	require.NoError(t, err)

	require.Equal(t, 3, report.TotalIngredients)
	assert.Equal(t, "almonds", report.PrimaryContributor)

	var percent float64
	for i, contribution := range report.Contributions {
		percent += contribution.CaloriePercent
		if i > 0 {
			assert.GreaterOrEqual(t, report.Contributions[i-1].Calories, contribution.Calories)
		}
		assert.LessOrEqual(t, len(contribution.Benefits), 3)
	}
	assert.InDelta(t, 100.0, percent, 1e-6)
}

func TestAnalyzeContributions_Empty(t *testing.T) {
	report, err := AnalyzeContributions(context.Background(), localEngine(), fixtureCatalog(), nil)
	require.NoError(t, err)
	assert.Zero(t, report.TotalIngredients)
	assert.Empty(t, report.PrimaryContributor)
}
