package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/snacksmith/backend/internal/domain"
)

func TestSuggestForGoals(t *testing.T) {
	lowProtein := &domain.NutritionAnalysis{
		HealthScore:      40,
		NutritionPer100g: domain.NutrientFacts{ProteinG: 5, SugarsG: 30, FiberG: 2, CarbohydratesG: 60},
	}

	t.Run("adds protein and fiber ideas", func(t *testing.T) {
		s := SuggestForGoals(lowProtein, []Goal{GoalIncreaseProtein, GoalIncreaseFiber})
		assert.Len(t, s.Additions, maxGoalSuggestions)
		assert.Contains(t, s.Additions, "Add protein powder for +15-20g protein")
		assert.NotEmpty(t, s.GeneralTips)
	})

	t.Run("substitutes sweeteners", func(t *testing.T) {
		s := SuggestForGoals(lowProtein, []Goal{GoalReduceSugar})
		assert.NotEmpty(t, s.Substitutions)
		assert.Empty(t, s.Additions)
	})

	t.Run("healthy snack needs no general tips", func(t *testing.T) {
		healthy := &domain.NutritionAnalysis{HealthScore: 85, NutritionPer100g: domain.NutrientFacts{ProteinG: 25, FiberG: 12}}
		s := SuggestForGoals(healthy, []Goal{GoalIncreaseProtein, GoalIncreaseFiber})
		assert.Empty(t, s.Additions)
		assert.Empty(t, s.GeneralTips)
	})

	t.Run("nil analysis still yields tips", func(t *testing.T) {
		s := SuggestForGoals(nil, nil)
		assert.NotEmpty(t, s.GeneralTips)
	})
}

func TestKnownGoal(t *testing.T) {
	for _, g := range Goals() {
		assert.True(t, KnownGoal(g.ID), g.ID)
	}
	assert.False(t, KnownGoal("fly"))
}

func TestDedupeLimit(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, dedupeLimit([]string{"a", "a", "b", "c"}, 2))
	assert.Nil(t, dedupeLimit(nil, 3))
}
