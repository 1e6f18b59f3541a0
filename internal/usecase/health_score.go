package usecase

import (
	"math"

	"github.com/snacksmith/backend/internal/domain"
)

// Health score policy. The curve is a policy choice; what callers may rely on
// is that the score stays in [0,100], never falls as protein or fiber rise and
// never rises as sugars rise.
const (
	healthScoreBase        = 50.0
	proteinWeight          = 2.0
	proteinCapG            = 25.0
	fiberWeight            = 1.5
	fiberCapG              = 15.0
	sugarAllowanceG        = 10.0
	sugarPenaltyWeight     = 1.0
	sugarPenaltyCapG       = 30.0
	diversityWeight        = 0.5
	diversityCapIngredient = 10
)

// HealthScore rates a blend from its per-100 g nutrition and ingredient count
func HealthScore(per100g domain.NutrientFacts, ingredientCount int) float64 {
	protein := math.Min(math.Max(per100g.ProteinG, 0), proteinCapG)
	fiber := math.Min(math.Max(per100g.FiberG, 0), fiberCapG)
	excessSugar := math.Min(math.Max(per100g.SugarsG-sugarAllowanceG, 0), sugarPenaltyCapG)
	diversity := math.Min(float64(ingredientCount), float64(diversityCapIngredient))

	score := healthScoreBase +
		proteinWeight*protein +
		fiberWeight*fiber -
		sugarPenaltyWeight*excessSugar +
		diversityWeight*diversity

	return math.Min(math.Max(score, 0), 100)
}

// HealthLabel buckets a score for display
func HealthLabel(score float64) string {
	switch {
	case score >= 80:
		return "excellent"
	case score >= 65:
		return "good"
	case score >= 50:
		return "fair"
	default:
		return "poor"
	}
}
