package usecase

import (
	"fmt"
	"strings"

	"github.com/snacksmith/backend/internal/domain"
)

const (
	maxHighlights      = 5
	maxRecommendations = 4
	maxGoalSuggestions = 3
)

// nutritionalHighlights lists what the blend does well, strongest signals first
func nutritionalHighlights(per100g domain.NutrientFacts, entries []ResolvedEntry) []string {
	var out []string

	switch protein := per100g.ProteinG; {
	case protein > 20:
		out = append(out, fmt.Sprintf("Excellent protein source (%.1fg per 100g)", protein))
	case protein > 10:
		out = append(out, fmt.Sprintf("Good protein content (%.1fg per 100g)", protein))
	}

	switch fiber := per100g.FiberG; {
	case fiber > 15:
		out = append(out, fmt.Sprintf("Very high fiber content (%.1fg per 100g)", fiber))
	case fiber > 8:
		out = append(out, fmt.Sprintf("High fiber content (%.1fg per 100g)", fiber))
	case fiber > 3:
		out = append(out, fmt.Sprintf("Good fiber source (%.1fg per 100g)", fiber))
	}

	switch sugar := per100g.SugarsG; {
	case sugar < 5:
		out = append(out, "Low sugar content")
	case sugar > 25:
		out = append(out, fmt.Sprintf("High sugar content (%.1fg per 100g)", sugar))
	}

	var antioxidantSources []string
	healthyFats := false
	for _, e := range entries {
		if e.Ingredient.Properties.AntioxidantScore > 70 {
			antioxidantSources = append(antioxidantSources, e.Ingredient.Name)
		}
		level := e.Ingredient.Properties.ProcessingLevel
		if e.Ingredient.Category == "nuts_seeds" && level > 0 && level <= 2 {
			healthyFats = true
		}
	}
	if len(antioxidantSources) > 0 {
		out = append(out, "Rich in antioxidants from "+strings.Join(antioxidantSources, ", "))
	}
	if healthyFats {
		out = append(out, "Contains healthy unsaturated fats")
	}

	if per100g.IronMg > 5 {
		out = append(out, fmt.Sprintf("Good source of iron (%.1fmg per 100g)", per100g.IronMg))
	}
	if per100g.CalciumMg > 100 {
		out = append(out, fmt.Sprintf("Good source of calcium (%.0fmg per 100g)", per100g.CalciumMg))
	}
	if per100g.PotassiumMg > 500 {
		out = append(out, fmt.Sprintf("High in potassium (%.0fmg per 100g)", per100g.PotassiumMg))
	}

	if len(out) > maxHighlights {
		out = out[:maxHighlights]
	}
	return out
}

// improvementRecommendations suggests how to rebalance the blend
func improvementRecommendations(per100g domain.NutrientFacts, macros domain.Macros, entries []ResolvedEntry) []string {
	var out []string

	if per100g.ProteinG < 8 {
		out = append(out, "Consider adding protein powder, nuts, or seeds to increase protein content")
	}
	if per100g.FiberG < 3 {
		out = append(out, "Add more fiber with chia seeds, flax seeds, or oats")
	}
	if per100g.SugarsG > 20 {
		out = append(out, "Consider reducing added sweeteners or using lower-sugar alternatives")
	}
	if per100g.SodiumMg > 400 {
		out = append(out, "Consider reducing sodium content for better heart health")
	}

	highlyProcessed := 0
	var antioxidantSum float64
	for _, e := range entries {
		if e.Ingredient.Properties.ProcessingLevel > 3 {
			highlyProcessed++
		}
		antioxidantSum += e.Ingredient.Properties.AntioxidantScore
	}
	if len(entries) > 0 && float64(highlyProcessed) > float64(len(entries))*0.5 {
		out = append(out, "Try incorporating more whole food ingredients to reduce processing")
	}
	if len(entries) > 0 && antioxidantSum/float64(len(entries)) < 50 {
		out = append(out, "Add berries, dark chocolate, or cacao nibs to boost antioxidant content")
	}

	if macros.FatPercent > 60 {
		out = append(out, "Consider adding more protein or complex carbs to balance macronutrients")
	} else if macros.CarbPercent > 70 {
		out = append(out, "Add healthy fats or protein to slow sugar absorption")
	}

	if len(out) > maxRecommendations {
		out = out[:maxRecommendations]
	}
	return out
}

// Goal identifies an improvement target a user can ask the coach for
type Goal string

const (
	GoalIncreaseProtein     Goal = "increase_protein"
	GoalReduceSugar         Goal = "reduce_sugar"
	GoalIncreaseFiber       Goal = "increase_fiber"
	GoalKetoFriendly        Goal = "keto_friendly"
	GoalIncreaseAntioxidant Goal = "increase_antioxidants"
	GoalPostWorkout         Goal = "post_workout"
)

// GoalInfo describes a goal for clients
type GoalInfo struct {
	ID          Goal   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var goals = []GoalInfo{
	{GoalIncreaseProtein, "Increase Protein", "Boost protein for satiety and muscle repair"},
	{GoalReduceSugar, "Reduce Sugar", "Lower sugars while keeping the snack enjoyable"},
	{GoalIncreaseFiber, "Increase Fiber", "Add fiber for digestion and steady energy"},
	{GoalKetoFriendly, "Keto Friendly", "Keep carbohydrates low and fats high"},
	{GoalIncreaseAntioxidant, "More Antioxidants", "Favor berries, cacao and nuts"},
	{GoalPostWorkout, "Post Workout", "Balance fast carbs with protein for recovery"},
}

// Goals lists the improvement goals the coach understands
func Goals() []GoalInfo {
	return append([]GoalInfo(nil), goals...)
}

// KnownGoal reports whether g is one of Goals()
func KnownGoal(g Goal) bool {
	for _, info := range goals {
		if info.ID == g {
			return true
		}
	}
	return false
}

// GoalSuggestions groups rule-based improvement ideas for the requested goals
type GoalSuggestions struct {
	Additions     []string `json:"ingredient_additions"`
	Substitutions []string `json:"ingredient_substitutions"`
	GeneralTips   []string `json:"general_tips"`
}

// SuggestForGoals derives rule-based suggestions from an analysis. A nil
// analysis yields general tips only.
func SuggestForGoals(analysis *domain.NutritionAnalysis, requested []Goal) GoalSuggestions {
	var s GoalSuggestions
	var n domain.NutrientFacts
	score := 0.0
	if analysis != nil {
		n = analysis.NutritionPer100g
		score = analysis.HealthScore
	}

	for _, g := range requested {
		switch g {
		case GoalIncreaseProtein:
			if n.ProteinG < 15 {
				s.Additions = append(s.Additions,
					"Add protein powder for +15-20g protein",
					"Mix in pumpkin seeds for plant protein and iron")
			}
		case GoalReduceSugar:
			if n.SugarsG > 15 {
				s.Substitutions = append(s.Substitutions,
					"Replace part of the dates with nuts or seeds",
					"Use cacao nibs instead of chocolate chips",
					"Cut maple syrup or honey by half")
			}
		case GoalIncreaseFiber:
			if n.FiberG < 8 {
				s.Additions = append(s.Additions,
					"Add chia seeds for a large fiber boost",
					"Mix in ground flax seeds for omega-3s and fiber")
			}
		case GoalKetoFriendly:
			if n.CarbohydratesG > 20 {
				s.Substitutions = append(s.Substitutions,
					"Replace oats with chopped walnuts or coconut flakes",
					"Swap dried fruit for a small amount of fresh berries")
			}
		case GoalIncreaseAntioxidant:
			s.Additions = append(s.Additions,
				"Add blueberries for anthocyanins",
				"Include cacao nibs for flavonoids")
		case GoalPostWorkout:
			if n.ProteinG < 20 || n.CarbohydratesG < 30 {
				s.Additions = append(s.Additions,
					"Add protein powder for fast-absorbing protein",
					"Include banana for quick carbohydrates")
			}
		}
	}

	s.Additions = dedupeLimit(s.Additions, maxGoalSuggestions)
	s.Substitutions = dedupeLimit(s.Substitutions, maxGoalSuggestions)

	if score < 60 {
		s.GeneralTips = []string{
			"Focus on whole food ingredients",
			"Aim for balanced macronutrients",
			"Consider reducing processing level",
		}
	}
	return s
}

func dedupeLimit(items []string, limit int) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, it := range items {
		if seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
		if len(out) == limit {
			break
		}
	}
	return out
}
