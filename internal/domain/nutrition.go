package domain

// Macros splits the energy of a serving across protein, carbohydrate and fat
// using Atwater factors (4/4/9 kcal per gram).
type Macros struct {
	ProteinG        float64 `json:"protein_g"`
	CarbohydratesG  float64 `json:"carbohydrates_g"`
	FatG            float64 `json:"fat_g"`
	ProteinCalories float64 `json:"protein_calories"`
	CarbCalories    float64 `json:"carb_calories"`
	FatCalories     float64 `json:"fat_calories"`
	ProteinPercent  float64 `json:"protein_percent"`
	CarbPercent     float64 `json:"carb_percent"`
	FatPercent      float64 `json:"fat_percent"`
}

// IngredientContribution is one entry's share of the snack's nutrition.
type IngredientContribution struct {
	Name      string        `json:"name"`
	AmountG   float64       `json:"amount_g"`
	Category  string        `json:"category"`
	Nutrition NutrientFacts `json:"nutrition"`
}

// NutritionAnalysis is derived wholesale from an ingredient list and the catalog.
// An empty snack has no analysis at all; callers hold a nil pointer.
type NutritionAnalysis struct {
	TotalWeightG        float64                  `json:"total_weight_g"`
	ServingSizeG        float64                  `json:"serving_size_g"`
	NutritionPer100g    NutrientFacts            `json:"nutrition_per_100g"`
	NutritionPerServing NutrientFacts            `json:"nutrition_per_serving"`
	Macros              Macros                   `json:"macros"`
	HealthScore         float64                  `json:"health_score"`
	HealthLabel         string                   `json:"health_label"`
	Allergens           []string                 `json:"allergens"`
	GlycemicLoad        float64                  `json:"glycemic_load"`
	SustainabilityScore float64                  `json:"sustainability_score"`
	IngredientBreakdown []IngredientContribution `json:"ingredient_breakdown"`
	Highlights          []string                 `json:"highlights"`
	Recommendations     []string                 `json:"recommendations"`
}

// Clone returns a deep copy of the analysis.
func (a NutritionAnalysis) Clone() NutritionAnalysis {
	out := a
	out.Allergens = append([]string(nil), a.Allergens...)
	out.IngredientBreakdown = append([]IngredientContribution(nil), a.IngredientBreakdown...)
	out.Highlights = append([]string(nil), a.Highlights...)
	out.Recommendations = append([]string(nil), a.Recommendations...)
	return out
}
