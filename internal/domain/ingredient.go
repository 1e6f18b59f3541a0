package domain

// NutrientFacts holds nutrient amounts. Catalog entries express them per 100 g;
// analyses reuse the same shape for totals, per-100 g and per-serving views.
type NutrientFacts struct {
	Calories       float64 `json:"calories"`
	ProteinG       float64 `json:"protein_g"`
	FatG           float64 `json:"fat_g"`
	SaturatedFatG  float64 `json:"saturated_fat_g"`
	CarbohydratesG float64 `json:"carbohydrates_g"`
	SugarsG        float64 `json:"sugars_g"`
	FiberG         float64 `json:"fiber_g"`
	SodiumMg       float64 `json:"sodium_mg"`
	PotassiumMg    float64 `json:"potassium_mg"`
	VitaminCMg     float64 `json:"vitamin_c_mg"`
	CalciumMg      float64 `json:"calcium_mg"`
	IronMg         float64 `json:"iron_mg"`
}

// Scale multiplies every field by factor.
func (n NutrientFacts) Scale(factor float64) NutrientFacts {
	return NutrientFacts{
		Calories:       n.Calories * factor,
		ProteinG:       n.ProteinG * factor,
		FatG:           n.FatG * factor,
		SaturatedFatG:  n.SaturatedFatG * factor,
		CarbohydratesG: n.CarbohydratesG * factor,
		SugarsG:        n.SugarsG * factor,
		FiberG:         n.FiberG * factor,
		SodiumMg:       n.SodiumMg * factor,
		PotassiumMg:    n.PotassiumMg * factor,
		VitaminCMg:     n.VitaminCMg * factor,
		CalciumMg:      n.CalciumMg * factor,
		IronMg:         n.IronMg * factor,
	}
}

// Add returns the field-wise sum of n and o.
func (n NutrientFacts) Add(o NutrientFacts) NutrientFacts {
	return NutrientFacts{
		Calories:       n.Calories + o.Calories,
		ProteinG:       n.ProteinG + o.ProteinG,
		FatG:           n.FatG + o.FatG,
		SaturatedFatG:  n.SaturatedFatG + o.SaturatedFatG,
		CarbohydratesG: n.CarbohydratesG + o.CarbohydratesG,
		SugarsG:        n.SugarsG + o.SugarsG,
		FiberG:         n.FiberG + o.FiberG,
		SodiumMg:       n.SodiumMg + o.SodiumMg,
		PotassiumMg:    n.PotassiumMg + o.PotassiumMg,
		VitaminCMg:     n.VitaminCMg + o.VitaminCMg,
		CalciumMg:      n.CalciumMg + o.CalciumMg,
		IronMg:         n.IronMg + o.IronMg,
	}
}

// IngredientProperties are derived quality attributes of a catalog ingredient.
// Nil pointers mean "not rated"; aggregation substitutes neutral defaults.
type IngredientProperties struct {
	GlycemicIndex       *float64 `json:"glycemic_index,omitempty"`
	ProcessingLevel     int      `json:"processing_level,omitempty"` // 1 = whole food, 5 = highly processed
	AntioxidantScore    float64  `json:"antioxidant_score,omitempty"`
	SustainabilityScore *float64 `json:"sustainability_score,omitempty"` // 0-1
}

// Ingredient is an immutable catalog entry identified by Name.
type Ingredient struct {
	Name          string               `json:"name"`
	Category      string               `json:"category"`
	Description   string               `json:"description,omitempty"`
	Color         string               `json:"color,omitempty"`
	Texture       string               `json:"texture,omitempty"`
	FlavorProfile []string             `json:"flavor_profile,omitempty"`
	Allergens     []string             `json:"allergens,omitempty"`
	Nutrition     NutrientFacts        `json:"nutrition"`
	Properties    IngredientProperties `json:"properties"`
}

// CategoryCount summarizes how many catalog ingredients share a category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}
