package domain

import "fmt"

var snackBases = []SnackBase{
	{
		Type:  BaseEnergyBar,
		Name:  "Energy Bar",
		Shape: "bar",
		DefaultIngredients: []IngredientEntry{
			{Name: "rolled oats", AmountG: 40},
			{Name: "dates", AmountG: 30},
		},
	},
	{
		Type:  BaseProteinBall,
		Name:  "Protein Ball",
		Shape: "sphere",
		DefaultIngredients: []IngredientEntry{
			{Name: "peanut butter", AmountG: 20},
			{Name: "protein powder", AmountG: 15},
		},
	},
	{
		Type:  BaseGranolaCluster,
		Name:  "Granola Cluster",
		Shape: "cluster",
		DefaultIngredients: []IngredientEntry{
			{Name: "rolled oats", AmountG: 30},
			{Name: "honey", AmountG: 10},
		},
	},
	{
		Type:  BaseSmoothieBowl,
		Name:  "Smoothie Bowl",
		Shape: "bowl",
		DefaultIngredients: []IngredientEntry{
			{Name: "banana", AmountG: 100},
			{Name: "greek yogurt", AmountG: 100},
		},
	},
	{
		Type:  BaseTrailMix,
		Name:  "Trail Mix",
		Shape: "scatter",
	},
}

// Bases returns every registered snack base in display order.
func Bases() []SnackBase {
	out := make([]SnackBase, len(snackBases))
	for i, b := range snackBases {
		b.DefaultIngredients = append([]IngredientEntry(nil), b.DefaultIngredients...)
		out[i] = b
	}
	return out
}

// LookupBase returns the base registered under t.
func LookupBase(t BaseType) (SnackBase, error) {
	for _, b := range snackBases {
		if b.Type == t {
			b.DefaultIngredients = append([]IngredientEntry(nil), b.DefaultIngredients...)
			return b, nil
		}
	}
	return SnackBase{}, fmt.Errorf("%w: %q", ErrUnknownBase, t)
}
