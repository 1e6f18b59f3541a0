package domain

import (
	"strings"
	"time"
)

// BaseType identifies a snack base.
type BaseType string

const (
	BaseEnergyBar      BaseType = "energy-bar"
	BaseProteinBall    BaseType = "protein-ball"
	BaseGranolaCluster BaseType = "granola-cluster"
	BaseSmoothieBowl   BaseType = "smoothie-bowl"
	BaseTrailMix       BaseType = "trail-mix"
)

// DefaultBase is the base a new snack starts with.
const DefaultBase = BaseEnergyBar

// SnackBase is the structural category of a snack.
type SnackBase struct {
	Type               BaseType          `json:"type"`
	Name               string            `json:"name"`
	Shape              string            `json:"shape"`
	DefaultIngredients []IngredientEntry `json:"default_ingredients,omitempty"`
}

// IngredientEntry is one (name, grams) pair inside a snack.
type IngredientEntry struct {
	Name    string  `json:"name"`
	AmountG float64 `json:"amount_g"`
}

// Snack is the user-composed aggregate of a base and ingredient entries.
type Snack struct {
	ID          string             `json:"id,omitempty"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Base        BaseType           `json:"base"`
	Ingredients []IngredientEntry  `json:"ingredients"`
	Analysis    *NutritionAnalysis `json:"analysis,omitempty"`
	Tags        []string           `json:"tags,omitempty"`
	Rating      float64            `json:"rating,omitempty"`
	RatingCount int                `json:"rating_count,omitempty"`
	CreatedAt   time.Time          `json:"created_at,omitempty"`
	UpdatedAt   time.Time          `json:"updated_at,omitempty"`
}

// Clone returns a deep copy of the snack.
func (s Snack) Clone() Snack {
	out := s
	out.Ingredients = append([]IngredientEntry(nil), s.Ingredients...)
	out.Tags = append([]string(nil), s.Tags...)
	if s.Analysis != nil {
		a := s.Analysis.Clone()
		out.Analysis = &a
	}
	return out
}

// SnackFilter narrows a saved-snack listing. Zero values match everything.
type SnackFilter struct {
	Query          string
	Ingredient     string
	Tag            string
	MinHealthScore float64
	Limit          int
}

// Matches reports whether a snack passes the filter
func (f SnackFilter) Matches(s *Snack) bool {
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(s.Name), q) && !strings.Contains(strings.ToLower(s.Description), q) {
			return false
		}
	}
	if f.Ingredient != "" {
		found := false
		for _, e := range s.Ingredients {
			if strings.EqualFold(e.Name, f.Ingredient) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Tag != "" {
		found := false
		for _, t := range s.Tags {
			if strings.EqualFold(t, f.Tag) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.MinHealthScore > 0 && (s.Analysis == nil || s.Analysis.HealthScore < f.MinHealthScore) {
		return false
	}
	return true
}
