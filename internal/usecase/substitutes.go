package usecase

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/snacksmith/backend/internal/domain"
)

const (
	defaultSimilarLimit = 5
	maxSimilarLimit     = 20
)

// SimilarIngredient is a catalog ingredient ranked by closeness to another one
type SimilarIngredient struct {
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	Similarity float64 `json:"similarity"`
	Reason     string  `json:"reason"`
	Comparison string  `json:"nutrition_comparison"`
}

// Substitution is a similar ingredient with guidance for swapping it in
type Substitution struct {
	SimilarIngredient
	Ratio            string            `json:"substitution_ratio"`
	PreparationNotes string            `json:"preparation_notes"`
	ExpectedChanges  map[string]string `json:"expected_changes"`
	ContextAnalysis  string            `json:"context_analysis,omitempty"`
}

// FindSimilar ranks the rest of the catalog by cosine similarity of
// ingredient feature vectors. Ingredients conflicting with restrictions are
// skipped. limit <= 0 means the default of 5; it is capped at 20.
func FindSimilar(catalog domain.IngredientCatalog, name string, restrictions []string, limit int) ([]SimilarIngredient, error) {
	base, ok := catalog.Lookup(name)
	if !ok {
		return nil, &domain.UnknownIngredientError{Name: name}
	}
	if limit <= 0 {
		limit = defaultSimilarLimit
	}
	if limit > maxSimilarLimit {
		limit = maxSimilarLimit
	}

	space := newFeatureSpace(catalog)
	target := space.vector(base)

	type scored struct {
		ing   domain.Ingredient
		score float64
	}
	var ranked []scored
	for _, ing := range catalog.List("") {
		if ing.Name == base.Name || matchesRestriction(ing, restrictions) {
			continue
		}
		ranked = append(ranked, scored{ing: ing, score: cosine(target, space.vector(ing))})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].ing.Name < ranked[j].ing.Name
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	out := make([]SimilarIngredient, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, SimilarIngredient{
			Name:       r.ing.Name,
			Category:   r.ing.Category,
			Similarity: math.Round(r.score*1e4) / 1e4,
			Reason:     similarityReason(base, r.ing),
			Comparison: compareNutrition(base, r.ing),
		})
	}
	return out, nil
}

// SuggestSubstitutions returns the closest allowed ingredients with swap
// guidance. recipe names the other ingredients of the snack, if any.
func SuggestSubstitutions(catalog domain.IngredientCatalog, name string, restrictions, recipe []string, limit int) ([]Substitution, error) {
	similar, err := FindSimilar(catalog, name, restrictions, limit)
	if err != nil {
		return nil, err
	}
	base, _ := catalog.Lookup(name)

	out := make([]Substitution, 0, len(similar))
	for _, s := range similar {
		sub, _ := catalog.Lookup(s.Name)
		item := Substitution{
			SimilarIngredient: s,
			Ratio:             substitutionRatio(base, sub),
			PreparationNotes:  preparationNotes(base, sub),
			ExpectedChanges:   expectedChanges(base, sub),
		}
		if len(recipe) > 0 {
			item.ContextAnalysis = recipeFit(catalog, sub, recipe)
		}
		out = append(out, item)
	}
	return out, nil
}

// featureSpace fixes the one-hot dimensions for a catalog
type featureSpace struct {
	categories []string
	flavors    []string
	allergens  []string
}

func newFeatureSpace(catalog domain.IngredientCatalog) featureSpace {
	var fs featureSpace
	for _, c := range catalog.Categories() {
		fs.categories = append(fs.categories, c.Category)
	}
	flavors := map[string]bool{}
	allergens := map[string]bool{}
	for _, ing := range catalog.List("") {
		for _, f := range ing.FlavorProfile {
			flavors[f] = true
		}
		for _, a := range ing.Allergens {
			allergens[a] = true
		}
	}
	fs.flavors = sortedKeys(flavors)
	fs.allergens = sortedKeys(allergens)
	sort.Strings(fs.categories)
	return fs
}

func (fs featureSpace) vector(ing domain.Ingredient) []float64 {
	n := ing.Nutrition
	p := ing.Properties

	gi := 50.0
	if p.GlycemicIndex != nil {
		gi = *p.GlycemicIndex
	}
	processing := p.ProcessingLevel
	if processing == 0 {
		processing = 3
	}
	sustainability := 0.5
	if p.SustainabilityScore != nil {
		sustainability = *p.SustainabilityScore
	}

	v := []float64{
		n.ProteinG / 100,
		n.FiberG / 50,
		n.SugarsG / 100,
		n.FatG / 100,
		n.Calories / 1000,
		n.IronMg / 20,
		n.CalciumMg / 1000,
		n.PotassiumMg / 3000,
		gi / 100,
		p.AntioxidantScore / 100,
		float64(processing) / 5,
		sustainability,
	}
	for _, c := range fs.categories {
		v = append(v, flag(ing.Category == c))
	}
	for _, f := range fs.flavors {
		v = append(v, flag(contains(ing.FlavorProfile, f)))
	}
	for _, a := range fs.allergens {
		v = append(v, flag(contains(ing.Allergens, a)))
	}
	return v
}

func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func similarityReason(a, b domain.Ingredient) string {
	if a.Category == b.Category {
		return fmt.Sprintf("Same category (%s)", a.Category)
	}
	if common := intersect(a.FlavorProfile, b.FlavorProfile); len(common) > 0 {
		return fmt.Sprintf("Similar %s flavor", strings.Join(common, ", "))
	}
	if a.Texture != "" && a.Texture == b.Texture {
		return fmt.Sprintf("Similar %s texture", a.Texture)
	}
	return "Complementary nutritional profile"
}

func compareNutrition(a, b domain.Ingredient) string {
	pa, pb := a.Nutrition.ProteinG, b.Nutrition.ProteinG
	switch {
	case pb > pa*1.5:
		return "Higher protein content"
	case pa > pb*1.5:
		return "Lower protein content"
	}
	ca, cb := a.Nutrition.Calories, b.Nutrition.Calories
	switch {
	case cb > ca*1.2:
		return "Higher calorie density"
	case ca > cb*1.2:
		return "Lower calorie density"
	}
	return "Similar nutritional profile"
}

func substitutionRatio(original, sub domain.Ingredient) string {
	switch {
	case strings.Contains(original.Name, "powder") && strings.Contains(sub.Name, "powder"):
		return "1:1 ratio"
	case strings.Contains(original.Name, "honey") && strings.Contains(sub.Name, "maple"):
		return "Use 3/4 amount of maple syrup"
	case strings.Contains(original.Name, "dates") && (strings.Contains(sub.Name, "honey") || strings.Contains(sub.Name, "maple")):
		return "Use 1/2 the amount"
	}
	return "Start with 3/4 amount and adjust"
}

// liquidTextures flow; swapping them for a powder changes the batter
var liquidTextures = map[string]bool{"syrupy": true, "juicy": true, "sticky": true}

func preparationNotes(original, sub domain.Ingredient) string {
	switch {
	case liquidTextures[original.Texture] && sub.Texture == "powdery":
		return "May need to add extra liquid to maintain consistency"
	case original.Texture == "powdery" && liquidTextures[sub.Texture]:
		return "May need to reduce other liquids slightly"
	case isNut(original) && isSeed(sub):
		return "Consider soaking seeds for softer texture"
	}
	return "Monitor texture and adjust other ingredients as needed"
}

func isSeed(ing domain.Ingredient) bool {
	return strings.Contains(ing.Name, "seed")
}

func isNut(ing domain.Ingredient) bool {
	return (ing.Category == "nuts_seeds" || ing.Category == "nut_butters") && !isSeed(ing)
}

func expectedChanges(original, sub domain.Ingredient) map[string]string {
	changes := map[string]string{}

	if added := difference(sub.FlavorProfile, original.FlavorProfile); len(added) > 0 {
		changes["flavor"] = fmt.Sprintf("Will add %s notes", strings.Join(added, ", "))
	} else if len(difference(original.FlavorProfile, sub.FlavorProfile)) > 0 {
		changes["flavor"] = "Similar flavor profile"
	}

	if sub.Texture != "" && original.Texture != sub.Texture {
		changes["texture"] = fmt.Sprintf("Texture will be more %s", sub.Texture)
	}

	po, ps := original.Nutrition.ProteinG, sub.Nutrition.ProteinG
	switch {
	case ps > po*1.2:
		changes["nutrition"] = "Will increase protein content"
	case po > ps*1.2:
		changes["nutrition"] = "Will decrease protein content"
	}
	return changes
}

// recipeFit describes how sub sits among the other recipe ingredients
func recipeFit(catalog domain.IngredientCatalog, sub domain.Ingredient, recipe []string) string {
	categories := map[string]bool{}
	for _, name := range recipe {
		if ing, ok := catalog.Lookup(name); ok {
			categories[ing.Category] = true
		}
	}
	switch {
	case categories[sub.Category]:
		return fmt.Sprintf("Complements existing %s ingredients", sub.Category)
	case sub.Category == "proteins" && categories["nuts_seeds"]:
		return "Adds protein to existing healthy fats"
	case (sub.Category == "fruits" || sub.Category == "dried_fruit") && categories["nuts_seeds"]:
		return "Adds natural sweetness to nutty base"
	}
	return "Adds nutritional variety to recipe"
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// intersect returns the sorted values present in both lists
func intersect(a, b []string) []string {
	var out []string
	for _, v := range a {
		if contains(b, v) && !contains(out, v) {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// difference returns the sorted values of a missing from b
func difference(a, b []string) []string {
	var out []string
	for _, v := range a {
		if !contains(b, v) && !contains(out, v) {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
