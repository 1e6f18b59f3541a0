package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/snacksmith/backend/internal/domain"
)

// Reply sources
const (
	SourceAI    = "ai"
	SourceRules = "rules"
)

const emptyChatReply = "I'm here to help with your nutrition questions! What would you like to know?"

// CoachConfig holds configuration for the AI coach
type CoachConfig struct {
	// Fallback answers with rule-based replies when no AI client is configured
	// or the AI request fails.
	Fallback bool
}

// Coach answers nutrition questions and proposes snacks. Structured replies
// from the model are validated against the catalog before they are returned.
type Coach struct {
	client   domain.AIClient
	catalog  domain.IngredientCatalog
	engine   domain.NutritionEngine
	fallback bool
	log      *slog.Logger
}

// NewCoach creates a coach. client may be nil when AI is disabled.
func NewCoach(
	client domain.AIClient,
	catalog domain.IngredientCatalog,
	engine domain.NutritionEngine,
	config CoachConfig,
	logger *slog.Logger,
) *Coach {
	return &Coach{
		client:   client,
		catalog:  catalog,
		engine:   engine,
		fallback: config.Fallback,
		log:      logger,
	}
}

// ChatReply is the coach's answer to a free-form message
type ChatReply struct {
	Reply  string `json:"reply"`
	Source string `json:"source"`
}

// RecommendRequest describes what the user wants from a new snack
type RecommendRequest struct {
	Goals        []Goal          `json:"goals"`
	Restrictions []string        `json:"dietary_restrictions"`
	Flavors      []string        `json:"flavors"`
	Base         domain.BaseType `json:"base"`
}

// Recommendation is a validated snack proposal with its analysis
type Recommendation struct {
	Suggestion Suggestion                `json:"suggestion"`
	Analysis   *domain.NutritionAnalysis `json:"analysis,omitempty"`
	Source     string                    `json:"source"`
}

// Improvement pairs rule-based tips with a validated revised recipe
type Improvement struct {
	Current    *domain.NutritionAnalysis `json:"current_analysis,omitempty"`
	Tips       GoalSuggestions           `json:"tips"`
	Suggestion *Suggestion               `json:"suggestion,omitempty"`
	Analysis   *domain.NutritionAnalysis `json:"analysis,omitempty"`
	Source     string                    `json:"source"`
}

// Chat answers a nutrition question, optionally about the snack being built
func (c *Coach) Chat(ctx context.Context, message string, snack *domain.Snack) (ChatReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return ChatReply{Reply: emptyChatReply, Source: SourceRules}, nil
	}

	if c.client != nil {
		reply, err := c.client.Generate(ctx, c.chatPrompt(message, snack))
		if err == nil && strings.TrimSpace(reply) != "" {
			return ChatReply{Reply: strings.TrimSpace(reply), Source: SourceAI}, nil
		}
		if err == nil {
			err = fmt.Errorf("%w: empty reply", domain.ErrAIFailure)
		}
		if !c.fallback {
			return ChatReply{}, err
		}
		c.log.Warn("AI chat failed, using rule-based reply", "error", err)
	} else if !c.fallback {
		return ChatReply{}, domain.ErrAIUnavailable
	}

	return ChatReply{Reply: ruleBasedChat(message), Source: SourceRules}, nil
}

// Recommend proposes a new snack for the requested goals
func (c *Coach) Recommend(ctx context.Context, req RecommendRequest) (Recommendation, error) {
	if err := validateGoals(req.Goals); err != nil {
		return Recommendation{}, err
	}
	if req.Base != "" {
		if _, err := domain.LookupBase(req.Base); err != nil {
			return Recommendation{}, err
		}
	}

	var (
		suggestion Suggestion
		source     string
		err        error
	)

	switch {
	case c.client != nil:
		var reply string
		reply, err = c.client.Generate(ctx, c.recommendPrompt(req))
		if err == nil {
			suggestion, err = ParseSuggestion(c.catalog, reply)
			if err != nil {
				c.log.Warn("Rejected AI recommendation", "error", err)
				return Recommendation{}, err
			}
			source = SourceAI
			break
		}
		if !c.fallback {
			return Recommendation{}, err
		}
		c.log.Warn("AI recommendation failed, using rules", "error", err)
		fallthrough
	case c.fallback:
		suggestion, err = ValidateSuggestion(c.catalog, ruleBasedRecommendation(c.catalog, req))
		if err != nil {
			return Recommendation{}, err
		}
		source = SourceRules
	default:
		return Recommendation{}, domain.ErrAIUnavailable
	}

	analysis, err := c.engine.Calculate(ctx, suggestion.Ingredients, 0)
	if err != nil {
		return Recommendation{}, err
	}
	return Recommendation{Suggestion: suggestion, Analysis: analysis, Source: source}, nil
}

// Improve proposes a revised version of snack for the requested goals
func (c *Coach) Improve(ctx context.Context, snack domain.Snack, requested []Goal) (Improvement, error) {
	if err := validateGoals(requested); err != nil {
		return Improvement{}, err
	}

	var current *domain.NutritionAnalysis
	if len(snack.Ingredients) > 0 {
		var err error
		current, err = c.engine.Calculate(ctx, snack.Ingredients, 0)
		if err != nil {
			return Improvement{}, err
		}
	}

	out := Improvement{
		Current: current,
		Tips:    SuggestForGoals(current, requested),
	}

	var suggestion Suggestion
	switch {
	case c.client != nil:
		reply, err := c.client.Generate(ctx, c.improvePrompt(snack, current, requested))
		if err == nil {
			suggestion, err = ParseSuggestion(c.catalog, reply)
			if err != nil {
				c.log.Warn("Rejected AI improvement", "error", err)
				return Improvement{}, err
			}
			out.Source = SourceAI
			break
		}
		if !c.fallback {
			return Improvement{}, err
		}
		c.log.Warn("AI improvement failed, using rules", "error", err)
		fallthrough
	case c.fallback:
		revised, ok := ruleBasedImprovement(snack, requested)
		out.Source = SourceRules
		if !ok {
			return out, nil
		}
		var err error
		suggestion, err = ValidateSuggestion(c.catalog, revised)
		if err != nil {
			return Improvement{}, err
		}
	default:
		return Improvement{}, domain.ErrAIUnavailable
	}

	analysis, err := c.engine.Calculate(ctx, suggestion.Ingredients, 0)
	if err != nil {
		return Improvement{}, err
	}
	out.Suggestion = &suggestion
	out.Analysis = analysis
	return out, nil
}

// SubstituteRequest asks for replacements for one ingredient of a snack
type SubstituteRequest struct {
	Ingredient   string                   `json:"ingredient"`
	Restrictions []string                 `json:"dietary_restrictions"`
	Recipe       []domain.IngredientEntry `json:"recipe"`
	Reason       string                   `json:"reason"`
}

// SubstitutionAdvice pairs catalog substitutes with prose advice
type SubstitutionAdvice struct {
	Ingredient    string         `json:"ingredient"`
	Substitutions []Substitution `json:"substitutions"`
	Advice        string         `json:"advice"`
	Source        string         `json:"source"`
}

// Substitute ranks catalog replacements for an ingredient and asks the model
// how to swap them in. Only catalog ingredients are ever offered as
// substitutes; the model contributes prose.
func (c *Coach) Substitute(ctx context.Context, req SubstituteRequest) (SubstitutionAdvice, error) {
	ing, ok := c.catalog.Lookup(req.Ingredient)
	if !ok {
		return SubstitutionAdvice{}, &domain.UnknownIngredientError{Name: req.Ingredient}
	}
	recipe := make([]string, 0, len(req.Recipe))
	for _, e := range req.Recipe {
		recipe = append(recipe, e.Name)
	}
	subs, err := SuggestSubstitutions(c.catalog, ing.Name, req.Restrictions, recipe, defaultSimilarLimit)
	if err != nil {
		return SubstitutionAdvice{}, err
	}
	out := SubstitutionAdvice{Ingredient: ing.Name, Substitutions: subs}

	if c.client != nil {
		reply, err := c.client.Generate(ctx, c.substitutePrompt(ing.Name, req, subs))
		if err == nil && strings.TrimSpace(reply) != "" {
			out.Advice = strings.TrimSpace(reply)
			out.Source = SourceAI
			return out, nil
		}
		if err == nil {
			err = fmt.Errorf("%w: empty reply", domain.ErrAIFailure)
		}
		if !c.fallback {
			return SubstitutionAdvice{}, err
		}
		c.log.Warn("AI substitution failed, using rules", "error", err)
	} else if !c.fallback {
		return SubstitutionAdvice{}, domain.ErrAIUnavailable
	}

	out.Advice = ruleBasedSubstitution(ing.Name, subs)
	out.Source = SourceRules
	return out, nil
}

// ExplainScore describes in prose what drives an analysis' health score
func ExplainScore(analysis *domain.NutritionAnalysis) string {
	if analysis == nil {
		return "Add some ingredients to see a health score."
	}

	n := analysis.NutritionPer100g
	var parts []string

	switch {
	case analysis.HealthScore >= 80:
		parts = append(parts, "This is an excellent health score indicating a very nutritious snack.")
	case analysis.HealthScore >= 60:
		parts = append(parts, "This is a good health score showing solid nutritional value.")
	case analysis.HealthScore >= 40:
		parts = append(parts, "This is a moderate health score with room for improvement.")
	default:
		parts = append(parts, "This score suggests significant nutritional improvements are needed.")
	}

	if n.ProteinG > 15 {
		parts = append(parts, "The high protein content significantly boosts the score.")
	} else if n.ProteinG < 5 {
		parts = append(parts, "Low protein content reduces the overall score.")
	}
	if n.FiberG > 8 {
		parts = append(parts, "Excellent fiber content contributes positively to digestive health.")
	} else if n.FiberG < 3 {
		parts = append(parts, "Low fiber content limits the nutritional value.")
	}
	if n.SugarsG > 25 {
		parts = append(parts, "High sugar content significantly reduces the health score.")
	} else if n.SugarsG < 8 {
		parts = append(parts, "Low sugar content helps maintain a healthy score.")
	}

	return strings.Join(parts, " ")
}

func validateGoals(requested []Goal) error {
	for _, g := range requested {
		if !KnownGoal(g) {
			return fmt.Errorf("%w: unknown goal %q", domain.ErrInvalidRequest, g)
		}
	}
	return nil
}

const suggestionSchema = `Respond with a single JSON object and nothing else:
{"name": string, "description": string, "base": one of [energy-bar, protein-ball, granola-cluster, smoothie-bowl, trail-mix], "ingredients": [{"name": string, "amount_g": number}], "reasoning": string}
Use only ingredient names from the available list. Every amount_g must be greater than zero.`

func (c *Coach) chatPrompt(message string, snack *domain.Snack) string {
	var b strings.Builder
	b.WriteString("You are a friendly nutrition coach helping someone build a healthy snack. Answer in at most three short paragraphs.\n")
	if snack != nil && len(snack.Ingredients) > 0 {
		fmt.Fprintf(&b, "\nCurrent snack (%s): %s\n", snack.Base, formatEntries(snack.Ingredients))
		if snack.Analysis != nil {
			fmt.Fprintf(&b, "Health score: %.0f/100\n", snack.Analysis.HealthScore)
		}
	}
	fmt.Fprintf(&b, "\nQuestion: %s\n", message)
	return b.String()
}

func (c *Coach) recommendPrompt(req RecommendRequest) string {
	var b strings.Builder
	b.WriteString("Design a healthy homemade snack.\n")
	if len(req.Goals) > 0 {
		fmt.Fprintf(&b, "Goals: %s\n", joinGoals(req.Goals))
	}
	if len(req.Restrictions) > 0 {
		fmt.Fprintf(&b, "Dietary restrictions: %s\n", strings.Join(req.Restrictions, ", "))
	}
	if len(req.Flavors) > 0 {
		fmt.Fprintf(&b, "Preferred flavors: %s\n", strings.Join(req.Flavors, ", "))
	}
	if req.Base != "" {
		fmt.Fprintf(&b, "Base: %s\n", req.Base)
	}
	fmt.Fprintf(&b, "Available ingredients: %s\n\n%s", strings.Join(c.ingredientNames(), ", "), suggestionSchema)
	return b.String()
}

func (c *Coach) improvePrompt(snack domain.Snack, current *domain.NutritionAnalysis, requested []Goal) string {
	var b strings.Builder
	b.WriteString("Improve this snack recipe while keeping its character.\n")
	fmt.Fprintf(&b, "Base: %s\nIngredients: %s\n", snack.Base, formatEntries(snack.Ingredients))
	if current != nil {
		n := current.NutritionPer100g
		fmt.Fprintf(&b, "Per 100g: %.0f kcal, protein %.1fg, fiber %.1fg, sugars %.1fg. Health score %.0f/100\n",
			n.Calories, n.ProteinG, n.FiberG, n.SugarsG, current.HealthScore)
	}
	if len(requested) > 0 {
		fmt.Fprintf(&b, "Goals: %s\n", joinGoals(requested))
	}
	fmt.Fprintf(&b, "Available ingredients: %s\n\n%s", strings.Join(c.ingredientNames(), ", "), suggestionSchema)
	return b.String()
}

func (c *Coach) substitutePrompt(name string, req SubstituteRequest, subs []Substitution) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Suggest how to replace %s in a homemade snack. Answer in at most three short paragraphs.\n", name)
	if len(req.Recipe) > 0 {
		fmt.Fprintf(&b, "Recipe: %s\n", formatEntries(req.Recipe))
	}
	if len(req.Restrictions) > 0 {
		fmt.Fprintf(&b, "Dietary restrictions: %s\n", strings.Join(req.Restrictions, ", "))
	}
	if req.Reason != "" {
		fmt.Fprintf(&b, "Reason for replacing: %s\n", req.Reason)
	}
	if len(subs) > 0 {
		names := make([]string, len(subs))
		for i, s := range subs {
			names[i] = s.Name
		}
		fmt.Fprintf(&b, "Only recommend from these candidates: %s\n", strings.Join(names, ", "))
	}
	return b.String()
}

func (c *Coach) ingredientNames() []string {
	all := c.catalog.List("")
	names := make([]string, len(all))
	for i, ing := range all {
		names[i] = ing.Name
	}
	return names
}

func formatEntries(entries []domain.IngredientEntry) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%gg %s", e.AmountG, e.Name)
	}
	return strings.Join(parts, ", ")
}

func joinGoals(gs []Goal) string {
	parts := make([]string, len(gs))
	for i, g := range gs {
		parts[i] = string(g)
	}
	return strings.Join(parts, ", ")
}

func hasGoal(gs []Goal, g Goal) bool {
	for _, x := range gs {
		if x == g {
			return true
		}
	}
	return false
}

func hasFlavor(flavors []string, flavor string) bool {
	for _, f := range flavors {
		if strings.EqualFold(strings.TrimSpace(f), flavor) {
			return true
		}
	}
	return false
}

var chatTopics = []struct {
	keywords []string
	reply    string
}{
	{[]string{"protein", "muscle", "workout"}, "Protein is essential for muscle building and repair. For snacks, aim for 15-20g protein. Great sources include protein powder, Greek yogurt, nuts and seeds. Post-workout snacks should combine protein with some carbs for recovery."},
	{[]string{"sugar", "sweet", "diabetes"}, "Natural sugars from fruits like dates come with fiber and nutrients, which makes them a better choice than refined sugar. Pair sweet ingredients with protein and fiber to slow sugar absorption, and lean on nuts, seeds and berries for low-glycemic options."},
	{[]string{"fiber", "digestion", "gut"}, "Fiber supports digestion and keeps you full longer. Chia seeds, flax seeds, oats and berries are great snack sources. Increase fiber slowly to avoid digestive discomfort."},
	{[]string{"fat", "omega"}, "Healthy fats from nuts and seeds provide sustained energy and help absorb fat-soluble vitamins. Chia seeds, walnuts and flax are rich in omega-3 fatty acids."},
	{[]string{"energy", "tired", "boost"}, "For sustained energy, combine complex carbs with protein and healthy fats. Nuts with fruit, or oats with protein powder, avoid the crash that simple sugars cause."},
	{[]string{"weight", "lose", "diet"}, "For weight management, favor high-fiber, high-protein snacks that keep you satisfied, and aim for 150-200 calorie portions."},
	{[]string{"antioxidant", "inflammation"}, "Berries, dark chocolate (70%+ cacao), nuts and seeds are the best antioxidant sources for snacks."},
	{[]string{"calcium", "bone"}, "Almonds and Greek yogurt are good calcium sources for snacks. Pair with vitamin D for better absorption."},
	{[]string{"iron", "anemia"}, "Pumpkin seeds and dark chocolate bring plant-based iron. Pair them with vitamin C, like berries, to improve absorption."},
}

func ruleBasedChat(message string) string {
	lower := strings.ToLower(message)
	for _, topic := range chatTopics {
		for _, kw := range topic.keywords {
			if strings.Contains(lower, kw) {
				return topic.reply
			}
		}
	}
	return "Great question! Whole food ingredients and balanced macronutrients make the healthiest snacks. What aspect of nutrition would you like to explore?"
}

// ruleBasedRecommendation builds a snack from goal rules, dropping
// ingredients whose allergens match a dietary restriction.
func ruleBasedRecommendation(catalog domain.IngredientCatalog, req RecommendRequest) Suggestion {
	entries := []domain.IngredientEntry{
		{Name: "rolled oats", AmountG: 40},
		{Name: "almonds", AmountG: 30},
	}
	add := func(name string, grams float64) {
		entries = mergeEntry(entries, name, grams)
	}

	if hasGoal(req.Goals, GoalIncreaseProtein) || hasGoal(req.Goals, GoalPostWorkout) {
		add("protein powder", 25)
	}
	if !hasGoal(req.Goals, GoalReduceSugar) {
		add("dates", 20)
	}
	if hasGoal(req.Goals, GoalIncreaseFiber) {
		add("chia seeds", 15)
	}
	if hasGoal(req.Goals, GoalIncreaseAntioxidant) {
		add("blueberries", 20)
	}
	if hasGoal(req.Goals, GoalKetoFriendly) {
		kept := entries[:0]
		for _, e := range entries {
			if e.Name != "rolled oats" && e.Name != "dates" {
				kept = append(kept, e)
			}
		}
		entries = kept
		add("coconut flakes", 25)
		add("cashews", 35)
	}
	if hasFlavor(req.Flavors, "chocolate") {
		add("dark chocolate", 15)
	} else if hasFlavor(req.Flavors, "sweet") && indexOfEntry(entries, "dates") < 0 {
		add("honey", 15)
	}

	entries = withoutRestricted(catalog, entries, req.Restrictions)
	if len(entries) == 0 {
		entries = []domain.IngredientEntry{{Name: "pumpkin seeds", AmountG: 30}, {Name: "dates", AmountG: 20}}
	}

	base := req.Base
	if base == "" {
		base = domain.DefaultBase
	}

	return Suggestion{
		Name:        "Custom Healthy Snack",
		Description: "Nutritious snack tailored to your preferences and goals",
		Base:        base,
		Ingredients: entries,
		Reasoning:   benefitsFor(req.Goals),
	}
}

func withoutRestricted(catalog domain.IngredientCatalog, entries []domain.IngredientEntry, restrictions []string) []domain.IngredientEntry {
	if len(restrictions) == 0 {
		return entries
	}
	var out []domain.IngredientEntry
	for _, e := range entries {
		ing, ok := catalog.Lookup(e.Name)
		if ok && matchesRestriction(ing, restrictions) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func matchesRestriction(ing domain.Ingredient, restrictions []string) bool {
	for _, r := range restrictions {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" {
			continue
		}
		for _, a := range ing.Allergens {
			if strings.Contains(r, a) || strings.Contains(a, r) {
				return true
			}
		}
		if r == "vegan" && (ing.Name == "honey" || ing.Name == "greek yogurt") {
			return true
		}
	}
	return false
}

func ruleBasedSubstitution(name string, subs []Substitution) string {
	if len(subs) == 0 {
		return fmt.Sprintf("No catalog ingredient is a close match for %s under these restrictions.", name)
	}
	best := subs[0]
	return fmt.Sprintf("Try %s instead of %s (%s). %s. %s.",
		best.Name, name, strings.ToLower(best.Reason), best.Ratio, best.PreparationNotes)
}

func benefitsFor(requested []Goal) string {
	if len(requested) == 0 {
		return "A balanced mix of whole grains, nuts and natural sweetness."
	}
	var out []string
	for _, g := range requested {
		for _, info := range goals {
			if info.ID == g {
				out = append(out, info.Description)
			}
		}
	}
	return strings.Join(out, ". ") + "."
}

var sweeteners = map[string]bool{
	"dates":             true,
	"honey":             true,
	"maple syrup":       true,
	"raisins":           true,
	"dried cranberries": true,
}

// ruleBasedImprovement revises a snack for the requested goals. It reports
// false when the rules have nothing to change.
func ruleBasedImprovement(snack domain.Snack, requested []Goal) (Suggestion, bool) {
	if len(snack.Ingredients) == 0 {
		return Suggestion{}, false
	}

	entries := append([]domain.IngredientEntry(nil), snack.Ingredients...)
	changed := false
	add := func(name string, grams float64) {
		entries = mergeEntry(entries, name, grams)
		changed = true
	}

	for _, g := range requested {
		switch g {
		case GoalIncreaseProtein:
			add("protein powder", 15)
		case GoalIncreaseFiber:
			add("chia seeds", 10)
		case GoalReduceSugar:
			for i := range entries {
				if sweeteners[entries[i].Name] {
					entries[i].AmountG /= 2
					changed = true
				}
			}
		case GoalKetoFriendly:
			if idx := indexOfEntry(entries, "rolled oats"); idx >= 0 {
				entries = append(entries[:idx:idx], entries[idx+1:]...)
				changed = true
			}
			add("walnuts", 20)
		case GoalIncreaseAntioxidant:
			add("blueberries", 20)
			add("cacao nibs", 10)
		case GoalPostWorkout:
			add("banana", 50)
			add("protein powder", 15)
		}
	}
	if !changed || len(entries) == 0 {
		return Suggestion{}, false
	}

	name := snack.Name
	if name == "" {
		name = "My Snack"
	}
	return Suggestion{
		Name:        name + " (improved)",
		Description: snack.Description,
		Base:        snack.Base,
		Ingredients: entries,
		Reasoning:   benefitsFor(requested),
	}, true
}
