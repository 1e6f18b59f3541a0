package usecase

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/snacksmith/backend/internal/domain"
)

// Package-level compiled regex pattern for performance
var punctuationRegex = regexp.MustCompile(`[^\w\s]`)

const (
	fuzzyWeightFactor   = 0.8  // Fuzzy token matches count 80% of an exact match
	substringMatchBonus = 10.0 // Query is a substring of the ingredient name or vice versa
	attributeMatchBonus = 5.0  // Query token names the category or a flavor
)

// searchStopWords are dropped from queries before matching
var searchStopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"of": true, "with": true, "some": true, "for": true, "in": true,
	"g": true, "gram": true, "grams": true, "cup": true, "cups": true,
	"tbsp": true, "tsp": true, "handful": true, "organic": true, "raw": true,
}

// SearchConfig holds configuration for ingredient search
type SearchConfig struct {
	MinScore          float64
	EnableFuzzy       bool
	FuzzyEditDistance int
}

// IngredientMatch is a catalog ingredient scored against a query
type IngredientMatch struct {
	Ingredient    domain.Ingredient `json:"ingredient"`
	Score         float64           `json:"score"`
	MatchedTokens []string          `json:"matched_tokens"`
}

// IngredientSearch ranks catalog ingredients against free-text queries and
// proposes the closest name for misspelled ones.
type IngredientSearch struct {
	catalog           domain.IngredientCatalog
	minScore          float64
	enableFuzzy       bool
	fuzzyEditDistance int
	log               *slog.Logger
}

// NewIngredientSearch creates a search over the given catalog
func NewIngredientSearch(catalog domain.IngredientCatalog, config SearchConfig, logger *slog.Logger) *IngredientSearch {
	minScore := config.MinScore
	if minScore <= 0 {
		minScore = 40.0
	}

	fuzzyDist := config.FuzzyEditDistance
	if fuzzyDist <= 0 {
		fuzzyDist = 2
	}

	return &IngredientSearch{
		catalog:           catalog,
		minScore:          minScore,
		enableFuzzy:       config.EnableFuzzy,
		fuzzyEditDistance: fuzzyDist,
		log:               logger,
	}
}

// Search returns ingredients scoring at least the minimum score, best first.
// An empty query lists the category. limit <= 0 means no limit.
func (s *IngredientSearch) Search(ctx context.Context, query, category string, limit int) ([]IngredientMatch, error) {
	candidates := s.catalog.List(category)

	var matches []IngredientMatch
	if strings.TrimSpace(query) == "" {
		for _, ing := range candidates {
			matches = append(matches, IngredientMatch{Ingredient: ing, Score: 100})
		}
		return truncateMatches(matches, limit), nil
	}

	for _, ing := range candidates {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		score, matched := s.matchScore(query, ing)
		s.log.Debug("Scored ingredient", "query", query, "ingredient", ing.Name, "score", score)
		if score >= s.minScore {
			matches = append(matches, IngredientMatch{Ingredient: ing, Score: score, MatchedTokens: matched})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Ingredient.Name < matches[j].Ingredient.Name
	})
	return truncateMatches(matches, limit), nil
}

// DidYouMean returns the catalog name closest to an unknown name, if any is close enough
func (s *IngredientSearch) DidYouMean(name string) (string, bool) {
	var best string
	bestScore := -1.0
	for _, ing := range s.catalog.List("") {
		score, _ := s.matchScore(name, ing)
		if score > bestScore {
			best, bestScore = ing.Name, score
		}
	}
	if bestScore < s.minScore {
		return "", false
	}
	return best, true
}

func truncateMatches(matches []IngredientMatch, limit int) []IngredientMatch {
	if limit > 0 && len(matches) > limit {
		return matches[:limit]
	}
	return matches
}

// matchScore computes similarity between a query and an ingredient name.
// Uses a weighted combination of:
//   - Query token coverage: what % of query tokens appear in the name (most important)
//   - Name token coverage: what % of name tokens appear in the query
//   - Jaccard overlap
//
// plus substring and category/flavor bonuses. Returns the score (0-100) and the matched tokens.
func (s *IngredientSearch) matchScore(query string, ing domain.Ingredient) (float64, []string) {
	queryTokens := tokenize(query)
	nameTokens := tokenize(ing.Name)

	if len(queryTokens) == 0 || len(nameTokens) == 0 {
		return 0, nil
	}

	queryMatched, matchedTokens := s.weightedIntersection(queryTokens, nameTokens)
	queryCoverage := queryMatched / float64(len(queryTokens))

	nameMatched, _ := s.weightedIntersection(nameTokens, queryTokens)
	nameCoverage := nameMatched / float64(len(nameTokens))

	jaccard := queryMatched / float64(findUnion(queryTokens, nameTokens))

	score := (queryCoverage*0.60 + nameCoverage*0.20 + jaccard*0.20) * 100

	queryLower := strings.Join(queryTokens, " ")
	nameLower := strings.Join(nameTokens, " ")
	if len(queryLower) > 3 && (strings.Contains(nameLower, queryLower) || strings.Contains(queryLower, nameLower)) {
		score += substringMatchBonus
	}

	for _, t := range queryTokens {
		if t == strings.ToLower(ing.Category) || containsFold(ing.FlavorProfile, t) {
			score += attributeMatchBonus
			break
		}
	}

	if score > 100 {
		score = 100
	}
	return score, matchedTokens
}

// weightedIntersection counts tokens of a found in b; fuzzy matches count partially
func (s *IngredientSearch) weightedIntersection(a, b []string) (float64, []string) {
	var total float64
	var matched []string
	seen := make(map[string]bool)

	for _, ta := range a {
		if seen[ta] {
			continue
		}
		seen[ta] = true

		for _, tb := range b {
			if ta == tb {
				total++
				matched = append(matched, ta)
				break
			}
			if s.enableFuzzy && fuzzyTokenMatch(ta, tb, s.fuzzyEditDistance) {
				total += fuzzyWeightFactor
				matched = append(matched, tb)
				break
			}
		}
	}
	return total, matched
}

func containsFold(values []string, v string) bool {
	for _, x := range values {
		if strings.EqualFold(x, v) {
			return true
		}
	}
	return false
}

// tokenize splits a string into normalized lowercase tokens.
// Removes punctuation, stop words and pure numeric tokens, and folds simple plurals.
func tokenize(s string) []string {
	cleaned := punctuationRegex.ReplaceAllString(strings.ToLower(s), " ")

	var tokens []string
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 1 || searchStopWords[word] || isNumeric(word) {
			continue
		}
		tokens = append(tokens, singular(word))
	}
	return tokens
}

// singular folds "seeds" to "seed" and "berries" to "berry"
func singular(word string) string {
	switch {
	case len(word) > 4 && strings.HasSuffix(word, "ies"):
		return word[:len(word)-3] + "y"
	case len(word) > 3 && strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss"):
		return word[:len(word)-1]
	default:
		return word
	}
}

// isNumeric checks if a string contains only digits
func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// fuzzyTokenMatch checks if two tokens are similar within the edit distance threshold
func fuzzyTokenMatch(token1, token2 string, threshold int) bool {
	if token1 == token2 {
		return true
	}

	// Short tokens produce too many false positives
	if len(token1) < 4 || len(token2) < 4 {
		return false
	}

	lenDiff := len(token1) - len(token2)
	if lenDiff < 0 {
		lenDiff = -lenDiff
	}
	if lenDiff > threshold {
		return false
	}

	return levenshteinDistance(token1, token2) <= threshold
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)

	// Two rows instead of the full matrix
	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}

// findUnion returns the count of unique tokens across both sets
func findUnion(tokens1, tokens2 []string) int {
	set := make(map[string]bool)
	for _, t := range tokens1 {
		set[t] = true
	}
	for _, t := range tokens2 {
		set[t] = true
	}
	return len(set)
}
