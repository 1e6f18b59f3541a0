package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/snacksmith/backend/internal/domain"
	"github.com/snacksmith/backend/internal/usecase"
)

// ListIngredients lists the catalog, or ranks it against ?q= when given
func (h *Handler) ListIngredients(c *gin.Context) {
	category := c.Query("category")
	query := c.Query("q")

	if query == "" {
		ingredients := h.catalog.List(category)
		c.JSON(http.StatusOK, gin.H{"ingredients": ingredients, "count": len(ingredients)})
		return
	}

	limit, err := queryInt(c, "limit", 10)
	if err != nil {
		h.respondError(c, err)
		return
	}
	matches, err := h.search.Search(c.Request.Context(), query, category, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"query": query, "matches": matches, "count": len(matches)})
}

func (h *Handler) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": h.catalog.Categories()})
}

// GetIngredient returns one catalog entry by name
func (h *Handler) GetIngredient(c *gin.Context) {
	name := c.Param("name")
	ing, ok := h.catalog.Lookup(name)
	if !ok {
		h.respondError(c, &domain.UnknownIngredientError{Name: name})
		return
	}
	c.JSON(http.StatusOK, ing)
}

const maxSimilarLimit = 20

func similarLimit(c *gin.Context) (int, error) {
	limit, err := queryInt(c, "limit", 5)
	if err != nil {
		return 0, err
	}
	if limit < 1 || limit > maxSimilarLimit {
		return 0, badRequest("limit must be between 1 and %d", maxSimilarLimit)
	}
	return limit, nil
}

// SimilarIngredients ranks catalog ingredients by closeness to :name.
// ?restrictions= drops ingredients conflicting with dietary restrictions.
func (h *Handler) SimilarIngredients(c *gin.Context) {
	limit, err := similarLimit(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	restrictions := queryList(c, "restrictions")

	similar, err := usecase.FindSimilar(h.catalog, c.Param("name"), restrictions, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ing, _ := h.catalog.Lookup(c.Param("name"))
	c.JSON(http.StatusOK, gin.H{
		"ingredient":           ing.Name,
		"similar_ingredients":  similar,
		"dietary_restrictions": restrictions,
		"count":                len(similar),
	})
}

// IngredientSubstitutes suggests swaps for :name with ratios and notes.
// ?recipe= names the other ingredients of the snack for context.
func (h *Handler) IngredientSubstitutes(c *gin.Context) {
	limit, err := similarLimit(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	restrictions := queryList(c, "restrictions")
	recipe := queryList(c, "recipe")

	subs, err := usecase.SuggestSubstitutions(h.catalog, c.Param("name"), restrictions, recipe, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ing, _ := h.catalog.Lookup(c.Param("name"))
	c.JSON(http.StatusOK, gin.H{
		"ingredient":           ing.Name,
		"substitutions":        subs,
		"dietary_restrictions": restrictions,
		"context_considered":   len(recipe) > 0,
		"count":                len(subs),
	})
}

func (h *Handler) ListBases(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"bases": domain.Bases()})
}

func (h *Handler) ListGoals(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"goals": usecase.Goals()})
}

type calculateRequest struct {
	Ingredients  []domain.IngredientEntry `json:"ingredients"`
	ServingSizeG float64                  `json:"serving_size_g"`
}

// CalculateNutrition aggregates an ad-hoc ingredient list
func (h *Handler) CalculateNutrition(c *gin.Context) {
	var req calculateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if len(req.Ingredients) == 0 {
		h.respondError(c, badRequest("at least one ingredient is required"))
		return
	}
	if err := usecase.ValidateServingSize(req.ServingSizeG); err != nil {
		h.respondError(c, err)
		return
	}
	serving := req.ServingSizeG
	if serving == 0 {
		serving = h.servingSizeG
	}

	entries, err := usecase.CanonicalizeEntries(h.catalog, req.Ingredients)
	if err != nil {
		h.respondError(c, err)
		return
	}
	analysis, err := h.engine.Calculate(c.Request.Context(), entries, serving)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ingredients": entries, "analysis": analysis})
}

type compareRequest struct {
	VersionA usecase.SnackVersion `json:"version_a"`
	VersionB usecase.SnackVersion `json:"version_b"`
}

// CompareNutrition compares two versions of a snack side by side
func (h *Handler) CompareNutrition(c *gin.Context) {
	var req compareRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if len(req.VersionA.Ingredients) == 0 || len(req.VersionB.Ingredients) == 0 {
		h.respondError(c, badRequest("both versions need at least one ingredient"))
		return
	}
	result, err := usecase.CompareSnacks(c.Request.Context(), h.engine, req.VersionA, req.VersionB)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// IngredientContributions ranks ingredients by calorie share
func (h *Handler) IngredientContributions(c *gin.Context) {
	var req calculateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if len(req.Ingredients) == 0 {
		h.respondError(c, badRequest("at least one ingredient is required"))
		return
	}
	report, err := usecase.AnalyzeContributions(c.Request.Context(), h.engine, h.catalog, req.Ingredients)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ExplainHealthScore describes the score of an ingredient list, or of the
// current state when the body has no ingredients
func (h *Handler) ExplainHealthScore(c *gin.Context) {
	var req calculateRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}

	var analysis *domain.NutritionAnalysis
	if len(req.Ingredients) == 0 {
		analysis = h.state.Snapshot().Snack.Analysis
	} else {
		var err error
		analysis, err = h.engine.Calculate(c.Request.Context(), req.Ingredients, 0)
		if err != nil {
			h.respondError(c, err)
			return
		}
	}

	body := gin.H{"explanation": usecase.ExplainScore(analysis)}
	if analysis != nil {
		body["health_score"] = analysis.HealthScore
		body["health_label"] = analysis.HealthLabel
	}
	c.JSON(http.StatusOK, body)
}
