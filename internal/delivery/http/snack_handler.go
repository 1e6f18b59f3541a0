package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/snacksmith/backend/internal/domain"
)

type saveSnackRequest struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Base        domain.BaseType          `json:"base"`
	Ingredients []domain.IngredientEntry `json:"ingredients"`
	Tags        []string                 `json:"tags"`
}

// SaveSnack stores the posted snack. Without ingredients in the body, the
// snack being built is saved, with name and description overridable.
func (h *Handler) SaveSnack(c *gin.Context) {
	var req saveSnackRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}

	snack := domain.Snack{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Base:        req.Base,
		Ingredients: req.Ingredients,
		Tags:        req.Tags,
	}
	if len(req.Ingredients) == 0 {
		current := h.state.Snapshot().Snack
		snack.Base = current.Base
		snack.Ingredients = current.Ingredients
		if snack.Name == "" {
			snack.Name = current.Name
		}
		if snack.Description == "" {
			snack.Description = current.Description
		}
	}

	saved, err := h.library.Save(c.Request.Context(), snack)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

// ListSnacks lists saved snacks with optional q, ingredient, tag,
// min_health_score and limit filters
func (h *Handler) ListSnacks(c *gin.Context) {
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		h.respondError(c, err)
		return
	}
	minScore, err := queryFloat(c, "min_health_score")
	if err != nil {
		h.respondError(c, err)
		return
	}

	snacks, err := h.library.List(c.Request.Context(), domain.SnackFilter{
		Query:          c.Query("q"),
		Ingredient:     c.Query("ingredient"),
		Tag:            c.Query("tag"),
		MinHealthScore: minScore,
		Limit:          limit,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	if snacks == nil {
		snacks = []*domain.Snack{}
	}
	c.JSON(http.StatusOK, gin.H{"snacks": snacks, "count": len(snacks)})
}

func (h *Handler) GetSnack(c *gin.Context) {
	snack, err := h.library.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snack)
}

func (h *Handler) DeleteSnack(c *gin.Context) {
	if err := h.library.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type rateRequest struct {
	Rating int `json:"rating"`
}

func (h *Handler) RateSnack(c *gin.Context) {
	var req rateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	snack, err := h.library.Rate(c.Request.Context(), c.Param("id"), req.Rating)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snack)
}

// LoadSnack replaces the snack being built with a saved one
func (h *Handler) LoadSnack(c *gin.Context) {
	snack, err := h.library.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.state.LoadSnack(c.Request.Context(), *snack); err != nil {
		h.respondError(c, err)
		return
	}
	h.respondState(c, http.StatusOK)
}

// DuplicateSnack saves a copy of a snack; ?name_suffix= overrides " (Copy)"
func (h *Handler) DuplicateSnack(c *gin.Context) {
	snack, err := h.library.Duplicate(c.Request.Context(), c.Param("id"), c.Query("name_suffix"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, snack)
}
