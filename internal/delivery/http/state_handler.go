package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/snacksmith/backend/internal/domain"
)

// settleTimeout bounds how long a mutation waits for its recompute
const settleTimeout = 15 * time.Second

// respondState replies with the state snapshot. Unless ?async=true, it first
// waits for the recompute started by the mutation to settle.
func (h *Handler) respondState(c *gin.Context, status int) {
	if !queryBool(c, "async") {
		ctx, cancel := context.WithTimeout(c.Request.Context(), settleTimeout)
		defer cancel()
		if err := h.state.WaitIdle(ctx); err != nil {
			h.log.Warn("Recompute still running", "error", err)
		}
	}
	c.JSON(status, h.state.Snapshot())
}

func (h *Handler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, h.state.Snapshot())
}

type setBaseRequest struct {
	Base domain.BaseType `json:"base" binding:"required"`
}

// SetBase switches the base, loading its default ingredients when it has any
func (h *Handler) SetBase(c *gin.Context) {
	var req setBaseRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.state.SetBase(c.Request.Context(), req.Base); err != nil {
		h.respondError(c, err)
		return
	}
	h.respondState(c, http.StatusOK)
}

type ingredientRequest struct {
	Name    string  `json:"name"`
	AmountG float64 `json:"amount_g"`
}

// AddIngredient adds grams of an ingredient, merging with an existing entry
func (h *Handler) AddIngredient(c *gin.Context) {
	var req ingredientRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.state.AddIngredient(c.Request.Context(), req.Name, req.AmountG); err != nil {
		h.respondError(c, err)
		return
	}
	h.respondState(c, http.StatusOK)
}

type amountRequest struct {
	AmountG *float64 `json:"amount_g" binding:"required"`
}

// UpdateAmount sets an entry's grams. Zero or less removes it.
func (h *Handler) UpdateAmount(c *gin.Context) {
	var req amountRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.state.UpdateAmount(c.Request.Context(), c.Param("name"), *req.AmountG); err != nil {
		h.respondError(c, err)
		return
	}
	h.respondState(c, http.StatusOK)
}

// RemoveIngredient drops an entry. Removing an absent entry is not an error.
func (h *Handler) RemoveIngredient(c *gin.Context) {
	h.state.RemoveIngredient(c.Request.Context(), c.Param("name"))
	h.respondState(c, http.StatusOK)
}

func (h *Handler) ClearState(c *gin.Context) {
	h.state.Clear()
	c.JSON(http.StatusOK, h.state.Snapshot())
}

// RecomputeState recalculates synchronously and reports engine failures
func (h *Handler) RecomputeState(c *gin.Context) {
	if err := h.state.Recompute(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.state.Snapshot())
}

type renameRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) RenameState(c *gin.Context) {
	var req renameRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.state.Rename(req.Name, req.Description); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.state.Snapshot())
}
