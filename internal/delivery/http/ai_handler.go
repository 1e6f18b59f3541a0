package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/snacksmith/backend/internal/domain"
	"github.com/snacksmith/backend/internal/usecase"
)

type chatRequest struct {
	Message string `json:"message"`
	// IncludeSnack sends the snack being built along with the question
	IncludeSnack bool `json:"include_snack"`
}

func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if !h.bindJSON(c, &req) {
		return
	}

	var snack *domain.Snack
	if req.IncludeSnack {
		current := h.state.Snapshot().Snack
		snack = &current
	}

	reply, err := h.coach.Chat(c.Request.Context(), req.Message, snack)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// Recommend proposes a new snack. With ?apply=true the validated suggestion
// replaces the snack being built.
func (h *Handler) Recommend(c *gin.Context) {
	var req usecase.RecommendRequest
	if !h.bindJSON(c, &req) {
		return
	}

	rec, err := h.coach.Recommend(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	body := gin.H{"recommendation": rec}
	if queryBool(c, "apply") {
		snapshot, err := h.apply(c.Request.Context(), rec.Suggestion)
		if err != nil {
			h.respondError(c, err)
			return
		}
		body["state"] = snapshot
	}
	c.JSON(http.StatusOK, body)
}

type improveRequest struct {
	Goals []usecase.Goal `json:"goals"`
}

// Improve suggests a revision of the snack being built
func (h *Handler) Improve(c *gin.Context) {
	var req improveRequest
	if !h.bindJSON(c, &req) {
		return
	}

	current := h.state.Snapshot().Snack
	if len(current.Ingredients) == 0 {
		h.respondError(c, badRequest("add ingredients before asking for improvements"))
		return
	}

	improvement, err := h.coach.Improve(c.Request.Context(), current, req.Goals)
	if err != nil {
		h.respondError(c, err)
		return
	}

	body := gin.H{"improvement": improvement}
	if queryBool(c, "apply") && improvement.Suggestion != nil {
		snapshot, err := h.apply(c.Request.Context(), *improvement.Suggestion)
		if err != nil {
			h.respondError(c, err)
			return
		}
		body["state"] = snapshot
	}
	c.JSON(http.StatusOK, body)
}

// Substitute suggests replacements for one ingredient. Without a recipe in
// the body the snack being built is used as context.
func (h *Handler) Substitute(c *gin.Context) {
	var req usecase.SubstituteRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if req.Ingredient == "" {
		h.respondError(c, badRequest("ingredient is required"))
		return
	}
	if len(req.Recipe) == 0 {
		req.Recipe = h.state.Entries()
	}

	advice, err := h.coach.Substitute(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, advice)
}

func (h *Handler) apply(ctx context.Context, s usecase.Suggestion) (usecase.SnackSnapshot, error) {
	if err := h.state.ApplySuggestion(ctx, s); err != nil {
		return usecase.SnackSnapshot{}, err
	}
	waitCtx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()
	if err := h.state.WaitIdle(waitCtx); err != nil {
		h.log.Warn("Recompute still running", "error", err)
	}
	return h.state.Snapshot(), nil
}
