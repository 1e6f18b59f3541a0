package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/snacksmith/backend/internal/domain"
	"github.com/snacksmith/backend/internal/usecase"
)

const version = "1.0.0"

// Dependencies are the usecases the HTTP layer exposes
type Dependencies struct {
	Catalog      domain.IngredientCatalog
	Engine       domain.NutritionEngine
	Search       *usecase.IngredientSearch
	State        *usecase.SnackState
	Library      *usecase.SnackLibrary
	Coach        *usecase.Coach
	ServingSizeG float64
	AIEnabled    bool
	// Stats, when set, is reported under "cache" by the health check
	Stats func() interface{}
	Log   *slog.Logger
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	catalog      domain.IngredientCatalog
	engine       domain.NutritionEngine
	search       *usecase.IngredientSearch
	state        *usecase.SnackState
	library      *usecase.SnackLibrary
	coach        *usecase.Coach
	servingSizeG float64
	aiEnabled    bool
	stats        func() interface{}
	log          *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(deps Dependencies) *Handler {
	logger := deps.Log
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		catalog:      deps.Catalog,
		engine:       deps.Engine,
		search:       deps.Search,
		state:        deps.State,
		library:      deps.Library,
		coach:        deps.Coach,
		servingSizeG: deps.ServingSizeG,
		aiEnabled:    deps.AIEnabled,
		stats:        deps.Stats,
		log:          logger,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	body := gin.H{
		"status":      "healthy",
		"service":     "snacksmith-backend",
		"version":     version,
		"ingredients": len(h.catalog.List("")),
		"ai_enabled":  h.aiEnabled,
	}
	if h.stats != nil {
		body["cache"] = h.stats()
	}
	c.JSON(http.StatusOK, body)
}

// errorResponse is the body of every non-2xx reply
type errorResponse struct {
	Error      string   `json:"error"`
	DidYouMean string   `json:"did_you_mean,omitempty"`
	Problems   []string `json:"problems,omitempty"`
}

// respondError maps domain errors onto status codes
func (h *Handler) respondError(c *gin.Context, err error) {
	resp := errorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	var verr *usecase.ValidationError
	var unknown *domain.UnknownIngredientError

	switch {
	case errors.As(err, &verr):
		status = http.StatusBadGateway
		resp.Problems = verr.Problems
	case errors.As(err, &unknown):
		status = http.StatusNotFound
		if h.search != nil {
			if name, ok := h.search.DidYouMean(unknown.Name); ok {
				resp.DidYouMean = name
			}
		}
	case errors.Is(err, domain.ErrSnackNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrUnknownBase):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, domain.ErrAIUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrAggregationUnavailable),
		errors.Is(err, domain.ErrAIFailure):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		h.log.Error("Request failed", "path", c.FullPath(), "status", status, "error", err)
	}
	c.AbortWithStatusJSON(status, resp)
}

func badRequest(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// bindJSON decodes the request body, reporting malformed input as a 400
func (h *Handler) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.respondError(c, badRequest("invalid request body: %v", err))
		return false
	}
	return true
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, badRequest("%s must be a non-negative integer", key)
	}
	return n, nil
}

func queryFloat(c *gin.Context, key string) (float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, badRequest("%s must be a number", key)
	}
	return f, nil
}

// queryList collects comma-separated and repeated values of key, dropping blanks
func queryList(c *gin.Context, key string) []string {
	var out []string
	for _, raw := range c.QueryArray(key) {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func queryBool(c *gin.Context, key string) bool {
	b, _ := strconv.ParseBool(c.Query(key))
	return b
}
