package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/snacksmith/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger *slog.Logger) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))
	{
		ingredients := v1.Group("/ingredients")
		{
			ingredients.GET("", handler.ListIngredients)
			ingredients.GET("/categories", handler.ListCategories)
			ingredients.GET("/:name", handler.GetIngredient)
			ingredients.GET("/:name/similar", handler.SimilarIngredients)
			ingredients.GET("/:name/substitutes", handler.IngredientSubstitutes)
		}

		v1.GET("/bases", handler.ListBases)
		v1.GET("/goals", handler.ListGoals)

		nutrition := v1.Group("/nutrition")
		{
			nutrition.POST("/calculate", handler.CalculateNutrition)
			nutrition.POST("/compare", handler.CompareNutrition)
			nutrition.POST("/contributions", handler.IngredientContributions)
			nutrition.POST("/explain", handler.ExplainHealthScore)
		}

		state := v1.Group("/state")
		{
			state.GET("", handler.GetState)
			state.PUT("/base", handler.SetBase)
			state.PUT("/name", handler.RenameState)
			state.POST("/ingredients", handler.AddIngredient)
			state.PUT("/ingredients/:name", handler.UpdateAmount)
			state.DELETE("/ingredients/:name", handler.RemoveIngredient)
			state.POST("/clear", handler.ClearState)
			state.POST("/recompute", handler.RecomputeState)
		}

		snacks := v1.Group("/snacks")
		{
			snacks.POST("", handler.SaveSnack)
			snacks.GET("", handler.ListSnacks)
			snacks.GET("/:id", handler.GetSnack)
			snacks.DELETE("/:id", handler.DeleteSnack)
			snacks.POST("/:id/rate", handler.RateSnack)
			snacks.POST("/:id/load", handler.LoadSnack)
			snacks.POST("/:id/duplicate", handler.DuplicateSnack)
		}

		ai := v1.Group("/ai")
		{
			ai.POST("/chat", handler.Chat)
			ai.POST("/recommend", handler.Recommend)
			ai.POST("/improve", handler.Improve)
			ai.POST("/substitute", handler.Substitute)
		}
	}

	return router
}
