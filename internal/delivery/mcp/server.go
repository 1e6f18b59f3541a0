package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/snacksmith/backend/internal/domain"
	"github.com/snacksmith/backend/internal/usecase"
)

const (
	serverName    = "SnackSmith MCP Server"
	serverVersion = "1.0.0"

	defaultSearchLimit = 5
	maxSearchLimit     = 20
)

// Server exposes the ingredient catalog and the nutrition engine as MCP tools
type Server struct {
	mcpServer    *server.MCPServer
	catalog      domain.IngredientCatalog
	engine       domain.NutritionEngine
	search       *usecase.IngredientSearch
	servingSizeG float64
	log          *slog.Logger
}

// ListIngredientsResponse is the structured result of list_ingredients
type ListIngredientsResponse struct {
	Count       int                 `json:"count"`
	Ingredients []domain.Ingredient `json:"ingredients"`
}

// SearchIngredientsResponse is the structured result of search_ingredients
type SearchIngredientsResponse struct {
	Found   bool                      `json:"found"`
	Count   int                       `json:"count"`
	Matches []usecase.IngredientMatch `json:"matches"`
}

// CalculateNutritionResponse is the structured result of calculate_nutrition
type CalculateNutritionResponse struct {
	Ingredients []domain.IngredientEntry  `json:"ingredients"`
	Analysis    *domain.NutritionAnalysis `json:"analysis"`
}

// SuggestSubstitutesResponse is the structured result of suggest_substitutes
type SuggestSubstitutesResponse struct {
	Ingredient    string                 `json:"ingredient"`
	Count         int                    `json:"count"`
	Substitutions []usecase.Substitution `json:"substitutions"`
}

// NewServer creates an MCP server with the SnackSmith tools registered
func NewServer(
	catalog domain.IngredientCatalog,
	engine domain.NutritionEngine,
	search *usecase.IngredientSearch,
	servingSizeG float64,
	logger *slog.Logger,
) *Server {
	mcpServer := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithLogging(),
	)

	s := &Server{
		mcpServer:    mcpServer,
		catalog:      catalog,
		engine:       engine,
		search:       search,
		servingSizeG: servingSizeG,
		log:          logger,
	}
	s.addTools()
	return s
}

func (s *Server) addTools() {
	listTool := mcp.NewTool("list_ingredients",
		mcp.WithDescription("List the snack ingredients in the catalog with their per-100g nutrition facts."),
		mcp.WithString("category",
			mcp.Description("Only list ingredients in this category, e.g. nuts_seeds or dried_fruit"),
		),
		mcp.WithOutputSchema[ListIngredientsResponse](),
		mcp.WithIdempotentHintAnnotation(true),
	)
	s.mcpServer.AddTool(listTool, s.handleListIngredients)

	searchTool := mcp.NewTool("search_ingredients",
		mcp.WithDescription("Find catalog ingredients matching a free-text query. Tolerates misspellings."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.MinLength(1),
			mcp.Description("Ingredient name or description to search for"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default: 5, max: 20)"),
			mcp.DefaultNumber(defaultSearchLimit),
			mcp.Min(1),
			mcp.Max(maxSearchLimit),
		),
		mcp.WithOutputSchema[SearchIngredientsResponse](),
		mcp.WithIdempotentHintAnnotation(true),
	)
	s.mcpServer.AddTool(searchTool, s.handleSearchIngredients)

	calcTool := mcp.NewTool("calculate_nutrition",
		mcp.WithDescription("Calculate the combined nutrition, health score and allergens of a snack recipe."),
		mcp.WithString("ingredients",
			mcp.Required(),
			mcp.MinLength(1),
			mcp.Description(`Comma-separated name=grams pairs, e.g. "almonds=30, dates=20"`),
		),
		mcp.WithNumber("serving_size_g",
			mcp.Description("Serving size in grams; defaults to the whole snack"),
			mcp.Min(0),
		),
		mcp.WithOutputSchema[CalculateNutritionResponse](),
		mcp.WithIdempotentHintAnnotation(true),
	)
	s.mcpServer.AddTool(calcTool, s.handleCalculateNutrition)

	subTool := mcp.NewTool("suggest_substitutes",
		mcp.WithDescription("Suggest catalog ingredients that can replace one in a recipe, with ratios and preparation notes."),
		mcp.WithString("ingredient",
			mcp.Required(),
			mcp.MinLength(1),
			mcp.Description("Ingredient to replace"),
		),
		mcp.WithString("restrictions",
			mcp.Description(`Comma-separated dietary restrictions to respect, e.g. "vegan, tree_nuts"`),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of substitutes (default: 5, max: 20)"),
			mcp.DefaultNumber(defaultSearchLimit),
			mcp.Min(1),
			mcp.Max(maxSearchLimit),
		),
		mcp.WithOutputSchema[SuggestSubstitutesResponse](),
		mcp.WithIdempotentHintAnnotation(true),
	)
	s.mcpServer.AddTool(subTool, s.handleSuggestSubstitutes)
}

func (s *Server) handleListIngredients(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category := request.GetString("category", "")
	ingredients := s.catalog.List(category)

	s.log.Debug("MCP ListIngredients called", "category", category, "count", len(ingredients))

	return structured(ListIngredientsResponse{Count: len(ingredients), Ingredients: ingredients})
}

func (s *Server) handleSearchIngredients(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		s.log.Warn("handleSearchIngredients: Missing 'query' parameter", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Missing required parameter 'query': %v", err)), nil
	}

	limit := int(request.GetFloat("limit", defaultSearchLimit))
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	matches, err := s.search.Search(ctx, query, "", limit)
	if err != nil {
		s.log.Error("Ingredient search failed", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Search failed: %v", err)), nil
	}

	return structured(SearchIngredientsResponse{Found: len(matches) > 0, Count: len(matches), Matches: matches})
}

func (s *Server) handleCalculateNutrition(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("ingredients")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Missing required parameter 'ingredients': %v", err)), nil
	}

	parsed, err := usecase.ParseEntrySpecs(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(parsed) == 0 {
		return mcp.NewToolResultError("at least one ingredient is required"), nil
	}

	entries, err := usecase.CanonicalizeEntries(s.catalog, parsed)
	if err != nil {
		var unknown *domain.UnknownIngredientError
		if errors.As(err, &unknown) {
			if hint, ok := s.search.DidYouMean(unknown.Name); ok {
				return mcp.NewToolResultError(fmt.Sprintf("%v (did you mean %q?)", err, hint)), nil
			}
		}
		return mcp.NewToolResultError(err.Error()), nil
	}

	serving := request.GetFloat("serving_size_g", s.servingSizeG)
	if err := usecase.ValidateServingSize(serving); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("serving_size_g: %v", err)), nil
	}

	s.log.Debug("MCP CalculateNutrition called", "ingredients", len(entries), "serving_size_g", serving)

	analysis, err := s.engine.Calculate(ctx, entries, serving)
	if err != nil {
		s.log.Error("Nutrition calculation failed", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Calculation failed: %v", err)), nil
	}

	return structured(CalculateNutritionResponse{Ingredients: entries, Analysis: analysis})
}

// structured returns both structured content and an indented JSON text fallback
func structured(response interface{}) (*mcp.CallToolResult, error) {
	responseJSON, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultStructured(response, string(responseJSON)), nil
}

// ServeStdio serves the tools over stdin/stdout until the client disconnects
func (s *Server) ServeStdio() error {
	s.log.Info("Starting MCP server in stdio mode")
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) handleSuggestSubstitutes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("ingredient")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Missing required parameter 'ingredient': %v", err)), nil
	}

	var restrictions []string
	for _, r := range strings.Split(request.GetString("restrictions", ""), ",") {
		if r = strings.TrimSpace(r); r != "" {
			restrictions = append(restrictions, r)
		}
	}

	limit := int(request.GetFloat("limit", defaultSearchLimit))
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	subs, err := usecase.SuggestSubstitutions(s.catalog, name, restrictions, nil, limit)
	if err != nil {
		var unknown *domain.UnknownIngredientError
		if errors.As(err, &unknown) {
			if hint, ok := s.search.DidYouMean(unknown.Name); ok {
				return mcp.NewToolResultError(fmt.Sprintf("%v (did you mean %q?)", err, hint)), nil
			}
		}
		return mcp.NewToolResultError(err.Error()), nil
	}

	ing, _ := s.catalog.Lookup(name)
	s.log.Debug("MCP SuggestSubstitutes called", "ingredient", ing.Name, "count", len(subs))

	return structured(SuggestSubstitutesResponse{Ingredient: ing.Name, Count: len(subs), Substitutions: subs})
}
