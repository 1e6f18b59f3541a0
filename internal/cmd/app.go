package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/snacksmith/backend/config"
	"github.com/snacksmith/backend/internal/domain"
	"github.com/snacksmith/backend/internal/infrastructure/cache"
	"github.com/snacksmith/backend/internal/infrastructure/catalog"
	"github.com/snacksmith/backend/internal/infrastructure/gemini"
	"github.com/snacksmith/backend/internal/infrastructure/nutritionapi"
	"github.com/snacksmith/backend/internal/infrastructure/storage"
	"github.com/snacksmith/backend/internal/usecase"
)

// core is what every mode needs: reference data and a nutrition engine
type core struct {
	cfg     *config.Config
	log     *slog.Logger
	catalog *catalog.Catalog
	cache   *cache.MemoryCache
	engine  domain.NutritionEngine
	search  *usecase.IngredientSearch
}

func newCore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*core, error) {
	cat, err := loadCatalog(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Ingredient catalog loaded", "source", cfg.Catalog.Source, "ingredients", cat.Len())

	memCache := cache.NewMemoryCache(cache.Options{MaxEntries: cfg.Cache.MaxEntries}, logger)
	logger.Info("Analysis cache ready", "type", cfg.Cache.Type, "ttl", cfg.Cache.TTL, "max_entries", cfg.Cache.MaxEntries)

	var engine domain.NutritionEngine
	switch cfg.Nutrition.Engine {
	case "remote":
		client := nutritionapi.NewClient(
			cfg.Nutrition.BaseURL,
			cfg.Nutrition.Timeout,
			cfg.RateLimit.UpstreamRPS,
			cfg.RateLimit.UpstreamBurst,
			logger,
		)
		if cfg.Nutrition.Debug || cfg.Server.Environment == "development" {
			client.SetDebug(true)
			logger.Info("Nutrition API client debug mode enabled")
		}
		engine = client
		logger.Info("Using remote nutrition engine", "base_url", cfg.Nutrition.BaseURL)
	default:
		engine = usecase.NewNutritionService(memCache, cat, usecase.NutritionServiceConfig{CacheTTL: cfg.Cache.TTL}, logger)
		logger.Info("Using local nutrition engine")
	}

	search := usecase.NewIngredientSearch(cat, usecase.SearchConfig{
		MinScore:          cfg.Search.MinScore,
		EnableFuzzy:       cfg.Search.EnableFuzzy,
		FuzzyEditDistance: cfg.Search.FuzzyEditDistance,
	}, logger)

	return &core{
		cfg:     cfg,
		log:     logger,
		catalog: cat,
		cache:   memCache,
		engine:  engine,
		search:  search,
	}, nil
}

func loadCatalog(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*catalog.Catalog, error) {
	if cfg.Catalog.Source == "remote" {
		cat, err := catalog.NewFetcher(cfg.Catalog.URL, cfg.Catalog.Timeout, logger).Fetch(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch ingredient catalog: %w", err)
		}
		return cat, nil
	}
	cat, err := catalog.NewEmbedded()
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded catalog: %w", err)
	}
	return cat, nil
}

func (c *core) close() {
	c.cache.Close()
}

// app is the full HTTP application: core plus builder state, library and coach
type app struct {
	*core
	state     *usecase.SnackState
	library   *usecase.SnackLibrary
	coach     *usecase.Coach
	aiEnabled bool
	closers   []func() error
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	c, err := newCore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a := &app{core: c}

	repo, err := a.openRepository()
	if err != nil {
		c.close()
		return nil, err
	}

	var client domain.AIClient
	if cfg.AI.Enabled {
		client = gemini.NewClient(gemini.Config{
			APIKey:  cfg.AI.APIKey,
			BaseURL: cfg.AI.BaseURL,
			Model:   cfg.AI.Model,
			Timeout: cfg.AI.Timeout,
			RPS:     cfg.RateLimit.UpstreamRPS,
			Burst:   cfg.RateLimit.UpstreamBurst,
		}, logger)
		a.aiEnabled = true
		logger.Info("AI coach enabled", "model", cfg.AI.Model)
	} else {
		logger.Info("AI coach disabled", "rule_based_fallback", cfg.AI.Fallback)
	}

	a.state = usecase.NewSnackState(c.catalog, c.engine, usecase.SnackStateConfig{
		ServingSizeG: cfg.Nutrition.ServingSizeG,
		OnNotify: func(message string) {
			logger.Info("Snack updated", "notice", message)
		},
	}, logger)
	a.library = usecase.NewSnackLibrary(repo, c.catalog, c.engine, logger)
	a.coach = usecase.NewCoach(client, c.catalog, c.engine, usecase.CoachConfig{Fallback: cfg.AI.Fallback}, logger)

	return a, nil
}

func (a *app) openRepository() (domain.SnackRepository, error) {
	switch a.cfg.Storage.Type {
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(a.cfg.Storage.SQLitePath, a.log)
		if err != nil {
			return nil, fmt.Errorf("failed to open snack database: %w", err)
		}
		a.closers = append(a.closers, repo.Close)
		a.log.Info("Snack library stored in SQLite", "path", a.cfg.Storage.SQLitePath)
		return repo, nil
	default:
		a.log.Info("Snack library stored in memory")
		return storage.NewMemoryRepository(), nil
	}
}

func (a *app) close() error {
	var errs []error
	for _, closer := range a.closers {
		errs = append(errs, closer())
	}
	a.core.close()
	return errors.Join(errs...)
}
