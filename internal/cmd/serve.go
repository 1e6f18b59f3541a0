package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/snacksmith/backend/config"
	httpDelivery "github.com/snacksmith/backend/internal/delivery/http"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := config.NewLogger(cfg.Log.Level, cfg.Log.Format)

	logger.Info("Starting SnackSmith backend",
		"version", version,
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Type,
		"engine", cfg.Nutrition.Engine)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize", "error", err)
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			logger.Error("Failed to release resources", "error", err)
		}
	}()

	handler := httpDelivery.NewHandler(httpDelivery.Dependencies{
		Catalog:      a.catalog,
		Engine:       a.engine,
		Search:       a.search,
		State:        a.state,
		Library:      a.library,
		Coach:        a.coach,
		ServingSizeG: cfg.Nutrition.ServingSizeG,
		AIEnabled:    a.aiEnabled,
		Stats:        func() interface{} { return a.cache.Stats() },
		Log:          logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           httpDelivery.SetupRouter(cfg, handler, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serverErr:
		logger.Error("Server failed", "error", err)
		return err
	case sig := <-quit:
		logger.Info("Shutting down server", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		return err
	}

	logger.Info("Server exited")
	return nil
}
