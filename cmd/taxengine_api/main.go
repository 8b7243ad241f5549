package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/avalonfin/taxengine/internal/adapters/database/pgsql"
	portsrepo "github.com/avalonfin/taxengine/internal/core/ports/repositories"
	"github.com/avalonfin/taxengine/internal/core/services"
	"github.com/avalonfin/taxengine/internal/handlers"
	"github.com/avalonfin/taxengine/internal/middleware"
	"github.com/avalonfin/taxengine/internal/platform/config"
	"github.com/avalonfin/taxengine/pkg/database"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		logger.Error("PGSQL_URL is required for the API server")
		os.Exit(1)
	}

	// Initialize database connection pool
	pool, err := database.NewPgxPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.ClosePgxPool(pool)
	logger.Info("Database connection pool established.")

	// Run database migrations
	logger.Info("Running database migrations...")
	if err := database.RunMigrations(cfg.DatabaseURL, "file://migrations"); err != nil {
		logger.Error("Failed to apply migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Database migrations applied.")

	ledgerRepo := pgsql.NewPgxLedgerRepository(pool)
	svcs := services.NewContainer(&portsrepo.RepositoryProvider{LedgerRepo: ledgerRepo}, cfg.NumWorkers)

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware (logging, recovery, CORS)
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	r.Use(cors.Default())

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handlers.RegisterRoutes(r, svcs)

	logger.Info("Starting API server", slog.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("Server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
