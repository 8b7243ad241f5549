package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/avalonfin/taxengine/internal/adapters/database/memory"
	"github.com/avalonfin/taxengine/internal/adapters/database/pgsql"
	portsrepo "github.com/avalonfin/taxengine/internal/core/ports/repositories"
	"github.com/avalonfin/taxengine/internal/core/services"
	"github.com/avalonfin/taxengine/internal/ingest"
	"github.com/avalonfin/taxengine/internal/middleware"
	"github.com/avalonfin/taxengine/internal/platform/config"
	"github.com/avalonfin/taxengine/internal/report"
	"github.com/avalonfin/taxengine/pkg/database"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	inputFile := flag.String("inputFile", "", "Path to NDJSON input file")
	outputFile := flag.String("outputFile", "", "Path for NDJSON output file")
	flag.Parse()

	if *inputFile == "" || *outputFile == "" {
		logger.Error("Both -inputFile and -outputFile are required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := middleware.WithLogger(context.Background(), logger)

	// Select the ledger store: PostgreSQL when configured, in-memory otherwise.
	var ledgerRepo portsrepo.LedgerRepositoryFacade
	if cfg.DatabaseURL != "" {
		pool, err := database.NewPgxPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer database.ClosePgxPool(pool)

		if err := database.RunMigrations(cfg.DatabaseURL, "file://migrations"); err != nil {
			logger.Error("Failed to run migrations", slog.String("error", err.Error()))
			os.Exit(1)
		}
		ledgerRepo = pgsql.NewPgxLedgerRepository(pool)
		logger.Info("Using PostgreSQL ledger store")
	} else {
		ledgerRepo = memory.NewMemoryLedgerRepository()
		logger.Info("Using in-memory ledger store")
	}

	svcs := services.NewContainer(&portsrepo.RepositoryProvider{LedgerRepo: ledgerRepo}, cfg.NumWorkers)

	// Step 1: Ingest
	reader := ingest.NewReader(ledgerRepo)
	taxpayerIDs, err := reader.IngestFile(ctx, *inputFile)
	if err != nil {
		logger.Error("Ingestion failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Step 2: Compute
	if err := svcs.Pipeline.ComputeBatch(ctx, taxpayerIDs); err != nil {
		logger.Error("Batch computation aborted", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Step 3: Report
	writer := report.NewWriter(ledgerRepo)
	if err := writer.WriteFile(ctx, taxpayerIDs, *outputFile); err != nil {
		logger.Error("Report generation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Batch run complete",
		slog.Int("households", len(taxpayerIDs)),
		slog.String("output", *outputFile),
	)
}
