package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/BerylCAtieno/bill-extractor-api/internal/analyzer"
	"github.com/BerylCAtieno/bill-extractor-api/internal/config"
	"github.com/BerylCAtieno/bill-extractor-api/internal/db"
	"github.com/BerylCAtieno/bill-extractor-api/internal/extractor"
	"github.com/BerylCAtieno/bill-extractor-api/internal/fetcher"
	"github.com/BerylCAtieno/bill-extractor-api/internal/llm"
	"github.com/BerylCAtieno/bill-extractor-api/internal/metrics"
	"github.com/BerylCAtieno/bill-extractor-api/internal/middleware"
	"github.com/BerylCAtieno/bill-extractor-api/internal/repository"
	"github.com/BerylCAtieno/bill-extractor-api/internal/router"
	"github.com/BerylCAtieno/bill-extractor-api/internal/services"
	"github.com/BerylCAtieno/bill-extractor-api/internal/storage"
	"github.com/BerylCAtieno/bill-extractor-api/internal/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger := utils.NewLogger(cfg.LogLevel)

	// Run migrations
	if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	// Initialize database
	database, err := db.NewSQLiteDB(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer database.Close()

	ctx := context.Background()

	provider, closeProvider, err := newProvider(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize LLM provider", "provider", cfg.LLMProvider, "error", err)
	}
	defer closeProvider()

	// LLM_REQUESTS_PER_SECOND <= 0 disables the limit
	limit := rate.Inf
	if cfg.LLMRatePerSecond > 0 {
		limit = rate.Limit(cfg.LLMRatePerSecond)
	}
	provider = llm.WithRetry(provider, llm.RetryPolicy{
		MaxRetries: cfg.LLMMaxRetries,
		BaseDelay:  cfg.LLMRetryDelay,
		MaxDelay:   30 * time.Second,
	}, rate.NewLimiter(limit, 1), logger)

	downloads, err := storage.NewLocalStorage(filepath.Join(cfg.StorageDir, "bill-extractor"))
	if err != nil {
		logger.Fatal("Failed to initialize local storage", "error", err)
	}

	var archive storage.Storage
	if cfg.S3Enabled {
		archive, err = storage.NewS3Storage(ctx, cfg)
		if err != nil {
			logger.Fatal("Failed to initialize S3 storage", "error", err)
		}
	}

	m := metrics.New()

	extractionService := services.NewExtractionService(
		repository.NewRepository(database),
		fetcher.New(downloads, cfg.DownloadTimeout, cfg.MaxDownloadBytes, logger),
		extractor.New(provider, logger),
		analyzer.NewBillAnalyzer(provider, cfg.MaxPromptChars, logger),
		archive,
		m,
		logger,
	)

	// Setup HTTP router
	handler := router.NewRouter(extractionService, m, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      middleware.Timeout(handler, cfg.RequestTimeout),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "llm_provider", cfg.LLMProvider, "s3_archive", cfg.S3Enabled)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		return
	}

	logger.Info("Server exited")
}

func newProvider(ctx context.Context, cfg *config.Config, logger *utils.Logger) (llm.Provider, func(), error) {
	switch cfg.LLMProvider {
	case config.ProviderVertex:
		p, err := llm.NewVertexProvider(ctx, llm.VertexConfig{
			ProjectID:   cfg.VertexProject,
			Region:      cfg.VertexRegion,
			TextModel:   cfg.TextModel,
			VisionModel: cfg.VisionModel,
			Timeout:     cfg.LLMTimeout,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return p, func() {
			if err := p.Close(); err != nil {
				logger.Warn("Failed to close Vertex client", "error", err)
			}
		}, nil
	default:
		return llm.NewOpenAIProvider(llm.OpenAIConfig{
			APIKey:      cfg.OpenRouterAPIKey,
			BaseURL:     cfg.LLMBaseURL,
			TextModel:   cfg.TextModel,
			VisionModel: cfg.VisionModel,
			Timeout:     cfg.LLMTimeout,
		}, logger), func() {}, nil
	}
}
