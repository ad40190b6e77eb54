package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"gwi.com/shop-assistant/internal/api"
	"gwi.com/shop-assistant/internal/cache"
	"gwi.com/shop-assistant/internal/config"
	"gwi.com/shop-assistant/internal/core"
	"gwi.com/shop-assistant/internal/logger"
	"gwi.com/shop-assistant/internal/metrics"
	"gwi.com/shop-assistant/internal/store"
)

func main() {
	// Load configuration
	config.LoadConfig()
	cfg := config.AppConfig

	// Command line flag for loading the sample catalog
	seedFlag := flag.Bool("seed", false, "Load the sample catalog into an empty store and exit")
	flag.Parse()

	// Setup logging
	appLog, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLog.Sync()
	appLog.Debug("Service starting", "env", cfg.Env, "log_level", cfg.LogLevel)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(cfg.MetricsPrefix, registry)

	// Initialize database store
	dbStore, err := store.Open(store.Options{
		Driver:       cfg.DatabaseDriver,
		DSN:          cfg.DatabaseURL,
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
		Metrics:      m,
	}, appLog)
	if err != nil {
		appLog.Fatal("Failed to initialize database", "error", err)
	}
	defer dbStore.Close()

	// Handle seeding if the flag is set
	if *seedFlag {
		seeded, err := dbStore.Seed(context.Background())
		if err != nil {
			appLog.Fatal("Seeding failed", "error", err)
		}
		appLog.Info("Seeding complete, exiting", "inserted", seeded)
		return
	}

	var treeCache cache.Cache
	if cfg.RedisAddr != "" {
		treeCache, err = cache.NewRedis(cfg.RedisAddr, cfg.MetricsPrefix, appLog)
		if err != nil {
			appLog.Warn("Redis unavailable, category tree will not be cached", "addr", cfg.RedisAddr, "error", err)
			treeCache = nil
		} else {
			defer treeCache.Close()
		}
	}

	// The composer checks for a nil interface, so an absent service must stay untyped nil.
	var generator core.Generator
	if cfg.GeminiAPIKey != "" {
		llmService, err := core.NewLLMService(context.Background(), cfg.GeminiAPIKey, cfg.ChatModel, appLog)
		if err != nil {
			appLog.Warn("Generation backend unavailable, using fallback replies", "error", err)
		} else {
			defer llmService.Close()
			generator = llmService
		}
	}

	catalogService := core.NewCatalogService(dbStore, treeCache, cfg.CategoryTreeTTL, appLog, m)
	searchService := core.NewSearchService(dbStore, appLog, m)
	composer := core.NewComposer(generator, cfg.GenerationTimeout, appLog, m)
	chatService := core.NewChatService(dbStore, composer, appLog, m)

	if cfg.SeedOnStart {
		seeded, err := dbStore.Seed(context.Background())
		if err != nil {
			appLog.Fatal("Seeding failed", "error", err)
		}
		if seeded {
			catalogService.InvalidateTree(context.Background())
		}
	}

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(api.Options{
		Catalog:           catalogService,
		Search:            searchService,
		Chat:              chatService,
		DB:                dbStore,
		GenerationEnabled: composer.GenerationEnabled(),
		SanitizeErrors:    cfg.IsProduction(),
		Logger:            appLog,
	})
	router := api.NewRouter(apiHandler, m, registry)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.GenerationTimeout + 45*time.Second, // Chat replies may wait on generation
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		appLog.Info("Starting server, press Ctrl+C to quit", "addr", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("Could not listen", "addr", serverAddr, "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLog.Error("Server forced to shutdown", "error", err)
		return
	}

	appLog.Info("Server exiting gracefully")
}
