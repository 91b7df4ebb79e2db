package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/developer-mesh/task-manager/internal/api"
	"github.com/developer-mesh/task-manager/internal/repository"
	"github.com/developer-mesh/task-manager/pkg/cache"
	"github.com/developer-mesh/task-manager/pkg/config"
	"github.com/developer-mesh/task-manager/pkg/database"
	"github.com/developer-mesh/task-manager/pkg/observability"
	pkgrepository "github.com/developer-mesh/task-manager/pkg/repository"
)

// Command-line flags
var (
	configFile  = flag.String("config", "", "Path to the configuration file (defaults to $TASKS_CONFIG_FILE or configs/config.yaml)")
	healthCheck = flag.Bool("health-check", false, "Run health check against the local server and exit")
)

const shutdownTimeout = 30 * time.Second

func main() {
	flag.Parse()

	// A missing .env file is normal outside local development
	_ = godotenv.Load()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *healthCheck {
		os.Exit(runHealthCheck(cfg.API.ListenAddress))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := observability.NewStandardLogger("tasks-api").
		WithLevel(observability.ParseLogLevel(cfg.Logging.Level))

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatal("Failed to initialize tracing", map[string]any{"error": err.Error()})
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("Failed to flush traces", map[string]any{"error": err.Error()})
		}
	}()

	metrics := observability.NewMetricsClient(cfg.Metrics)
	defer func() {
		_ = metrics.Close()
	}()

	db, err := database.ConnectWithRetry(ctx, cfg.Database.ToDatabaseConfig(), logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", map[string]any{"error": err.Error()})
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database", map[string]any{"error": err.Error()})
		}
	}()

	if err := db.InitializeTables(ctx); err != nil {
		logger.Fatal("Failed to initialize database schema", map[string]any{"error": err.Error()})
	}

	var repo repository.TaskRepository = pkgrepository.NewTaskRepository(db.GetDB(), pkgrepository.WithMetrics(metrics))

	cacheClient, err := cache.NewCache(ctx, cfg.Cache, logger)
	if err != nil {
		logger.Warn("Cache unavailable, continuing without task cache", map[string]any{
			"type":    cfg.Cache.Type,
			"address": cfg.Cache.Address,
			"error":   err.Error(),
		})
		cacheClient = cache.NewNoOpCache()
	} else if cfg.Cache.Enabled {
		repo = pkgrepository.NewCachedTaskRepository(repo, cacheClient, cfg.Cache.TTL, logger).WithMetrics(metrics)
		logger.Info("Task cache enabled", map[string]any{
			"type": cfg.Cache.Type,
			"ttl":  cfg.Cache.TTL.String(),
		})
	}
	defer func() {
		_ = cacheClient.Close()
	}()

	server := api.NewServer(apiConfig(cfg), repo, metrics, logger)
	server.HealthChecker().RegisterCheck("database", db.Ping)
	if cfg.Cache.Enabled {
		server.HealthChecker().RegisterOptionalCheck("cache", cacheClient.Ping)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", map[string]any{
			"address":     cfg.API.ListenAddress,
			"environment": cfg.Environment,
			"driver":      db.Driver(),
		})
		serverErr <- server.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", map[string]any{"signal": sig.String()})
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server stopped unexpectedly", map[string]any{"error": err.Error()})
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown error", map[string]any{"error": err.Error()})
	}

	logger.Info("Server stopped gracefully", nil)
}

func apiConfig(cfg *config.Config) api.Config {
	return api.Config{
		ListenAddress: cfg.API.ListenAddress,
		ReadTimeout:   cfg.API.ReadTimeout,
		WriteTimeout:  cfg.API.WriteTimeout,
		IdleTimeout:   cfg.API.IdleTimeout,
		EnableCORS:    cfg.API.EnableCORS,
		CORSOrigins:   cfg.API.CORSOrigins,
		LogRequests:   cfg.API.LogRequests,
		EnableMetrics: cfg.Metrics.Enabled,
		ExposeErrors:  !cfg.IsProduction(),
		RateLimit: api.RateLimiterConfig{
			Enabled: cfg.API.RateLimit.Enabled,
			Limit:   cfg.API.RateLimit.Limit,
			Burst:   cfg.API.RateLimit.Burst,
		},
	}
}

// runHealthCheck calls /health on the configured listen address and returns the process exit code
func runHealthCheck(listenAddress string) int {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(healthURL(listenAddress))
	if err != nil {
		log.Printf("Health check failed: %v", err)
		return 1
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		log.Printf("Health check failed with status: %d", resp.StatusCode)
		return 1
	}
	return 0
}

// healthURL maps a listen address such as ":9090" or "0.0.0.0:9090" to a local URL
func healthURL(listenAddress string) string {
	host, port, err := net.SplitHostPort(listenAddress)
	if err != nil {
		host, port = "", strings.TrimPrefix(listenAddress, ":")
	}
	if port == "" {
		port = "8080"
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/health"
}
