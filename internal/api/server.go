package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/developer-mesh/task-manager/internal/repository"
	"github.com/developer-mesh/task-manager/pkg/observability"
)

// Config holds configuration for the API server
type Config struct {
	ListenAddress string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	EnableCORS    bool
	CORSOrigins   []string
	LogRequests   bool
	EnableMetrics bool
	// ExposeErrors includes panic details in 500 responses; off in production
	ExposeErrors bool
	RateLimit    RateLimiterConfig
}

// DefaultConfig returns the default server configuration
func DefaultConfig() Config {
	return Config{
		ListenAddress: ":8080",
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  30 * time.Second,
		IdleTimeout:   90 * time.Second,
		LogRequests:   true,
		EnableMetrics: true,
	}
}

// Server represents the API server
type Server struct {
	router        *gin.Engine
	server        *http.Server
	config        Config
	logger        observability.Logger
	metrics       observability.MetricsClient
	healthChecker *HealthChecker

	hooksMu       sync.Mutex
	shutdownHooks []func()
}

// NewServer creates a new API server serving the task resource from repo
func NewServer(cfg Config, repo repository.TaskRepository, metrics observability.MetricsClient, logger observability.Logger) *Server {
	if repo == nil {
		panic("api.NewServer: nil task repository")
	}
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	if metrics == nil {
		metrics = observability.NewNoOpMetricsClient()
	}

	router := gin.New()

	s := &Server{
		router:        router,
		config:        cfg,
		logger:        logger,
		metrics:       metrics,
		healthChecker: NewHealthChecker(),
		server: &http.Server{
			Addr:         cfg.ListenAddress,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}

	router.Use(RequestID())
	if cfg.LogRequests {
		router.Use(RequestLogger(logger.WithPrefix("http")))
	}
	router.Use(CustomRecoveryMiddleware(logger, cfg.ExposeErrors))
	router.Use(TracingMiddleware())
	router.Use(MetricsMiddleware(metrics))

	if cfg.RateLimit.Enabled {
		storage := NewRateLimiterStorage(cfg.RateLimit)
		s.RegisterShutdownHook(storage.Close)
		router.Use(RateLimiter(storage))
	}

	if cfg.EnableCORS {
		router.Use(CORSMiddleware(CORSConfig{AllowedOrigins: cfg.CORSOrigins}))
	}

	s.setupRoutes(repo)
	return s
}

func (s *Server) setupRoutes(repo repository.TaskRepository) {
	s.router.GET("/health", s.healthChecker.HealthHandler)
	s.router.GET("/healthz", s.healthChecker.LivenessHandler)
	s.router.GET("/readyz", s.healthChecker.ReadinessHandler)

	if s.config.EnableMetrics {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	api := s.router.Group("/api")
	NewTaskAPI(repo, s.logger).RegisterRoutes(api)
}

// Handler returns the HTTP handler serving all routes
func (s *Server) Handler() http.Handler {
	return s.router
}

// HealthChecker exposes the readiness state and dependency checks
func (s *Server) HealthChecker() *HealthChecker {
	return s.healthChecker
}

// RegisterShutdownHook registers a function to be called during server shutdown
func (s *Server) RegisterShutdownHook(hook func()) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.shutdownHooks = append(s.shutdownHooks, hook)
}

// Start marks the server ready and serves until Shutdown.
// It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.healthChecker.SetReady(true)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.healthChecker.SetReady(false)
		return err
	}
	return nil
}

// Serve is Start on an existing listener
func (s *Server) Serve(listener net.Listener) error {
	s.healthChecker.SetReady(true)
	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.healthChecker.SetReady(false)
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the API server and runs the shutdown hooks
func (s *Server) Shutdown(ctx context.Context) error {
	s.healthChecker.SetReady(false)

	err := s.server.Shutdown(ctx)

	s.hooksMu.Lock()
	hooks := s.shutdownHooks
	s.shutdownHooks = nil
	s.hooksMu.Unlock()
	for _, hook := range hooks {
		hook()
	}

	return err
}
