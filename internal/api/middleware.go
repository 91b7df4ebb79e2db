package api

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/developer-mesh/task-manager/pkg/observability"
)

const (
	// RequestIDHeader carries the request id in and out of the service
	RequestIDHeader = "X-Request-ID"
	// RequestIDKey is the gin context key holding the request id
	RequestIDKey = "request_id"
)

// RequestID assigns every request an id, reusing the caller's X-Request-ID when present
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

// RequestLogger middleware logs HTTP requests
func RequestLogger(logger observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := map[string]any{
			"method":     c.Request.Method,
			"path":       path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
			"client_ip":  c.ClientIP(),
			"request_id": c.GetString(RequestIDKey),
		}

		switch {
		case len(c.Errors) > 0:
			fields["errors"] = c.Errors.String()
			logger.Warn("Request completed with errors", fields)
		default:
			logger.Info("Request completed", fields)
		}
	}
}

// MetricsMiddleware records request counts and latency per route template
func MetricsMiddleware(metrics observability.MetricsClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.RecordAPIOperation(c.Request.Method, endpoint, c.Writer.Status(), time.Since(start))
	}
}

// RateLimiterConfig defines configuration for rate limiting used by the middleware
type RateLimiterConfig struct {
	Enabled    bool
	Limit      float64       // Number of requests allowed per second
	Burst      int           // Number of requests that can be made in a burst
	Expiration time.Duration // How long to keep track of rate limits for a client
}

// RateLimiterStorage keeps one limiter per client
type RateLimiterStorage struct {
	limiters map[string]*rate.Limiter
	expiry   map[string]time.Time
	config   RateLimiterConfig
	mu       sync.RWMutex
	done     chan struct{}
	once     sync.Once
}

// NewRateLimiterStorage creates a new rate limiter storage and starts its janitor
func NewRateLimiterStorage(config RateLimiterConfig) *RateLimiterStorage {
	if config.Expiration <= 0 {
		config.Expiration = time.Hour
	}
	storage := &RateLimiterStorage{
		limiters: make(map[string]*rate.Limiter),
		expiry:   make(map[string]time.Time),
		config:   config,
		done:     make(chan struct{}),
	}

	go storage.cleanupTask(5 * time.Minute)

	return storage
}

// GetLimiter returns the limiter for a given key, creating it when missing or expired
func (s *RateLimiterStorage) GetLimiter(key string) *rate.Limiter {
	s.mu.RLock()
	if limiter, exists := s.limiters[key]; exists && time.Now().Before(s.expiry[key]) {
		s.mu.RUnlock()
		return limiter
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check again in case it was created between locks
	if limiter, exists := s.limiters[key]; exists && time.Now().Before(s.expiry[key]) {
		return limiter
	}

	limiter := rate.NewLimiter(rate.Limit(s.config.Limit), s.config.Burst)
	s.limiters[key] = limiter
	s.expiry[key] = time.Now().Add(s.config.Expiration)

	return limiter
}

// Len returns the number of tracked clients
func (s *RateLimiterStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.limiters)
}

func (s *RateLimiterStorage) cleanupTask(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup(time.Now())
		case <-s.done:
			return
		}
	}
}

// cleanup removes limiters that expired before now
func (s *RateLimiterStorage) cleanup(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, exp := range s.expiry {
		if now.After(exp) {
			delete(s.limiters, key)
			delete(s.expiry, key)
		}
	}
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (s *RateLimiterStorage) Close() {
	s.once.Do(func() { close(s.done) })
}

// RateLimiter rejects clients that exceed their limit with 429
func RateLimiter(storage *RateLimiterStorage) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := fmt.Sprintf("ip:%s", c.ClientIP())

		if !storage.GetLimiter(clientID).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": "1",
			})
			return
		}

		c.Next()
	}
}

// CORSConfig defines configuration for CORS middleware
type CORSConfig struct {
	AllowedOrigins []string
}

// CORSMiddleware enables Cross-Origin Resource Sharing for the configured origins
func CORSMiddleware(corsConfig CORSConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := false
		if origin != "" {
			for _, allowedOrigin := range corsConfig.AllowedOrigins {
				if allowedOrigin == "*" || allowedOrigin == origin {
					allowed = true
					break
				}
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, X-Request-ID")
			c.Writer.Header().Set("Access-Control-Max-Age", "86400")
			c.Writer.Header().Add("Vary", "Origin")
		}

		// Always answer preflight requests so they do not hang
		if c.Request.Method == http.MethodOptions {
			if allowed {
				c.AbortWithStatus(http.StatusNoContent)
			} else {
				c.AbortWithStatus(http.StatusForbidden)
			}
			return
		}

		c.Next()
	}
}
