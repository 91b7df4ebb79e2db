package api

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// CheckTimeout bounds the time spent running all dependency checks
const CheckTimeout = 5 * time.Second

type healthCheck struct {
	fn       func(ctx context.Context) error
	optional bool
}

// HealthChecker tracks readiness and the dependency checks behind it
type HealthChecker struct {
	mu     sync.RWMutex
	ready  bool
	checks map[string]healthCheck
}

// NewHealthChecker creates a health checker that is not ready yet
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks: make(map[string]healthCheck),
	}
}

// RegisterCheck registers a named dependency check, replacing any with the same name.
// A failing check makes the service unready.
func (h *HealthChecker) RegisterCheck(name string, checkFunc func(ctx context.Context) error) {
	h.register(name, healthCheck{fn: checkFunc})
}

// RegisterOptionalCheck registers a check for a dependency the service can run
// without. Failures are reported as degraded and never change the status code.
func (h *HealthChecker) RegisterOptionalCheck(name string, checkFunc func(ctx context.Context) error) {
	h.register(name, healthCheck{fn: checkFunc, optional: true})
}

func (h *HealthChecker) register(name string, check healthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// SetReady sets the ready state
func (h *HealthChecker) SetReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = ready
}

// IsReady returns the ready state
func (h *HealthChecker) IsReady() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready
}

type checkResults struct {
	names    []string
	failures map[string]string
	degraded map[string]string
}

// runChecks executes every registered check and sorts failures by whether they are fatal
func (h *HealthChecker) runChecks(ctx context.Context) checkResults {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	checks := make(map[string]healthCheck, len(h.checks))
	for name, check := range h.checks {
		names = append(names, name)
		checks[name] = check
	}
	h.mu.RUnlock()
	sort.Strings(names)

	ctx, cancel := context.WithTimeout(ctx, CheckTimeout)
	defer cancel()

	res := checkResults{
		names:    names,
		failures: make(map[string]string),
		degraded: make(map[string]string),
	}
	for _, name := range names {
		check := checks[name]
		if err := check.fn(ctx); err != nil {
			if check.optional {
				res.degraded[name] = err.Error()
			} else {
				res.failures[name] = err.Error()
			}
		}
	}
	return res
}

// LivenessHandler returns 200 while the process is serving
func (h *HealthChecker) LivenessHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// ReadinessHandler returns 200 once the server is ready and every required dependency answers
func (h *HealthChecker) ReadinessHandler(c *gin.Context) {
	if !h.IsReady() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"error":  "Service is starting up",
		})
		return
	}

	res := h.runChecks(c.Request.Context())
	if len(res.failures) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"errors": res.failures,
		})
		return
	}

	body := gin.H{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}
	if len(res.degraded) > 0 {
		body["degraded"] = res.degraded
	}
	c.JSON(http.StatusOK, body)
}

// HealthHandler provides combined health status
func (h *HealthChecker) HealthHandler(c *gin.Context) {
	res := h.runChecks(c.Request.Context())

	checks := make(map[string]string, len(res.names))
	for _, name := range res.names {
		if msg, failed := res.failures[name]; failed {
			checks[name] = "unhealthy: " + msg
		} else if msg, failed := res.degraded[name]; failed {
			checks[name] = "degraded: " + msg
		} else {
			checks[name] = "healthy"
		}
	}

	ready := h.IsReady()
	status, code := "healthy", http.StatusOK
	switch {
	case len(res.failures) > 0 || !ready:
		status, code = "unhealthy", http.StatusServiceUnavailable
	case len(res.degraded) > 0:
		status = "degraded"
	}

	c.JSON(code, gin.H{
		"status": status,
		"ready":  ready,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"checks": checks,
	})
}
