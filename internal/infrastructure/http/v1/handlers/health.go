package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"bloomledger/internal/infrastructure/storage"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// Checker reports whether a dependency answers.
type Checker func(ctx context.Context) error

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	backend *storage.Backend
	checks  map[string]Checker
}

// NewHealthHandler creates a health handler. extra checks (e.g. redis) are
// reported next to the store.
func NewHealthHandler(backend *storage.Backend, extra map[string]Checker) *HealthHandler {
	checks := map[string]Checker{"storage": backend.Ping}
	for name, fn := range extra {
		checks[name] = fn
	}
	return &HealthHandler{backend: backend, checks: checks}
}

// Live handles GET /health/live.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready handles GET /health/ready.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx := c.Request.Context()
	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = "unhealthy: " + err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "healthy"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "error"
	}
	c.JSON(status, gin.H{"status": overall, "checks": results})
}

// Info handles GET /health/info.
func (h *HealthHandler) Info(c *gin.Context) {
	info := gin.H{
		"app":     "bloomledger",
		"version": Version,
		"storage": h.backend.Driver,
	}
	if h.backend.Pool != nil {
		s := h.backend.Pool.Stats()
		info["database"] = gin.H{
			"total_conns":    s.TotalConns,
			"acquired_conns": s.AcquiredConns,
			"idle_conns":     s.IdleConns,
			"max_conns":      s.MaxConns,
		}
	}
	c.JSON(http.StatusOK, info)
}
