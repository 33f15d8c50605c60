// internal/handler/health_handler.go
package handler

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a plain function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler reports the state of each configured dependency.
type HealthHandler struct {
	service string
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.RWMutex
	checks map[string]Pinger
	stats  func() map[string]interface{}
}

func NewHealthHandler(service string, timeout time.Duration, logger *zap.Logger) *HealthHandler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HealthHandler{
		service: service,
		timeout: timeout,
		logger:  logger,
		checks:  make(map[string]Pinger),
	}
}

func (h *HealthHandler) AddCheck(name string, p Pinger) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = p
}

// SetStats attaches extra details (cache sizes) to the /health body.
func (h *HealthHandler) SetStats(stats func() map[string]interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stats = stats
}

// Health always answers 200 so the process is never restarted for a
// dependency outage; the body says which dependency is down.
func (h *HealthHandler) Health(c *gin.Context) {
	statuses, healthy := h.run(c.Request.Context())

	status := "healthy"
	if !healthy {
		status = "degraded"
	}
	body := gin.H{
		"status":    status,
		"service":   h.service,
		"checks":    statuses,
		"timestamp": time.Now().UTC(),
	}

	h.mu.RLock()
	stats := h.stats
	h.mu.RUnlock()
	if stats != nil {
		body["cache"] = stats()
	}

	c.JSON(http.StatusOK, body)
}

// Ready fails with 503 while any dependency is unreachable.
func (h *HealthHandler) Ready(c *gin.Context) {
	statuses, healthy := h.run(c.Request.Context())
	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "checks": statuses})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "checks": statuses})
}

func (h *HealthHandler) run(ctx context.Context) (map[string]string, bool) {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	h.mu.RUnlock()
	sort.Strings(names)

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	statuses := make(map[string]string, len(names))
	healthy := true
	for _, name := range names {
		h.mu.RLock()
		p := h.checks[name]
		h.mu.RUnlock()

		if err := p.Ping(ctx); err != nil {
			h.logger.Warn("dependency check failed", zap.String("dependency", name), zap.Error(err))
			statuses[name] = "unhealthy: " + err.Error()
			healthy = false
			continue
		}
		statuses[name] = "healthy"
	}
	return statuses, healthy
}
