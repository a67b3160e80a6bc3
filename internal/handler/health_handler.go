package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger checks database connectivity. Implemented by the repository.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker reports broker connectivity. Implemented by the events
// publisher.
type HealthChecker interface {
	IsHealthy() bool
}

// HealthHandler handles health check endpoints. The database and broker
// checks are skipped when the respective dependency is not configured.
type HealthHandler struct {
	repo      Pinger
	publisher HealthChecker
}

// NewHealthHandler creates a new HealthHandler instance.
func NewHealthHandler(repo Pinger, publisher HealthChecker) *HealthHandler {
	return &HealthHandler{
		repo:      repo,
		publisher: publisher,
	}
}

// LivenessProbe checks if the application is running.
func (h *HealthHandler) LivenessProbe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "UP",
		"time":   time.Now(),
	})
}

// ReadinessProbe checks if the application is ready to serve traffic.
func (h *HealthHandler) ReadinessProbe(c *gin.Context) {
	ctx := c.Request.Context()

	// Check database connectivity
	if h.repo != nil {
		if err := h.repo.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "DOWN",
				"database": "unhealthy",
				"error":    err.Error(),
				"time":     time.Now(),
			})
			return
		}
	}

	// Check RabbitMQ connectivity
	if h.publisher != nil && !h.publisher.IsHealthy() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "DOWN",
			"rabbitmq": "unhealthy",
			"time":     time.Now(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "UP",
		"time":   time.Now(),
	})
}
