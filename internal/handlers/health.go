package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// jobCounter reports how many sync jobs are currently running.
type jobCounter interface {
	ActiveJobCount() int
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	jobs jobCounter
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(jobs jobCounter) *HealthHandler {
	return &HealthHandler{jobs: jobs}
}

// Health handles the health check endpoint
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "inventory-connector-service",
	})
}

// Ready handles the readiness check endpoint
func (h *HealthHandler) Ready(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ready",
		"service":     "inventory-connector-service",
		"active_jobs": h.jobs.ActiveJobCount(),
	})
}
