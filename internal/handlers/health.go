package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/impactbridge/marketplace/internal/metrics"
	"github.com/impactbridge/marketplace/internal/services"
	"github.com/impactbridge/marketplace/internal/storage"
)

// HealthHandler reports subsystem status.
type HealthHandler struct {
	store storage.Storage
	queue services.TaskQueue
	hub   *services.SSEHub
}

func NewHealthHandler(store storage.Storage, queue services.TaskQueue, hub *services.SSEHub) *HealthHandler {
	return &HealthHandler{store: store, queue: queue, hub: hub}
}

// CheckHealth returns the health status of all subsystems.
// GET /health
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"
	status := http.StatusOK

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	dbStatus := "ok"
	if err := h.store.Ping(ctx); err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	queueMode := "sync"
	if h.queue != nil && h.queue.IsAsync() {
		queueMode = "async (Redis)"
	}

	sseClients := 0
	if h.hub != nil {
		sseClients = h.hub.ClientCount()
	}

	c.JSON(status, gin.H{
		"status":  overall,
		"service": "impactbridge-marketplace",
		"components": gin.H{
			"database":    dbStatus,
			"queue_mode":  queueMode,
			"sse_clients": sseClients,
		},
	})
}

// Metrics exposes Prometheus metrics
// GET /metrics
func Metrics() gin.HandlerFunc {
	return gin.WrapH(metrics.Handler())
}
