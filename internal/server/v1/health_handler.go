package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/botbridge/routecore/internal/breaker"
)

type HealthHandler struct {
	registry *breaker.Registry
}

func NewHealthHandler(registry *breaker.Registry) *HealthHandler {
	return &HealthHandler{registry: registry}
}

// Health reports liveness plus a coarse routing health signal.
//
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	stats := h.registry.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"tracked":       stats.Tracked,
		"open_circuits": stats.Open,
		"half_open":     stats.HalfOpen,
	})
}
