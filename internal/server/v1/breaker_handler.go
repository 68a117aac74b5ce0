package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/botbridge/routecore/internal/breaker"
)

type BreakerHandler struct {
	registry *breaker.Registry
}

func NewBreakerHandler(registry *breaker.Registry) *BreakerHandler {
	return &BreakerHandler{registry: registry}
}

// List reports the state of every tracked endpoint circuit.
//
// GET /v1/breakers
func (h *BreakerHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.Stats())
}

// Open lists only the endpoints currently refusing traffic.
//
// GET /v1/breakers/open
func (h *BreakerHandler) Open(c *gin.Context) {
	open := h.registry.OpenEndpoints()
	if open == nil {
		open = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"open": open})
}

// Reset clears one endpoint's record, returning it to implicit closed.
//
// POST /v1/breakers/:endpoint/reset
func (h *BreakerHandler) Reset(c *gin.Context) {
	endpoint := c.Param("endpoint")
	h.registry.Reset(endpoint)
	c.JSON(http.StatusOK, gin.H{"reset": endpoint})
}

// ResetAll clears every record.
//
// POST /v1/breakers/reset
func (h *BreakerHandler) ResetAll(c *gin.Context) {
	h.registry.ResetAll()
	c.Status(http.StatusNoContent)
}
