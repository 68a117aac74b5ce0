package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/botbridge/routecore/internal/core/domain"
	"github.com/botbridge/routecore/internal/server/middleware"
	"github.com/botbridge/routecore/internal/server/validator"
	"github.com/botbridge/routecore/pkg/api"
)

// RoutingService is the slice of the router the HTTP layer needs.
type RoutingService interface {
	Route(ctx context.Context, req domain.RouteRequest) (*domain.RouteResult, error)
	Preview(ctx context.Context, req domain.RouteRequest) ([]domain.Candidate, error)
}

type RouteHandler struct {
	service RoutingService
}

func NewRouteHandler(service RoutingService) *RouteHandler {
	return &RouteHandler{service: service}
}

// Route executes a routing request end to end.
//
// POST /v1/route
func (h *RouteHandler) Route(c *gin.Context) {
	var req api.RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(api.ValidationError(validator.ParseValidationError(err)))
		return
	}
	if len(req.Payload) == 0 {
		_ = c.Error(api.BadRequestError("payload is required"))
		return
	}

	domainReq := req.ToDomain(middleware.GetRequestID(c), c.GetHeader("X-Tenant-ID"))

	result, err := h.service.Route(c.Request.Context(), domainReq)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, api.NewRouteResponse(result))
}

// Preview ranks candidates for a request without invoking any model.
//
// POST /v1/route/preview
func (h *RouteHandler) Preview(c *gin.Context) {
	var req api.RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(api.ValidationError(validator.ParseValidationError(err)))
		return
	}

	domainReq := req.ToDomain(middleware.GetRequestID(c), c.GetHeader("X-Tenant-ID"))

	candidates, err := h.service.Preview(c.Request.Context(), domainReq)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, api.NewPreviewResponse(candidates))
}
