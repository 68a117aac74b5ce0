package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/botbridge/routecore/internal/core/domain"
	"github.com/botbridge/routecore/internal/store/sqlite"
	"github.com/botbridge/routecore/pkg/api"
)

// ErrorHandler converts errors attached by handlers into RFC 9457
// problem responses, mapping routing failure kinds to HTTP statuses.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		var problem *api.Problem
		if errors.As(err, &problem) {
			if problem.Log != nil {
				logger.Error("Request failed", zap.Error(problem.Log))
			}
			// RFC 9457 dictates the json is at the root
			c.JSON(problem.Status, problem)
			c.Abort()
			return
		}

		var routeErr *domain.RouteError
		if errors.As(err, &routeErr) {
			p := routeProblem(routeErr)
			c.JSON(p.Status, p)
			c.Abort()
			return
		}

		if errors.Is(err, sqlite.ErrNotFound) {
			p := api.NotFoundError(err.Error())
			c.JSON(p.Status, p)
			c.Abort()
			return
		}

		logger.Error("Unhandled error", zap.Error(err))
		p := api.InternalError("An unexpected error occurred.")
		c.JSON(p.Status, p)
		c.Abort()
	}
}

// routeProblem maps the routing error taxonomy onto problem responses.
// Selection failures are the caller's to fix (422); execution failures
// reflect upstream state (502 / passthrough).
func routeProblem(err *domain.RouteError) *api.Problem {
	opts := []api.ProblemOption{
		api.WithType("https://botbridge.dev/probs/" + string(err.Kind)),
		api.WithExtension("kind", string(err.Kind)),
	}
	if err.LastVendor != "" {
		opts = append(opts,
			api.WithExtension("last_vendor", err.LastVendor),
			api.WithExtension("last_model", err.LastModel),
			api.WithExtension("last_error_type", string(err.LastErrorType)),
		)
	}

	switch err.Kind {
	case domain.KindNoCapabilityMatch:
		return api.NewProblem(http.StatusUnprocessableEntity, "No Capability Match", err.Message, opts...)
	case domain.KindAllCandidatesCapped:
		return api.NewProblem(http.StatusUnprocessableEntity, "All Candidates Capped", err.Message, opts...)
	case domain.KindChainExhausted:
		return api.NewProblem(http.StatusBadGateway, "Chain Exhausted", err.Message, opts...)
	case domain.KindTerminal:
		status := err.LastStatusCode
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		return api.NewProblem(status, "Upstream Rejected Request", err.Message, opts...)
	}
	return api.InternalError(err.Message)
}
