package server

import (
	"github.com/botbridge/routecore/internal/server/middleware"
	v1 "github.com/botbridge/routecore/internal/server/v1"
)

func (s *Server) SetupRoutes() {
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.ErrorHandler(s.logger))

	if s.config.Server.Tracing {
		s.router.Use(middleware.Tracing("routecore"))
	}

	// Health Check (public)
	healthHandler := v1.NewHealthHandler(s.registry)
	s.router.GET("/health", healthHandler.Health)

	limiter := middleware.NewRateLimiter(
		s.config.RateLimit.RequestsPerSecond,
		s.config.RateLimit.Burst,
		s.logger,
	)

	api := s.router.Group("/v1")
	api.Use(middleware.Auth(s.config.Server.APIKeys))
	api.Use(limiter.Middleware())
	{
		routeHandler := v1.NewRouteHandler(s.service)
		api.POST("/route", routeHandler.Route)
		api.POST("/route/preview", routeHandler.Preview)

		breakerHandler := v1.NewBreakerHandler(s.registry)
		api.GET("/breakers", breakerHandler.List)
		api.GET("/breakers/open", breakerHandler.Open)
		api.POST("/breakers/reset", breakerHandler.ResetAll)
		api.POST("/breakers/:endpoint/reset", breakerHandler.Reset)

		configHandler := v1.NewConfigHandler(s.repo)
		cfg := api.Group("/config")
		{
			cfg.GET("/tags", configHandler.ListTags)
			cfg.PUT("/tags/:id", configHandler.UpsertTag)
			cfg.DELETE("/tags/:id", configHandler.DeleteTag)

			cfg.GET("/strategies", configHandler.ListStrategies)
			cfg.PUT("/strategies/:id", configHandler.UpsertStrategy)
			cfg.DELETE("/strategies/:id", configHandler.DeleteStrategy)

			cfg.GET("/chains", configHandler.ListChains)
			cfg.PUT("/chains/:id", configHandler.UpsertChain)
			cfg.DELETE("/chains/:id", configHandler.DeleteChain)

			cfg.GET("/models", configHandler.ListModels)
			cfg.PUT("/models/:vendor/:model", configHandler.UpsertModel)
			cfg.DELETE("/models/:vendor/:model", configHandler.DeleteModel)
		}
	}
}
