package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/botbridge/routecore/internal/breaker"
	"github.com/botbridge/routecore/internal/config"
	"github.com/botbridge/routecore/internal/server/middleware"
	v1 "github.com/botbridge/routecore/internal/server/v1"
	"github.com/botbridge/routecore/internal/store"
)

type Server struct {
	router   *gin.Engine
	config   *config.Config
	logger   *zap.Logger
	service  v1.RoutingService
	registry *breaker.Registry
	repo     store.Repository
}

func New(
	cfg *config.Config,
	logger *zap.Logger,
	service v1.RoutingService,
	registry *breaker.Registry,
	repo store.Repository,
) *Server {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(middleware.Recovery(logger))
	engine.Use(middleware.Logger(logger))

	s := &Server{
		router:   engine,
		config:   cfg,
		logger:   logger,
		service:  service,
		registry: registry,
		repo:     repo,
	}

	s.SetupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}
