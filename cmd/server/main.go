package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/botbridge/routecore/internal/breaker"
	"github.com/botbridge/routecore/internal/config"
	"github.com/botbridge/routecore/internal/core/ports"
	"github.com/botbridge/routecore/internal/core/services"
	"github.com/botbridge/routecore/internal/events"
	"github.com/botbridge/routecore/internal/invoker"
	"github.com/botbridge/routecore/internal/platform/logger"
	"github.com/botbridge/routecore/internal/platform/otel"
	"github.com/botbridge/routecore/internal/server"
	"github.com/botbridge/routecore/internal/server/validator"
	"github.com/botbridge/routecore/internal/store"
	"github.com/botbridge/routecore/internal/store/cache"
	"github.com/botbridge/routecore/internal/store/cache/memory"
	"github.com/botbridge/routecore/internal/store/cache/redis"
	"github.com/botbridge/routecore/internal/store/seed"
	"github.com/botbridge/routecore/internal/store/sqlite"
)

func main() {
	logger.Initialize(logger.DefaultConfig())
	log := logger.Get()
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.Tracing {
		shutdown, err := otel.InitTracer("routecore", log, os.Stdout)
		if err != nil {
			log.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Error("Tracer shutdown failed", zap.Error(err))
			}
		}()
	}

	repo, err := sqlite.NewSQLiteStorage(cfg.Store.DSN, log)
	if err != nil {
		log.Fatal("Failed to open store", zap.Error(err))
	}
	defer repo.Close()

	if cfg.Store.SeedFile != "" {
		bundle, err := seed.Load(cfg.Store.SeedFile)
		if err != nil {
			log.Fatal("Failed to load seed file",
				zap.String("path", cfg.Store.SeedFile),
				zap.Error(err),
			)
		}
		if err := seed.Apply(ctx, repo, bundle); err != nil {
			log.Fatal("Failed to apply seed file", zap.Error(err))
		}
		log.Info("Seed file applied", zap.String("path", cfg.Store.SeedFile))
	}

	var cacheSvc cache.CacheService
	if cfg.Redis.Enabled {
		cacheSvc, err = redis.NewRedisCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		log.Info("Using redis config cache", zap.String("addr", cfg.Redis.Addr))
	} else {
		cacheSvc = memory.NewMemoryCache()
	}

	notifier := events.NewNotifier(log, 0)
	notifier.Start(ctx)
	defer notifier.Stop()

	registry := breaker.NewRegistry(cfg.Breaker, ports.RealClock(), log, breaker.WithNotifier(notifier))
	registry.StartSweeper(ctx)

	inv, err := invoker.New("http", cfg.Upstream)
	if err != nil {
		log.Fatal("Failed to build upstream invoker", zap.Error(err))
	}

	exec := services.NewExecutor(inv, registry, ports.RealClock(), nil, invoker.EndpointKey, log)
	router := services.NewRouter(
		store.Config(repo),
		cacheSvc,
		exec,
		cfg.Chain.WithFallbacks(),
		cfg.Routing.DefaultStrategy,
		log,
		services.WithConfigCacheTTL(cfg.Routing.CacheTTL),
	)

	validator.InitValidator()
	srv := server.New(cfg, log, router, registry, repo)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Starting routecore",
			zap.String("port", cfg.Server.Port),
			zap.String("env", cfg.Server.Env),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
}
