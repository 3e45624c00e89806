package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httptransport "github.com/wans112/web-toko/internal/api/http"
	"github.com/wans112/web-toko/internal/api/http/handlers"
	"github.com/wans112/web-toko/internal/auth"
	"github.com/wans112/web-toko/internal/config"
	"github.com/wans112/web-toko/internal/domain"
	"github.com/wans112/web-toko/internal/events"
	"github.com/wans112/web-toko/internal/observability"
	"github.com/wans112/web-toko/internal/persistence"
	"github.com/wans112/web-toko/internal/repository"
	"github.com/wans112/web-toko/internal/service"
	"github.com/wans112/web-toko/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations && pg.Enabled() {
		if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	healthDeps := map[string]handlers.Pinger{}
	if pg.Enabled() {
		healthDeps["postgres"] = pg
	}

	var presenceRepo repository.PresenceRepository
	switch cfg.Presence.Backend {
	case config.PresenceBackendRedis:
		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		healthDeps["redis"] = redis
		presenceRepo = repository.NewRedisPresenceRepository(redis.Client)
	case config.PresenceBackendPostgres:
		presenceRepo = repository.NewPostgresPresenceRepository(pg.Pool)
	default:
		logger.Warn("using in-memory presence store; state is lost on restart")
		presenceRepo = repository.NewMemoryPresenceRepository()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	if err != nil {
		logger.Fatal("failed to init token manager", zap.Error(err))
	}
	gate, err := auth.NewGate(tokens, logger)
	if err != nil {
		logger.Fatal("failed to init identity gate", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartPresenceNotifier(service.NewPresenceNotifier(dispatcher, logger))

	presenceService := service.NewPresenceService(service.PresenceDependencies{
		Repo:       presenceRepo,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
		Window:     cfg.Presence.StalenessWindow,
	})

	var authService *service.AuthService
	if pg.Enabled() {
		authService = service.NewAuthService(service.AuthDependencies{
			UserRepo:     repository.NewUserRepository(pg.Pool),
			TokenManager: tokens,
			BcryptCost:   cfg.Auth.BcryptCost,
			Logger:       logger,
		})
		if cfg.Auth.SeedUsername != "" {
			if _, _, err := authService.EnsureUser(ctx, cfg.Auth.SeedUsername, cfg.Auth.SeedPassword, domain.Role(cfg.Auth.SeedRole)); err != nil {
				logger.Fatal("failed to seed user", zap.Error(err))
			}
		}
	}

	authMiddleware := auth.NewAuthMiddleware(gate, cfg.Auth.CookieName)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, healthDeps),
		Auth: handlers.NewAuthHandler(authService, presenceService, handlers.CookieConfig{
			Name:   authMiddleware.CookieName(),
			Secure: cfg.Auth.CookieSecure,
		}, logger),
		Presence: handlers.NewPresenceHandler(presenceService,
			httptransport.NewUserRateLimiter(cfg.Presence.RatePerSecond, cfg.Presence.RateBurst)),
		AuthMiddleware: authMiddleware,
		Metrics:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		LoginEnabled:   authService != nil,
	})

	go worker.RunPresenceSweeper(ctx, presenceService, cfg.Presence.SweepInterval, logger)

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("presence_backend", cfg.Presence.Backend))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
