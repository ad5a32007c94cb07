package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/forum/pkg/api"
	"github.com/platinummonkey/forum/pkg/audit"
	"github.com/platinummonkey/forum/pkg/auth"
	"github.com/platinummonkey/forum/pkg/config"
	"github.com/platinummonkey/forum/pkg/events"
	"github.com/platinummonkey/forum/pkg/forum"
	"github.com/platinummonkey/forum/pkg/middleware"
	"github.com/platinummonkey/forum/pkg/observability"
	"github.com/platinummonkey/forum/pkg/prune"
	"github.com/platinummonkey/forum/pkg/rbac"
	"github.com/platinummonkey/forum/pkg/storage"
	"github.com/platinummonkey/forum/pkg/storage/sqlstore"
)

const (
	dbHealthInterval = 30 * time.Second
	dbStatsInterval  = 15 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "forum: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, nil)
	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)

	tracing, err := observability.StartTracing(ctx, cfg.OTel(), logger)
	if err != nil {
		return fmt.Errorf("failed to start tracing: %w", err)
	}
	if tracing != nil {
		shutdown.RegisterShutdownFunc("tracing", tracing.Shutdown)
	}

	// Database
	cm, err := storage.NewConnectionManager(cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	shutdown.RegisterShutdownFunc("database", func(context.Context) error { return cm.Close() })

	if err := storage.RunMigrations(ctx, cm.Primary(), cm.Driver(), logger); err != nil {
		shutdown.Shutdown()
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	cm.StartHealthCheckRoutine(ctx, dbHealthInterval)

	// Redis is optional; without it rate limits are kept per process
	var redisClient *redis.Client
	if cfg.Storage.RedisURL != "" {
		rc, err := storage.NewRedisClient(cfg.Storage)
		if err != nil {
			shutdown.Shutdown()
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		redisClient = rc.GetClient()
		shutdown.RegisterShutdownFunc("redis", func(context.Context) error { return rc.Close() })
		logger.Info("Redis connected; rate limits are shared across instances")
	}

	apiLimiter, authLimiter, err := newLimiters(cfg, redisClient)
	if err != nil {
		shutdown.Shutdown()
		return err
	}

	publisher := events.NewNoopPublisher()
	var nats *events.NATSPublisher
	if cfg.Events.NATSURL != "" {
		if nats, err = events.NewNATSPublisher(cfg.Events.NATSURL, logger); err != nil {
			shutdown.Shutdown()
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		publisher = nats
	}
	shutdown.RegisterShutdownFunc("events", func(context.Context) error { return publisher.Close() })

	auditLogger := audit.NewNoopLogger()
	if cfg.Audit.Enabled {
		if auditLogger, err = audit.NewDBLogger(cm.Primary(), cm.Driver()); err != nil {
			shutdown.Shutdown()
			return fmt.Errorf("failed to create audit logger: %w", err)
		}
	}

	var (
		registry *prometheus.Registry
		metrics  *observability.Metrics
	)
	if cfg.Observability.MetricsEnabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = observability.NewMetrics(registry)
	}

	tokens, err := auth.NewTokenManager([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL, cfg.Auth.TokenIssuer)
	if err != nil {
		shutdown.Shutdown()
		return err
	}

	svc, err := forum.NewService(forum.Config{
		Store:      sqlstore.NewFromManager(cm),
		Tokens:     tokens,
		Hasher:     auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		Authorizer: rbac.NewEngine(cfg.RBACPolicy()),
		Audit:      auditLogger,
		Events:     publisher,
		Metrics:    metrics,
	})
	if err != nil {
		shutdown.Shutdown()
		return err
	}

	jobLogger := logrus.New()
	jobLogger.SetFormatter(&logrus.JSONFormatter{})
	pruner, err := prune.New(svc, cfg.PruneSettings(), jobLogger)
	if err != nil {
		shutdown.Shutdown()
		return err
	}

	server, err := api.NewServer(api.Options{
		Service:      svc,
		Settings:     pruner,
		Logger:       logger,
		Metrics:      metrics,
		APILimiter:   apiLimiter,
		AuthLimiter:  authLimiter,
		CORSOrigins:  cfg.Server.CORSOrigins,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})
	if err != nil {
		shutdown.Shutdown()
		return err
	}

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics live on their own port for k8s health checks
	checker := observability.NewHealthChecker(cm.Primary(), redisClient)
	checker.SetVersion(cfg.Observability.OTelServiceVersion)
	if len(cfg.Storage.ReplicaDSNs) > 0 {
		checker.AddCheck("database_replicas", cm.HealthCheck, false)
	}
	if nats != nil {
		checker.AddCheck("nats", nats.Ping, false)
	}
	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, checker)
	if registry != nil {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:           healthMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdown.AddServer(apiServer)
	shutdown.AddServer(healthServer)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Infof("Forum API listening on %s", apiServer.Addr)
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Infof("Health and metrics listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return pruner.Run(gctx)
	})

	if metrics != nil {
		g.Go(func() error {
			defer observability.RecoverPanic(logger, "db stats")
			ticker := time.NewTicker(dbStatsInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					metrics.RecordDBStats(cm.Primary().Stats())
				}
			}
		})
	}

	if path := os.Getenv("FORUM_CONFIG_FILE"); path != "" {
		g.Go(func() error {
			defer observability.RecoverPanic(logger, "config watcher")
			return config.WatchLogLevel(gctx, path, logger, func(level observability.LogLevel) {
				if level != logger.Level() {
					logger.Infof("Log level changed from %s to %s", logger.Level(), level)
					logger.SetLevel(level)
				}
			})
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down gracefully...")
		return shutdown.Shutdown()
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Forum stopped")
	return nil
}

// newLimiters builds the API and auth request budgets, shared through redis
// when a client is available
func newLimiters(cfg *config.Config, redisClient *redis.Client) (middleware.Limiter, middleware.Limiter, error) {
	apiCfg := middleware.APIRateLimitConfig()
	apiCfg.Requests = cfg.RateLimit.APIRequests
	apiCfg.Window = cfg.RateLimit.APIWindow

	authCfg := middleware.AuthRateLimitConfig()
	authCfg.Requests = cfg.RateLimit.AuthRequests
	authCfg.Window = cfg.RateLimit.AuthWindow

	if redisClient != nil {
		return middleware.NewDistributedRateLimiter(redisClient, apiCfg, "forum:ratelimit:api"),
			middleware.NewDistributedRateLimiter(redisClient, authCfg, "forum:ratelimit:auth"),
			nil
	}

	apiLimiter, err := middleware.NewRateLimiter(apiCfg, cfg.RateLimit.MaxClients)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create api rate limiter: %w", err)
	}
	authLimiter, err := middleware.NewRateLimiter(authCfg, cfg.RateLimit.MaxClients)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create auth rate limiter: %w", err)
	}
	return apiLimiter, authLimiter, nil
}
