package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	_ "github.com/lib/pq" // PostgreSQL driver

	"osprey/internal/config"
	"osprey/internal/constants"
	"osprey/internal/dispatch"
	"osprey/internal/logger"
	"osprey/pkg/bootstrap"
	"osprey/pkg/health"
	"osprey/pkg/logging"
	"osprey/pkg/metrics"
	"osprey/pkg/middleware"
	"osprey/pkg/ratelimit"
	"osprey/pkg/tracing"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	redis          *redis.Client
	postgresDB     *sql.DB
	engine         *dispatch.Engine
	service        dispatch.Service
	checker        *dispatch.IdempotencyChecker
	tracerProvider *tracing.TracerProvider
	server         *http.Server
	router         *gin.Engine
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName("dispatch-service")
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initPostgreSQL(ctx); err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	if err := a.initRedis(ctx); err != nil {
		initCtx := logging.WithServiceName(ctx, "dispatch-service")
		a.Logger.WarnwCtx(initCtx, "Redis initialization failed, trigger deduplication will be disabled",
			"error", err,
		)
	}

	if a.Config.Broker.Type == "kafka" {
		if err := a.InitBroker("dispatch-service"); err != nil {
			return fmt.Errorf("failed to initialize broker: %w", err)
		}
	} else {
		a.Logger.InfowCtx(ctx, "Broker disabled, trigger intake is HTTP-only")
	}

	tp, err := tracing.Init(a.Config.Tracing, "dispatch-service")
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterDispatchMetrics()
	if a.Consumer != nil {
		metrics.RegisterBrokerMetrics()
	}
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	if err := a.initEngine(); err != nil {
		return fmt.Errorf("failed to initialize delivery engine: %w", err)
	}

	if err := a.initRouter(); err != nil {
		return fmt.Errorf("failed to initialize router: %w", err)
	}

	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler: a.router,
	}

	return nil
}

func (a *App) initPostgreSQL(ctx context.Context) error {
	postgresDB, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	if postgresDB == nil {
		return fmt.Errorf("postgres configuration is required")
	}
	a.postgresDB = postgresDB
	return nil
}

func (a *App) initRedis(ctx context.Context) error {
	rdb, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		return err
	}
	a.redis = rdb
	return nil
}

func (a *App) initEngine() error {
	repo := dispatch.NewRepository(a.postgresDB)
	logs := dispatch.NewDeliveryLogStore(a.postgresDB)

	filter, err := dispatch.NewFilterEvaluator(a.Config.Dispatch.Filter.Fallback.OnError, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to build filter evaluator: %w", err)
	}

	var engineOpts []dispatch.EngineOption
	var notifier *dispatch.LifecycleNotifier
	if a.Producer != nil && a.Config.Broker.Kafka.ConfigTopic != "" {
		notifier = dispatch.NewLifecycleNotifier(a.Producer, a.Config.Broker.Kafka.ConfigTopic)
		engineOpts = append(engineOpts, dispatch.WithLifecycleNotifier(notifier))
	}

	a.engine = dispatch.NewEngine(repo, logs, filter, a.Config.Dispatch, a.Logger, engineOpts...)

	svcOpts := []dispatch.ServiceOption{
		dispatch.WithEngine(a.engine),
		dispatch.WithAudit(dispatch.NewAuditLogger(a.postgresDB)),
		dispatch.WithServiceLogger(a.Logger),
	}
	if notifier != nil {
		svcOpts = append(svcOpts, dispatch.WithNotifier(notifier))
	}
	a.service = dispatch.NewService(repo, logs, svcOpts...)

	if a.redis != nil {
		store := dispatch.NewIdempotencyStore(a.redis)
		if a.Config.CircuitBreaker.Enabled {
			store = dispatch.NewCircuitBreakerIdempotencyStore(store, a.Config.CircuitBreaker)
		}
		a.checker = dispatch.NewIdempotencyChecker(store, a.Config.Dispatch.Idempotency, a.Logger)
	}

	return nil
}

func (a *App) initRouter() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.Config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware("dispatch-service"))
	}

	router.Use(middleware.RecoveryMiddleware(a.Logger))
	router.Use(middleware.LoggerMiddleware(a.Logger))
	router.Use(middleware.RequestIDMiddleware())

	if a.Config.RateLimit.Enabled {
		rateLimitConfig := ratelimit.RateLimitConfig{
			RPS:             a.Config.RateLimit.RPS,
			Burst:           a.Config.RateLimit.Burst,
			CleanupInterval: time.Duration(a.Config.RateLimit.CleanupInterval) * time.Second,
			MaxAge:          time.Duration(a.Config.RateLimit.MaxAge) * time.Second,
		}
		router.Use(ratelimit.RateLimitMiddleware(rateLimitConfig))
		a.Logger.InfowCtx(context.Background(), "Rate limiting enabled", "rps", rateLimitConfig.RPS, "burst", rateLimitConfig.Burst)
	}

	subscriptionHandler := dispatch.NewSubscriptionHandler(a.service, a.Logger)
	subscriptionHandler.RegisterRoutes(router)

	triggerHandler := dispatch.NewTriggerHandler(a.engine, a.Logger)
	triggerHandler.RegisterRoutes(router, middleware.InternalAuthMiddleware(a.Config.Dispatch.InternalToken))

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewPostgreSQLChecker(a.postgresDB))
	if a.redis != nil {
		healthRegistry.Register(health.NewRedisChecker(a.redis))
	}

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	a.router = router
	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	if a.Consumer != nil {
		triggerTopic := a.Config.Broker.Kafka.TriggerTopic
		if triggerTopic == "" {
			triggerTopic = constants.TopicTriggerEvents
		}

		handler := dispatch.TriggerEventHandler(a.engine, a.checker, a.Logger)

		g.Go(func() error {
			consumeCtx := logging.WithServiceName(gCtx, "dispatch-service")
			a.Logger.InfowCtx(consumeCtx, "Starting trigger event consumer", "topic", triggerTopic)
			return a.Consumer.Consume(gCtx, triggerTopic, handler)
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		return a.Shutdown(context.Background())
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx := logging.WithServiceName(ctx, "dispatch-service")
	a.Logger.InfowCtx(shutdownCtx, "Shutting down dispatch service")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.server != nil {
			httpCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			if err := a.server.Shutdown(httpCtx); err != nil {
				errs = append(errs, fmt.Errorf("HTTP server shutdown error: %w", err))
			}
		}

		if a.engine != nil {
			engineCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			if err := a.engine.Stop(engineCtx); err != nil {
				errs = append(errs, fmt.Errorf("delivery engine stop error: %w", err))
			}
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(ctx, a.redis, a.postgresDB, nil)...)

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
