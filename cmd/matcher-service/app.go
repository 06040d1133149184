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
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	_ "github.com/lib/pq" // PostgreSQL driver

	"osprey/internal/broker"
	"osprey/internal/config"
	"osprey/internal/config_handler"
	"osprey/internal/constants"
	"osprey/internal/logger"
	"osprey/internal/matching"
	"osprey/internal/matching/roster"
	"osprey/pkg/bootstrap"
	"osprey/pkg/health"
	"osprey/pkg/logging"
	"osprey/pkg/metrics"
	"osprey/pkg/middleware"
	"osprey/pkg/migrations"
	"osprey/pkg/models"
	"osprey/pkg/ratelimit"
	"osprey/pkg/tracing"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	redis          *redis.Client
	mongoClient    *mongo.Client
	postgresDB     *sql.DB
	service        matching.Service
	rosterCache    *roster.CachedProvider
	tracerProvider *tracing.TracerProvider
	server         *http.Server
	router         *gin.Engine
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName("matcher-service")
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	initCtx := logging.WithServiceName(ctx, "matcher-service")

	if err := a.initPostgreSQL(ctx); err != nil {
		a.Logger.WarnwCtx(initCtx, "PostgreSQL initialization failed, database roster provider will be unavailable",
			"error", err,
		)
	}

	if err := a.initRedis(ctx); err != nil {
		a.Logger.WarnwCtx(initCtx, "Redis initialization failed, roster caching will be disabled",
			"error", err,
		)
	}

	if err := a.initMongoDB(ctx); err != nil {
		return fmt.Errorf("failed to initialize MongoDB: %w", err)
	}

	if a.Config.Broker.Type == "kafka" {
		if err := a.InitBroker("matcher-service"); err != nil {
			return fmt.Errorf("failed to initialize broker: %w", err)
		}
	} else {
		a.Logger.InfowCtx(ctx, "Broker disabled, analysis events will not be consumed")
	}

	tp, err := tracing.Init(a.Config.Tracing, "matcher-service")
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterMatchingMetrics()
	if a.Consumer != nil {
		metrics.RegisterBrokerMetrics()
	}
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	if err := a.initService(ctx); err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
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
	if postgresDB != nil {
		a.postgresDB = postgresDB
	}
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

func (a *App) initMongoDB(ctx context.Context) error {
	mongoClient, err := a.dbConnector.InitMongoDB(ctx)
	if err != nil {
		return err
	}
	if mongoClient != nil {
		a.mongoClient = mongoClient
	}
	return nil
}

func (a *App) initService(ctx context.Context) error {
	matcher := matching.NewMatcher(a.Config.Matching.ReviewThreshold)

	provider, cached, err := roster.BuildProvider(a.Config.Roster, a.Config.CircuitBreaker, a.postgresDB, a.redis, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to build roster provider: %w", err)
	}
	a.rosterCache = cached

	opts := []matching.ServiceOption{
		matching.WithRosterProvider(provider),
	}

	if a.mongoClient != nil {
		dbName := a.Config.Database.MongoDB.Database
		if dbName == "" {
			dbName = constants.DefaultMongoDBName
		}
		mongoDB := a.mongoClient.Database(dbName)

		if err := migrations.EnsureMongoCollection(ctx, mongoDB); err != nil {
			return fmt.Errorf("failed to ensure mongo collections: %w", err)
		}

		opts = append(opts, matching.WithReviewStore(matching.NewReviewStore(mongoDB)))
	} else {
		initCtx := logging.WithServiceName(ctx, "matcher-service")
		a.Logger.WarnwCtx(initCtx, "MongoDB not configured, match review persistence is disabled")
	}

	a.service = matching.NewService(matcher, a.Logger, opts...)
	return nil
}

func (a *App) initRouter() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.Config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware("matcher-service"))
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

	matchHandler := matching.NewMatchHandler(a.service, a.Logger)
	matchHandler.RegisterRoutes(router)

	healthRegistry := health.NewCheckerRegistry()
	if a.postgresDB != nil {
		healthRegistry.Register(health.NewPostgreSQLChecker(a.postgresDB))
	}
	if a.redis != nil {
		healthRegistry.Register(health.NewRedisChecker(a.redis))
	}
	if a.mongoClient != nil {
		healthRegistry.Register(health.NewMongoDBChecker(a.mongoClient))
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
		analysisTopic := a.Config.Broker.Kafka.AnalysisTopic
		if analysisTopic == "" {
			analysisTopic = constants.TopicAnalysisEvents
		}

		handler := matching.AnalysisEventHandler(a.service, a.Logger)

		g.Go(func() error {
			consumeCtx := logging.WithServiceName(gCtx, "matcher-service")
			a.Logger.InfowCtx(consumeCtx, "Starting analysis event consumer", "topic", analysisTopic)
			return a.Consumer.Consume(gCtx, analysisTopic, handler)
		})
	}

	if a.rosterCache != nil && a.Config.Broker.Type == "kafka" && a.Config.Broker.Kafka.ConfigTopic != "" {
		configConsumer, err := broker.NewConsumer(a.Config.Broker, a.Logger)
		if err != nil {
			configCtx := logging.WithServiceName(ctx, "matcher-service")
			a.Logger.WarnwCtx(configCtx, "Failed to create config event consumer, roster invalidation disabled",
				"error", err,
			)
		} else {
			configConsumer.SetServiceName("matcher-service")
			defer configConsumer.Close()
			configHandler := config_handler.NewHandlerWithInvalidator(models.EventTypeRosterSynced, a.rosterCache, a.Logger)

			g.Go(func() error {
				configCtx := logging.WithServiceName(gCtx, "matcher-service")
				a.Logger.InfowCtx(configCtx, "Starting config event consumer",
					"topic", a.Config.Broker.Kafka.ConfigTopic,
				)
				return configConsumer.Consume(gCtx, a.Config.Broker.Kafka.ConfigTopic, configHandler.HandleConfigEvent)
			})
		}
	}

	g.Go(func() error {
		<-gCtx.Done()
		return a.Shutdown(context.Background())
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx := logging.WithServiceName(ctx, "matcher-service")
	a.Logger.InfowCtx(shutdownCtx, "Shutting down matcher service")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.server != nil {
			httpCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			if err := a.server.Shutdown(httpCtx); err != nil {
				errs = append(errs, fmt.Errorf("HTTP server shutdown error: %w", err))
			}
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(ctx, a.redis, a.postgresDB, a.mongoClient)...)

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
