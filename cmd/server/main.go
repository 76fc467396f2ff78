package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	appledger "github.com/invest/ledger/internal/application/ledger"
	"github.com/invest/ledger/internal/domain/shared/valueobject"
	"github.com/invest/ledger/internal/infrastructure/auth"
	"github.com/invest/ledger/internal/infrastructure/cache"
	"github.com/invest/ledger/internal/infrastructure/config"
	"github.com/invest/ledger/internal/infrastructure/event"
	"github.com/invest/ledger/internal/infrastructure/logger"
	"github.com/invest/ledger/internal/infrastructure/persistence"
	"github.com/invest/ledger/internal/infrastructure/scheduler"
	"github.com/invest/ledger/internal/infrastructure/storage"
	"github.com/invest/ledger/internal/infrastructure/telemetry"
	"github.com/invest/ledger/internal/interfaces/http/handler"
	"github.com/invest/ledger/internal/interfaces/http/middleware"
	"github.com/invest/ledger/internal/interfaces/http/router"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const serviceVersion = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: cfg.App.Name,
		Env:     cfg.App.Env,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	providers, err := telemetry.Setup(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log = telemetry.BridgeLogger(log, providers.Logs, cfg.Telemetry.ServiceName)

	log.Info("Starting investment ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("currency", cfg.Ledger.Currency),
	)

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
	)
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithGormLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := telemetry.NewDBTracingPlugin(providers.DB, log).Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Redis is optional: without it idempotency, rate limits and token
	// revocations are process-local
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	ledgerMetrics, err := telemetry.NewLedgerMetrics(providers.Meter.Meter("ledger"))
	if err != nil {
		log.Fatal("Failed to create ledger metrics", zap.Error(err))
	}

	// Domain events are dispatched after commit
	eventBus := event.NewInMemoryEventBus(log)
	event.RegisterLedgerSubscribers(eventBus, ledgerMetrics, idempotencyStore, log)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Application services
	txScope := persistence.NewGormTransactionScope(db.DB)
	currency := valueobject.Currency(cfg.Ledger.Currency)
	ledgerService := appledger.NewLedgerService(txScope, appledger.ServiceOptions{
		Retry: appledger.RetryPolicy{
			MaxRetries: cfg.Ledger.MaxConflictRetries,
			Backoff:    cfg.Ledger.RetryBackoff,
		},
		Idempotency:    idempotencyStore,
		IdempotencyTTL: cfg.Ledger.IdempotencyTTL,
		Publisher:      eventBus,
		Conflicts:      ledgerMetrics,
		Replays:        ledgerMetrics,
		Currency:       currency,
		InstallmentDefaults: &appledger.InstallmentDefaults{
			LateFeeRate:     decimal.NewFromFloat(cfg.Ledger.DefaultLateFeeRate),
			GracePeriodDays: cfg.Ledger.DefaultGracePeriodDays,
		},
	}, log)
	queryService := appledger.NewLedgerQueryService(persistence.NewQueryRepositories(db.DB), currency, log)
	sweepService := appledger.NewOverdueSweepService(
		persistence.NewGormPaymentPlanRepository(db.DB), ledgerService, cfg.Scheduler.BatchSize, log,
	)

	var statementStore appledger.StatementStorage
	if cfg.Storage.Enabled {
		s3Store, err := storage.NewS3StatementStorage(cfg.Storage,
			storage.WithLogger(log),
			storage.WithPresignExpiration(cfg.Storage.PresignExpiration),
		)
		if err != nil {
			log.Fatal("Failed to create statement storage", zap.Error(err))
		}
		if err := s3Store.EnsureBucket(ctx); err != nil {
			log.Fatal("Statement bucket is not reachable", zap.Error(err))
		}
		statementStore = s3Store
	} else {
		log.Warn("Object storage disabled, statements are kept in memory")
		statementStore = storage.NewMemoryStorage("http://localhost:" + cfg.App.Port + "/statements")
	}
	statementService := appledger.NewStatementService(txScope, statementStore, cfg.Ledger.StatementURLTTL, log)

	// Overdue sweep job
	sweepExecutor := scheduler.NewSweepExecutor(sweepService, log).WithRecorder(ledgerMetrics)
	jobScheduler := scheduler.NewScheduler(scheduler.SchedulerConfigFrom(cfg.Scheduler), sweepExecutor, log)
	sweepTrigger, err := scheduler.NewCronTrigger(scheduler.CronTriggerConfig{
		Interval:      cfg.Scheduler.SweepInterval,
		DailySchedule: cfg.Scheduler.SweepCronSchedule,
	}, jobScheduler, log)
	if err != nil {
		log.Fatal("Invalid sweep schedule", zap.Error(err))
	}
	if cfg.Scheduler.Enabled {
		if err := jobScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start job scheduler", zap.Error(err))
		}
		if err := sweepTrigger.Start(ctx); err != nil {
			log.Fatal("Failed to start sweep trigger", zap.Error(err))
		}
	} else {
		log.Info("Overdue sweep job disabled")
	}

	// Authentication
	var revocations auth.RevocationList = auth.NewInMemoryRevocationList()
	if redisClient != nil {
		revocations = auth.NewRedisRevocationList(redisClient)
	}
	verifier := auth.NewVerifier(cfg.JWT, auth.WithRevocations(revocations))

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Tracing(cfg.Telemetry.ServiceName, cfg.Telemetry.Enabled),
		middleware.HTTPMetrics(providers.Meter),
		middleware.Profiling(cfg.Telemetry.ProfilingEnabled),
		middleware.Secure(middleware.SecurityConfigFor(cfg.App.Env)),
		middleware.CORS(middleware.CORSConfigFromHTTP(cfg.HTTP)),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	perRequest := []gin.HandlerFunc{middleware.SpanEnricher()}
	if cfg.HTTP.RateLimit > 0 {
		var limiter middleware.Limiter = middleware.NewMemoryLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateWindow)
		if redisClient != nil {
			limiter = middleware.NewRedisLimiter(redisClient, cfg.HTTP.RateLimit, cfg.HTTP.RateWindow)
		}
		perRequest = append(perRequest, middleware.RateLimit(limiter, log))
	}

	checks := map[string]handler.Check{
		"database": func(context.Context) error { return db.Ping() },
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	systemHandler := handler.NewSystemHandler(cfg.App.Name, serviceVersion, checks, log)
	engine.GET("/health", systemHandler.Health)
	engine.GET("/ready", systemHandler.Ready)

	ledgerHandler := handler.NewLedgerHandler(ledgerService, queryService, statementService, sweepService, log)
	router.NewRouter(engine).
		Register(router.LedgerRoutes(ledgerHandler, middleware.Authenticate(verifier, log), perRequest...)).
		Register(router.SystemRoutes(systemHandler)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := sweepTrigger.Stop(shutdownCtx); err != nil {
		log.Warn("Sweep trigger did not stop cleanly", zap.Error(err))
	}
	if err := jobScheduler.Stop(shutdownCtx); err != nil {
		log.Warn("Job scheduler did not stop cleanly", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Warn("Event bus did not stop cleanly", zap.Error(err))
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Warn("Error closing redis client", zap.Error(err))
		}
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Warn("Telemetry shutdown incomplete", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
