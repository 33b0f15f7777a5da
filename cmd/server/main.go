package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/write"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/event"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/infrastructure/storage"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.FromAppConfig(cfg.Log))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting storefront backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfigFromApp(cfg.Telemetry), log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	defer func() {
		if err := loggerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down logger provider", zap.Error(err))
		}
	}()
	exportLevel, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		exportLevel = zapcore.InfoLevel
	}
	log = loggerProvider.Bridge(log, exportLevel)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.ConfigFromApp(cfg.Telemetry), log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfigFromApp(cfg.Telemetry), log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()
	if profiler.IsEnabled() && cfg.Telemetry.SpanProfiles {
		tracerProvider.EnableSpanProfiles()
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfigFromApp(cfg.Telemetry), log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		if err := meterProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Database.LogLevel),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithGormLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	if meterProvider.IsEnabled() {
		sqlDB, err := db.DB.DB()
		if err != nil {
			log.Fatal("Failed to get database handle", zap.Error(err))
		}
		poolMetrics, err := telemetry.NewDBPoolMetrics(meterProvider.Meter(telemetry.TracerName), sqlDB)
		if err != nil {
			log.Warn("Pool metrics disabled", zap.Error(err))
		} else {
			defer func() { _ = poolMetrics.Stop() }()
		}
	}

	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfigFromApp(cfg.Telemetry, cfg.Database.Driver), log)
	if err := dbTracing.Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	// Postgres schemas come from cmd/migrate, sqlite is created in place
	if cfg.Database.AutoMigrate || cfg.Database.Driver == config.DriverSQLite {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	var idempotencyStore shared.IdempotencyStore
	if cfg.Writer.IdempotencyEnabled {
		idempotencyStore, err = cache.NewIdempotencyStoreFactory(cfg.Redis, cfg.Writer, cache.WithLogger(log)).CreateStore(ctx)
		if err != nil {
			log.Fatal("Failed to create idempotency store", zap.Error(err))
		}
		defer func() { _ = idempotencyStore.Close() }()
	}

	eventBus := event.NewInMemoryEventBus(log)
	var writtenHandler shared.EventHandler = catalogapp.NewProductWrittenHandler(log).
		WithNotifier(catalogapp.NewLoggingProductWrittenNotifier(log))
	if idempotencyStore != nil {
		writtenHandler = event.NewIdempotentHandler(writtenHandler, idempotencyStore, shared.IdempotencyConfig{
			Enabled: true,
			TTL:     cfg.Writer.IdempotencyTTL,
		}, log)
	}
	eventBus.Subscribe(writtenHandler)
	if cfg.Archive.Enabled {
		archive, err := storage.NewS3ObjectArchive(&cfg.Archive, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to create write archive", zap.Error(err))
		}
		bucketCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if err := archive.EnsureBucket(bucketCtx); err != nil {
			log.Fatal("Failed to prepare archive bucket", zap.Error(err))
		}
		cancel()
		eventBus.Subscribe(catalogapp.NewWrittenArchiveHandler(archive, log))
		log.Info("Write archive enabled", zap.String("bucket", archive.Bucket()))
	}
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	registry := write.NewResourceRegistry()
	if err := catalog.RegisterResources(registry); err != nil {
		log.Fatal("Failed to register resources", zap.Error(err))
	}

	productWriter := catalog.NewProductWriter(
		registry,
		persistence.NewGormResourceWriter(db.DB, registry),
		eventBus,
		write.WithLogger(log),
	)
	productService := catalogapp.NewProductWriteService(productWriter)
	productService.SetEventPublisher(eventBus)

	writeMetrics, err := telemetry.NewWriteMetrics(meterProvider.Meter(telemetry.TracerName))
	if err != nil {
		log.Warn("Write metrics disabled", zap.Error(err))
	} else {
		productService.SetWriteMetrics(writeMetrics)
	}

	engineCfg := router.EngineConfig{
		Logger:           log,
		HTTP:             cfg.HTTP,
		TracingEnabled:   tracerProvider.IsEnabled(),
		ProfilingEnabled: profiler.IsEnabled(),
		ServiceName:      cfg.Telemetry.ServiceName,
		IdempotencyStore: idempotencyStore,
		IdempotencyTTL:   cfg.Writer.IdempotencyTTL,
		ProductHandler:   handler.NewProductWriteHandler(productService, cfg.Writer.MaxBatchSize),
		SystemHandler:    handler.NewSystemHandler(telemetry.ServiceVersion, db),
	}
	if meterProvider.IsEnabled() {
		engineCfg.MeterProvider = meterProvider
	}
	if cfg.Auth.Enabled {
		engineCfg.TokenValidator = auth.NewShopTokenService(cfg.Auth)
		if cfg.Redis.Enabled {
			redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
			if err != nil {
				log.Fatal("Failed to connect to Redis for token revocation", zap.Error(err))
			}
			defer func() { _ = redisClient.Close() }()
			engineCfg.TokenRevocations = auth.NewRedisRevocationList(redisClient, cfg.Auth.RevocationPrefix)
		} else {
			log.Warn("Token revocation disabled: redis is not enabled")
		}
		log.Info("Shop token authentication enabled", zap.String("issuer", cfg.Auth.Issuer))
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine, err := router.NewEngine(engineCfg)
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}
	log.Info("Server exited gracefully")
}
