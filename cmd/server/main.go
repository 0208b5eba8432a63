package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	inventoryapp "github.com/erp/warehouse/internal/application/inventory"
	tradeapp "github.com/erp/warehouse/internal/application/trade"
	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/cache"
	"github.com/erp/warehouse/internal/infrastructure/config"
	"github.com/erp/warehouse/internal/infrastructure/event"
	"github.com/erp/warehouse/internal/infrastructure/export"
	"github.com/erp/warehouse/internal/infrastructure/logger"
	"github.com/erp/warehouse/internal/infrastructure/migration"
	"github.com/erp/warehouse/internal/infrastructure/persistence"
	"github.com/erp/warehouse/internal/infrastructure/telemetry"
	"github.com/erp/warehouse/internal/interfaces/http/handler"
	"github.com/erp/warehouse/internal/interfaces/http/middleware"
	"github.com/erp/warehouse/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting warehouse engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	log = lp.Bridge(log, cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level))

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
	)
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	dbTracing.LogFullSQL = cfg.Telemetry.DBLogFullSQL
	dbTracing.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
	if err := telemetry.RegisterGormTracing(db.DB, dbTracing, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	if cfg.Database.AutoMigrate {
		if err := applyMigrations(db, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	// Repositories
	batchRepo := persistence.NewGormBatchRepository(db.DB)
	allocationRepo := persistence.NewGormAllocationRepository(db.DB)
	movementRepo := persistence.NewGormMovementRepository(db.DB)
	purchaseOrderRepo := persistence.NewGormPurchaseOrderRepository(db.DB)
	stageRepo := persistence.NewGormOrderStageRepository(db.DB)
	scope := persistence.NewGormTransactionScope(db.DB)

	idemStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cfg.Idempotency, cache.WithLogger(log)).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	strategy, err := inventory.ParseAllocationStrategy(cfg.Allocation.DefaultStrategy)
	if err != nil {
		log.Fatal("Invalid allocation strategy", zap.Error(err))
	}

	// Application services
	allocationService := inventoryapp.NewAllocationService(scope, batchRepo, allocationRepo,
		inventoryapp.WithDefaultStrategy(strategy),
		inventoryapp.WithMaxRetries(cfg.Allocation.MaxRetries),
		inventoryapp.WithAllocationIdempotency(idemStore, cfg.Idempotency.TTL),
		inventoryapp.WithAllocationLogger(log),
	)
	batchService := inventoryapp.NewBatchService(scope, batchRepo, movementRepo, log)
	reportService := inventoryapp.NewReportService(batchRepo, allocationRepo, export.NewXLSXExporter())
	receivingService := tradeapp.NewReceivingService(scope.Trade(), purchaseOrderRepo, movementRepo,
		tradeapp.WithMergeIdenticalLots(cfg.Receiving.MergeIdenticalLots),
		tradeapp.WithReceivingIdempotency(idemStore, cfg.Idempotency.TTL),
		tradeapp.WithReceivingLogger(log),
	)
	stageService := tradeapp.NewOrderStageService(stageRepo, log)

	// Event bus: every domain event lands in the journal at most once
	eventBus := event.NewInMemoryEventBus(log)
	var journal shared.EventHandler = event.NewJournalHandler(log)
	if idemStore != nil {
		journal = event.NewIdempotentHandler(journal, idemStore, cfg.Idempotency.TTL, log)
	}
	eventBus.Subscribe(journal)
	stockMetrics, err := event.NewMetricsHandler(mp.Meter(telemetry.TracerName))
	if err != nil {
		log.Fatal("Failed to register stock metrics", zap.Error(err))
	}
	eventBus.Subscribe(stockMetrics)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	allocationService.SetEventPublisher(eventBus)
	batchService.SetEventPublisher(eventBus)
	receivingService.SetEventPublisher(eventBus)

	checks := map[string]handler.HealthCheck{
		"database": func(context.Context) error { return db.Ping() },
	}
	if pinger, ok := idemStore.(interface{ Ping(context.Context) error }); ok {
		checks["redis"] = pinger.Ping
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders

	engine, err := router.NewEngine(router.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: cfg.Telemetry.Enabled,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		CORS:           corsCfg,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	}, log)
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	router.Mount(engine, router.Handlers{
		Batch:         handler.NewBatchHandler(batchService, reportService),
		Allocation:    handler.NewAllocationHandler(allocationService, reportService),
		PurchaseOrder: handler.NewPurchaseOrderHandler(receivingService),
		OrderStage:    handler.NewOrderStageHandler(stageService),
		System:        handler.NewSystemHandler(cfg.App.Name, telemetry.ServiceVersion, checks),
	})

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
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if idemStore != nil {
		if err := idemStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := mp.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := lp.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}

	log.Info("Server exited gracefully", zap.Duration("shutdown_budget", cfg.HTTP.ShutdownTimeout))
}

// applyMigrations brings the schema up to the version embedded in the binary
func applyMigrations(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, migration.EmbeddedSource(), log)
	if err != nil {
		return err
	}
	start := time.Now()
	if err := m.Up(); err != nil {
		return err
	}
	log.Info("Schema is current", zap.Duration("took", time.Since(start)))
	return nil
}
