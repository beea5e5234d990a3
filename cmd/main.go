package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/thedemonsid/quiz-app/internal/config"
	"github.com/thedemonsid/quiz-app/internal/logger"
	"github.com/thedemonsid/quiz-app/internal/telemetry"
	"github.com/thedemonsid/quiz-app/middleware"
	"github.com/thedemonsid/quiz-app/routes"
	"github.com/thedemonsid/quiz-app/services"
	"github.com/thedemonsid/quiz-app/utils"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	appLogger := logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer(telemetry.TracerOptions{
		ServiceName: cfg.ServiceName,
		Environment: cfg.GinMode,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		appLogger.Error("Failed to initialize tracer", slog.String("error", err.Error()))
		os.Exit(1)
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		appLogger.Error("Failed to initialize metrics", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Redis is optional; rate limiting falls back to in-process buckets
	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		appLogger.Warn("Redis unavailable, using local rate limiting", slog.String("error", err.Error()))
		rdb = nil
	}

	storage := services.NewFileStorageManager(cfg.UploadDir(), appLogger)
	if err := storage.CheckWritable(); err != nil {
		appLogger.Error("Upload directory is not writable", slog.String("dir", storage.Dir()), slog.String("error", err.Error()))
		os.Exit(1)
	}

	ingestion, err := services.NewIngestionService(
		storage,
		services.NewPDFExtractor(cfg.MaxExtractSize, appLogger),
		services.NewChunkingService(cfg.MaxChunkSize),
		services.WithPoolSize(cfg.ExtractionWorkers),
		services.WithUploadLimits(cfg.MaxFileSize, cfg.MaxMemory),
		services.WithMetrics(metrics),
		services.WithLogger(appLogger),
	)
	if err != nil {
		appLogger.Error("Failed to create ingestion service", slog.String("error", err.Error()))
		os.Exit(1)
	}

	cron := services.NewCronService(appLogger)
	if err := cron.ScheduleStorageSweep(storage, cfg.StorageSweepInterval, cfg.StorageSweepAge); err != nil {
		appLogger.Error("Failed to schedule storage sweep", slog.String("error", err.Error()))
		os.Exit(1)
	}
	cron.Start()

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := setupRouter(cfg, ingestion, storage, rdb, metrics, appLogger)

	// Create HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		appLogger.Info("Server starting", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Failed to start server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := utils.WithLongTimeout(context.Background())
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", slog.String("error", err.Error()))
	}

	cron.Stop()
	ingestion.Release()
	if rdb != nil {
		rdb.Close()
	}
	shutdownTracer(ctx)

	appLogger.Info("Server exited")
}

// setupRouter wires middleware and routes. rdb and metrics may be nil.
func setupRouter(
	cfg *config.Config,
	ingester routes.Ingester,
	storage routes.StorageProbe,
	rdb *redis.Client,
	metrics *telemetry.Metrics,
	appLogger *slog.Logger,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.TracingMiddleware(cfg.ServiceName))
	router.Use(middleware.EnrichTrace())
	router.Use(middleware.MetricsMiddleware(metrics))
	router.Use(middleware.RequestLogger(appLogger))
	router.Use(middleware.CORSMiddlewareWithOrigins(cfg.CORSOrigins))
	router.Use(middleware.NewRateLimiter(rdb, cfg, metrics, appLogger).Middleware())
	router.Use(middleware.Compression())

	routes.SetupHealthRoutes(router, storage, rdb)
	routes.SetupUploadRoutes(router, ingester, middleware.RequestSizeLimit(cfg.MaxFileSize))

	return router
}
