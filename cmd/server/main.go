package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"services/symbol-data-service/internal/config"
	"services/symbol-data-service/internal/dispatch"
	"services/symbol-data-service/internal/handler"
	"services/symbol-data-service/internal/metrics"
	"services/symbol-data-service/internal/middleware"
	"services/symbol-data-service/internal/repository"
	"services/symbol-data-service/internal/scheduler"
	"services/symbol-data-service/internal/service"

	"github.com/gin-gonic/gin"
	goredis "github.com/go-redis/redis/v8"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly
	godotenv.Load()

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Set up logger
	logger, err := createLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Prices serialize as JSON numbers, matching what the dashboard expects
	decimal.MarshalJSONWithoutQuotes = true

	// Connect to database
	db, err := connectToDB(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Task dispatcher; the broker connection is dialed lazily on first use
	dispatcher := dispatch.NewDispatcher(dispatch.Config{
		BrokerURL:     cfg.Celery.BrokerURL,
		ResultBackend: cfg.Celery.ResultBackend,
	}, logger)

	// Metrics
	m := metrics.New(prometheus.DefaultRegisterer)

	// Initialize repositories
	symbolRepo := repository.NewSymbolRepository(db, logger)
	symbolDataRepo := repository.NewSymbolDataRepository(db, logger)

	// Initialize services
	symbolService := service.NewSymbolService(symbolRepo, dispatcher, m, cfg.Celery.AwaitTimeout, logger)
	timeSeriesService := service.NewTimeSeriesService(symbolDataRepo, m, logger)

	// Initialize handlers
	symbolHandler := handler.NewSymbolHandler(symbolService, timeSeriesService, logger)

	// Optional response cache
	var cache *middleware.RedisCache
	if cfg.Cache.Enabled {
		opts, err := goredis.ParseURL(cfg.Cache.RedisURL)
		if err != nil {
			logger.Fatal("Invalid cache redis URL", zap.Error(err))
		}
		cache = middleware.NewRedisCache(goredis.NewClient(opts), middleware.CacheConfig{
			Enabled:         true,
			DefaultDuration: cfg.Cache.TTL,
			PrefixKey:       cfg.Cache.Prefix,
		}, logger)
	}

	// Periodic symbol refresh
	var refresh *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		refresh = scheduler.New(dispatcher, cfg.Scheduler.UpdateInterval, logger)
		refresh.Start()
	}

	// Set up HTTP server with Gin
	router := setupRouter(symbolHandler, cache, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	if refresh != nil {
		refresh.Stop()
	}

	// Create a deadline for server shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	// Give in-flight import observers a bounded chance to record outcomes
	done := make(chan struct{})
	go func() {
		symbolService.WaitForImports()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn("Shutting down with import observers still pending")
	}

	logger.Info("Server exited properly")
}

func createLogger(level string) (*zap.Logger, error) {
	// Parse log level
	var zapLevel zap.AtomicLevel
	switch level {
	case "debug":
		zapLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapLevel = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapLevel = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	// Create logger config
	config := zap.Config{
		Level:            zapLevel,
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return config.Build()
}

func connectToDB(dbConfig config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		dbConfig.Host,
		dbConfig.Port,
		dbConfig.User,
		dbConfig.Password,
		dbConfig.DBName,
		dbConfig.SSLMode,
	)

	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(dbConfig.MaxOpenConns)
	db.SetMaxIdleConns(dbConfig.MaxIdleConns)
	db.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	return db, nil
}

func setupRouter(
	symbolHandler *handler.SymbolHandler,
	cache *middleware.RedisCache,
	logger *zap.Logger,
) *gin.Engine {
	router := gin.New()

	// Use middlewares
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	v1 := router.Group("/api/v1")
	{
		symbols := v1.Group("/symbols")
		if cache != nil {
			symbols.Use(cache.Middleware())
		}
		{
			symbols.GET("", symbolHandler.GetAllSymbols)
			symbols.GET("/:symbol", symbolHandler.GetSymbolData)

			if cache != nil {
				symbols.POST("/:symbol", cache.Invalidate(), symbolHandler.RegisterSymbol)
			} else {
				symbols.POST("/:symbol", symbolHandler.RegisterSymbol)
			}
			symbols.POST("/:symbol/report", symbolHandler.RequestReport)
		}
	}

	return router
}
