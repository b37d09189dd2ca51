package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/churnsight/backend/internal/api/handlers"
	"github.com/churnsight/backend/internal/assessment"
	"github.com/churnsight/backend/internal/cache/redis"
	"github.com/churnsight/backend/internal/exemplar/milvus"
	"github.com/churnsight/backend/internal/insight"
	"github.com/churnsight/backend/internal/metrics"
	"github.com/churnsight/backend/internal/middleware/ratelimit"
	"github.com/churnsight/backend/internal/middleware/security"
	"github.com/churnsight/backend/internal/middleware/validation"
	"github.com/churnsight/backend/internal/storage/sqlite"
	"github.com/churnsight/backend/pkg/config"
	appLogger "github.com/churnsight/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting churn risk API server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema(context.Background())
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	exemplarStore, err := milvus.NewStore(
		cfg.Milvus.Endpoint,
		cfg.Milvus.APIKey,
		cfg.Milvus.CollectionName,
		cfg.Milvus.VectorDim,
	)
	if err != nil {
		appLogger.Fatal("Failed to create exemplar store", zap.Error(err))
	}
	defer exemplarStore.Close()

	err = exemplarStore.CreateCollection(context.Background())
	if err != nil {
		appLogger.Fatal("Failed to create collection", zap.Error(err))
	}

	var reportCache *redis.Client
	if cfg.Redis.Enabled {
		reportCache, err = redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Redis unavailable, running without report cache", zap.Error(err))
			reportCache = nil
		} else {
			defer reportCache.Close()
		}
	}

	provider := insight.NewOpenAIProvider(
		cfg.Insight.APIKey,
		cfg.Insight.Model,
		cfg.Insight.Temperature,
		cfg.Insight.MaxTokens,
		time.Duration(cfg.Insight.TimeoutSec)*time.Second,
		cfg.Insight.MaxRetries,
	)

	engine := assessment.NewEngine(sqliteClient, exemplarStore, provider, assessment.Options{
		WindowDays:       cfg.Assessment.WindowDays,
		TopK:             cfg.Assessment.TopK,
		MinSimilarity:    cfg.Assessment.MinSimilarity,
		InsightWeight:    cfg.Assessment.InsightWeight,
		SimilarityWeight: cfg.Assessment.SimilarityWeight,
		FreshChurnDays:   cfg.Assessment.FreshChurnDays,
		FreshChurnBoost:  cfg.Assessment.FreshChurnBoost,
		HighValueMonthly: cfg.Assessment.HighValueMonthly,
		BatchConcurrency: cfg.Assessment.BatchConcurrency,
	})

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		IsDevelopment: cfg.Logging.Level == "debug",
	}))

	rateLimiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.Server.RateLimitRPM,
		Logger:               appLogger.GetLogger(),
	})
	defer rateLimiter.Stop()
	app.Use(rateLimiter.Middleware())

	app.Use(validation.Middleware(validation.Config{
		MaxBodySize: cfg.Server.BodyLimit,
		Logger:      appLogger.GetLogger(),
	}))

	reportTTL := time.Duration(cfg.Redis.ReportTTL) * time.Second

	var cacheForHandlers handlers.ReportCache
	var cachePinger handlers.Pinger
	if reportCache != nil {
		cacheForHandlers = reportCache
		cachePinger = reportCache
	}

	customerHandler := handlers.NewCustomerHandler(engine, sqliteClient, cacheForHandlers, reportTTL)
	exemplarHandler := handlers.NewExemplarHandler(exemplarStore, sqliteClient, cfg.Milvus.VectorDim)
	healthHandler := handlers.NewHealthHandler(sqliteClient, exemplarStore, cachePinger, cfg.Insight.APIKey != "")
	wsHandler := handlers.NewWebSocketHandler(engine)

	api := app.Group("/api/v1")

	api.Get("/customers", customerHandler.ListCustomers)
	api.Get("/customers/at-risk", customerHandler.AtRiskCustomers)
	api.Get("/customers/:id/analysis", customerHandler.AnalyzeCustomer)
	api.Get("/customers/:id/history", customerHandler.GetHistory)
	api.Post("/customers/analyze-all", customerHandler.AnalyzeAll)

	api.Post("/exemplars", exemplarHandler.IndexExemplar)
	api.Get("/exemplars", exemplarHandler.ListChurnRecords)

	api.Get("/health", healthHandler.Health)
	api.Get("/ping", healthHandler.Ping)

	app.Get("/metrics", metrics.MetricsHandler())

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/assessments", websocket.New(wsHandler.HandleConnection))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
