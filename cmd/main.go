package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"noddy-ai-backend/internal/chat"
	"noddy-ai-backend/internal/config"
	"noddy-ai-backend/internal/logger"
	"noddy-ai-backend/internal/provider"
	"noddy-ai-backend/internal/quota"
	"noddy-ai-backend/internal/rag"
	"noddy-ai-backend/internal/telemetry"
	"noddy-ai-backend/middleware"
	"noddy-ai-backend/routes"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	if endpoint := os.Getenv("OTLP_ENDPOINT"); endpoint != "" {
		shutdown, err := telemetry.InitTracer("noddy-ai-backend", endpoint)
		if err != nil {
			logger.Warn("tracing disabled", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Wire the RAG core. The vector index and quota ledger are the only
	// process-wide mutable state.
	embedder, err := rag.NewEmbedder(cfg)
	if err != nil {
		log.Fatal("Failed to create embedder:", err)
	}
	index := rag.NewVectorIndex(cfg.VectorDimensions)
	chunker := rag.NewChunker(cfg.MaxChunkSize)
	ingestor := rag.NewIngestor(chunker, embedder, index)
	retriever := rag.NewRetriever(index, embedder, cfg.RetrievalTopK)

	ledger := quota.NewLedger(cfg.DailyRequestLimit)
	router := provider.NewRouter(cfg)
	client := provider.NewClient(time.Duration(cfg.ChatTimeoutSec) * time.Second)
	assembler := chat.NewAssembler(cfg.HistoryLimit)
	orchestrator := chat.NewOrchestrator(ledger, retriever, router, client, assembler)

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Logger())
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(middleware.TracingMiddleware())
	engine.Use(middleware.EnrichTrace())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", cfg.QuotaKeyHeader, "X-Requested-With"}
	corsConfig.AllowCredentials = true
	engine.Use(cors.New(corsConfig))

	// Redis-backed rate limiting is optional; the ledger still bounds
	// per-identity usage without it.
	if cfg.RedisEnabled {
		rdb, err := config.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("redis unavailable, HTTP rate limiting disabled", "error", err)
		} else {
			engine.Use(middleware.RateLimitMiddleware(rdb, cfg))
		}
	}

	engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Noddy AI Backend is running"})
	})
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	// Setup routes
	routes.SetupDocumentRoutes(engine, ingestor)
	routes.SetupChatRoutes(engine, cfg, orchestrator)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: engine,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
