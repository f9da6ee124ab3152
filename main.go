package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"crop-advisor-service/config"
	"crop-advisor-service/database"
	"crop-advisor-service/gemini"
	"crop-advisor-service/handlers"
	"crop-advisor-service/llm"
	"crop-advisor-service/metrics"
	"crop-advisor-service/middleware"
	"crop-advisor-service/openai"
	"crop-advisor-service/rabbitmq"
	"crop-advisor-service/service"
	"crop-advisor-service/services"
	"crop-advisor-service/stubllm"
	"crop-advisor-service/translate"
)

func main() {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := config.Load()

	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	log.Info("Starting the crop advisor service...")

	// Initialize database. A missing credential degrades the service to
	// diagnosis-only mode instead of crashing it.
	db, err := database.NewDatabase(cfg)
	if err != nil {
		if errors.Is(err, database.ErrNoCredentials) {
			log.Warn("Database credentials not configured, running without persistence")
		} else {
			log.Fatalf("Failed to initialize database: %v", err)
		}
	}
	defer db.Close()

	if db.Ready() {
		if err := db.CreateTables(); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
	}

	// Select the diagnosis provider
	llmClient := newLLMClient(cfg)
	log.Infof("Using %s as diagnosis provider", llmClient.SourceName())

	// Initialize the completed-prediction publisher. Optional: without a
	// broker URL the pipeline simply does not publish.
	var publisher *rabbitmq.Publisher
	if cfg.AMQPURL != "" {
		publisher, err = rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.PredictionDoneRoutingKey)
		if err != nil {
			log.WithError(err).Warn("Failed to connect to RabbitMQ, running without event publishing")
			publisher = nil
		} else {
			defer publisher.Close()
		}
	}

	// Initialize services
	pipeline := service.NewService(cfg, db, llmClient, publisher)
	translator := translate.NewTranslator(llmClient)

	hub := services.NewWebSocketHub()
	go hub.Start()

	metrics.Register()

	// Initialize handlers
	h := handlers.NewHandlers(cfg, pipeline, db, translator, hub)
	wsHandler := handlers.NewWebSocketHandler(hub)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer rateLimiter.Stop()

	// Setup HTTP server
	router := gin.Default()
	router.Use(middleware.CORSMiddleware())

	router.GET("/health", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	api := router.Group("/api/v1")
	api.Use(rateLimiter.Middleware())
	{
		api.POST("/diagnose", middleware.OptionalAuthMiddleware(cfg.JWTSecret), h.Diagnose)
		api.POST("/translate", h.Translate)
		api.GET("/history", middleware.AuthMiddleware(cfg.JWTSecret), h.GetPredictionHistory)
		api.GET("/activity", middleware.AuthMiddleware(cfg.JWTSecret), h.GetActivityLog)
		api.GET("/ws", middleware.OptionalAuthMiddleware(cfg.JWTSecret), wsHandler.ListenPredictions)
		api.GET("/ws/stats", wsHandler.Stats)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Infof("Starting HTTP server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	hub.Stop()

	// Create a deadline for server shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}

// newLLMClient picks the diagnosis provider from configuration. Without any
// API key the deterministic stub serves local development.
func newLLMClient(cfg *config.Config) llm.Client {
	switch cfg.LLMProvider {
	case "openai":
		if cfg.OpenAIAPIKey != "" {
			return openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		}
	default:
		if cfg.GeminiAPIKey != "" {
			return gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel)
		}
		if cfg.OpenAIAPIKey != "" {
			return openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		}
	}
	log.Warn("No LLM API key configured, using deterministic stub provider")
	return stubllm.NewClient()
}
