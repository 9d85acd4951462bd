package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/buzzboard/backend/internal/v1/config"
	"github.com/buzzboard/backend/internal/v1/game"
	"github.com/buzzboard/backend/internal/v1/generator"
	"github.com/buzzboard/backend/internal/v1/health"
	"github.com/buzzboard/backend/internal/v1/httpapi"
	"github.com/buzzboard/backend/internal/v1/logging"
	"github.com/buzzboard/backend/internal/v1/ratelimit"
	"github.com/buzzboard/backend/internal/v1/store"
	"github.com/buzzboard/backend/internal/v1/tracing"
	"github.com/buzzboard/backend/internal/v1/transport"
)

func main() {
	// Load .env file for local development.
	// Try multiple paths to handle different ways of running the app
	envPaths := []string{".env", "../../../.env", "../../.env"}
	var envLoaded bool

	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			slog.Info("Loaded environment from", "path", path)
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		slog.Warn("No .env file found in any expected location, relying on environment variables")
	}

	// Validate environment variables before starting the server
	cfg, err := config.ValidateEnv()
	if err != nil {
		slog.Error("Environment validation failed", "error", err)
		os.Exit(1)
	}

	if err := logging.Initialize(cfg.DevelopmentMode); err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}

	if cfg.DevelopmentMode {
		slog.Info("Running in DEVELOPMENT MODE")
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- Tracing (optional) ---
	if cfg.OtelEndpoint != "" {
		tp, err := tracing.InitTracer(context.Background(), "buzzboard", cfg.OtelEndpoint)
		if err != nil {
			slog.Error("Failed to initialize tracing, continuing without it", "error", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = tp.Shutdown(ctx)
			}()
			slog.Info("✅ Tracing initialized", "endpoint", cfg.OtelEndpoint)
		}
	}

	// --- Persistence ---
	var gameStore store.GameStore
	var redisClient *redis.Client
	switch cfg.PersistenceBackend {
	case config.BackendDocumentStore:
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			slog.Error("Failed to connect to Redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		cancel()
		gameStore = store.NewRedisStore(redisClient)
		slog.Info("✅ Using Redis document store", "addr", cfg.RedisAddr)
	default:
		fsStore, err := store.NewFilesystemStore(cfg.GamesDir)
		if err != nil {
			slog.Error("Failed to initialize filesystem store", "dir", cfg.GamesDir, "error", err)
			os.Exit(1)
		}
		gameStore = fsStore
		slog.Info("✅ Using filesystem store", "dir", cfg.GamesDir)
	}

	// --- Rate limiting ---
	rateLimiter, err := ratelimit.New(cfg.RateLimitAPI, cfg.RateLimitWsIP, redisClient)
	if err != nil {
		slog.Error("Failed to initialize rate limiter", "error", err)
		os.Exit(1)
	}

	// --- AI generator (optional) ---
	var builder httpapi.GameBuilder
	if cfg.GeneratorEndpoint != "" {
		builder = generator.NewBuilder(generator.NewClient(cfg.GeneratorEndpoint, cfg.GeneratorAPIKey))
		slog.Info("✅ Game generator configured", "endpoint", cfg.GeneratorEndpoint)
	} else {
		slog.Warn("GENERATOR_ENDPOINT not set, game generation disabled")
	}

	// --- Gateway ---
	hub := transport.NewHub(transport.HubOptions{
		Store:       gameStore,
		RateLimiter: rateLimiter,
		RoomOptions: game.Options{
			TieWindow:          cfg.TieWindow,
			TieBuffer:          cfg.TieBuffer,
			FinalAnswerTimeout: cfg.FinalAnswerTimeout,
		},
		PingInterval:   cfg.PingInterval,
		PongTimeout:    cfg.PongTimeout,
		RoomGrace:      cfg.RoomGrace,
		AllowedOrigins: []string{cfg.FrontendOrigin},
	})

	// --- Set up Server ---
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.OtelEndpoint != "" {
		router.Use(otelgin.Middleware("buzzboard"))
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.FrontendOrigin}
	router.Use(cors.New(corsConfig))

	// Routing
	router.GET("/ws", hub.ServeWs)

	apiGroup := router.Group("/api")
	apiGroup.Use(rateLimiter.APIMiddleware())
	httpapi.NewHandler(gameStore, builder).Register(apiGroup)

	// Prometheus metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check endpoints
	healthHandler := health.NewHandler(gameStore)
	router.GET("/health", healthHandler.Basic)
	router.GET("/health/live", healthHandler.Liveness)
	router.GET("/health/ready", healthHandler.Readiness)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// --- Graceful Shutdown ---
	// Start the server in a goroutine so it doesn't block.
	go func() {
		slog.Info("API server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Failed to run server", "error", err)
			syscall.Kill(os.Getpid(), syscall.SIGTERM)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Close all active rooms and WebSocket connections gracefully
	if err := hub.Shutdown(ctx); err != nil {
		slog.Error("Error during Hub shutdown:", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown:", "error", err)
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			slog.Error("Failed to close Redis connection:", "error", err)
		} else {
			slog.Info("Redis connection closed")
		}
	}

	slog.Info("Server exiting")
}
