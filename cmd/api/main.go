// @title Quizly API
// @version 1.0
// @description Turns YouTube videos into stored multiple-choice quizzes.
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
// @description Type 'Bearer YOUR_JWT_TOKEN' to authorize. Browsers send the access_token cookie instead.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"quizly/internal/adapter"
	"quizly/internal/adapter/fetcher"
	"quizly/internal/adapter/quizgen"
	"quizly/internal/adapter/transcriber"
	"quizly/internal/cache"
	"quizly/internal/config"
	"quizly/internal/database"
	"quizly/internal/domain"
	"quizly/internal/handler"
	"quizly/internal/logger"
	"quizly/internal/repository"
	"quizly/internal/service"
	"quizly/internal/validation"

	_ "quizly/cmd/api/docs"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Initialize(cfg.Logger); err != nil {
		panic(err)
	}
	appLogger := logger.Get()
	defer logger.Sync()

	ctx := context.Background()

	// Connect to database
	db, err := database.Open(ctx, cfg)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Redis backs the refresh token blacklist. Without it logout cannot revoke tokens.
	var (
		cacheAdapter domain.Cache
		blacklist    domain.TokenBlacklist
	)
	if cfg.Redis.Address != "" {
		redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		cacheAdapter = adapter.NewRedisCacheAdapter(redisClient)
		blacklist = adapter.NewCacheTokenBlacklist(cacheAdapter)
		appLogger.Info("Successfully connected to Redis", zap.String("address", cfg.Redis.Address))
	} else {
		appLogger.Warn("Redis address not configured, refresh tokens cannot be revoked on logout")
	}

	// Pipeline stages
	audioFetcher := fetcher.NewYTDLPFetcher(cfg.Fetcher, appLogger.Named("fetcher"))
	if err := audioFetcher.CheckToolchain(); err != nil {
		appLogger.Warn("Audio toolchain incomplete, quiz builds will fail at the fetch stage", zap.Error(err))
	}
	audioTranscriber, err := transcriber.New(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to configure transcriber", zap.Error(err))
	}
	quizGenerator, err := quizgen.New(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to configure quiz generator", zap.Error(err))
	}
	quizValidator := validation.NewQuizValidator()
	pipeline := service.NewPipelineFromConfig(cfg.Pipeline,
		audioFetcher, audioTranscriber, quizGenerator, quizValidator, appLogger)
	builder := service.NewCachedQuizBuilder(pipeline, cacheAdapter, quizValidator, cfg.Pipeline.ResultCacheTTL)

	// Initialize repositories
	userRepository := repository.NewSQLXUserRepository(db)
	quizRepository := repository.NewSQLXQuizRepository(db)
	txManager := repository.NewTransactionManagerAdapter(db)

	// Initialize services
	authService, err := service.NewAuthService(userRepository, blacklist, cfg.JWT)
	if err != nil {
		appLogger.Fatal("Failed to create AuthService", zap.Error(err))
	}
	quizService := service.NewQuizService(builder, quizRepository, txManager)

	// cancelled on shutdown so in-flight quiz builds stop
	serverCtx, stopRequests := context.WithCancel(context.Background())
	defer stopRequests()

	app := newApp(serverCtx, cfg, routeHandlers{
		auth:      handler.NewAuthHandler(authService, cfg),
		quiz:      handler.NewQuizHandler(quizService),
		health:    handler.NewHealthHandler(db, cacheAdapter),
		validator: authService,
	})

	go func() {
		appLogger.Info("Starting server", zap.Int("port", cfg.Server.Port), zap.String("env", cfg.Logger.Env))
		if err := app.Listen(":" + strconv.Itoa(cfg.Server.Port)); err != nil {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")
	stopRequests()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	appLogger.Info("Server exited gracefully")
}
