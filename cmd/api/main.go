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

	"go.uber.org/zap"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	pkgvalidator "github.com/johnquangdev/transcript-pipeline/pkg/validator"

	"github.com/johnquangdev/transcript-pipeline/internal/adapter/handler"
	"github.com/johnquangdev/transcript-pipeline/internal/adapter/repository"
	"github.com/johnquangdev/transcript-pipeline/internal/domain/providers"
	"github.com/johnquangdev/transcript-pipeline/internal/infrastructure/cache"
	"github.com/johnquangdev/transcript-pipeline/internal/infrastructure/database"
	"github.com/johnquangdev/transcript-pipeline/internal/infrastructure/storage"
	"github.com/johnquangdev/transcript-pipeline/internal/usecase/analysis"
	"github.com/johnquangdev/transcript-pipeline/internal/usecase/transcription"
	pkgai "github.com/johnquangdev/transcript-pipeline/pkg/ai"
	"github.com/johnquangdev/transcript-pipeline/pkg/config"
)

// @title           Transcript Pipeline API
// @version         1.0
// @description     Transcription job orchestration: submit audio, poll jobs, fetch speaker-attributed
// @description     transcripts, summaries, key phrases and translations.

// @contact.name   API Support

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @BasePath  /v1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg.Server.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Echo instance
	e := echo.New()

	// Register validator for request validation
	e.Validator = pkgvalidator.New()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = false

	// Custom logger format
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))

	// Recover from panics
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	// CORS middleware
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderXRequestID},
	}))

	logger.Info("🔧 Initializing dependencies...")

	// Initialize Database
	logger.Info("📦 Connecting to database...")
	db, err := database.NewPostgresDB(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.CloseDB(db)

	if cfg.Database.AutoMigrate {
		logger.Info("🔄 Applying sql-migrate migrations", zap.String("dir", cfg.Database.MigrationsDir))
		applied, err := database.RunMigrations(db, cfg.Database.MigrationsDir)
		if err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
		logger.Info("✅ Migrations applied", zap.Int("count", applied))
	} else {
		logger.Info("🔄 Skipping migrations; run sql-migrate in CI/CD")
	}

	checks := map[string]handler.HealthChecker{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	// Poll snapshot cache: Redis when enabled, in-process otherwise
	var snapshots cache.Store
	if cfg.Redis.Enabled {
		logger.Info("📦 Connecting to Redis...")
		redisClient, err := cache.NewRedisClient(cfg)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		redisStore := cache.NewRedisStore(redisClient)
		snapshots = redisStore
		checks["redis"] = redisStore.Ping
	} else {
		logger.Warn("⚠️  Redis disabled, poll snapshots cached in memory")
		memory := cache.NewMemoryStore()
		defer memory.Close()
		snapshots = memory
	}

	// Object storage for presigned audio URLs. Without it only URL locators can be submitted.
	var signer providers.AudioURLSigner
	storageCtx, cancelStorage := context.WithTimeout(context.Background(), 10*time.Second)
	minioClient, err := storage.NewMinIOClient(storageCtx, &cfg.Storage)
	cancelStorage()
	if err != nil {
		logger.Warn("⚠️  Object storage unavailable, only http(s) source locators accepted", zap.Error(err))
	} else {
		signer = minioClient
		checks["storage"] = minioClient.Ping
	}

	// Initialize repositories
	logger.Info("⚙️  Initializing repositories...")
	jobRepo := repository.NewJobRepository(db)
	resultRepo := repository.NewResultRepository(db)
	noteRepo := repository.NewNoteRepository(db)

	// Initialize provider clients
	logger.Info("🤖 Initializing AI components...")
	asmClient := pkgai.NewAssemblyAIClient(&cfg.Assembly)
	groqClient := pkgai.NewGroqClient(&cfg.Groq)

	tcfg := cfg.Transcription
	assembler := transcription.NewAssembler(asmClient, tcfg.ProviderCallTimeout, logger)
	reconciler := transcription.NewReconciler(jobRepo, resultRepo, asmClient, assembler, nil,
		transcription.ReconcilerConfig{
			CallTimeout:  tcfg.ProviderCallTimeout,
			RequeryDelay: tcfg.RequeryDelay,
		}, logger)
	jobService := transcription.NewService(jobRepo, resultRepo, asmClient, reconciler, signer, noteRepo, snapshots,
		transcription.ServiceConfig{
			CallTimeout:  tcfg.ProviderCallTimeout,
			AudioURLTTL:  tcfg.AudioURLTTL,
			PollCacheTTL: tcfg.PollCacheTTL,
		}, logger)
	analysisManager := analysis.NewAnalysisManager(jobRepo, resultRepo, groqClient, analysis.Config{
		CallTimeout:     tcfg.ProviderCallTimeout,
		KeyPhraseLimit:  tcfg.KeyPhraseLimit,
		DefaultLanguage: tcfg.DefaultLanguage,
	}, logger)
	translationManager := analysis.NewTranslationManager(jobRepo, resultRepo, groqClient, tcfg.ProviderCallTimeout, logger)

	// Setup router with handlers
	logger.Info("🛣️  Setting up routes...")
	controller := handler.NewTranscriptionController(jobService, analysisManager, translationManager, logger)
	router := handler.NewRouter(cfg, controller, checks)
	router.Setup(e)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		logger.Info("🚀 Starting server",
			zap.String("addr", addr),
			zap.String("environment", cfg.Server.Environment),
		)

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Error("❌ Server forced to shutdown", zap.Error(err))
		return
	}

	logger.Info("✅ Server stopped gracefully")
}

func newLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
