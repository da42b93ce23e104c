package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vcscsvcscs/raredx/apps/backend/internal/audit"
	"github.com/vcscsvcscs/raredx/apps/backend/internal/azure"
	"github.com/vcscsvcscs/raredx/apps/backend/internal/config"
	"github.com/vcscsvcscs/raredx/apps/backend/internal/diagnosis"
	"github.com/vcscsvcscs/raredx/apps/backend/internal/handler"
	"github.com/vcscsvcscs/raredx/apps/backend/internal/intake"
	"github.com/vcscsvcscs/raredx/apps/backend/internal/middleware"
	"github.com/vcscsvcscs/raredx/apps/backend/internal/security"
	"github.com/vcscsvcscs/raredx/apps/backend/internal/service"
	"github.com/vcscsvcscs/raredx/apps/backend/pkg/api"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded successfully",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("diagnosis_base_url", cfg.Diagnosis.BaseURL),
	)

	// The audit database is optional; without it entries only go to the log.
	var pool *pgxpool.Pool
	if cfg.Database.URL != "" {
		pool, err = newPool(context.Background(), cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer pool.Close()
		logger.Info("Successfully connected to database")

		if cfg.Database.AutoMigrate {
			if err := audit.Migrate(cfg.Database.URL, logger); err != nil {
				logger.Fatal("Failed to apply migrations", zap.Error(err))
			}
		}
	}
	auditLogger := audit.NewLogger(pool, logger)

	openAIClient, err := azure.NewOpenAIClient(
		cfg.Azure.OpenAI.Endpoint,
		cfg.Azure.OpenAI.APIKey,
		cfg.Azure.OpenAI.Deployment,
		azure.SamplingOptions{
			Temperature: cfg.Azure.OpenAI.Temperature,
			TopP:        cfg.Azure.OpenAI.TopP,
			MaxTokens:   cfg.Azure.OpenAI.MaxTokens,
		},
		logger,
	)
	if err != nil {
		logger.Fatal("Failed to initialize Azure OpenAI client", zap.Error(err))
	}

	archive, err := newIntakeArchive(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize intake archive", zap.Error(err))
	}

	diagnosisService := service.NewDiagnosisService(openAIClient, archive, auditLogger, logger)

	// Intake sessions submit through the HTTP diagnosis API, by default the
	// one served by this process.
	diagnosisClient, err := diagnosis.NewClient(cfg.Diagnosis.BaseURL, cfg.Diagnosis.Timeout, logger)
	if err != nil {
		logger.Fatal("Failed to initialize diagnosis client", zap.Error(err))
	}

	intakeService := service.NewIntakeService(intake.DefaultCatalog(), diagnosisClient, service.IntakeOptions{
		SessionTTL:    cfg.Intake.SessionTTL,
		SubmitTimeout: cfg.Diagnosis.Timeout,
		MaxSessions:   cfg.Intake.MaxSessions,
	}, auditLogger, logger)

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go intakeService.RunJanitor(janitorCtx, cfg.Intake.SweepInterval)

	var db handler.Pinger
	if pool != nil {
		db = pool
	}
	apiHandler := handler.API{
		IntakeHandler:    handler.NewIntakeHandler(intakeService, cfg.Server.AllowedOrigins, logger),
		DiagnosisHandler: handler.NewDiagnosisHandler(diagnosisService, logger),
		HealthHandler:    handler.NewHealthHandler(db, intakeService, logger),
	}

	validator, err := middleware.NewOpenAPIValidator(api.OpenAPIDocument, logger)
	if err != nil {
		logger.Fatal("Failed to load OpenAPI document", zap.Error(err))
	}

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Add recovery middleware (must be first)
	r.Use(middleware.RecoveryMiddleware(logger))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: !allowsAnyOrigin(cfg.Server.AllowedOrigins),
		MaxAge:           12 * time.Hour,
	}))

	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RequestLoggingMiddleware(logger))
	r.Use(middleware.ErrorLoggingMiddleware(logger))
	r.Use(middleware.SlowRequestMiddleware(logger, 30*time.Second))
	r.Use(validator.Middleware())

	api.RegisterHandlers(r, apiHandler)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Sessions go first so open state streams end and in-flight
	// submissions are abandoned before the listener drains.
	stopJanitor()
	intakeService.Close()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// newLogger builds the production or development zap logger and applies the
// configured level and encoding
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewDevelopmentConfig()
	if cfg.Server.Environment == "production" {
		zapCfg = zap.NewProductionConfig()
	}

	if cfg.Logging.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return nil, err
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}
	if cfg.Logging.Format == "json" || cfg.Logging.Format == "console" {
		zapCfg.Encoding = cfg.Logging.Format
	}

	return zapCfg.Build()
}

func newPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// newIntakeArchive picks the blob backend: a connection string, then an
// account key. It returns nil when no storage account is configured; intakes
// are never held in process memory.
func newIntakeArchive(cfg *config.Config, logger *zap.Logger) (*service.IntakeArchive, error) {
	storageCfg := cfg.Azure.Storage

	if !cfg.StorageConfigured() {
		logger.Warn("Azure Storage not configured, intakes are not archived")
		return nil, nil
	}

	var storage azure.BlobStorage
	if storageCfg.ConnectionString != "" {
		client, err := azure.NewBlobStorageClientFromConnectionString(storageCfg.ConnectionString, storageCfg.IntakeContainer, logger)
		if err != nil {
			return nil, err
		}
		storage = client
	} else {
		client, err := azure.NewBlobStorageClient(storageCfg.AccountName, storageCfg.AccountKey, storageCfg.BlobEndpoint, storageCfg.IntakeContainer, logger)
		if err != nil {
			return nil, err
		}
		storage = client
	}

	var encryptor *security.Encryptor
	if cfg.Security.ArchiveKey != "" {
		var err error
		encryptor, err = security.NewEncryptorFromBase64(cfg.Security.ArchiveKey)
		if err != nil {
			return nil, err
		}
	}

	return service.NewIntakeArchive(storage, encryptor, logger), nil
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
