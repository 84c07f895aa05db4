package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/garyjia/purchase-approval/internal/application/port"
	"github.com/garyjia/purchase-approval/internal/application/service"
	"github.com/garyjia/purchase-approval/internal/config"
	"github.com/garyjia/purchase-approval/internal/domain/approval"
	"github.com/garyjia/purchase-approval/internal/infrastructure/external/openai"
	"github.com/garyjia/purchase-approval/internal/infrastructure/external/veryfi"
	"github.com/garyjia/purchase-approval/internal/infrastructure/persistence/repository"
	"github.com/garyjia/purchase-approval/internal/infrastructure/storage"
	httpserver "github.com/garyjia/purchase-approval/internal/interfaces/http"
	"github.com/garyjia/purchase-approval/internal/report"
	"github.com/garyjia/purchase-approval/pkg/database"
	"github.com/garyjia/purchase-approval/pkg/utils"
)

func main() {
	// Load .env if present so credentials reach viper's env bindings
	gotenv.Load()

	// Load configuration
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Purchase Approval Service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Initialize database
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Create the bill storage directory
	if err := os.MkdirAll(cfg.Storage.Dir, 0755); err != nil {
		logger.Fatal("Failed to create storage directory", zap.Error(err))
	}

	// Initialize repositories and adapters
	purchaseRepo := repository.NewPurchaseRepository(db.DB, logger)
	blobStore := storage.NewLocalBlobStore(cfg.Storage.Dir, cfg.Storage.BaseURL, logger)
	extractor := buildExtractor(cfg, logger)

	// Initialize the approval policy and lifecycle engine
	policy := approval.NewPolicy(cfg.Approval.Threshold)
	serviceLogger := &zapServiceLogger{logger.Sugar()}
	engine := service.NewLifecycleEngine(
		purchaseRepo,
		blobStore,
		extractor,
		policy,
		serviceLogger,
		service.WithExtractionTimeout(cfg.Extraction.Timeout),
	)

	exporter := report.NewExporter(logger)

	// Initialize HTTP server
	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		UploadsDir:   cfg.Storage.Dir,
		UploadsPath:  cfg.Storage.BaseURL,
	}, engine, exporter, serviceLogger)

	// Run until interrupted
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}

// buildExtractor selects the document extraction provider. A nil extractor
// disables extraction; submissions then carry no OCR data.
func buildExtractor(cfg *config.Config, logger *zap.Logger) port.DocumentExtractor {
	switch cfg.Extraction.Provider {
	case "veryfi":
		return veryfi.NewClient(veryfi.Config{
			BaseURL:  cfg.Extraction.Veryfi.BaseURL,
			ClientID: cfg.Extraction.Veryfi.ClientID,
			Username: cfg.Extraction.Veryfi.Username,
			APIKey:   cfg.Extraction.Veryfi.APIKey,
			Timeout:  cfg.Extraction.Timeout,
		}, logger)
	case "openai":
		return openai.NewExtractor(cfg.Extraction.OpenAI.APIKey, cfg.Extraction.OpenAI.Model, logger)
	default:
		logger.Warn("Document extraction disabled", zap.String("provider", cfg.Extraction.Provider))
		return nil
	}
}

// zapServiceLogger adapts a sugared zap logger to the application layer's
// logging interface
type zapServiceLogger struct {
	sugar *zap.SugaredLogger
}

func (l *zapServiceLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *zapServiceLogger) Error(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}
