package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"visionestate/listing-portal/listing-portal-backend/internal/config"
	"visionestate/listing-portal/listing-portal-backend/internal/notifications"
	"visionestate/listing-portal/listing-portal-backend/internal/payments"
	"visionestate/listing-portal/listing-portal-backend/internal/verification"
)

// The sweeper worker fails or rejects analyses that have been running longer
// than the configured timeout. It is the out-of-process alternative to the
// sweeper embedded in the API server; run one or the other.
func main() {
	once := flag.Bool("once", false, "run a single sweep and exit")
	configPath := flag.String("config", "config.json", "path to the JSON config file")
	flag.Parse()

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	if cfg.Database.Driver != "postgres" {
		logger.Fatal("The sweeper worker needs the postgres driver", zap.String("driver", cfg.Database.Driver))
	}

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.GetDatabaseURL()), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("Failed to access database pool", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Create context that cancels on interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Sweeps publish failed-analysis transitions to the same external channels
	// as the API. Websocket clients are only reachable from the API process.
	notifier := notifications.NewService(notifications.NewDeliveryRepository(db), logger, cfg.Notifications.DeliveryTimeout.Std())
	if cfg.Notifications.SNSTopicARN != "" || cfg.Notifications.SESFromAddress != "" {
		awsCfg, err := cfg.AWS.LoadAWS(ctx)
		if err != nil {
			logger.Fatal("Failed to load AWS configuration", zap.Error(err))
		}
		if arn := cfg.Notifications.SNSTopicARN; arn != "" {
			notifier.AddChannel(notifications.ChannelSNS, notifications.NewSNSPublisher(sns.NewFromConfig(awsCfg), arn), true)
		}
		if from := cfg.Notifications.SESFromAddress; from != "" {
			sender := notifications.NewSESSender(sesv2.NewFromConfig(awsCfg), from)
			notifier.AddChannel(notifications.ChannelEmail, notifications.NewEmailNotifier(sender, cfg.Verification.Currency), true)
		}
	}
	defer notifier.Close()

	repo := verification.NewRepository(db)
	gateway := payments.NewGateway(payments.NewRepository(db), payments.Mode(cfg.Payments.Mode), logger)

	vcfg := verification.DefaultConfig()
	vcfg.FeeAmount = cfg.Verification.FeeAmount
	vcfg.Currency = cfg.Verification.Currency
	vcfg.AnalysisTimeout = cfg.Verification.AnalysisTimeout.Std()
	vcfg.MaxAnalysisAttempts = cfg.Verification.MaxAnalysisAttempts
	svc := verification.NewService(repo, notifier, gateway, vcfg, logger)

	// Create worker
	worker := verification.NewSweeper(svc, repo, verification.SweeperConfig{
		Schedule:   cfg.Sweeper.Schedule,
		BatchSize:  cfg.Sweeper.BatchSize,
		RunTimeout: cfg.Sweeper.RunTimeout.Std(),
	}, logger)

	if *once {
		res, err := worker.Sweep(ctx)
		if err != nil {
			logger.Fatal("Sweep failed", zap.Error(err))
		}
		logger.Info("Sweep finished",
			zap.Int("failed", res.Failed), zap.Int("rejected", res.Rejected), zap.Int("skipped", res.Skipped))
		return
	}

	logger.Info("Sweeper worker starting", zap.String("schedule", cfg.Sweeper.Schedule))
	if err := worker.Start(ctx); err != nil {
		logger.Fatal("Worker error", zap.Error(err))
	}
	<-ctx.Done()
	logger.Info("Shutdown signal received")
	worker.Stop()

	logger.Info("Sweeper worker stopped")
}
