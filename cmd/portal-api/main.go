package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"visionestate/listing-portal/listing-portal-backend/internal/admin"
	"visionestate/listing-portal/listing-portal-backend/internal/analysis"
	"visionestate/listing-portal/listing-portal-backend/internal/auth"
	"visionestate/listing-portal/listing-portal-backend/internal/certificates"
	"visionestate/listing-portal/listing-portal-backend/internal/config"
	"visionestate/listing-portal/listing-portal-backend/internal/documents"
	"visionestate/listing-portal/listing-portal-backend/internal/metrics"
	"visionestate/listing-portal/listing-portal-backend/internal/notifications"
	"visionestate/listing-portal/listing-portal-backend/internal/notifications/websocket"
	"visionestate/listing-portal/listing-portal-backend/internal/payments"
	"visionestate/listing-portal/listing-portal-backend/internal/verification"
	"visionestate/listing-portal/listing-portal-backend/pkg/storage"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		panic(err)
	}

	// Initialize logger
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Persistence
	var (
		verificationRepo verification.Repository
		paymentsRepo     payments.Repository
		deliveries       notifications.DeliveryRepository
		queueStore       admin.Store
	)
	switch cfg.Database.Driver {
	case "postgres":
		db := openDatabase(cfg.Database, logger)

		// admin queue queries run over sqlx
		sqlDB, err := sqlx.Connect("postgres", cfg.Database.GetDatabaseURL())
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer sqlDB.Close()

		verificationRepo = verification.NewRepository(db)
		paymentsRepo = payments.NewRepository(db)
		deliveries = notifications.NewDeliveryRepository(db)
		queueStore = admin.NewPostgresStore(sqlDB)
	default:
		logger.Warn("Using in-memory storage; data is lost on restart")
		verificationRepo = verification.NewMemoryRepository()
		paymentsRepo = payments.NewMemoryRepository()
		queueStore = admin.NewRecordStore(verificationRepo)
	}

	// AWS clients are only needed for S3 storage and notifications
	var awsCfg aws.Config
	needsAWS := cfg.Storage.Driver == "s3" || cfg.Notifications.SNSTopicARN != "" || cfg.Notifications.SESFromAddress != ""
	if needsAWS {
		awsCfg, err = cfg.AWS.LoadAWS(ctx)
		if err != nil {
			logger.Fatal("Failed to load AWS configuration", zap.Error(err))
		}
	}

	var store storage.ObjectStore
	if cfg.Storage.Driver == "s3" {
		store = storage.NewS3Store(awsCfg, cfg.Storage.Bucket, storage.S3Options{
			Endpoint:     cfg.Storage.Endpoint,
			UsePathStyle: cfg.Storage.UsePathStyle,
		})
	} else {
		store = storage.NewMemoryStore(cfg.Storage.PublicBaseURL)
	}

	// Event fan-out
	broker := verification.NewBroker(16)
	wsManager := websocket.NewManager(cfg.Server.AllowedOrigins, logger)
	notifier := notifications.NewService(deliveries, logger, cfg.Notifications.DeliveryTimeout.Std())
	notifier.AddChannel(notifications.ChannelWebSocket, wsManager, false)
	if arn := cfg.Notifications.SNSTopicARN; arn != "" {
		notifier.AddChannel(notifications.ChannelSNS, notifications.NewSNSPublisher(sns.NewFromConfig(awsCfg), arn), true)
	}
	if from := cfg.Notifications.SESFromAddress; from != "" {
		sender := notifications.NewSESSender(sesv2.NewFromConfig(awsCfg), from)
		notifier.AddChannel(notifications.ChannelEmail, notifications.NewEmailNotifier(sender, cfg.Verification.Currency), true)
	}

	// Verification workflow
	gateway := payments.NewGateway(paymentsRepo, payments.Mode(cfg.Payments.Mode), logger)
	svc := verification.NewService(
		verificationRepo,
		verification.MultiPublisher{broker, notifier},
		gateway,
		verificationConfig(cfg.Verification),
		logger,
	)

	issuer := certificates.NewIssuer(svc, store, certificates.DefaultOptions(), logger)
	notifier.AddChannel(notifications.ChannelCertificate, issuer, true)

	var analysisClient *analysis.Client
	if cfg.Analysis.URL != "" {
		analysisClient = analysis.NewClient(cfg.Analysis.URL, cfg.Analysis.Timeout.Std(), svc, store, logger)
		svc.SetDispatcher(analysisClient)
	}

	var sweeper *verification.Sweeper
	if cfg.Sweeper.Enabled {
		sweeper = verification.NewSweeper(svc, verificationRepo, verification.SweeperConfig{
			Schedule:   cfg.Sweeper.Schedule,
			BatchSize:  cfg.Sweeper.BatchSize,
			RunTimeout: cfg.Sweeper.RunTimeout.Std(),
		}, logger)
		if err := sweeper.Start(ctx); err != nil {
			logger.Fatal("Failed to start sweeper", zap.Error(err))
		}
	}

	limits := documents.DefaultLimits()
	if cfg.Storage.MaxFileSize > 0 {
		limits.MaxDocumentBytes = cfg.Storage.MaxFileSize
		limits.MaxPhotoBytes = cfg.Storage.MaxFileSize
	}
	tokens := auth.NewTokenManager(cfg.Security.JWTSecret, cfg.Security.JWTIssuer, cfg.Security.TokenTTL.Std())

	// Setup Router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger), metrics.Middleware(), cors(cfg.Server.AllowedOrigins))

	// Register Routes
	api := router.Group("/api/v1")
	auth.RegisterRoutes(api, auth.NewHandler(tokens, cfg.Security.DevTokens))

	protected := api.Group("", auth.Middleware(tokens))
	{
		verification.NewHandler(svc, logger).WithBroker(broker).RegisterRoutes(protected)
		documents.NewHandler(documents.NewService(store, svc, limits, logger), logger).RegisterRoutes(protected)
		payments.NewHandler(gateway, svc, logger).RegisterRoutes(protected)
		admin.NewHandler(admin.NewService(queueStore, logger), logger).RegisterRoutes(protected)
		certificates.NewHandler(svc, store, logger).RegisterRoutes(protected)
		websocket.NewHandler(wsManager, svc, logger).RegisterRoutes(protected)
		if deliveries != nil {
			notifications.NewHandler(deliveries, logger).RegisterRoutes(protected)
		}
	}

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "healthy",
			"timestamp":   time.Now(),
			"connections": wsManager.GetConnectionCount(),
		})
	})
	router.GET("/metrics", metrics.Handler())

	// Start Server
	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
		IdleTimeout:  cfg.Server.IdleTimeout.Std(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", srv.Addr))

	// Graceful Shutdown
	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if sweeper != nil {
		sweeper.Stop()
	}
	if analysisClient != nil {
		analysisClient.Wait()
	}
	_ = notifier.Close()
	wsManager.Close()

	logger.Info("Server exiting")
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}
	return zc.Build()
}

// openDatabase connects gorm and runs migrations when enabled
func openDatabase(cfg config.DatabaseConfig, logger *zap.Logger) *gorm.DB {
	logger.Info("Connecting to database",
		zap.String("host", cfg.Host), zap.Int("port", cfg.Port), zap.String("db", cfg.DBName))

	db, err := gorm.Open(postgres.Open(cfg.GetDatabaseURL()), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	raw, err := db.DB()
	if err != nil {
		logger.Fatal("Failed to access database pool", zap.Error(err))
	}
	raw.SetMaxOpenConns(cfg.MaxConnections)
	raw.SetMaxIdleConns(cfg.MaxIdleConns)
	raw.SetConnMaxLifetime(cfg.MaxLifetime.Std())

	if cfg.AutoMigrate {
		for name, migrate := range map[string]func(*gorm.DB) error{
			"verification":  verification.Migrate,
			"payments":      payments.Migrate,
			"notifications": notifications.Migrate,
		} {
			if err := migrate(db); err != nil {
				logger.Fatal("Failed to migrate", zap.String("module", name), zap.Error(err))
			}
		}
	}
	return db
}

func verificationConfig(c config.VerificationConfig) verification.Config {
	return verification.Config{
		FeeAmount:           c.FeeAmount,
		Currency:            c.Currency,
		AnalysisTimeout:     c.AnalysisTimeout.Std(),
		MaxAnalysisAttempts: c.MaxAnalysisAttempts,
		Discrepancy: verification.DiscrepancyPolicy{
			MediumThreshold: c.MediumThreshold,
			HighThreshold:   c.HighThreshold,
			HighCrackCount:  c.HighCrackCount,
			MinConfidence:   c.MinConfidence,
		},
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// cors allows the listed origins, or any origin when none are configured
func cors(allowed []string) gin.HandlerFunc {
	origins := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		origins[o] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case len(origins) == 0:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case origins[origin]:
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
