package main

import (
	"context"
	"log"
	"net/http"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"inkporto/signing-portal/signing-portal-backend/internal/auth"
	"inkporto/signing-portal/signing-portal-backend/internal/config"
	"inkporto/signing-portal/signing-portal-backend/internal/documents"
	"inkporto/signing-portal/signing-portal-backend/internal/notifications"
	"inkporto/signing-portal/signing-portal-backend/internal/notifications/websocket"
	"inkporto/signing-portal/signing-portal-backend/internal/signing"
	"inkporto/signing-portal/signing-portal-backend/pkg/eds"
	"inkporto/signing-portal/signing-portal-backend/pkg/pdf"
	"inkporto/signing-portal/signing-portal-backend/pkg/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to init logger:", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	db, err := sqlx.Connect("postgres", cfg.Database.GetDatabaseURL())
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	gormDB, err := gorm.Open(postgres.Open(cfg.Database.GetDatabaseURL()), &gorm.Config{})
	if err != nil {
		logger.Fatal("failed to open gorm connection", zap.Error(err))
	}

	s3, err := storage.NewS3Client(ctx, storage.S3Options{
		Region:          cfg.Storage.Region,
		Endpoint:        cfg.Storage.Endpoint,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
	})
	if err != nil {
		logger.Fatal("failed to init S3 client", zap.Error(err))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Storage.Region))
	if err != nil {
		logger.Fatal("failed to load AWS config", zap.Error(err))
	}

	// ---------------- NOTIFICATIONS ----------------
	wsManager := websocket.NewManager(logger)
	notifier, err := notifications.NewService(
		gormDB,
		wsManager,
		sesv2.NewFromConfig(awsCfg),
		sns.NewFromConfig(awsCfg),
		cfg.Notifications.EmailSender,
		cfg.Notifications.BroadcastTopicARN,
		logger,
	)
	if err != nil {
		logger.Fatal("failed to init notifications", zap.Error(err))
	}

	// ---------------- DOCUMENTS ----------------
	docsRepo := documents.NewRepository(db)
	fileStorage := documents.NewFileStorage(s3, docsRepo, cfg.Storage.DocumentBucket, cfg.Storage.ForensicBucket)
	source := documents.NewSigningSource(docsRepo)

	// ---------------- SIGNING ----------------
	ledger := signing.NewLedger(db)
	builder := signing.NewSignableSetBuilder(fileStorage, logger)
	manifests := signing.NewManifestCache(ledger, fileStorage, cfg.Signing.ManifestIncludesData, logger)
	verifier := signing.NewVerifier(eds.NewProvider(), cfg.Signing.ProviderTimeout, logger)
	coordinator := signing.NewCoordinator(ledger, notifier, cfg.Signing.DefaultMinQuorumPercent, logger)
	signingService := signing.NewService(source, builder, manifests, verifier, coordinator, ledger, fileStorage, cfg.Signing, logger)
	signingHandler := signing.NewHandler(signingService)

	docsService := documents.NewService(docsRepo, fileStorage, pdf.NewGenerator(), signingService, logger)
	docsHandler := documents.NewHandler(docsService)

	// ---------------- HTTP ----------------
	r := gin.Default()

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "API alive!"})
	})

	api := r.Group("/api/v1")
	api.Use(auth.Middleware(cfg.Security.JWTSecret))
	docsHandler.RegisterRoutes(api)
	signingHandler.RegisterRoutes(api)

	api.GET("/ws", func(c *gin.Context) {
		claims, ok := auth.ClaimsFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if _, err := wsManager.HandleConnection(c.Writer, c.Request, claims.UserID.String()); err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
		}
	})

	addr := cfg.Server.GetServerAddr()
	logger.Info("server starting", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
