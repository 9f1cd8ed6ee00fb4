package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/AnshRaj112/inkwell-backend/internal/config"
	"github.com/AnshRaj112/inkwell-backend/internal/database"
	"github.com/AnshRaj112/inkwell-backend/internal/handlers"
	"github.com/AnshRaj112/inkwell-backend/internal/logging"
	"github.com/AnshRaj112/inkwell-backend/internal/pdf"
	"github.com/AnshRaj112/inkwell-backend/internal/printvendor"
	"github.com/AnshRaj112/inkwell-backend/internal/repository"
	"github.com/AnshRaj112/inkwell-backend/internal/routes"
	"github.com/AnshRaj112/inkwell-backend/internal/services"
	"github.com/AnshRaj112/inkwell-backend/internal/storage"
	"github.com/AnshRaj112/inkwell-backend/pkg/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.ConnectPostgres(ctx, cfg.PostgresURI, logger)
	if err != nil {
		logger.Fatal("failed to connect to PostgreSQL", zap.Error(err))
	}
	defer db.Close()

	rdb, err := database.ConnectRedis(ctx, cfg.RedisURI, logger)
	if err != nil {
		logger.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer rdb.Close()

	var printRecords repository.PrintJobs
	if cfg.MongoURI != "" {
		client, mdb, err := database.ConnectMongo(ctx, cfg.MongoURI, logger)
		if err != nil {
			logger.Fatal("failed to connect to MongoDB", zap.Error(err))
		}
		defer database.DisconnectMongo(client)

		records := repository.NewMongoPrintJobs(mdb)
		if err := records.EnsureIndexes(ctx); err != nil {
			logger.Warn("failed to ensure print job indexes", zap.Error(err))
		}
		printRecords = records
	} else {
		logger.Info("MONGO_URI not set, print jobs will not be recorded")
	}

	files, err := newStorage(cfg)
	if err != nil {
		logger.Fatal("failed to set up storage", zap.String("driver", cfg.StorageDriver), zap.Error(err))
	}
	logger.Info("storage ready", zap.String("driver", cfg.StorageDriver))

	tpl, err := printvendor.LoadTemplate(cfg.PrintTemplatePath)
	if err != nil {
		logger.Fatal("failed to load print template", zap.String("path", cfg.PrintTemplatePath), zap.Error(err))
	}

	store := repository.NewPostgres(db)
	sessions := services.NewSessions(rdb)
	cache := services.NewCache(rdb, services.DefaultCacheTTL)
	httpClient := &http.Client{Timeout: 30 * time.Second}

	accounts := services.NewAccountService(store, sessions, logger)
	journals := services.NewJournalService(store, files, os.DirFS(cfg.ImageSourceDir), cache, logger)
	profiles := services.NewProfileService(store, files, logger)
	exports := services.NewExportService(store, files, pdf.NewRenderer(pdf.HTTPImageLoader(httpClient)), logger)
	vendor := printvendor.New(printvendor.Config{
		ClientKey:    cfg.LuluClientKey,
		ClientSecret: cfg.LuluClientSecret,
		AuthURL:      cfg.LuluAuthURL,
		PrintJobURL:  cfg.LuluPrintJobURL,
		HTTPClient:   httpClient,
	})
	prints := services.NewPrintService(exports, store, vendor, tpl, printRecords, logger)
	if cfg.EncryptionKey != "" {
		sealer, err := utils.NewSealer(cfg.EncryptionKey)
		if err != nil {
			logger.Fatal("invalid ENCRYPTION_KEY", zap.Error(err))
		}
		prints.SealRecords(sealer)
	} else if printRecords != nil {
		logger.Warn("ENCRYPTION_KEY not set, print job records are stored in plaintext")
	}

	deps := routes.Deps{
		Auth:           handlers.NewAuthHandler(accounts, logger),
		Journals:       handlers.NewJournalHandler(journals, exports, prints, cfg.MaxUploadBytes, logger),
		Profiles:       handlers.NewProfileHandler(profiles, cfg.MaxUploadBytes, logger),
		Sessions:       accounts,
		Redis:          rdb,
		Log:            logger,
		AllowedOrigins: cfg.AllowedOrigins,
		Production:     cfg.IsProduction(),
		AllowedHost:    cfg.AllowedHost,
	}
	if cfg.StorageDriver == "local" {
		deps.StorageDir = cfg.StorageDir
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("inkwell backend listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	logger.Info("server exited")
}

func newStorage(cfg *config.Config) (storage.Storage, error) {
	switch cfg.StorageDriver {
	case "local":
		return storage.NewLocal(cfg.StorageDir, cfg.StorageBaseURL())
	case "memory":
		return storage.NewMemory(cfg.StorageBaseURL()), nil
	case "cloudinary":
		return storage.NewCloudinary(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	case "s3":
		return storage.NewS3(storage.S3Options{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			PublicBaseURL:   cfg.S3PublicBaseURL,
			PathStyle:       cfg.S3PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
