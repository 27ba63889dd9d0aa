// Command storagegc deletes orphaned product images from the storage bucket.
// It is an offline maintenance tool: configuration comes entirely from the
// environment (and .env), and a run is a single scan-and-delete pass.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/varmina-joyas/store/internal/gc"
	"github.com/varmina-joyas/store/internal/platform/config"
	pfirestore "github.com/varmina-joyas/store/internal/platform/firestore"
	"github.com/varmina-joyas/store/internal/platform/observability"
	"github.com/varmina-joyas/store/internal/platform/secrets"
	pstorage "github.com/varmina-joyas/store/internal/platform/storage"
	firestoreRepo "github.com/varmina-joyas/store/internal/repositories/firestore"
	"github.com/varmina-joyas/store/internal/services"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("storagegc")
	ctx = observability.WithLogger(ctx, logger)

	fetcher, err := newSecretFetcher(ctx, logger)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx, config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)))
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	provider := pfirestore.NewProvider(cfg.Firestore)
	defer func() {
		if err := provider.Close(); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	storageClient, err := pstorage.NewClient(cfg.Storage)
	if err != nil {
		logger.Fatal("failed to initialise storage client", zap.Error(err))
	}
	defer func() {
		if err := storageClient.Close(); err != nil {
			logger.Warn("storage close error", zap.Error(err))
		}
	}()

	productRepo, err := firestoreRepo.NewProductRepository(provider)
	if err != nil {
		logger.Fatal("failed to initialise product repository", zap.Error(err))
	}
	settingsRepo, err := firestoreRepo.NewSettingsRepository(provider)
	if err != nil {
		logger.Fatal("failed to initialise settings repository", zap.Error(err))
	}

	productService, err := services.NewProductService(services.ProductServiceDeps{
		Repository: productRepo,
		Images:     storageClient,
		Clock:      time.Now,
	})
	if err != nil {
		logger.Fatal("failed to initialise product service", zap.Error(err))
	}
	settingsService, err := services.NewSettingsService(services.SettingsServiceDeps{
		Repository: settingsRepo,
		Clock:      time.Now,
	})
	if err != nil {
		logger.Fatal("failed to initialise settings service", zap.Error(err))
	}

	cleaner, err := gc.NewCleaner(gc.CleanerDeps{
		Products:  productService,
		Settings:  settingsService,
		Bucket:    storageClient,
		Logger:    logger,
		ChunkSize: envInt("STORE_GC_CHUNK_SIZE", 10),
		DryRun:    envBool("STORE_GC_DRY_RUN"),
	})
	if err != nil {
		logger.Fatal("failed to initialise cleaner", zap.Error(err))
	}

	runCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	report, err := cleaner.Run(runCtx)
	if err != nil {
		logger.Fatal("gc run failed", zap.Error(err),
			zap.Int("deleted", report.Deleted), zap.Int("failed", len(report.Failed)))
	}

	logger.Info("gc run complete",
		zap.String("bucket", storageClient.Bucket()),
		zap.Int("bucket_objects", report.BucketObjects),
		zap.Int("referenced", report.Referenced),
		zap.Int("orphans", len(report.Orphans)),
		zap.Int("deleted", report.Deleted),
		zap.Int("failed", len(report.Failed)))
	if len(report.Failed) > 0 {
		os.Exit(1)
	}
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger) (*secrets.Fetcher, error) {
	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
	}
	if project := strings.TrimSpace(os.Getenv("STORE_FIREBASE_PROJECT_ID")); project != "" {
		opts = append(opts, secrets.WithDefaultProject(project))
	}
	if credentials := strings.TrimSpace(os.Getenv("STORE_FIREBASE_CREDENTIALS_FILE")); credentials != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(credentials)))
	}
	return secrets.NewFetcher(ctx, opts...)
}

func envBool(key string) bool {
	value, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return err == nil && value
}

func envInt(key string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
