package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSubmit/internal/cache"
	"github.com/parisxmas/OxiDB/OxiSubmit/internal/config"
	"github.com/parisxmas/OxiDB/OxiSubmit/internal/db"
	"github.com/parisxmas/OxiDB/OxiSubmit/internal/handler"
	"github.com/parisxmas/OxiDB/OxiSubmit/internal/logging"
	"github.com/parisxmas/OxiDB/OxiSubmit/internal/metrics"
	"github.com/parisxmas/OxiDB/OxiSubmit/internal/repository"
	"github.com/parisxmas/OxiDB/OxiSubmit/internal/router"
	"github.com/parisxmas/OxiDB/OxiSubmit/internal/service"
	"github.com/parisxmas/OxiDB/OxiSubmit/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// indexer is implemented by both submission repositories.
type indexer interface {
	service.SubmissionRepository
	EnsureIndexes(ctx context.Context) error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.New(config.DefaultPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, flush, err := logging.New(logging.Config{
		Level:       cfg.LogLevel,
		Development: cfg.LogDevelopment,
		GelfAddr:    cfg.GelfAddr,
		Service:     "oxisubmit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server failed", zap.Error(err))
		flush()
		os.Exit(1)
	}
	flush()
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	m := metrics.Default()

	var (
		subs    indexer
		ping    handler.PingFunc
		pool    *db.Pool
		hs      router.Handlers
		closers []func()
	)
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	// Document store
	switch cfg.Store {
	case config.StoreMongo:
		client, err := db.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return err
		}
		closers = append(closers, func() { _ = client.Disconnect(context.Background()) })
		subs = repository.NewMongoSubmissionRepo(client.Database(cfg.MongoDatabase))
		ping = func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) }
		logger.Info("connected to MongoDB", zap.String("database", cfg.MongoDatabase))
	default:
		var err error
		pool, err = db.NewPool(cfg.OxiDBHost, cfg.OxiDBPort, cfg.PoolSize, logger)
		if err != nil {
			return fmt.Errorf("connect to OxiDB: %w", err)
		}
		closers = append(closers, pool.Close)
		subs = repository.NewSubmissionRepo(pool)
		ping = pool.Ping
		logger.Info("connected to OxiDB",
			zap.String("host", cfg.OxiDBHost),
			zap.Int("port", cfg.OxiDBPort),
			zap.Int("pool_size", cfg.PoolSize))
	}

	if err := subs.EnsureIndexes(ctx); err != nil {
		logger.Warn("index creation failed", zap.Error(err))
	}

	// Image storage
	var images storage.ImageStore
	switch cfg.ImageStorage {
	case config.StorageS3:
		s3cfg := storage.S3Config{
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Bucket:          cfg.S3Bucket,
			Folder:          cfg.S3Folder,
			PublicURL:       cfg.S3PublicURL,
		}
		client, err := storage.NewS3Client(ctx, s3cfg)
		if err != nil {
			return err
		}
		store := storage.NewS3Store(client, s3cfg)
		if err := store.EnsureBucket(ctx); err != nil {
			return err
		}
		images = store
	case config.StorageBlob:
		blobs := repository.NewBlobRepo(pool, cfg.BlobBucket)
		if err := blobs.EnsureBucket(ctx); err != nil {
			return err
		}
		images = storage.NewBlobStore(blobs)
		hs.Blobs = handler.NewBlobHandler(blobs)
	default:
		store, err := storage.NewDiskStore(cfg.UploadDir)
		if err != nil {
			return err
		}
		images = store
		hs.UploadDir = store.Dir()
	}
	logger.Info("image storage ready", zap.String("backend", images.Backend()))

	opts := []service.Option{service.WithMetrics(m)}
	if cfg.RedisURL != "" {
		rdb, err := cache.NewClient(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		rc := cache.NewRedisCache(rdb, logger)
		closers = append(closers, func() { _ = rc.Close() })
		opts = append(opts, service.WithCache(rc, cfg.ListCacheTTL))
		logger.Info("listing cache enabled", zap.Duration("ttl", cfg.ListCacheTTL))
	}

	svc := service.NewSubmissionService(subs, images, logger, opts...)
	hs.Submissions = handler.NewSubmissionHandler(svc, cfg.MaxUploadBytes(), logger)
	hs.Health = handler.NewHealthHandler(ping)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(logger, m, hs),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
