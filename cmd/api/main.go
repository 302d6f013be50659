package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"docvault/internal/auth"
	"docvault/internal/cache"
	"docvault/internal/config"
	"docvault/internal/database"
	"docvault/internal/database/migration"
	handlers "docvault/internal/http/handler"
	"docvault/internal/http/middleware"
	"docvault/internal/logger"
	"docvault/internal/otel"
	"docvault/internal/repository/postgres"
	"docvault/internal/service"
	"docvault/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// @title Document Vault API
// @version 1.0
// @description Documents with versioned file attachments.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()
	log := logger.New(os.Stdout, cfg.LogLevel, cfg.Location())

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.AppConfig, log zerolog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	store, err := newCacheStore(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer store.Close()

	blobs, err := newBlobStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	docCache, err := cache.NewDocumentCache(store, cfg.Cache.TTL, reg)
	if err != nil {
		return fmt.Errorf("document cache: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiration, cfg.Auth.JWTIssuer)
	if err != nil {
		return fmt.Errorf("token service: %w", err)
	}

	users := postgres.NewUserPostgres(db)
	docs := postgres.NewDocumentPostgres(db)
	versions := postgres.NewFileVersionPostgres(db)

	authSvc := service.NewAuthService(users, tokens, log)
	docSvc := service.NewDocumentService(docs, users, versions, blobs, docCache, log)
	versionSvc := service.NewFileVersionService(docs, versions, users, blobs, service.UploadPolicy{
		MaxSize:             cfg.Storage.MaxUploadSize,
		AllowedContentTypes: cfg.Storage.AllowedContentTypes,
	}, log)

	if admin := cfg.Admin(); admin != nil {
		err := authSvc.EnsureAdmin(ctx, service.RegisterRequest{
			Username: admin.Username,
			Email:    admin.Email,
			Password: admin.Password,
		})
		if err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return fmt.Errorf("http metrics: %w", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		// multipart framing needs some room on top of the file itself
		BodyLimit: int(cfg.Storage.MaxUploadSize) + 1<<20,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(cfg.CORS.AllowedOrigins, ","),
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, " + middleware.RequestIDHeader,
		ExposeHeaders: middleware.RequestIDHeader + ", Content-Disposition",
	}))
	app.Use(otelfiber.Middleware())
	app.Use(promMiddleware.Handler())
	app.Use(middleware.Authentication(tokens, authSvc, cfg.Auth.PublicPaths, log))
	app.Use(middleware.Logger(log))

	handlers.RegisterRoutes(app, handlers.Dependencies{
		Auth:      authSvc,
		Documents: docSvc,
		Versions:  versionSvc,
		Health: []handlers.HealthCheck{
			{Name: "database", Pinger: handlers.PingerFunc(func(ctx context.Context) error { return database.Ping(ctx, db) })},
			{Name: "storage", Pinger: blobs},
			{Name: "cache", Pinger: store, Optional: true},
		},
		Gatherer: reg,
		Log:      log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("cache", cfg.Cache.Driver).Str("storage", cfg.Storage.Driver).Msg("server listening")
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(sctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newCacheStore(ctx context.Context, c config.CacheConfig) (cache.Store, error) {
	switch c.Driver {
	case "memory":
		return cache.NewMemory(c.MemorySize, c.TTL), nil
	default:
		s, err := cache.NewRedis(ctx, cache.RedisOptions{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return s, nil
	}
}

func newBlobStorage(ctx context.Context, c config.StorageConfig) (storage.Storage, error) {
	switch c.Driver {
	case "minio":
		s, err := storage.NewMinIO(ctx, c.MinIO)
		if err != nil {
			return nil, fmt.Errorf("init object storage: %w", err)
		}
		return s, nil
	default:
		s, err := storage.NewFilesystem(c.Root)
		if err != nil {
			return nil, fmt.Errorf("init file storage: %w", err)
		}
		return s, nil
	}
}
