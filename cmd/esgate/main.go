package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/esgate/internal/config"
	dbRedis "github.com/kailas-cloud/esgate/internal/db/redis"
	domindex "github.com/kailas-cloud/esgate/internal/domain/index"
	logpkg "github.com/kailas-cloud/esgate/internal/logger"
	"github.com/kailas-cloud/esgate/internal/metrics"
	indexrepo "github.com/kailas-cloud/esgate/internal/repository/index"
	searchrepo "github.com/kailas-cloud/esgate/internal/repository/search"
	chiTransport "github.com/kailas-cloud/esgate/internal/transport/chi"
	healthuc "github.com/kailas-cloud/esgate/internal/usecase/health"
	msearchuc "github.com/kailas-cloud/esgate/internal/usecase/msearch"
	searchuc "github.com/kailas-cloud/esgate/internal/usecase/search"
	"github.com/kailas-cloud/esgate/internal/version"
)

func main() {
	resetIndexes := flag.Bool("reset-indexes", false, "drop and rebuild every declared FT index on startup")
	flag.Parse()

	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, logpkg.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting esgate",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// Validate already rejected malformed declarations.
	indexes, err := cfg.Search.DomainIndexes()
	if err != nil {
		logger.Fatal("Invalid index declarations", zap.Error(err))
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	metrics.RegisterSearchMetrics()

	naming := indexrepo.Naming{Prefix: cfg.Storage.KeyPrefix}
	indexRepo := indexrepo.New(store, naming)
	switch {
	case *resetIndexes:
		if err := recreateIndexes(ctx, indexRepo, indexes, logger); err != nil {
			logger.Fatal("Failed to rebuild indexes", zap.Error(err))
		}
	case *cfg.Search.EnsureIndexes:
		if err := ensureIndexes(ctx, indexRepo, indexes, logger); err != nil {
			logger.Fatal("Failed to ensure indexes", zap.Error(err))
		}
	}

	probes := make([]healthuc.Index, 0, len(indexes))
	for _, idx := range indexes {
		probes = append(probes, healthuc.Index{Name: idx.Name(), FTIndex: naming.IndexName(idx.Name())})
	}

	backend := searchuc.NewInstrumentedBackend(searchrepo.New(store, naming, indexes), logger)
	searchSvc := searchuc.New(backend)
	msearchSvc := msearchuc.New(backend, cfg.Search.DefaultMaxConcurrentSearches)
	healthSvc := healthuc.New(store, store, probes)

	server := chiTransport.NewServer(searchSvc, msearchSvc, healthSvc, logger).
		WithMaxBodyBytes(cfg.HTTP.MaxBodyBytes)

	r := chi.NewRouter()
	r.Use(chiTransport.JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.WideEvent(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func ensureIndexes(ctx context.Context, repo *indexrepo.Repo, indexes []domindex.Index, logger *zap.Logger) error {
	for _, idx := range indexes {
		created, err := repo.Ensure(ctx, idx)
		if err != nil {
			return err
		}
		if created {
			logger.Info("Created index", zap.String("index", idx.Name()))
		}
	}
	return nil
}

func recreateIndexes(ctx context.Context, repo *indexrepo.Repo, indexes []domindex.Index, logger *zap.Logger) error {
	for _, idx := range indexes {
		if err := repo.Recreate(ctx, idx); err != nil {
			return err
		}
		logger.Info("Rebuilt index", zap.String("index", idx.Name()))
	}
	return nil
}
