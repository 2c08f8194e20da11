package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docrag/internal/config"
	dbRedis "github.com/kailas-cloud/docrag/internal/db/redis"
	logpkg "github.com/kailas-cloud/docrag/internal/logger"
	"github.com/kailas-cloud/docrag/internal/metrics"
	"github.com/kailas-cloud/docrag/internal/registry"
	"github.com/kailas-cloud/docrag/internal/repository/corpus"
	"github.com/kailas-cloud/docrag/internal/repository/embcache"
	"github.com/kailas-cloud/docrag/internal/repository/uploads"
	"github.com/kailas-cloud/docrag/internal/repository/vectors"
	chiTransport "github.com/kailas-cloud/docrag/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/docrag/internal/transport/openai"
	indexuc "github.com/kailas-cloud/docrag/internal/usecase/index"
	moderationuc "github.com/kailas-cloud/docrag/internal/usecase/moderation"
	queryuc "github.com/kailas-cloud/docrag/internal/usecase/query"
	systemuc "github.com/kailas-cloud/docrag/internal/usecase/system"
	"github.com/kailas-cloud/docrag/internal/version"
)

func main() {
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting docrag API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

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

	metrics.RegisterServiceMetrics()

	reg := registry.Default()
	runtime := config.NewRuntime(logger)

	embedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})
	// Query embeddings go through the cache; chunk batches always hit the API.
	queryEmbedder := embcache.New(embedder, store, cfg.Storage.KeyPrefix,
		metrics.EmbeddingCacheTotal, logger)
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions))

	vectorRepo := vectors.New(store, cfg.Storage.KeyPrefix, cfg.Embedding.Dimensions)
	uploadStore, err := uploads.NewStore(cfg.Storage.PersistDir)
	if err != nil {
		logger.Fatal("Failed to create upload store", zap.Error(err))
	}
	docLoader := corpus.NewLoader(cfg.Storage.DataDir, reg, logger)

	indexSvc := indexuc.New(vectorRepo, embedder, docLoader, runtime, indexuc.Config{
		ChunkSize:    cfg.Search.ChunkSize,
		ChunkOverlap: cfg.Search.ChunkOverlap,
		SoftCap:      cfg.Caps.Soft,
		HardCap:      cfg.Caps.Hard,
	}, logger)

	chatFactory := func(provider, model, apiKey, baseURL string) (queryuc.Chatter, error) {
		return openaiTransport.NewChatClient(provider, model, apiKey, baseURL, logger)
	}
	querySvc := queryuc.New(reg, vectorRepo, queryEmbedder, chatFactory, runtime, queryuc.Config{
		K:      cfg.Search.K,
		FetchK: cfg.Search.FetchK,
		Lambda: cfg.Search.Lambda,
	}, logger)

	moderationSvc := moderationuc.New(reg, uploadStore, indexSvc, runtime, logger)
	systemSvc := systemuc.New(reg, indexSvc, moderationSvc, runtime, cfg.Storage.PersistDir, logger)

	server := chiTransport.NewServer(reg, querySvc, indexSvc, moderationSvc, systemSvc, docLoader, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
