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

	"go.uber.org/zap"

	"github.com/kailas-cloud/medscribe/internal/config"
	"github.com/kailas-cloud/medscribe/internal/db"
	"github.com/kailas-cloud/medscribe/internal/db/memory"
	dbRedis "github.com/kailas-cloud/medscribe/internal/db/redis"
	"github.com/kailas-cloud/medscribe/internal/domain"
	"github.com/kailas-cloud/medscribe/internal/domain/generation"
	logpkg "github.com/kailas-cloud/medscribe/internal/logger"
	"github.com/kailas-cloud/medscribe/internal/metrics"
	documentrepo "github.com/kailas-cloud/medscribe/internal/repository/document"
	"github.com/kailas-cloud/medscribe/internal/repository/embcache"
	searchrepo "github.com/kailas-cloud/medscribe/internal/repository/search"
	chiTransport "github.com/kailas-cloud/medscribe/internal/transport/chi"
	"github.com/kailas-cloud/medscribe/internal/transport/lmstudio"
	ollamaGen "github.com/kailas-cloud/medscribe/internal/transport/ollama"
	openaiTransport "github.com/kailas-cloud/medscribe/internal/transport/openai"
	"github.com/kailas-cloud/medscribe/internal/usecase/casestore"
	embeddinguc "github.com/kailas-cloud/medscribe/internal/usecase/embedding"
	genuc "github.com/kailas-cloud/medscribe/internal/usecase/generation"
	healthuc "github.com/kailas-cloud/medscribe/internal/usecase/health"
	pipelineuc "github.com/kailas-cloud/medscribe/internal/usecase/pipeline"
	"github.com/kailas-cloud/medscribe/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting medscribe API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := openStore(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.Register()

	embedder, err := buildEmbedder(cfg.Embedding, cfg.Storage.KeyPrefix, store, logger)
	if err != nil {
		logger.Fatal("Failed to create embedder", zap.Error(err))
	}
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cache", cfg.Embedding.Cache),
	)

	layout := documentrepo.Layout{
		Prefix:     cfg.Storage.KeyPrefix,
		IndexName:  cfg.Storage.IndexName,
		Filterable: cfg.Storage.FilterableFields,
	}
	docRepo := documentrepo.New(store, layout)
	if err := docRepo.EnsureIndex(ctx, cfg.Embedding.Dimensions, documentrepo.HNSWConfig{
		M:           cfg.Storage.HNSWM,
		EFConstruct: cfg.Storage.HNSWEFConstruct,
	}); err != nil {
		logger.Fatal("Failed to ensure index", zap.Error(err))
	}
	searchRepo := searchrepo.New(store, layout)

	caseStore := casestore.New(docRepo, searchRepo, embedder, casestore.Options{
		Dimensions:     cfg.Embedding.Dimensions,
		FilterableKeys: cfg.Storage.FilterableFields,
	})

	gateway := genuc.New(buildRegistry(cfg.Generation.Backends, logger), logger)

	orchestrator := pipelineuc.New(caseStore, gateway, pipelineuc.Options{
		RetrievalTimeout:  time.Duration(cfg.Pipeline.RetrievalTimeoutSec) * time.Second,
		GenerationTimeout: time.Duration(cfg.Pipeline.GenerationTimeoutSec) * time.Second,
		EventBuffer:       cfg.Pipeline.EventBuffer,
		DefaultTopK:       cfg.Pipeline.DefaultTopK,
	}, logger)

	healthSvc := healthuc.New(store, newEmbeddingHealthChecker(embedder), gateway)

	server := chiTransport.NewServer(caseStore, orchestrator, gateway, healthSvc, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      chiTransport.NewRouter(server, logger),
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

// openStore picks the storage driver. Valkey with valkey-search speaks the same FT.* dialect
// as Redis 8, so both go through the rueidis store.
func openStore(cfg config.DatabaseConfig) (db.Store, error) {
	switch cfg.Driver {
	case "redis", "valkey":
		return dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
		})
	case "memory":
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// buildEmbedder assembles the decorator chain: provider -> Cached -> Instrumented.
func buildEmbedder(
	cfg config.EmbeddingConfig,
	keyPrefix string,
	store db.Store,
	logger *zap.Logger,
) (domain.Embedder, error) {
	var base domain.Embedder
	switch cfg.Provider {
	case "openai":
		base = openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Provider:   cfg.Provider,
			Logger:     logger,
		})
	case "hashing":
		h, err := embeddinguc.NewHashingEmbedder(cfg.Dimensions)
		if err != nil {
			return nil, err
		}
		base = h
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	embedder := base
	if cfg.Cache {
		embedder = embcache.New(base, store, embcache.Options{
			KeyPrefix: keyPrefix + "emb:",
			Model:     cfg.Provider + "/" + cfg.Model,
			TTL:       time.Duration(cfg.CacheTTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	return embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, logger), nil
}

// buildRegistry binds every configured backend. A missing credential or endpoint leaves
// the tag known but absent, so requests for it fail with a not-configured error.
func buildRegistry(cfg config.BackendsConfig, logger *zap.Logger) *genuc.Registry {
	reg := genuc.NewRegistry()

	if cfg.OpenAI.APIKey != "" {
		reg.Register(generation.OpenAI, openaiTransport.NewGenerator(openaiTransport.GeneratorConfig{
			Type:    generation.OpenAI,
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
		}), nil)
	} else {
		reg.MarkAbsent(generation.OpenAI, "api key not set")
	}

	if cfg.DeepSeek.APIKey != "" {
		reg.Register(generation.DeepSeek, openaiTransport.NewGenerator(openaiTransport.GeneratorConfig{
			Type:    generation.DeepSeek,
			APIKey:  cfg.DeepSeek.APIKey,
			BaseURL: cfg.DeepSeek.BaseURL,
			Model:   cfg.DeepSeek.Model,
		}), generation.Parameters{
			generation.ParamTemperature: 0.7,
			generation.ParamMaxTokens:   4000,
			generation.ParamTopP:        0.95,
		})
	} else {
		reg.MarkAbsent(generation.DeepSeek, "api key not set")
	}

	reg.Register(generation.Local, lmstudio.New(lmstudio.Config{
		BaseURL:        cfg.Local.BaseURL,
		Model:          cfg.Local.Model,
		ProbeTimeout:   time.Duration(cfg.Local.ProbeTimeoutSec) * time.Second,
		RequestTimeout: time.Duration(cfg.Local.RequestTimeoutSec) * time.Second,
		MaxAttempts:    cfg.Local.MaxAttempts,
		Backoff:        time.Duration(cfg.Local.BackoffMs) * time.Millisecond,
		Logger:         logger,
	}), generation.Parameters{
		generation.ParamTemperature:      0.7,
		generation.ParamMaxTokens:        1000,
		generation.ParamTopP:             0.95,
		generation.ParamPresencePenalty:  0.0,
		generation.ParamFrequencyPenalty: 0.0,
	})

	if cfg.Ollama.BaseURL != "" {
		g, err := ollamaGen.New(ollamaGen.Config{BaseURL: cfg.Ollama.BaseURL, Model: cfg.Ollama.Model})
		if err != nil {
			logger.Warn("Ollama backend disabled", zap.Error(err))
			reg.MarkAbsent(generation.Ollama, err.Error())
		} else {
			reg.Register(generation.Ollama, g, generation.Parameters{generation.ParamTemperature: 0.7})
		}
	} else {
		reg.MarkAbsent(generation.Ollama, "base url not set")
	}

	for _, t := range generation.KnownModelTypes() {
		if err := reg.Check(t); err != nil {
			logger.Info("Generation backend not configured", zap.String("model_type", string(t)), zap.Error(err))
		}
	}
	return reg
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}
