package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/calder-ai/semsearch/internal/config"
	"github.com/calder-ai/semsearch/internal/db"
	dbRedis "github.com/calder-ai/semsearch/internal/db/redis"
	"github.com/calder-ai/semsearch/internal/docstore"
	"github.com/calder-ai/semsearch/internal/domain"
	"github.com/calder-ai/semsearch/internal/index"
	logpkg "github.com/calder-ai/semsearch/internal/logger"
	"github.com/calder-ai/semsearch/internal/metrics"
	"github.com/calder-ai/semsearch/internal/repository/embcache"
	"github.com/calder-ai/semsearch/internal/transport/httpapi"
	openaiEmb "github.com/calder-ai/semsearch/internal/transport/openai"
	embeddinguc "github.com/calder-ai/semsearch/internal/usecase/embedding"
	healthuc "github.com/calder-ai/semsearch/internal/usecase/health"
	searchuc "github.com/calder-ai/semsearch/internal/usecase/search"
	"github.com/calder-ai/semsearch/internal/version"
)

func main() {
	// Load configuration based on ENV
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

	logger.Info("Starting semsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("model", cfg.Embedding.Model),
	)

	// Load the immutable corpus pair. Any failure here aborts startup:
	// a broken deployment must never begin serving.
	store, err := docstore.Load(cfg.Corpus.DocumentsFile)
	if err != nil {
		logger.Fatal("Failed to load document collection", zap.Error(err))
	}
	idx, err := index.Load(cfg.Corpus.IndexFile)
	if err != nil {
		logger.Fatal("Failed to load vector index snapshot", zap.Error(err))
	}
	if idx.Count() != store.Size() {
		logger.Fatal("Vector index and document collection disagree",
			zap.Int("index_vectors", idx.Count()),
			zap.Int("documents", store.Size()),
		)
	}
	if idx.Count() > 0 && idx.Dim() != cfg.Embedding.Dimensions {
		logger.Fatal("Vector index dimensions disagree with embedding config",
			zap.Int("index_dim", idx.Dim()),
			zap.Int("config_dim", cfg.Embedding.Dimensions),
		)
	}
	logger.Info("Corpus loaded",
		zap.Int("documents", store.Size()),
		zap.Int("dimensions", idx.Dim()),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	ctx := context.Background()

	// Optional query-embedding cache
	var cacheStore db.Store
	if cfg.Cache.Enabled() {
		cacheStore, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer cacheStore.Close()

		readiness := time.Duration(cfg.Cache.ReadinessTimeoutSec) * time.Second
		if err := cacheStore.WaitForReady(ctx, readiness); err != nil {
			logger.Fatal("Cache store not ready", zap.Error(err))
		}
		logger.Info("Connected to embedding cache", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	// Build embedder chain
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})

	// Probe the provider before accepting traffic (fail-fast).
	probeCtx, cancelProbe := context.WithTimeout(ctx, 30*time.Second)
	if err := base.HealthCheck(probeCtx); err != nil {
		cancelProbe()
		logger.Fatal("Embedding provider unavailable at startup", zap.Error(err))
	}
	cancelProbe()

	queryEmbedder := buildQueryEmbedder(base, cfg, cacheStore, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cache", cfg.Cache.Enabled()),
	)

	// Create use case services
	searchSvc := searchuc.New(idx, store, queryEmbedder, searchuc.Options{
		DefaultTopK:  cfg.Search.TopK,
		MaxTopK:      cfg.Search.MaxTopK,
		SnippetRunes: cfg.Search.SnippetRunes,
	})

	var cachePinger healthuc.CachePinger
	if cacheStore != nil {
		cachePinger = cacheStore
	}
	healthSvc := healthuc.New(store, base, cachePinger)

	// Create HTTP server
	server := httpapi.NewServer(searchSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
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

// buildQueryEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildQueryEmbedder(
	base *openaiEmb.Embedder,
	cfg config.Config,
	cacheStore db.Store,
	logger *zap.Logger,
) domain.Embedder {
	var embedder domain.Embedder = base

	if cacheStore != nil {
		ttl := time.Duration(cfg.Cache.TTLHours) * time.Hour
		embedder = embcache.New(base, cacheStore, ttl, metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(
		embedder, cfg.Embedding.Provider, cfg.Embedding.Model, logger,
	)

	// Instruction prefix goes outermost so the cache key includes it
	if cfg.Embedding.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, cfg.Embedding.QueryInstruction)
	}

	return embedder
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
