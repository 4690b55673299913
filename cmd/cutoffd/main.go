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

	"github.com/meritview/cutoffd/internal/config"
	logpkg "github.com/meritview/cutoffd/internal/logger"
	"github.com/meritview/cutoffd/internal/metrics"
	"github.com/meritview/cutoffd/internal/repository/resultcache"
	"github.com/meritview/cutoffd/internal/store"
	chiTransport "github.com/meritview/cutoffd/internal/transport/chi"
	healthuc "github.com/meritview/cutoffd/internal/usecase/health"
	queryuc "github.com/meritview/cutoffd/internal/usecase/query"
	"github.com/meritview/cutoffd/internal/version"
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

	logger.Info("Starting cutoffd API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("store_url", cfg.Store.BaseURL),
		zap.String("collection", cfg.Store.Collection),
	)

	// Record-store client — the engine's only data source
	storeClient, err := store.NewClient(store.Config{
		BaseURL:  cfg.Store.BaseURL,
		Identity: cfg.Store.Identity,
		Password: cfg.Store.Password,
		Timeout:  time.Duration(cfg.Store.TimeoutSec) * time.Second,
		TokenTTL: time.Duration(cfg.Store.TokenTTLMin) * time.Minute,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create store client", zap.Error(err))
	}

	ctx := context.Background()
	if err := storeClient.WaitForReady(ctx, time.Duration(cfg.Store.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Record store not ready", zap.Error(err))
	}
	logger.Info("Connected to record store")

	// Register query-engine metrics explicitly (no init())
	metrics.RegisterQueryMetrics()

	// Optional result cache
	var cache *resultcache.Cache
	if cfg.Cache.Enabled {
		cache, err = resultcache.New(resultcache.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
			TTL:      time.Duration(cfg.Cache.TTLSec) * time.Second,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to create result cache", zap.Error(err))
		}
		defer cache.Close()
		logger.Info("Result cache enabled", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	// Query service — scatter-gather executor over the store client
	querySvc := queryuc.New(storeClient, storeClient, cfg.Store.Collection, logger).
		WithLimits(cfg.Query.ShardPageSize, cfg.Query.MaxConcurrentShards).
		WithMaxValuesPerClause(cfg.Query.MaxValuesPerClause)
	if cache != nil {
		querySvc = querySvc.WithCache(cache)
	}

	// Health service — cache pinger must stay a nil interface when disabled
	var cachePinger healthuc.CachePinger
	if cache != nil {
		cachePinger = cache
	}
	healthSvc := healthuc.New(storeClient, cachePinger)

	server := chiTransport.NewServer(querySvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
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
					_ = json.NewEncoder(w).Encode(map[string]any{
						"success": false,
						"error":   "internal_error",
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

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
