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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/esrepo"
	"github.com/kailas-cloud/esrepo/internal/config"
	"github.com/kailas-cloud/esrepo/internal/directory"
	logpkg "github.com/kailas-cloud/esrepo/internal/logger"
	"github.com/kailas-cloud/esrepo/internal/metrics"
	chiTransport "github.com/kailas-cloud/esrepo/internal/transport/chi"
	healthuc "github.com/kailas-cloud/esrepo/internal/usecase/health"
	"github.com/kailas-cloud/esrepo/internal/version"
)

func main() {
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

	logger.Info("Starting esrepo API server",
		zap.String("commit", version.Commit),
		zap.String("build_date", version.Date),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("es_addrs", cfg.Elasticsearch.Addresses),
	)

	client, err := esrepo.New(clientOptions(cfg, logger)...)
	if err != nil {
		logger.Fatal("Failed to connect to elasticsearch", zap.Error(err))
	}
	logger.Info("Connected to elasticsearch")

	ctx := context.Background()
	users, err := esrepo.NewRepository[directory.User](ctx, client)
	if err != nil {
		logger.Fatal("Failed to create user repository", zap.Error(err))
	}

	healthSvc := healthuc.New(client.Backend(), client.Backend(), users.IndexName())
	server := chiTransport.NewServer(users, healthSvc, logger).
		WithPagination(cfg.Repository.DefaultPageSize, cfg.Repository.MaxPageSize)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(logpkg.Middleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
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

func clientOptions(cfg config.Config, logger *zap.Logger) []esrepo.Option {
	es := cfg.Elasticsearch
	opts := []esrepo.Option{
		esrepo.WithAddresses(es.Addresses...),
		esrepo.WithMaxRetries(es.MaxRetries),
		esrepo.WithReadinessTimeout(time.Duration(es.ReadinessTimeout) * time.Second),
		esrepo.WithLogger(logger),
		esrepo.WithFacetFilter(*cfg.Repository.FacetFilter),
		esrepo.WithCreateIndex(*cfg.Repository.CreateIndex),
	}
	switch {
	case es.APIKey != "":
		opts = append(opts, esrepo.WithAPIKey(es.APIKey))
	case es.Username != "":
		opts = append(opts, esrepo.WithBasicAuth(es.Username, es.Password))
	}
	if *es.Instrument {
		opts = append(opts, esrepo.WithInstrumentation())
	}
	return opts
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
