package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/careatlas/internal/catalog"
	"github.com/kailas-cloud/careatlas/internal/config"
	"github.com/kailas-cloud/careatlas/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/careatlas/internal/db/redis"
	"github.com/kailas-cloud/careatlas/internal/domain/analytics"
	domsearch "github.com/kailas-cloud/careatlas/internal/domain/search"
	logpkg "github.com/kailas-cloud/careatlas/internal/logger"
	"github.com/kailas-cloud/careatlas/internal/metrics"
	analyticsrepo "github.com/kailas-cloud/careatlas/internal/repository/analytics"
	"github.com/kailas-cloud/careatlas/internal/repository/placescache"
	usagerepo "github.com/kailas-cloud/careatlas/internal/repository/usage"
	chiTransport "github.com/kailas-cloud/careatlas/internal/transport/chi"
	"github.com/kailas-cloud/careatlas/internal/transport/overpass"
	placesapi "github.com/kailas-cloud/careatlas/internal/transport/places"
	healthuc "github.com/kailas-cloud/careatlas/internal/usecase/health"
	placesuc "github.com/kailas-cloud/careatlas/internal/usecase/places"
	searchuc "github.com/kailas-cloud/careatlas/internal/usecase/search"
	usageuc "github.com/kailas-cloud/careatlas/internal/usecase/usage"
	"github.com/kailas-cloud/careatlas/internal/version"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

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

	logger.Info("Starting careatlas API server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("analytics_sink", cfg.Analytics.Sink),
		zap.Bool("places_configured", cfg.Places.APIKey != ""),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:          cfg.Database.Addrs,
		Username:       cfg.Database.Username,
		Password:       cfg.Database.Password,
		DB:             cfg.Database.DB,
		CommandTimeout: time.Duration(cfg.Database.CommandTimeoutMS) * time.Millisecond,
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

	// Register search metrics explicitly (no init())
	metrics.RegisterSearchMetrics()

	// Analytics sink: async queue in front of postgres or the log.
	var (
		inner           analyticsRecorder = analyticsrepo.NewLogSink(logger)
		analyticsPinger healthuc.Pinger
	)
	if cfg.Analytics.Sink == "postgres" {
		pg, pgSink := openAnalytics(ctx, &cfg, logger)
		defer func() { _ = pg.Close() }()
		inner = pgSink
		analyticsPinger = pgSink
	}
	events := analyticsrepo.NewAsyncSink(
		inner,
		cfg.Analytics.QueueSize,
		time.Duration(cfg.Analytics.FlushTimeoutSec)*time.Second,
		metrics.AnalyticsDroppedTotal,
		logger,
	)

	// Places cache + usage ledger share the Redis store.
	cache := placescache.New(store, cfg.Storage.KeyPrefix, cfg.Usage.Provider, metrics.PlacesCacheTotal, logger)
	if n, err := cache.Warm(ctx); err != nil {
		logger.Warn("Places cache warm-up failed", zap.Error(err))
	} else {
		logger.Info("Places cache warmed", zap.Int("entries", n))
	}
	ledger := usagerepo.New(store, cfg.Storage.KeyPrefix, time.Duration(cfg.Usage.TTLDays)*24*time.Hour)

	dir := catalog.MustLoad()
	logger.Info("Catalog loaded", zap.Int("entries", dir.Len()))

	placesClient := placesapi.NewClient(&placesapi.Config{
		APIKey:  cfg.Places.APIKey,
		BaseURL: cfg.Places.BaseURL,
		Timeout: time.Duration(cfg.Places.TimeoutSec) * time.Second,
		Logger:  logger,
	})
	geoClient := overpass.NewClient(&overpass.Config{
		OverpassURL:  cfg.Geodata.OverpassURL,
		NominatimURL: cfg.Geodata.NominatimURL,
		UserAgent:    cfg.Geodata.UserAgent,
		Timeout:      time.Duration(cfg.Geodata.TimeoutSec) * time.Second,
		MaxResults:   cfg.Geodata.MaxResults,
		Logger:       logger,
	})

	// Use cases
	placesSvc := placesuc.New(placesClient, cache, ledger, events, placesuc.Config{
		Provider:   cfg.Usage.Provider,
		TTL:        time.Duration(cfg.Places.CacheTTLHours) * time.Hour,
		DetailsTTL: time.Duration(cfg.Places.DetailsTTLHours) * time.Hour,
		Costs:      cfg.Places.Costs,
	}, logger)

	geodata := searchuc.NewGeodataAdapter(geoClient)
	dispatcher := searchuc.NewDispatcher(
		time.Duration(cfg.Search.SourceTimeoutSec)*time.Second,
		logger,
		searchuc.NewRemoteAdapter(placesSvc, cache, cfg.Places.NearbyCacheLimit, logger),
		geodata,
		searchuc.NewLocalAdapter(dir),
	)
	searchSvc := searchuc.New(dispatcher, geodata, geoClient, events, searchuc.Config{
		Limits: domsearch.Limits{
			DefaultRadiusMeters: cfg.Search.DefaultRadiusMeters,
			DefaultMaxResults:   cfg.Search.DefaultMaxResults,
			MaxResultsLimit:     cfg.Search.MaxResultsLimit,
		},
		DedupPrefixLen: cfg.Search.DedupPrefixLen,
	}, logger)

	usageSvc := usageuc.New(ledger, cfg.Usage.Provider)

	// Pass nil interface (not typed nil pointer!) when analytics has no database.
	healthSvc := healthuc.New(store, analyticsPinger, placesClient)

	server := chiTransport.NewServer(searchSvc, placesSvc, dir, usageSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.CORSMiddleware(cfg.HTTP.CORSOrigins))
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

	flushCtx, flushCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Analytics.FlushTimeoutSec)*time.Second)
	defer flushCancel()
	if err := events.Close(flushCtx); err != nil {
		logger.Warn("Analytics queue not fully flushed", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

type analyticsRecorder interface {
	Record(ctx context.Context, e analytics.Event) error
}

// openAnalytics connects the analytics database and prepares its table.
func openAnalytics(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*sql.DB, *analyticsrepo.PostgresSink) {
	pg, err := postgres.Open(postgres.Config{
		DSN:          cfg.Postgres.DSN,
		MaxOpenConns: cfg.Postgres.MaxOpenConns,
		MaxIdleConns: cfg.Postgres.MaxIdleConns,
	})
	if err != nil {
		logger.Fatal("Failed to open analytics database", zap.Error(err))
	}
	if err := postgres.WaitForReady(ctx, pg, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Analytics database not ready", zap.Error(err))
	}
	sink := analyticsrepo.NewPostgresSink(pg)
	if err := sink.EnsureSchema(ctx); err != nil {
		logger.Fatal("Failed to prepare analytics schema", zap.Error(err))
	}
	logger.Info("Connected to analytics database")
	return pg, sink
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
						"error":        "internal error",
						"code":         "internal_error",
						"results":      []any{},
						"totalResults": 0,
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

			reqLogger := logger.With(
				zap.String("request_id", requestID),
				zap.String("session_id", r.Header.Get(chiTransport.SessionHeader)),
			)
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
