// Command recommendation runs the Recommendation Service (§4.4).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pawtrait/platform/internal/config"
	"github.com/pawtrait/platform/internal/httpserver"
	"github.com/pawtrait/platform/internal/platform"
	"github.com/pawtrait/platform/internal/telemetry"
	"github.com/pawtrait/platform/internal/version"
	"github.com/pawtrait/platform/pkg/recommendation"
)

// Config is the Recommendation Service's configuration.
type Config struct {
	config.BaseConfig

	UserDataServiceURL string `env:"USER_DATA_SERVICE_URL" envDefault:"http://localhost:8082"`
	RequestTimeout     string `env:"RECOMMENDATION_REQUEST_TIMEOUT" envDefault:"10s"`
	CacheTTL           string `env:"RECOMMENDATION_CACHE_TTL" envDefault:"5m"`
}

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load[Config]()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("starting recommendation service", "listen", cfg.ListenAddr())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.OTLPEndpoint, "recommendation", version.Version)
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Error("shutting down tracer", "error", err)
		}
	}()

	db, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	if err := platform.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("migrations applied")

	// Redis backs the response cache only; its absence degrades the
	// service to uncached operation rather than failing startup.
	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Warn("connecting to redis, continuing without response cache", "error", err)
		rdb = nil
	} else {
		defer rdb.Close()
	}

	cacheTTL, err := time.ParseDuration(cfg.CacheTTL)
	if err != nil {
		return fmt.Errorf("parsing cache ttl: %w", err)
	}
	requestTimeout, err := time.ParseDuration(cfg.RequestTimeout)
	if err != nil {
		return fmt.Errorf("parsing request timeout: %w", err)
	}
	httpClient := &http.Client{Timeout: requestTimeout}

	userData := recommendation.NewHTTPUserDataClient(cfg.UserDataServiceURL, httpClient)
	cache := recommendation.NewResponseCache(rdb, cacheTTL, logger)

	products := recommendation.NewProductStore(db)
	history := recommendation.NewRecommendationHistoryStore(db)
	feedback := recommendation.NewFeedbackStore(db)

	svc := recommendation.NewService(products, history, feedback, userData, cache, logger)
	handler := recommendation.NewHandler(svc, logger)

	metricsReg := telemetry.NewMetricsRegistry()
	srv := httpserver.NewServer(httpserver.Config{CORSAllowedOrigins: cfg.CORSAllowedOrigins}, logger, db, rdb, metricsReg)
	srv.APIRouter.Mount("/", handler.Routes())

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("recommendation service listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down recommendation service")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
