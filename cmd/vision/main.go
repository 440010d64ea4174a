// Command vision runs the Vision Pipeline Orchestrator (§4.3).
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
	"github.com/pawtrait/platform/pkg/vision"
)

// Config is the Vision Orchestrator's configuration.
type Config struct {
	config.BaseConfig

	ClassificationServiceURL string  `env:"CLASSIFICATION_SERVICE_URL" envDefault:"http://localhost:8083"`
	VLMBaseURL               string  `env:"VLM_BASE_URL" envDefault:"http://localhost:11434"`
	VLMModel                 string  `env:"VLM_MODEL" envDefault:"llava"`
	VLMTemperature           float64 `env:"VLM_TEMPERATURE" envDefault:"0.2"`
	StageTimeout             string  `env:"VISION_STAGE_TIMEOUT" envDefault:"30s"`
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
	logger.Info("starting vision orchestrator", "listen", cfg.ListenAddr())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.OTLPEndpoint, "vision", version.Version)
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

	stageTimeout, err := time.ParseDuration(cfg.StageTimeout)
	if err != nil {
		return fmt.Errorf("parsing stage timeout: %w", err)
	}
	httpClient := &http.Client{Timeout: stageTimeout}

	classification := vision.NewHTTPClassificationClient(cfg.ClassificationServiceURL, httpClient)
	vlm := vision.NewHTTPVLMClient(cfg.VLMBaseURL, cfg.VLMModel, cfg.VLMTemperature, httpClient)
	retrieval := vision.NewRetrievalStore(db)

	svc := vision.NewService(classification, classification, classification, retrieval, vlm, vision.DefaultThresholds())
	handler := vision.NewHandler(svc, retrieval, logger)

	metricsReg := telemetry.NewMetricsRegistry()
	srv := httpserver.NewServer(httpserver.Config{CORSAllowedOrigins: cfg.CORSAllowedOrigins}, logger, db, nil, metricsReg)
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
		logger.Info("vision orchestrator listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down vision orchestrator")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
