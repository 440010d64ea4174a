// Command gateway runs the API Gateway (§4.1), the platform's single
// ingress point.
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
	"github.com/pawtrait/platform/internal/signing"
	"github.com/pawtrait/platform/internal/telemetry"
	"github.com/pawtrait/platform/internal/version"
	"github.com/pawtrait/platform/pkg/gateway"
)

// Config is the Gateway's configuration.
type Config struct {
	config.BaseConfig

	PublicKeyPath string `env:"GATEWAY_PUBLIC_KEY_PATH,required"`

	IdentityServiceURL       string `env:"IDENTITY_SERVICE_URL" envDefault:"http://localhost:8081"`
	UserDataServiceURL       string `env:"USER_DATA_SERVICE_URL" envDefault:"http://localhost:8082"`
	VisionServiceURL         string `env:"VISION_SERVICE_URL" envDefault:"http://localhost:8083"`
	RecommendationServiceURL string `env:"RECOMMENDATION_SERVICE_URL" envDefault:"http://localhost:8084"`

	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`
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
	logger.Info("starting gateway", "listen", cfg.ListenAddr())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.OTLPEndpoint, "gateway", version.Version)
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

	publicKey, err := signing.LoadPublicKey(cfg.PublicKeyPath)
	if err != nil {
		return fmt.Errorf("loading verification key: %w", err)
	}
	verifier := signing.NewVerifier(publicKey)

	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Warn("connecting to redis, rate limiting will fail open", "error", err)
		rdb = nil
	} else {
		defer rdb.Close()
	}

	routes, err := gateway.NewRouteTable(map[string]string{
		"/api/v1/auth":             cfg.IdentityServiceURL,
		"/api/v1/users":            cfg.UserDataServiceURL,
		"/api/v1/pets":             cfg.UserDataServiceURL,
		"/api/v1/analyses":         cfg.UserDataServiceURL,
		"/api/v1/vision":           cfg.VisionServiceURL,
		"/api/v1/rag":              cfg.VisionServiceURL,
		"/api/v1/admin/rag":        cfg.VisionServiceURL,
		"/api/v1/recommendations":  cfg.RecommendationServiceURL,
		"/api/v1/admin/products":   cfg.RecommendationServiceURL,
	})
	if err != nil {
		return fmt.Errorf("building route table: %w", err)
	}

	limiter := gateway.NewRateLimiter(rdb, cfg.RateLimitPerMinute, logger)
	proxy := gateway.NewProxy(routes, logger)
	handler := gateway.NewHandler(proxy, limiter, verifier, logger)

	metricsReg := telemetry.NewMetricsRegistry()
	srv := httpserver.NewServer(httpserver.Config{CORSAllowedOrigins: cfg.CORSAllowedOrigins}, logger, nil, rdb, metricsReg)
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
		logger.Info("gateway listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down gateway")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
