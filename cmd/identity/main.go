// Command identity runs the Identity Service (§4.2).
package main

import (
	"context"
	"crypto/rsa"
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
	"github.com/pawtrait/platform/pkg/identity"
)

// Config is the Identity Service's configuration.
type Config struct {
	config.BaseConfig

	PrivateKeyPath string `env:"IDENTITY_PRIVATE_KEY_PATH"`
	PublicKeyPath  string `env:"IDENTITY_PUBLIC_KEY_PATH"`
	UserDataURL    string `env:"USERDATA_SERVICE_URL" envDefault:"http://localhost:8082"`

	CookieDomain string `env:"COOKIE_DOMAIN"`
	CookieSecure bool   `env:"COOKIE_SECURE" envDefault:"true"`
	DevMode      bool   `env:"DEV_MODE" envDefault:"false"`
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
	logger.Info("starting identity service", "listen", cfg.ListenAddr())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.OTLPEndpoint, "identity", version.Version)
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

	privateKey, err := loadOrGeneratePrivateKey(cfg, logger)
	if err != nil {
		return fmt.Errorf("loading signing key: %w", err)
	}
	publicKey, err := loadOrDerivePublicKey(cfg, &privateKey.PublicKey, logger)
	if err != nil {
		return fmt.Errorf("loading verification key: %w", err)
	}

	issuer := signing.NewIssuer(privateKey)
	verifier := signing.NewVerifier(publicKey)

	userDataClient := identity.NewHTTPUserDataClient(cfg.UserDataURL, &http.Client{Timeout: 10 * time.Second})
	svc := identity.NewService(db, issuer, userDataClient)

	cookies := identity.CookieConfig{Domain: cfg.CookieDomain, Secure: cfg.CookieSecure}
	handler := identity.NewHandler(svc, verifier, cookies, logger)

	metricsReg := telemetry.NewMetricsRegistry()
	srv := httpserver.NewServer(httpserver.Config{CORSAllowedOrigins: cfg.CORSAllowedOrigins}, logger, db, nil, metricsReg)
	srv.APIRouter.Mount("/auth", handler.Routes())

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("identity service listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down identity service")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func loadOrGeneratePrivateKey(cfg *Config, logger *slog.Logger) (*rsa.PrivateKey, error) {
	if cfg.PrivateKeyPath != "" {
		return signing.LoadPrivateKey(cfg.PrivateKeyPath)
	}
	if !cfg.DevMode {
		return nil, fmt.Errorf("IDENTITY_PRIVATE_KEY_PATH must be set outside dev mode")
	}
	logger.Warn("signing: using an auto-generated dev key pair (set IDENTITY_PRIVATE_KEY_PATH in production)")
	return signing.GenerateDevKeyPair()
}

func loadOrDerivePublicKey(cfg *Config, fromPrivate *rsa.PublicKey, logger *slog.Logger) (*rsa.PublicKey, error) {
	if cfg.PublicKeyPath != "" {
		return signing.LoadPublicKey(cfg.PublicKeyPath)
	}
	return fromPrivate, nil
}
