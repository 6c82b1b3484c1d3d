// Package main is the entry point for the service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jsamuelsen/daily-quote-service/internal/adapters/http"
	"github.com/jsamuelsen/daily-quote-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen/daily-quote-service/internal/adapters/storage"
	"github.com/jsamuelsen/daily-quote-service/internal/app"
	"github.com/jsamuelsen/daily-quote-service/internal/platform/config"
	"github.com/jsamuelsen/daily-quote-service/internal/platform/logging"
	"github.com/jsamuelsen/daily-quote-service/internal/platform/telemetry"
	"github.com/jsamuelsen/daily-quote-service/internal/ports"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	// Version is the semantic version of the service.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "unknown"

	// BuildTime is the timestamp when the binary was built.
	BuildTime = "unknown"
)

// warmUpTimeout bounds the startup lookup that primes the daily quote cache.
const warmUpTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// 1. Determine profile from environment
	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	// 2. Load and validate configuration (fail fast)
	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// 3. Initialize logging
	logger := logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			Level:      cfg.Log.File.Level,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	logging.SetDefault(logger)

	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
		slog.String("store_driver", cfg.Store.Driver),
	)

	// 4. Initialize telemetry (noop if disabled)
	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		Insecure:     cfg.Telemetry.Insecure,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
		Headers:      cfg.Telemetry.Headers,
		StoreDriver:  cfg.Store.Driver,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	if cfg.Telemetry.Enabled {
		logger.Info("telemetry export enabled",
			slog.String("endpoint", cfg.Telemetry.Endpoint),
			slog.Float64("sampling_rate", cfg.Telemetry.SamplingRate),
			slog.Any("otlp_headers", cfg.Telemetry.Headers),
		)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(ctx); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	// 5. Open the key-value store behind the daily quote cache
	store, err := storage.Open(ctx, cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}

	// The server closes the store once requests have drained; the deferred
	// call only matters when startup fails before that.
	closeStore := sync.OnceValue(store.Close)
	defer func() { _ = closeStore() }()

	// 6. Create health registry and register the store
	healthRegistry := ports.NewHealthRegistry()
	if err := healthRegistry.Register(store); err != nil {
		return fmt.Errorf("registering store health check: %w", err)
	}

	// 7. Build the catalog and the daily quote service (application layer)
	location, err := cfg.Quote.Location()
	if err != nil {
		return fmt.Errorf("resolving timezone: %w", err)
	}

	catalog, err := cfg.Quote.Catalog()
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	quoteService := app.NewDailyQuoteService(app.DailyQuoteServiceConfig{
		Store:    store,
		Catalog:  catalog,
		Location: location,
		Logger:   logger,
	})

	// 8. Prime the cache in the background; shutdown discards an unfinished run
	warmCtx, cancelWarm := context.WithTimeout(ctx, warmUpTimeout)
	defer cancelWarm()

	warmUp := quoteService.Activate(warmCtx)

	go logWarmUp(warmCtx, logger, warmUp)

	// 9. Create handlers
	buildInfo := handlers.NewBuildInfo(Version, Commit, BuildTime)
	healthHandler := handlers.NewHealthHandler(healthRegistry, buildInfo)
	quoteHandler := handlers.NewQuoteHandler(quoteService)

	// 10. Create HTTP server
	server := http.New(&cfg.Server, logger)
	server.OnShutdown("store", func(context.Context) error { return closeStore() })
	server.OnShutdown("warm-up", func(context.Context) error {
		warmUp.Cancel()
		return nil
	})

	// 11. Setup router with all middleware and routes
	http.SetupRouter(server.Engine(), http.NewDefaultRouterConfig(logger, &cfg.App, healthHandler, quoteHandler))

	// 12. Start server (non-blocking)
	serverErr := server.Start()

	// 13. Wait for shutdown signal
	return waitForShutdown(ctx, logger, server, serverErr, cfg.Server.ShutdownTimeout)
}

// logWarmUp reports the outcome of the startup activation.
func logWarmUp(ctx context.Context, logger *slog.Logger, warmUp *app.Activation) {
	quote, err := warmUp.Wait(ctx)
	if err != nil {
		logger.Warn("daily quote warm-up did not finish", slog.Any("error", err))
		return
	}

	logger.Info("daily quote ready",
		slog.String("date", quote.DateKey),
		slog.String("source", string(quote.Source)),
	)
}

// waitForShutdown blocks until a shutdown signal is received or server error occurs.
// It then performs graceful shutdown of the HTTP server.
func waitForShutdown(
	ctx context.Context,
	logger *slog.Logger,
	server *http.Server,
	serverErr <-chan error,
	shutdownTimeout time.Duration,
) error {
	// Listen for OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		// Server error during startup or runtime
		return fmt.Errorf("server error: %w", err)

	case sig := <-quit:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	}

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	// Graceful shutdown sequence
	logger.Info("initiating graceful shutdown",
		slog.Duration("timeout", shutdownTimeout),
	)

	// Stop accepting new requests, drain in-flight
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("shutdown complete")

	return nil
}
