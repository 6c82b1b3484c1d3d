package benchmark

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	httpadapter "github.com/jsamuelsen/daily-quote-service/internal/adapters/http"
	"github.com/jsamuelsen/daily-quote-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen/daily-quote-service/internal/adapters/storage"
	"github.com/jsamuelsen/daily-quote-service/internal/app"
	"github.com/jsamuelsen/daily-quote-service/internal/platform/config"
	"github.com/jsamuelsen/daily-quote-service/internal/ports"
)

func init() {
	gin.SetMode(gin.ReleaseMode)
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// openStore opens a guarded store the way the service does.
func openStore(b *testing.B, driver string) ports.Store {
	b.Helper()

	path := ""
	switch driver {
	case config.StoreDriverFile:
		path = filepath.Join(b.TempDir(), "daily_quote.json")
	case config.StoreDriverSQLite:
		path = filepath.Join(b.TempDir(), "daily_quote.db")
	}

	store, err := storage.Open(context.Background(), config.StoreConfig{
		Driver:  driver,
		Path:    path,
		Timeout: time.Second,
		CircuitBreaker: config.CircuitBreakerConfig{
			MaxFailures:   5,
			Timeout:       30 * time.Second,
			HalfOpenLimit: 3,
		},
	}, discard)
	if err != nil {
		b.Fatalf("open %s store: %v", driver, err)
	}

	b.Cleanup(func() { _ = store.Close() })

	return store
}

// newRouter wires the production middleware chain and routes over store.
func newRouter(b *testing.B, store ports.Store) *gin.Engine {
	b.Helper()

	now := time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)
	service := app.NewDailyQuoteService(app.DailyQuoteServiceConfig{
		Store:    store,
		Location: time.UTC,
		Now:      func() time.Time { return now },
		Logger:   discard,
	})

	registry := ports.NewHealthRegistry()
	if err := registry.Register(store); err != nil {
		b.Fatalf("register health check: %v", err)
	}

	engine := gin.New()
	httpadapter.SetupRouter(engine, httpadapter.NewDefaultRouterConfig(
		discard,
		&config.AppConfig{Name: "daily-quote-service", Version: "bench", Environment: "test"},
		handlers.NewHealthHandler(registry, handlers.NewBuildInfo("bench", "bench", "")),
		handlers.NewQuoteHandler(service),
	))

	return engine
}

func serve(b *testing.B, engine *gin.Engine, target string) {
	b.Helper()

	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)

	// Warm the cache so cached endpoints measure the hit path.
	engine.ServeHTTP(httptest.NewRecorder(), req)

	b.ReportAllocs()
	b.ResetTimer()

	for b.Loop() {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			b.Fatalf("GET %s: status %d", target, w.Code)
		}
	}
}

// BenchmarkRouter measures each public endpoint through the full middleware
// chain over the memory store.
func BenchmarkRouter(b *testing.B) {
	targets := map[string]string{
		"live":     "/-/live",
		"ready":    "/-/ready",
		"daily":    "/api/v1/quotes/daily",
		"random":   "/api/v1/quotes/random",
		"for-date": "/api/v1/quotes/for-date?date=2024-12-31",
		"list":     "/api/v1/quotes?limit=10",
		"by-index": "/api/v1/quotes/7",
	}

	for name, target := range targets {
		b.Run(name, func(b *testing.B) {
			serve(b, newRouter(b, openStore(b, config.StoreDriverMemory)), target)
		})
	}
}

// BenchmarkDailyQuote_ByDriver measures the cache hit path of the daily
// quote endpoint for every store driver.
func BenchmarkDailyQuote_ByDriver(b *testing.B) {
	for _, driver := range []string{config.StoreDriverMemory, config.StoreDriverFile, config.StoreDriverSQLite} {
		b.Run(driver, func(b *testing.B) {
			serve(b, newRouter(b, openStore(b, driver)), "/api/v1/quotes/daily")
		})
	}
}

// BenchmarkServiceToday_Miss measures a recompute on every call by clearing
// the stored date between iterations.
func BenchmarkServiceToday_Miss(b *testing.B) {
	ctx := context.Background()
	store := openStore(b, config.StoreDriverMemory)

	service := app.NewDailyQuoteService(app.DailyQuoteServiceConfig{
		Store:    store,
		Location: time.UTC,
		Logger:   discard,
	})

	b.ReportAllocs()

	for b.Loop() {
		if err := store.Set(ctx, app.DateStorageKey, ""); err != nil {
			b.Fatal(err)
		}

		_ = service.Today(ctx)
	}
}
