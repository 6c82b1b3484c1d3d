package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/daily-quote-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/daily-quote-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen/daily-quote-service/internal/adapters/http/middleware"
	"github.com/jsamuelsen/daily-quote-service/internal/app"
	"github.com/jsamuelsen/daily-quote-service/internal/domain"
	"github.com/jsamuelsen/daily-quote-service/internal/mocks"
	"github.com/jsamuelsen/daily-quote-service/internal/platform/config"
	"github.com/jsamuelsen/daily-quote-service/internal/ports"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testServerConfig(port int, maxRequestSize int64) *config.ServerConfig {
	return &config.ServerConfig{
		Host:           "127.0.0.1",
		Port:           port,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    30 * time.Second,
		MaxRequestSize: maxRequestSize,
	}
}

// newTestRouter builds the full router over a mock store.
func newTestRouter(t *testing.T, setupMock func(*mocks.MockKeyValueStore)) *gin.Engine {
	t.Helper()

	store := mocks.NewMockKeyValueStore(t)
	if setupMock != nil {
		setupMock(store)
	}

	catalog, err := domain.NewCatalog([]string{"First.", "Second.", "Third."})
	require.NoError(t, err)

	service := app.NewDailyQuoteService(app.DailyQuoteServiceConfig{
		Store:    store,
		Catalog:  catalog,
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2024, time.January, 2, 12, 0, 0, 0, time.UTC) },
		Logger:   discardLogger(),
	})

	engine := gin.New()
	SetupRouter(engine, NewDefaultRouterConfig(
		discardLogger(),
		&config.AppConfig{Name: "daily-quote-service", Environment: "test", Version: "1.0.0"},
		handlers.NewHealthHandler(ports.NewHealthRegistry(), handlers.NewBuildInfo("1.0.0", "abc123", "")),
		handlers.NewQuoteHandler(service),
	))

	return engine
}

func TestServerNew(t *testing.T) {
	cfg := testServerConfig(8080, 1<<20)
	logger := discardLogger()

	srv := New(cfg, logger)

	require.NotNil(t, srv)
	assert.NotNil(t, srv.Engine())
	assert.Equal(t, cfg, srv.Config())
	assert.Equal(t, "127.0.0.1:8080", srv.Addr())
}

func TestServerStartShutdown(t *testing.T) {
	srv := New(testServerConfig(0, 1<<20), discardLogger())
	srv.Engine().GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	var order []string
	srv.OnShutdown("store", func(context.Context) error {
		order = append(order, "store")
		return nil
	})
	srv.OnShutdown("warm-up", func(context.Context) error {
		order = append(order, "warm-up")
		return nil
	})

	errCh := srv.Start()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	default:
	}

	assert.NotEqual(t, "127.0.0.1:0", srv.Addr(), "bound address should carry the real port")

	resp, err := http.Get("http://" + srv.Addr() + "/ping")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, srv.Shutdown(ctx))
	assert.Equal(t, []string{"warm-up", "store"}, order)

	select {
	case _, ok := <-errCh:
		assert.False(t, ok, "error channel should be closed")
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for server to shutdown")
	}
}

func TestServerStart_BindFailure(t *testing.T) {
	first := New(testServerConfig(0, 1<<20), discardLogger())
	firstErr := first.Start()
	t.Cleanup(func() { _ = first.Shutdown(context.Background()) })

	select {
	case err := <-firstErr:
		require.NoError(t, err)
	default:
	}

	_, port, err := net.SplitHostPort(first.Addr())
	require.NoError(t, err)

	cfg := testServerConfig(0, 1<<20)
	cfg.Port, err = strconv.Atoi(port)
	require.NoError(t, err)

	err = <-New(cfg, discardLogger()).Start()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen")
}

func TestServerShutdown_HookErrorsJoined(t *testing.T) {
	srv := New(testServerConfig(0, 1<<20), discardLogger())
	errCh := srv.Start()

	hookErr := errors.New("database is locked")
	srv.OnShutdown("store", func(context.Context) error { return hookErr })

	err := srv.Shutdown(context.Background())

	require.ErrorIs(t, err, hookErr)
	assert.Contains(t, err.Error(), "store")

	_, ok := <-errCh
	assert.False(t, ok)
}

func TestMaxBodySizeMiddleware(t *testing.T) {
	srv := New(testServerConfig(0, 16), discardLogger())
	srv.Engine().POST("/echo", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.JSON(http.StatusOK, gin.H{"received": len(body)})
	})

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "under limit", body: "short", wantStatus: http.StatusOK},
		{name: "over limit", body: strings.Repeat("x", 64), wantStatus: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestNewDefaultRouterConfig(t *testing.T) {
	logger := discardLogger()
	appCfg := &config.AppConfig{Name: "test-app", Environment: "test", Version: "1.0.0"}
	healthHandler := handlers.NewHealthHandler(ports.NewHealthRegistry(), handlers.BuildInfo{})

	cfg := NewDefaultRouterConfig(logger, appCfg, healthHandler, nil)

	assert.Equal(t, logger, cfg.Logger)
	assert.Equal(t, appCfg, cfg.AppConfig)
	assert.Equal(t, healthHandler, cfg.HealthHandler)
	assert.Nil(t, cfg.QuoteHandler)
	assert.Equal(t, DefaultRequestTimeout, cfg.Timeout)
}

func TestSetupRouter_Routes(t *testing.T) {
	engine := newTestRouter(t, nil)

	registered := make(map[string]bool)
	for _, route := range engine.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	for _, want := range []string{
		"GET /-/live",
		"GET /-/ready",
		"GET /-/build",
		"GET /-/metrics",
		"GET /api/v1/quotes",
		"GET /api/v1/quotes/daily",
		"GET /api/v1/quotes/random",
		"GET /api/v1/quotes/for-date",
		"GET /api/v1/quotes/:index",
	} {
		assert.True(t, registered[want], "missing route %s", want)
	}
}

func TestSetupRouter_WithoutOptionalHandlers(t *testing.T) {
	cfg := RouterConfig{
		Logger:    discardLogger(),
		AppConfig: &config.AppConfig{Name: "test-service", Environment: "test", Version: "1.0.0"},
	}

	require.NotPanics(t, func() {
		SetupRouter(gin.New(), cfg)
	})
}

func TestSetupRouter_DailyQuote(t *testing.T) {
	engine := newTestRouter(t, func(store *mocks.MockKeyValueStore) {
		store.EXPECT().Get(mock.Anything, app.DateStorageKey).Return("Tue Jan 02 2024", true, nil)
		store.EXPECT().Get(mock.Anything, app.QuoteStorageKey).Return("Cached.", true, nil)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quotes/daily", nil)
	req.Header.Set(middleware.HeaderRequestID, "req-42")

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-42", w.Header().Get(middleware.HeaderRequestID))
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderCorrelationID))

	var resp handlers.DailyQuoteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Cached.", resp.Quote)
	assert.Equal(t, "Tue Jan 02 2024", resp.Date)
	assert.Equal(t, string(domain.QuoteSourceCache), resp.Source)
}

func TestSetupRouter_DailyQuoteFallsBackWhenStoreFails(t *testing.T) {
	engine := newTestRouter(t, func(store *mocks.MockKeyValueStore) {
		store.EXPECT().Get(mock.Anything, mock.Anything).Return("", false, errors.New("disk I/O error")).Maybe()
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/quotes/daily", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var resp handlers.DailyQuoteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(domain.QuoteSourceFallback), resp.Source)
	assert.Equal(t, "Third.", resp.Quote)
}

func TestSetupRouter_NotFoundEnvelope(t *testing.T) {
	engine := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/quotes/99", nil))

	require.Equal(t, http.StatusNotFound, w.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrorCodeNotFound, resp.Error.Code)
	assert.NotEmpty(t, resp.TraceID)
}

func TestSetupRouter_UnknownRouteAndMethod(t *testing.T) {
	engine := newTestRouter(t, nil)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantCode   string
	}{
		{name: "unknown path", method: http.MethodGet, path: "/api/v2/quotes", wantStatus: http.StatusNotFound, wantCode: dto.ErrorCodeNotFound},
		{name: "unsupported method", method: http.MethodPost, path: "/api/v1/quotes/daily", wantStatus: http.StatusMethodNotAllowed, wantCode: dto.ErrorCodeNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.Header.Set(middleware.HeaderRequestID, "req-unknown")

			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code)

			var resp dto.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, "req-unknown", resp.TraceID)
		})
	}
}
