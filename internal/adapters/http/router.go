package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/daily-quote-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/daily-quote-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen/daily-quote-service/internal/adapters/http/middleware"
	"github.com/jsamuelsen/daily-quote-service/internal/platform/config"
	"github.com/jsamuelsen/daily-quote-service/internal/platform/telemetry"
)

// DefaultRequestTimeout is the default timeout for API requests.
const DefaultRequestTimeout = 30 * time.Second

// RouterConfig contains configuration for setting up the router.
type RouterConfig struct {
	// Logger is the structured logger for request logging.
	Logger *slog.Logger

	// AppConfig contains application configuration.
	AppConfig *config.AppConfig

	// HealthHandler handles health check endpoints.
	HealthHandler *handlers.HealthHandler

	// QuoteHandler serves the /api/v1/quotes endpoints.
	QuoteHandler *handlers.QuoteHandler

	// Timeout is the deadline applied to API requests. Zero disables it.
	Timeout time.Duration
}

// SetupRouter configures all routes and middleware on the Gin engine.
// Middleware is applied in the following order (first to last):
//  1. Recovery - catch panics first, seed the request logger
//  2. Request ID - generate/extract request ID
//  3. Correlation ID - handle client session correlation
//  4. OpenTelemetry - tracing and metrics
//  5. Logging - request logging (skips /-/ endpoints)
//  6. Deadline - request deadline on /api/v1 only
//
// Unknown routes and methods answer with the standard error envelope.
//
// Route groups:
//   - /-/ (internal): liveness, readiness, build info and Prometheus metrics
//   - /api/v1/ (public API): quote endpoints
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	engine.Use(
		middleware.Recovery(cfg.Logger),
		middleware.RequestID(),
		middleware.CorrelationID(),
	)
	engine.Use(telemetry.Middleware(cfg.AppConfig.Name)...)
	engine.Use(middleware.Logging())

	engine.HandleMethodNotAllowed = true
	engine.NoRoute(func(c *gin.Context) {
		dto.Abort(c, dto.ErrorCodeNotFound, "no route for "+c.Request.URL.Path)
	})
	engine.NoMethod(func(c *gin.Context) {
		dto.Abort(c, dto.ErrorCodeNotAllowed, c.Request.Method+" is not supported on "+c.Request.URL.Path)
	})

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterHealthRoutesOnEngine(engine)
	}

	apiV1 := engine.Group("/api/v1")
	if cfg.Timeout > 0 {
		apiV1.Use(middleware.Deadline(cfg.Timeout))
	}

	if cfg.QuoteHandler != nil {
		cfg.QuoteHandler.RegisterQuoteRoutes(apiV1)
	}
}

// NewDefaultRouterConfig creates a RouterConfig with the default timeout.
func NewDefaultRouterConfig(
	logger *slog.Logger,
	appCfg *config.AppConfig,
	healthHandler *handlers.HealthHandler,
	quoteHandler *handlers.QuoteHandler,
) RouterConfig {
	return RouterConfig{
		Logger:        logger,
		AppConfig:     appCfg,
		HealthHandler: healthHandler,
		QuoteHandler:  quoteHandler,
		Timeout:       DefaultRequestTimeout,
	}
}
