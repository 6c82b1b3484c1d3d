package telemetry

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/daily-quote-service/internal/platform/logging"
)

const (
	instrumentationName = "github.com/jsamuelsen/daily-quote-service/telemetry"

	// TraceIDKey is the gin context key holding the active trace ID.
	TraceIDKey = "trace_id"

	// TraceIDHeader echoes the trace ID back to the client.
	TraceIDHeader = "X-Trace-ID"
)

// Metrics are the HTTP server instruments.
type Metrics struct {
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
	activeRequests  metric.Int64UpDownCounter
}

// NewMetrics registers the HTTP server instruments on the global meter.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	var (
		m   Metrics
		err error
		all []error
	)

	m.requestDuration, err = meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	all = append(all, err)

	m.requestTotal, err = meter.Int64Counter("http.server.request.total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	all = append(all, err)

	m.activeRequests, err = meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("Number of in-flight HTTP requests"),
	)
	all = append(all, err)

	if err := errors.Join(all...); err != nil {
		return nil, err
	}

	return &m, nil
}

// operationalPrefix holds the operational endpoints, which are polled too often
// to be worth a span each.
const operationalPrefix = "/-/"

// Middleware returns the otelgin tracing middleware followed by request
// metrics and trace ID propagation into the response, the gin context and
// the request logger. Operational endpoints are not traced.
func Middleware(serviceName string) gin.HandlersChain {
	tracing := otelgin.Middleware(serviceName,
		otelgin.WithFilter(func(r *http.Request) bool {
			return !strings.HasPrefix(r.URL.Path, operationalPrefix)
		}),
	)

	return gin.HandlersChain{tracing, metricsMiddleware()}
}

func metricsMiddleware() gin.HandlerFunc {
	// Metrics errors are reported to otel but never stop requests.
	metrics, err := NewMetrics()
	if err != nil {
		otel.Handle(err)
	}

	return func(c *gin.Context) {
		start := time.Now()
		ctx := c.Request.Context()

		span := trace.SpanFromContext(ctx)
		if span.SpanContext().HasTraceID() {
			traceID := span.SpanContext().TraceID().String()

			c.Header(TraceIDHeader, traceID)
			c.Set(TraceIDKey, traceID)

			ctx = logging.WithTraceID(ctx, traceID)
			c.Request = c.Request.WithContext(ctx)
		}

		if metrics != nil {
			attrs := metric.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", c.FullPath()),
			)

			metrics.activeRequests.Add(ctx, 1, attrs)
			defer metrics.activeRequests.Add(ctx, -1, attrs)
		}

		c.Next()

		if metrics != nil {
			attrs := metric.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", c.FullPath()),
				attribute.Int("http.status_code", c.Writer.Status()),
			)
			metrics.requestDuration.Record(ctx, time.Since(start).Seconds(), attrs)
			metrics.requestTotal.Add(ctx, 1, attrs)
		}
	}
}
