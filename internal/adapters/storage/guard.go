package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/daily-quote-service/internal/platform/logging"
	"github.com/jsamuelsen/daily-quote-service/internal/ports"
)

const (
	// instrumentationName is used for OpenTelemetry tracer and meter.
	instrumentationName = "github.com/jsamuelsen/daily-quote-service/internal/adapters/storage"
)

// GuardConfig configures a GuardedStore.
type GuardConfig struct {
	// Timeout bounds each Get and Set. Zero or negative leaves operations
	// bounded only by the caller's context.
	Timeout time.Duration

	// Circuit configures circuit breaker behavior.
	Circuit CircuitBreakerConfig

	// Logger is an optional logger. If nil, a default logger is used.
	Logger *slog.Logger
}

// GuardedStore decorates a ports.Store with:
//   - an optional per-operation timeout
//   - circuit breaker protection
//   - OpenTelemetry tracing and metrics
//
// Health checks and Close go straight to the wrapped store.
type GuardedStore struct {
	store   ports.Store
	timeout time.Duration
	cb      *CircuitBreaker
	logger  *slog.Logger

	tracer trace.Tracer

	opDuration metric.Float64Histogram
	opTotal    metric.Int64Counter
}

// NewGuardedStore wraps store.
func NewGuardedStore(store ports.Store, cfg GuardConfig) (*GuardedStore, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(
		slog.String("component", "storage.GuardedStore"),
		slog.String("driver", store.Name()),
	)

	cb := NewCircuitBreaker(cfg.Circuit)
	cb.OnStateChange(func(from, to State) {
		logger.Warn("store circuit breaker state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})

	meter := otel.Meter(instrumentationName)

	opDuration, err := meter.Float64Histogram(
		"daily_quote.store.duration",
		metric.WithDescription("Duration of key-value store operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration metric: %w", err)
	}

	opTotal, err := meter.Int64Counter(
		"daily_quote.store.operations",
		metric.WithDescription("Total number of key-value store operations"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating operation counter: %w", err)
	}

	return &GuardedStore{
		store:      store,
		timeout:    cfg.Timeout,
		cb:         cb,
		logger:     logger,
		tracer:     otel.Tracer(instrumentationName),
		opDuration: opDuration,
		opTotal:    opTotal,
	}, nil
}

// Name implements ports.HealthChecker.
func (g *GuardedStore) Name() string {
	return g.store.Name()
}

// Check implements ports.HealthChecker.
func (g *GuardedStore) Check(ctx context.Context) error {
	return g.store.Check(ctx)
}

// Close implements ports.Store.
func (g *GuardedStore) Close() error {
	return g.store.Close()
}

// CircuitState returns the current state of the circuit breaker.
func (g *GuardedStore) CircuitState() State {
	return g.cb.State()
}

// Get implements ports.KeyValueStore.
func (g *GuardedStore) Get(ctx context.Context, key string) (string, bool, error) {
	var (
		value string
		ok    bool
	)

	err := g.do(ctx, "get", key, func(ctx context.Context) error {
		var err error

		value, ok, err = g.store.Get(ctx, key)

		return err
	})

	return value, ok, err
}

// Set implements ports.KeyValueStore.
func (g *GuardedStore) Set(ctx context.Context, key, value string) error {
	return g.do(ctx, "set", key, func(ctx context.Context) error {
		return g.store.Set(ctx, key, value)
	})
}

// do runs one store operation through the breaker under a span.
func (g *GuardedStore) do(ctx context.Context, op, key string, fn func(context.Context) error) error {
	start := time.Now()

	gen, err := g.cb.Allow()
	if err != nil {
		g.record(ctx, op, time.Since(start), "circuit_open")
		logging.FromContext(ctx).DebugContext(ctx, "store call blocked by circuit breaker",
			slog.String("op", op),
			slog.String("key", key),
		)

		return err
	}

	ctx, span := g.tracer.Start(ctx, "store."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", g.store.Name()),
			attribute.String("db.operation", op),
			attribute.String("daily_quote.store.key", key),
		),
	)
	defer span.End()

	opCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	err = fn(opCtx)
	duration := time.Since(start)

	switch {
	case err == nil:
		g.cb.RecordSuccess(gen)
		g.record(ctx, op, duration, "ok")

		return nil

	case ctx.Err() != nil:
		// The caller went away; that says nothing about the store.
		g.cb.Release(gen)
		span.SetStatus(codes.Error, ctx.Err().Error())
		g.record(ctx, op, duration, "canceled")

		return err

	default:
		g.cb.RecordFailure(gen)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.record(ctx, op, duration, "error")

		return err
	}
}

func (g *GuardedStore) record(ctx context.Context, op string, duration time.Duration, result string) {
	attrs := metric.WithAttributes(
		attribute.String("db.system", g.store.Name()),
		attribute.String("db.operation", op),
		attribute.String("result", result),
	)

	g.opDuration.Record(ctx, duration.Seconds(), attrs)
	g.opTotal.Add(ctx, 1, attrs)
}
