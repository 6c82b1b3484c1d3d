package logging

import (
	"context"
	"log/slog"
	"slices"
	"sync/atomic"
)

// Attribute keys for the identifiers that follow a request through the logs.
const (
	KeyRequestID     = "request_id"
	KeyCorrelationID = "correlation_id"
	KeyTraceID       = "trace_id"
)

type ctxKey struct{}

// scope is what a context carries: a base logger plus identity attributes.
// Identity attributes are kept apart so that setting one twice replaces it
// instead of emitting the key twice.
type scope struct {
	base   *slog.Logger
	ids    []slog.Attr
	logger *slog.Logger
}

func newScope(base *slog.Logger, ids []slog.Attr) *scope {
	args := make([]any, len(ids))
	for i, a := range ids {
		args[i] = a
	}

	return &scope{base: base, ids: ids, logger: base.With(args...)}
}

var defaultLogger atomic.Pointer[slog.Logger]

func init() {
	defaultLogger.Store(slog.Default())
}

// Default returns the logger used when a context carries none.
func Default() *slog.Logger {
	return defaultLogger.Load()
}

// SetDefault sets the default logger used when no logger is in context,
// and makes it the slog default as well.
func SetDefault(logger *slog.Logger) {
	defaultLogger.Store(logger)
	slog.SetDefault(logger)
}

// FromContext returns the context logger with its identity attributes, or
// the default logger.
func FromContext(ctx context.Context) *slog.Logger {
	if s := scopeFrom(ctx); s != nil {
		return s.logger
	}

	return Default()
}

// WithContext stores logger in ctx. Identity attributes already present
// in ctx are kept.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	var ids []slog.Attr
	if s := scopeFrom(ctx); s != nil {
		ids = s.ids
	}

	return context.WithValue(ctx, ctxKey{}, newScope(logger, ids))
}

// With adds arbitrary attributes to the logger in context.
func With(ctx context.Context, args ...any) context.Context {
	s := scopeFrom(ctx)
	if s == nil {
		return WithContext(ctx, Default().With(args...))
	}

	return context.WithValue(ctx, ctxKey{}, newScope(s.base.With(args...), s.ids))
}

// WithRequestID sets the request ID on the logger in context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withID(ctx, KeyRequestID, requestID)
}

// WithCorrelationID sets the correlation ID on the logger in context.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return withID(ctx, KeyCorrelationID, correlationID)
}

// WithTraceID sets the trace ID on the logger in context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return withID(ctx, KeyTraceID, traceID)
}

func withID(ctx context.Context, key, value string) context.Context {
	base := Default()

	var ids []slog.Attr
	if s := scopeFrom(ctx); s != nil {
		base = s.base
		ids = slices.DeleteFunc(slices.Clone(s.ids), func(a slog.Attr) bool { return a.Key == key })
	}

	ids = append(ids, slog.String(key, value))

	return context.WithValue(ctx, ctxKey{}, newScope(base, ids))
}

func scopeFrom(ctx context.Context) *scope {
	if ctx == nil {
		return nil
	}

	s, _ := ctx.Value(ctxKey{}).(*scope)

	return s
}
