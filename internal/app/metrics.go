package app

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jsamuelsen/daily-quote-service/internal/domain"
)

const instrumentationName = "github.com/jsamuelsen/daily-quote-service/app"

// lookupMetrics counts daily quote lookups by how they were served.
type lookupMetrics struct {
	lookups metric.Int64Counter
}

func newLookupMetrics() *lookupMetrics {
	meter := otel.Meter(instrumentationName)

	lookups, err := meter.Int64Counter(
		"daily_quote.lookups",
		metric.WithDescription("Daily quote lookups by outcome (cache, computed, fallback)"),
	)
	if err != nil {
		// Lookups still work without the counter.
		otel.Handle(err)

		return &lookupMetrics{}
	}

	return &lookupMetrics{lookups: lookups}
}

func (m *lookupMetrics) record(ctx context.Context, source domain.QuoteSource) {
	if m == nil || m.lookups == nil {
		return
	}

	m.lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(source))))
}
