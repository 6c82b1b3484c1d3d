// Package app contains application services that orchestrate use cases.
// This is the application layer: it coordinates domain logic and
// infrastructure through ports and knows nothing about HTTP or the CLI.
package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jsamuelsen/daily-quote-service/internal/domain"
	"github.com/jsamuelsen/daily-quote-service/internal/ports"
)

// Persisted layout of the daily quote cache.
const (
	// QuoteStorageKey holds the last selected quote text.
	QuoteStorageKey = "@daily_quote"

	// DateStorageKey holds the calendar day the quote was selected for.
	DateStorageKey = "@quote_date"
)

// DailyQuoteService serves the quote of the day from a single-slot cache
// kept in a KeyValueStore, recomputing it from the catalog when the day
// changes. Storage failures never reach the caller.
type DailyQuoteService struct {
	store    ports.KeyValueStore
	catalog  *domain.Catalog
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger
	metrics  *lookupMetrics
}

// DailyQuoteServiceConfig contains the dependencies of the daily quote service.
type DailyQuoteServiceConfig struct {
	// Store persists the cache record. Required.
	Store ports.KeyValueStore

	// Catalog defaults to domain.DefaultCatalog().
	Catalog *domain.Catalog

	// Location decides where calendar days begin. Defaults to time.Local.
	Location *time.Location

	// Now defaults to time.Now.
	Now func() time.Time

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// NewDailyQuoteService creates the service. Panics if Store is nil.
func NewDailyQuoteService(cfg DailyQuoteServiceConfig) *DailyQuoteService {
	if cfg.Store == nil {
		panic("DailyQuoteService: Store is required")
	}

	catalog := cfg.Catalog
	if catalog == nil {
		catalog = domain.DefaultCatalog()
	}

	location := cfg.Location
	if location == nil {
		location = time.Local
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &DailyQuoteService{
		store:    cfg.Store,
		catalog:  catalog,
		location: location,
		now:      now,
		logger:   logger.With(slog.String("component", "app.DailyQuoteService")),
		metrics:  newLookupMetrics(),
	}
}

// Catalog returns the catalog the service picks from.
func (s *DailyQuoteService) Catalog() *domain.Catalog {
	return s.catalog
}

// Location returns the time zone calendar days are evaluated in.
func (s *DailyQuoteService) Location() *time.Location {
	return s.location
}

// Today returns the quote of the day.
//
// A stored record for today is reused without writing. Otherwise the quote
// is picked from the catalog and both keys are overwritten. If the store
// fails at any point the freshly picked quote is returned unpersisted.
func (s *DailyQuoteService) Today(ctx context.Context) *domain.DailyQuote {
	now := s.now().In(s.location)
	today := domain.DateKey(now)

	record, err := s.loadRecord(ctx)
	if err != nil {
		return s.fallback(ctx, now, err)
	}

	if record.IsFor(today) {
		s.logger.DebugContext(ctx, "daily quote cache hit", slog.String("date", today))
		s.metrics.record(ctx, domain.QuoteSourceCache)

		return &domain.DailyQuote{Text: record.Quote, DateKey: today, Source: domain.QuoteSourceCache}
	}

	quote := s.catalog.PickForDate(now)

	err = s.storeRecord(ctx, domain.DailyQuoteRecord{DateKey: today, Quote: quote})
	if err != nil {
		return s.fallback(ctx, now, err)
	}

	s.logger.InfoContext(ctx, "selected new daily quote",
		slog.String("date", today),
		slog.String("previous_date", record.DateKey),
		slog.Int("index", s.catalog.IndexForDate(now)),
	)
	s.metrics.record(ctx, domain.QuoteSourceComputed)

	return &domain.DailyQuote{Text: quote, DateKey: today, Source: domain.QuoteSourceComputed}
}

// Random returns a uniformly random catalog quote. Nothing is persisted.
func (s *DailyQuoteService) Random(ctx context.Context) string {
	s.logger.DebugContext(ctx, "picking random quote")

	return s.catalog.PickRandom()
}

// ForDate returns the quote the catalog assigns to date's calendar day,
// evaluated in the service location, together with its day-of-year number.
// The cache is neither read nor written.
func (s *DailyQuoteService) ForDate(ctx context.Context, date time.Time) (quote string, dayOfYear int) {
	date = date.In(s.location)
	dayOfYear = domain.DayOfYear(date, s.catalog.Convention())

	s.logger.DebugContext(ctx, "picking quote for date",
		slog.String("date", domain.DateKey(date)),
		slog.Int("day_of_year", dayOfYear),
	)

	return s.catalog.PickForDate(date), dayOfYear
}

// ParseDate parses an ISO calendar date (YYYY-MM-DD) in the service location.
func (s *DailyQuoteService) ParseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(value), s.location)
	if err != nil {
		return time.Time{}, domain.NewValidationErrorWithValue("date", "must be a calendar date formatted YYYY-MM-DD", value)
	}

	return t, nil
}

// loadRecord reads both cache keys. Absent keys come back as empty fields.
func (s *DailyQuoteService) loadRecord(ctx context.Context) (domain.DailyQuoteRecord, error) {
	dateKey, quote, err := Parallel2(ctx,
		func(ctx context.Context) (string, error) { return s.get(ctx, DateStorageKey) },
		func(ctx context.Context) (string, error) { return s.get(ctx, QuoteStorageKey) },
	)
	if err != nil {
		return domain.DailyQuoteRecord{}, err
	}

	return domain.DailyQuoteRecord{DateKey: dateKey, Quote: quote}, nil
}

// storeRecord writes the quote before the date so that a failed second
// write leaves a stale date behind and forces a recompute next time.
func (s *DailyQuoteService) storeRecord(ctx context.Context, record domain.DailyQuoteRecord) error {
	if err := s.set(ctx, QuoteStorageKey, record.Quote); err != nil {
		return err
	}

	return s.set(ctx, DateStorageKey, record.DateKey)
}

func (s *DailyQuoteService) get(ctx context.Context, key string) (string, error) {
	value, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return "", asStorageError("get", key, err)
	}

	if !ok {
		return "", nil
	}

	return value, nil
}

func (s *DailyQuoteService) set(ctx context.Context, key, value string) error {
	if err := s.store.Set(ctx, key, value); err != nil {
		return asStorageError("set", key, err)
	}

	return nil
}

func (s *DailyQuoteService) fallback(ctx context.Context, now time.Time, err error) *domain.DailyQuote {
	s.logger.WarnContext(ctx, "error loading daily quote, serving it without the cache",
		slog.Any("error", err),
	)
	s.metrics.record(ctx, domain.QuoteSourceFallback)

	return &domain.DailyQuote{
		Text:    s.catalog.PickForDate(now),
		DateKey: domain.DateKey(now),
		Source:  domain.QuoteSourceFallback,
	}
}

func asStorageError(op, key string, err error) error {
	if domain.IsStorageUnavailable(err) {
		return err
	}

	return domain.NewStorageUnavailableError(op, key, err)
}
