// Package storage provides the key-value stores backing the daily quote cache.
//
// Every store implements ports.Store. Open selects one by driver name and
// wraps it in a GuardedStore, which adds a per-operation timeout, a circuit
// breaker, tracing and metrics.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jsamuelsen/daily-quote-service/internal/platform/config"
	"github.com/jsamuelsen/daily-quote-service/internal/ports"
)

var (
	// ErrClosed is returned by operations on a store after Close.
	ErrClosed = errors.New("store is closed")

	// ErrCorruptDocument is returned when the file store cannot parse its file.
	ErrCorruptDocument = errors.New("store document is not valid JSON")
)

// Open creates the store selected by cfg.Driver and guards it.
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (ports.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		store ports.Store
		err   error
	)

	switch cfg.Driver {
	case config.StoreDriverMemory:
		store = NewMemoryStore(logger)
	case config.StoreDriverFile:
		store, err = NewFileStore(cfg.Path, logger)
	case config.StoreDriverSQLite:
		store, err = NewSQLiteStore(ctx, cfg.Path, logger)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Driver, err)
	}

	guarded, err := NewGuardedStore(store, GuardConfig{
		Timeout: cfg.Timeout,
		Circuit: CircuitBreakerConfig{
			MaxFailures:   cfg.CircuitBreaker.MaxFailures,
			Timeout:       cfg.CircuitBreaker.Timeout,
			HalfOpenLimit: cfg.CircuitBreaker.HalfOpenLimit,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, errors.Join(err, store.Close())
	}

	return guarded, nil
}

// checkOpen returns the context error, or ErrClosed for a closed store.
func checkOpen(ctx context.Context, closed bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if closed {
		return ErrClosed
	}

	return nil
}
