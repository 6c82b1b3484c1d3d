// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port Design Principles:
//   - Context as first parameter (always) for cancellation and deadlines
//   - Return domain types, never external DTOs or infrastructure types
//   - Error returns use domain error types (ErrUnavailable, ErrNotFound, etc.)
//   - Keep interfaces small and focused
package ports

import (
	"context"
)

// KeyValueStore is the persisted string store backing the daily quote cache.
// Implementations must be safe for concurrent use.
//
// Example usage in application layer:
//
//	value, ok, err := store.Get(ctx, "@quote_date")
//	if err != nil {
//	    // storage is unavailable
//	}
//	if !ok {
//	    // key was never written
//	}
type KeyValueStore interface {
	// Get returns the value stored under key.
	// ok is false when the key is absent. err is non-nil only when the
	// store could not be read.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
}

// Store is a KeyValueStore that owns resources and reports its health.
// Storage adapters return this so the composition root can register
// them with the HealthRegistry and close them on shutdown.
type Store interface {
	KeyValueStore
	HealthChecker

	// Close releases the underlying resources.
	Close() error
}
