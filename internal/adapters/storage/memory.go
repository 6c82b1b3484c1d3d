package storage

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tidwall/btree"

	"github.com/jsamuelsen/daily-quote-service/internal/platform/logging"
)

// MemoryStore keeps entries in an ordered in-process map. Contents are lost
// when the process exits, so every start recomputes the daily quote.
type MemoryStore struct {
	mu      sync.RWMutex
	entries btree.Map[string, string]
	closed  bool
	logger  *slog.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	if logger == nil {
		logger = slog.Default()
	}

	return &MemoryStore{
		logger: logger.With(slog.String("component", "storage.MemoryStore")),
	}
}

// Name implements ports.HealthChecker.
func (s *MemoryStore) Name() string {
	return "memory"
}

// Check implements ports.HealthChecker.
func (s *MemoryStore) Check(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return checkOpen(ctx, s.closed)
}

// Get implements ports.KeyValueStore.
func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := checkOpen(ctx, s.closed); err != nil {
		return "", false, err
	}

	value, ok := s.entries.Get(key)

	s.logger.Log(ctx, logging.LevelTrace, "store get",
		slog.String("key", key),
		slog.Bool("found", ok),
	)

	return value, ok, nil
}

// Set implements ports.KeyValueStore.
func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkOpen(ctx, s.closed); err != nil {
		return err
	}

	s.entries.Set(key, value)

	s.logger.Log(ctx, logging.LevelTrace, "store set", slog.String("key", key))

	return nil
}

// Close drops all entries. Later operations return ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.entries.Clear()

	return nil
}
