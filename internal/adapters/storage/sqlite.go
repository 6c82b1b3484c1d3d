package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	// Registers the pure-Go "sqlite" driver.
	_ "modernc.org/sqlite"

	"github.com/jsamuelsen/daily-quote-service/internal/platform/logging"
)

// MemoryDSN opens a private in-memory SQLite database.
const MemoryDSN = ":memory:"

const (
	createTableSQL = `CREATE TABLE IF NOT EXISTS kv (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`

	selectValueSQL = `SELECT value FROM kv WHERE key = ?`

	upsertValueSQL = `INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
)

// SQLiteStore keeps entries in a single-table SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	closed atomic.Bool
	logger *slog.Logger
}

// NewSQLiteStore opens or creates the database at path and ensures the kv
// table exists. Use MemoryDSN for a throwaway database.
func NewSQLiteStore(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite store path is required")
	}

	if logger == nil {
		logger = slog.Default()
	}

	if path != MemoryDSN {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	// busy_timeout lets the CLI and a running service share the file.
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection keeps ":memory:" a single database and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("ping database: %w", err), db.Close())
	}

	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return nil, errors.Join(fmt.Errorf("create kv table: %w", err), db.Close())
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With(slog.String("component", "storage.SQLiteStore"), slog.String("path", path)),
	}, nil
}

// Name implements ports.HealthChecker.
func (s *SQLiteStore) Name() string {
	return "sqlite"
}

// Check implements ports.HealthChecker.
func (s *SQLiteStore) Check(ctx context.Context) error {
	if err := checkOpen(ctx, s.closed.Load()); err != nil {
		return err
	}

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	return nil
}

// Get implements ports.KeyValueStore.
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := checkOpen(ctx, s.closed.Load()); err != nil {
		return "", false, err
	}

	var value string

	err := s.db.QueryRowContext(ctx, selectValueSQL, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Log(ctx, logging.LevelTrace, "store get", slog.String("key", key), slog.Bool("found", false))
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("select %q: %w", key, err)
	}

	s.logger.Log(ctx, logging.LevelTrace, "store get", slog.String("key", key), slog.Bool("found", true))

	return value, true, nil
}

// Set implements ports.KeyValueStore.
func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	if err := checkOpen(ctx, s.closed.Load()); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, upsertValueSQL, key, value); err != nil {
		return fmt.Errorf("upsert %q: %w", key, err)
	}

	s.logger.Log(ctx, logging.LevelTrace, "store set", slog.String("key", key))

	return nil
}

// Close implements ports.Store. Later operations return ErrClosed.
func (s *SQLiteStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	return s.db.Close()
}
