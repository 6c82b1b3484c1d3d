package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/jsamuelsen/daily-quote-service/internal/platform/logging"
)

// fileDocument is the on-disk layout: {"entries": {"<key>": "<value>"}}.
// Entries are kept raw so values this service did not write survive a Set.
type fileDocument struct {
	Entries map[string]json.RawMessage `json:"entries"`
}

// FileStore persists entries in a single JSON document. Reads go through
// gjson without decoding the whole file; writes replace the file atomically.
type FileStore struct {
	mu     sync.Mutex
	path   string
	closed bool
	logger *slog.Logger
}

// NewFileStore creates a store backed by path. The file and its directory
// are created on the first Set.
func NewFileStore(path string, logger *slog.Logger) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("file store path is required")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &FileStore{
		path:   filepath.Clean(path),
		logger: logger.With(slog.String("component", "storage.FileStore"), slog.String("path", path)),
	}, nil
}

// Name implements ports.HealthChecker.
func (s *FileStore) Name() string {
	return "file"
}

// Check reports whether the document, if present, is readable JSON.
func (s *FileStore) Check(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkOpen(ctx, s.closed); err != nil {
		return err
	}

	_, err := s.read()

	return err
}

// Get implements ports.KeyValueStore. A value stored as anything other than
// a JSON string is reported as absent.
func (s *FileStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkOpen(ctx, s.closed); err != nil {
		return "", false, err
	}

	data, err := s.read()
	if err != nil {
		return "", false, err
	}

	// Keys such as "@daily_quote" would otherwise be parsed as gjson modifiers.
	result := gjson.GetBytes(data, "entries."+gjson.Escape(key))
	found := result.Type == gjson.String

	s.logger.Log(ctx, logging.LevelTrace, "store get",
		slog.String("key", key),
		slog.Bool("found", found),
	)

	if !found {
		return "", false, nil
	}

	return result.Str, true, nil
}

// Set implements ports.KeyValueStore.
func (s *FileStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkOpen(ctx, s.closed); err != nil {
		return err
	}

	data, err := s.read()
	if err != nil {
		return err
	}

	doc := fileDocument{Entries: make(map[string]json.RawMessage)}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("%w: %w", ErrCorruptDocument, err)
		}

		if doc.Entries == nil {
			doc.Entries = make(map[string]json.RawMessage)
		}
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding value for %q: %w", key, err)
	}

	doc.Entries[key] = encoded

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}

	if err := s.writeAtomic(out); err != nil {
		return err
	}

	s.logger.Log(ctx, logging.LevelTrace, "store set", slog.String("key", key))

	return nil
}

// Close implements ports.Store. Later operations return ErrClosed.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	return nil
}

// read returns the document bytes, or nil when the file does not exist yet.
func (s *FileStore) read() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}

	if len(data) > 0 && !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: %s", ErrCorruptDocument, s.path)
	}

	return data, nil
}

// writeAtomic writes data to a temp file next to the target and renames
// it into place, so readers never observe a partial document.
func (s *FileStore) writeAtomic(data []byte) error {
	dir := filepath.Dir(s.path)

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		return errors.Join(fmt.Errorf("writing temp file: %w", err), tmp.Close(), os.Remove(tmpName))
	}

	if err := tmp.Sync(); err != nil {
		return errors.Join(fmt.Errorf("syncing temp file: %w", err), tmp.Close(), os.Remove(tmpName))
	}

	if err := tmp.Close(); err != nil {
		return errors.Join(fmt.Errorf("closing temp file: %w", err), os.Remove(tmpName))
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return errors.Join(fmt.Errorf("replacing %s: %w", s.path, err), os.Remove(tmpName))
	}

	return nil
}
