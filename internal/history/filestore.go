package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"github.com/secondlook/secondlook/internal/domain"
)

// FileStore keeps the history as one JSON array in <dir>/<key>.json, the
// on-disk counterpart of a browser local-storage entry. It assumes a single
// writing process.
type FileStore struct {
	mu   sync.Mutex
	path string
	log  zerolog.Logger
}

// OpenFileStore prepares dir and returns a store for StorageKey.
func OpenFileStore(dir string, log zerolog.Logger) (*FileStore, error) {
	return OpenFileStoreWithKey(dir, StorageKey, log)
}

// OpenFileStoreWithKey is OpenFileStore with a custom key.
func OpenFileStoreWithKey(dir, key string, log zerolog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("OpenFileStore: creating %q: %w", dir, err)
	}
	return &FileStore{
		path: filepath.Join(dir, key+".json"),
		log:  log,
	}, nil
}

// Path is the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Load returns the stored records. A missing or unreadable value yields an
// empty history, never an error.
func (s *FileStore) Load(ctx context.Context) ([]domain.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(), nil
}

// Append prepends record and rewrites the whole list.
func (s *FileStore) Append(ctx context.Context, record domain.HistoryRecord) error {
	return s.withWrite(ctx, func(records []domain.HistoryRecord) []domain.HistoryRecord {
		return append([]domain.HistoryRecord{record}, records...)
	})
}

// Save replaces the stored list with records, as given.
func (s *FileStore) Save(ctx context.Context, records []domain.HistoryRecord) error {
	return s.withWrite(ctx, func([]domain.HistoryRecord) []domain.HistoryRecord {
		return records
	})
}

// Clear removes the stored value entirely.
func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("FileStore.Clear: %w", err)
	}
	return nil
}

func (s *FileStore) withWrite(ctx context.Context, fn func([]domain.HistoryRecord) []domain.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	records := fn(s.loadLocked())
	if records == nil {
		records = []domain.HistoryRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("FileStore: encoding history: %w", err)
	}
	return s.flushLocked(data)
}

func (s *FileStore) loadLocked() []domain.HistoryRecord {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Debug().Err(err).Str("path", s.path).Msg("History unreadable, treating as empty")
		}
		return []domain.HistoryRecord{}
	}
	var records []domain.HistoryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		s.log.Debug().Err(err).Str("path", s.path).Msg("History corrupt, treating as empty")
		return []domain.HistoryRecord{}
	}
	if records == nil {
		records = []domain.HistoryRecord{}
	}
	return records
}

// flushLocked writes through a temp file so a crash never leaves half a list.
func (s *FileStore) flushLocked(data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("FileStore: creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("FileStore: writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("FileStore: syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("FileStore: closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("FileStore: replacing history: %w", err)
	}
	return nil
}

var _ Repository = (*FileStore)(nil)
