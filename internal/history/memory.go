package history

import (
	"context"
	"sync"

	"github.com/secondlook/secondlook/internal/domain"
)

// MemoryStore is an in-memory implementation of Repository.
// It is safe for concurrent use; data is lost when the process exits.
type MemoryStore struct {
	mu      sync.RWMutex
	records []domain.HistoryRecord
}

// NewMemoryStore creates an empty in-memory history.
func NewMemoryStore(seed ...domain.HistoryRecord) *MemoryStore {
	return &MemoryStore{records: append([]domain.HistoryRecord{}, seed...)}
}

// Load implements the Repository interface.
func (s *MemoryStore) Load(ctx context.Context) ([]domain.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Return a copy to avoid external modifications
	return append([]domain.HistoryRecord{}, s.records...), nil
}

// Append implements the Repository interface.
func (s *MemoryStore) Append(ctx context.Context, record domain.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append([]domain.HistoryRecord{record}, s.records...)
	return nil
}

// Clear implements the Repository interface.
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	return nil
}

// Ensure MemoryStore implements Repository interface.
var _ Repository = (*MemoryStore)(nil)
