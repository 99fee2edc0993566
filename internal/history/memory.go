package history

import (
	"context"
	"sync"

	"github.com/ashureev/classpulse/internal/domain"
)

// MemoryStore keeps poll records in process memory. It backs deployments
// with no durable store configured and serves as the fallback when the
// durable store is unreachable.
type MemoryStore struct {
	mu      sync.RWMutex
	records []domain.PollRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append adds a record to the in-memory archive.
func (s *MemoryStore) Append(_ context.Context, record domain.PollRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// List returns a copy of the archive, most recently completed first.
func (s *MemoryStore) List(_ context.Context) ([]domain.PollRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.PollRecord, len(s.records))
	// Records are appended in completion order, so reversing yields
	// most-recent-first.
	for i, r := range s.records {
		out[len(s.records)-1-i] = r
	}
	return out, nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
