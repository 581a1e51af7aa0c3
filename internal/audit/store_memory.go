package audit

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// InMemoryStore backs the default deployment and unit tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	s.records = append(s.records, record)
	return nil
}

func (s *InMemoryStore) ListByTag(_ context.Context, tagID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []Record
	for _, record := range s.records {
		if record.TagID == tagID {
			matched = append(matched, record)
		}
	}
	return matched, nil
}

func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := len(s.records) - limit
	if start < 0 {
		start = 0
	}
	return append([]Record{}, s.records[start:]...), nil
}

// All returns every record in append order. Test helper.
func (s *InMemoryStore) All() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Record{}, s.records...)
}
