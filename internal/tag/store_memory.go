package tag

import (
	"context"
	"sync"
)

// InMemoryStore keeps the default deployment and unit tests lightweight. It
// intentionally favors clarity over performance.
type InMemoryStore struct {
	mu   sync.RWMutex
	tags map[string]Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{tags: make(map[string]Record)}
}

func (s *InMemoryStore) FindByID(_ context.Context, tagID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if record, ok := s.tags[tagID]; ok {
		return record, nil
	}
	return Record{}, ErrNotFound
}

func (s *InMemoryStore) Save(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags[record.TagID] = record
	return nil
}

func (s *InMemoryStore) UpdatePIN(_ context.Context, tagID, currentPIN, newPIN, updatedAt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.tags[tagID]
	if !ok {
		return ErrNotFound
	}
	if record.PIN != currentPIN {
		return ErrPINStale
	}
	record.PIN = newPIN
	record.PINUpdatedAt = updatedAt
	s.tags[tagID] = record
	return nil
}
