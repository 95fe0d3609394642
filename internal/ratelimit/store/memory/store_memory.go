package memory

import (
	"context"
	"sync"
	"time"

	"escrowgate/internal/ratelimit/models"
	"escrowgate/internal/ratelimit/store"
	"escrowgate/internal/sentinel"
)

// InMemoryRecordStore keeps records in a process-local map. State is lost on restart.
type InMemoryRecordStore struct {
	mu      sync.RWMutex
	records map[string]*models.Record
}

func New() *InMemoryRecordStore {
	return &InMemoryRecordStore{records: make(map[string]*models.Record)}
}

func (s *InMemoryRecordStore) Get(_ context.Context, key string) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return r.Clone(), nil
}

func (s *InMemoryRecordStore) Set(_ context.Context, key string, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = record.Clone()
	return nil
}

func (s *InMemoryRecordStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

func (s *InMemoryRecordStore) DeleteExpired(_ context.Context, cutoff, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for key, r := range s.records {
		if store.Sweepable(r, cutoff, now) {
			delete(s.records, key)
			deleted++
		}
	}
	return deleted, nil
}

// Len returns the number of stored records.
func (s *InMemoryRecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
