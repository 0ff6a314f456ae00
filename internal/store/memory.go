package store

import (
	"context"
	"sync"
)

// MemoryStore implements Repository with an in-process map. It backs
// tests and the degraded mode entered when the configured store cannot
// be opened.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]string
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *MemoryStore {
	return &MemoryStore{records: make(map[string]string)}
}

// Get retrieves a record by key.
func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.records[key]
	return value, ok, nil
}

// Set stores a record under key.
func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = value
	return nil
}

// SetAll stores several records under one lock acquisition.
func (s *MemoryStore) SetAll(ctx context.Context, records map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, value := range records {
		s.records[key] = value
	}
	return nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close drops all records.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	return nil
}
