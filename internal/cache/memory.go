package cache

import (
	"context"
	"sync"
)

type bucket struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// MemoryStore keeps entries in process memory without expiry or size bound.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewMemoryStore constructs an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]*bucket)}
}

func (s *MemoryStore) bucket(namespace string) *bucket {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[namespace]
	if !ok {
		b = &bucket{entries: make(map[string][]byte)}
		s.buckets[namespace] = b
	}
	return b
}

// Get returns a copy of the stored value.
func (s *MemoryStore) Get(_ context.Context, namespace, key string) ([]byte, bool, error) {
	b := s.bucket(namespace)
	b.mu.RLock()
	defer b.mu.RUnlock()

	value, ok := b.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

// Set stores a copy of value under key.
func (s *MemoryStore) Set(_ context.Context, namespace, key string, value []byte) error {
	b := s.bucket(namespace)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key; removing an absent key is a no-op.
func (s *MemoryStore) Delete(_ context.Context, namespace, key string) error {
	b := s.bucket(namespace)
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.entries, key)
	return nil
}

// Clear drops every entry of the namespace.
func (s *MemoryStore) Clear(_ context.Context, namespace string) error {
	b := s.bucket(namespace)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = make(map[string][]byte)
	return nil
}

// Len reports the number of entries held for namespace.
func (s *MemoryStore) Len(namespace string) int {
	b := s.bucket(namespace)
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}
