package store

import (
	"context"
	"sync"
)

// MemoryStore keeps the encoded document in memory. Loads return fresh copies.
type MemoryStore struct {
	mu   sync.RWMutex
	data []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(context.Context) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data == nil {
		return nil, ErrNotFound
	}
	return Decode(s.data)
}

func (s *MemoryStore) Save(_ context.Context, doc *Document) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }
