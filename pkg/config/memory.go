package config

import (
	"context"
	"sync"
)

// MemoryStore keeps the blob in memory.
type MemoryStore struct {
	WriteErr error

	blob   []byte
	writes int
	lock   sync.Mutex
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// ReadBlob implements Store.
func (s *MemoryStore) ReadBlob(context.Context) ([]byte, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.blob == nil {
		return nil, ErrNotFound
	}
	return append([]byte(nil), s.blob...), nil
}

// WriteBlob implements Store.
func (s *MemoryStore) WriteBlob(_ context.Context, blob []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.WriteErr != nil {
		return s.WriteErr
	}
	s.blob = append([]byte(nil), blob...)
	s.writes++
	return nil
}

// Writes returns how many blobs were written.
func (s *MemoryStore) Writes() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.writes
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}
