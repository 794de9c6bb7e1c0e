package memory

import (
	"context"
	"sync"

	"shopledger/internal/store"
)

// Store keeps values in process memory. It is the backend used by tests
// and by STORE_BACKEND=memory.
type Store struct {
	mu     sync.RWMutex
	values map[string][]byte
	closed bool
}

func New() *Store {
	return &Store{values: make(map[string][]byte)}
}

// NewWith starts from a copy of the given values, e.g. a legacy browser
// export.
func NewWith(values map[string][]byte) *Store {
	s := New()
	for key, value := range values {
		s.values[key] = cloneBytes(value)
	}
	return s
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, false, store.ErrClosed
	}
	value, exists := s.values[key]
	if !exists {
		return nil, false, nil
	}
	return cloneBytes(value), true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrClosed
	}
	s.values[key] = cloneBytes(value)
	return nil
}

func (s *Store) SetMany(_ context.Context, values map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrClosed
	}
	for key, value := range values {
		s.values[key] = cloneBytes(value)
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func cloneBytes(src []byte) []byte {
	if src == nil {
		return nil
	}
	dst := make([]byte, len(src))
	copy(dst, src)
	return dst
}
