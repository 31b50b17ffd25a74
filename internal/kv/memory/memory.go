// Package memory is an in-process kv.Store used by tests and ephemeral runs.
package memory

import (
	"context"
	"sync"

	"github.com/fekuna/omnipos-inventory-service/internal/kv"
)

var _ kv.Store = (*Store)(nil)

type Store struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, kv.ErrClosed
	}
	v, ok := s.data[key]
	if !ok {
		return nil, kv.ErrNotFound
	}
	return kv.Clone(v), nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.SetMulti(ctx, map[string][]byte{key: value})
}

func (s *Store) SetMulti(_ context.Context, entries map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kv.ErrClosed
	}
	for k, v := range entries {
		s.data[k] = kv.Clone(v)
	}
	return nil
}

func (s *Store) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kv.ErrClosed
	}
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

// Keys lists the stored keys in no particular order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
