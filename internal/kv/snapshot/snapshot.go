// Package snapshot implements kv.Store on top of a single blob that holds the
// whole keyspace. Every write replaces the blob, so multi-key writes are atomic
// as long as the underlying Blob.Save is.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/kv"
)

var _ kv.Store = (*Store)(nil)

const formatVersion = 1

// Blob loads and saves the serialized snapshot. Load returns (nil, nil) when
// nothing has been saved yet.
type Blob interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Close() error
}

type document struct {
	Version int               `json:"version"`
	SavedAt time.Time         `json:"saved_at"`
	Entries map[string]string `json:"entries"`
}

type Store struct {
	mu     sync.Mutex
	blob   Blob
	closed bool
}

func New(blob Blob) *Store {
	return &Store{blob: blob}
}

func (s *Store) load(ctx context.Context) (map[string]string, error) {
	data, err := s.blob.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return map[string]string{}, nil
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if doc.Version > formatVersion {
		return nil, fmt.Errorf("snapshot version %d is newer than supported %d", doc.Version, formatVersion)
	}
	if doc.Entries == nil {
		doc.Entries = map[string]string{}
	}
	return doc.Entries, nil
}

func (s *Store) save(ctx context.Context, entries map[string]string) error {
	data, err := json.MarshalIndent(document{
		Version: formatVersion,
		SavedAt: time.Now().UTC(),
		Entries: entries,
	}, "", "  ")
	if err != nil {
		return err
	}
	return s.blob.Save(ctx, data)
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, kv.ErrClosed
	}
	entries, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	v, ok := entries[key]
	if !ok {
		return nil, kv.ErrNotFound
	}
	return []byte(v), nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.SetMulti(ctx, map[string][]byte{key: value})
}

func (s *Store) SetMulti(ctx context.Context, values map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kv.ErrClosed
	}
	entries, err := s.load(ctx)
	if err != nil {
		return err
	}
	for k, v := range values {
		entries[k] = string(v)
	}
	return s.save(ctx, entries)
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kv.ErrClosed
	}
	entries, err := s.load(ctx)
	if err != nil {
		return err
	}
	changed := false
	for _, k := range keys {
		if _, ok := entries[k]; ok {
			delete(entries, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.save(ctx, entries)
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.blob.Close()
}
