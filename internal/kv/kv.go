// Package kv defines the key-value contract the inventory collections are
// persisted through. Each key holds one serialized blob.
package kv

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound    = errors.New("kv: key not found")
	ErrLockTimeout = errors.New("kv: lock not acquired")
	ErrClosed      = errors.New("kv: store closed")
)

type Store interface {
	// Get returns ErrNotFound when key has never been written or was deleted.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// SetMulti writes every entry or none of them.
	SetMulti(ctx context.Context, entries map[string][]byte) error
	// Delete removes keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// Locker is implemented by backends that can coordinate writers across
// processes. The returned unlock func must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, name string, ttl time.Duration) (unlock func(), err error)
}

// Clone returns a copy of b so callers never share backing arrays with a store.
func Clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
