// Package file keeps the whole keyspace in one JSON document on local disk.
package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/fekuna/omnipos-inventory-service/internal/kv/snapshot"
)

type blob struct {
	path string
}

// Open returns a snapshot-backed store persisted at path. The parent directory
// is created on first write.
func Open(path string) *snapshot.Store {
	return snapshot.New(&blob{path: path})
}

func (b *blob) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// Save writes to a sibling temp file and renames it over the target so readers
// never observe a half-written document.
func (b *blob) Save(_ context.Context, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return err
	}
	temp := b.path + ".tmp"
	if err := os.WriteFile(temp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(temp, b.path)
}

func (b *blob) Close() error { return nil }
