package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/healthmate/server/internal/config"
)

// ErrNotFound is returned by Open when no object exists under the key.
var ErrNotFound = errors.New("object not found")

// ContentStore is the content area that holds uploaded record bytes, addressed by key.
type ContentStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// New builds the store selected by STORAGE_DRIVER.
func New(ctx context.Context, cfg config.StorageConfig) (ContentStore, error) {
	switch cfg.Driver {
	case "local", "":
		return NewLocalStore(cfg.LocalDir)
	case "minio":
		store, err := NewMinIOStore(cfg.MinIO)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.Driver)
	}
}
