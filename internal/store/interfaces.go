package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no object exists under the key.
var ErrNotFound = errors.New("store: object not found")

// ObjectReader provides read access to stored artifacts.
type ObjectReader interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// ObjectWriter stores artifacts. Put replaces any existing object atomically;
// readers never observe a partially written object.
type ObjectWriter interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// Linker produces time-limited download links.
type Linker interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// ObjectStore combines all artifact store operations.
type ObjectStore interface {
	ObjectReader
	ObjectWriter
	Linker
}
