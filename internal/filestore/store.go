// Package filestore defines the interface export sinks implement.
//
// A Store is scoped to a single bucket (MinIO) or directory (local). Callers
// depend only on this package, never on a specific provider package.
//
// Usage:
//
//	store, err := minio.New(ctx, cfg, log)
//	if err != nil { ... }
//	defer store.Close()
//
//	info, err := store.Put(ctx, "results.csv", r, size, "text/csv")
package filestore

import (
	"context"
	"io"
	"time"
)

// Store is the interface all file storage providers implement.
type Store interface {
	// Ping verifies the backend is reachable and the bucket or directory exists.
	Ping(ctx context.Context) error

	// Close releases any held resources.
	Close() error

	// Put writes size bytes from r under key, replacing any existing object.
	// A negative size streams until EOF.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*ObjectInfo, error)

	// Get opens a streaming handle to the object at key.
	// The caller MUST call Object.Close() after reading.
	Get(ctx context.Context, key string) (Object, error)

	// Stat returns metadata for the object at key without reading it.
	Stat(ctx context.Context, key string) (*ObjectInfo, error)

	// List returns the objects that match opts, ordered by key.
	List(ctx context.Context, opts ListOptions) ([]ObjectInfo, error)

	// URL returns a location from which the object at key can be fetched.
	// Remote backends presign it for ttl; local ones ignore ttl.
	URL(ctx context.Context, key string, ttl time.Duration) (string, error)
}
