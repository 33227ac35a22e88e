// Package filestore defines the unified interface for the remote object store.
//
// The MinIO driver is the only provider today, but callers depend only on
// this package, never on a specific provider package, so an S3-native or
// GCS driver could be dropped in without touching the browsing layers.
//
// Usage:
//
//	cfg := filestore.DefaultConfig("s3.amazonaws.com", accessKey, secretKey)
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	objects, err := store.ListObjects(ctx, bucket, filestore.ListOptions{Prefix: "vendor-data/"})
package filestore

import (
	"context"
	"time"
)

// Store is the single interface the object-store provider must implement.
// Read-only by design: the browser never writes to the remote store.
//
// Retry and timeout policy lives inside the provider's transport; callers
// never retry on top of it.
type Store interface {
	// Ping verifies the storage backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any held resources (connections, goroutines, etc.).
	Close() error

	// ListProjects returns the project names directly under basePrefix,
	// derived from the store's common-prefix (virtual directory) listing.
	// Results are sorted ascending.
	ListProjects(ctx context.Context, bucket, basePrefix string) ([]string, error)

	// ListObjects returns the objects in bucket that match opts, in provider
	// order. Pagination is driven internally; when opts.Limit > 0 listing
	// stops as soon as Limit entries have been accumulated and no further
	// pages are requested.
	ListObjects(ctx context.Context, bucket string, opts ListOptions) ([]ObjectInfo, error)

	// GetObject opens a streaming handle to the object at key inside bucket.
	// The caller MUST call Object.Close() after reading.
	GetObject(ctx context.Context, bucket, key string) (Object, error)

	// DownloadFile writes the object at key to localPath, creating parent
	// directories as needed.
	DownloadFile(ctx context.Context, bucket, key, localPath string) error

	// PresignGetURL returns a time-limited URL that allows anyone to download
	// the object at key inside bucket without credentials.
	PresignGetURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}
