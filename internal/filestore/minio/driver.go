// Package minio provides a MinIO implementation of filestore.Store.
//
// It talks to any S3-compatible endpoint (AWS S3 included). The SDK's
// transport handles connect/read timeouts and bounded retries with backoff;
// nothing above this package retries store calls.
//
// Usage:
//
//	cfg := filestore.DefaultConfig("s3.amazonaws.com", accessKey, secretKey)
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
package minio

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/seqops/seqbrowse/internal/errs"
	"github.com/seqops/seqbrowse/internal/filestore"
)

// Driver is a MinIO implementation of filestore.Store.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	client *miniogo.Client
}

// New connects to the store using the provided Config and returns a Driver.
func New(ctx context.Context, cfg *filestore.Config) (*Driver, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to create minio client", err)
	}

	return &Driver{client: client}, nil
}

// --- filestore.Store implementation ---

// Ping verifies the store is reachable by listing buckets.
func (d *Driver) Ping(ctx context.Context) error {
	_, err := d.client.ListBuckets(ctx)
	if err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// Close is a no-op for MinIO; the SDK client holds no persistent connections.
func (d *Driver) Close() error {
	return nil
}

// ListProjects returns the project names directly under basePrefix, sorted
// ascending. Projects are the store's common prefixes one level below
// basePrefix (e.g. "vendor-data/proj1/" → "proj1").
func (d *Driver) ListProjects(ctx context.Context, bucket, basePrefix string) ([]string, error) {
	listOpts := miniogo.ListObjectsOptions{
		Prefix:    basePrefix,
		Recursive: false,
	}

	var projects []string
	for obj := range d.client.ListObjects(ctx, bucket, listOpts) {
		if obj.Err != nil {
			return nil, mapError(obj.Err, "failed to list projects")
		}
		if !strings.HasSuffix(obj.Key, "/") {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(obj.Key, basePrefix), "/")
		if name == "" {
			continue
		}
		projects = append(projects, name)
	}

	sort.Strings(projects)
	return projects, nil
}

// ListObjects returns objects in bucket that match opts, in provider order.
// The SDK paginates internally; hitting opts.Limit stops iteration so no
// further pages are requested.
func (d *Driver) ListObjects(ctx context.Context, bucket string, opts filestore.ListOptions) ([]filestore.ObjectInfo, error) {
	// Cancelling the listing context tears down the SDK's page loop once
	// the cap is reached.
	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	listOpts := miniogo.ListObjectsOptions{
		Prefix:    opts.Prefix,
		Recursive: opts.Recursive,
	}

	var results []filestore.ObjectInfo
	for obj := range d.client.ListObjects(listCtx, bucket, listOpts) {
		if obj.Err != nil {
			return nil, mapError(obj.Err, "failed to list objects")
		}

		results = append(results, toObjectInfo(obj))

		if opts.Limit > 0 && len(results) >= opts.Limit {
			break
		}
	}

	return results, nil
}

// GetObject opens a streaming handle to the object at key inside bucket.
// The caller MUST call Object.Close() after reading.
func (d *Driver) GetObject(ctx context.Context, bucket, key string) (filestore.Object, error) {
	obj, err := d.client.GetObject(ctx, bucket, key, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, mapError(err, "failed to get object")
	}

	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, mapError(err, "failed to stat object after get")
	}

	return &object{
		ReadCloser: obj,
		info: &filestore.ObjectInfo{
			Key:          key,
			Size:         stat.Size,
			ETag:         stat.ETag,
			LastModified: stat.LastModified,
			StorageClass: stat.StorageClass,
		},
	}, nil
}

// DownloadFile writes the object at key to localPath, creating parent
// directories as needed.
func (d *Driver) DownloadFile(ctx context.Context, bucket, key, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return errs.Wrap(errs.ErrKindStoreFailed, "failed to create download directory", err)
	}
	if err := d.client.FGetObject(ctx, bucket, key, localPath, miniogo.GetObjectOptions{}); err != nil {
		return mapError(err, "failed to download object")
	}
	return nil
}

// PresignGetURL returns a time-limited public download URL for the object.
func (d *Driver) PresignGetURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	u, err := d.client.PresignedGetObject(ctx, bucket, key, ttl, nil)
	if err != nil {
		return "", mapError(err, "failed to generate presigned URL")
	}
	return u.String(), nil
}

// --- internal types ---

func toObjectInfo(obj miniogo.ObjectInfo) filestore.ObjectInfo {
	size := obj.Size
	if size == 0 && strings.HasSuffix(obj.Key, "/") {
		size = filestore.SizeUnknown
	}
	return filestore.ObjectInfo{
		Key:          obj.Key,
		Size:         size,
		ETag:         obj.ETag,
		LastModified: obj.LastModified.UTC(),
		StorageClass: obj.StorageClass,
		IsDir:        strings.HasSuffix(obj.Key, "/"),
	}
}

// object wraps a MinIO GetObject response and exposes filestore.Object.
type object struct {
	io.ReadCloser
	info *filestore.ObjectInfo
}

func (o *object) Info() *filestore.ObjectInfo {
	return o.info
}
