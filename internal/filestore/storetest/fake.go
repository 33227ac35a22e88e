// Package storetest provides an in-memory filestore.Store for tests.
package storetest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/seqops/seqbrowse/internal/errs"
	"github.com/seqops/seqbrowse/internal/filestore"
)

// Entry is one seeded object.
type Entry struct {
	Key          string
	Body         []byte
	Size         int64 // filestore.SizeUnknown when the "store" reports none; 0 means len(Body)
	LastModified time.Time
	StorageClass string
}

// Fake is an in-memory filestore.Store. Listing returns entries in seed
// order (the "provider order"), which lets tests assert cap semantics.
type Fake struct {
	Entries []Entry

	// Err, when set, is returned by every store operation.
	Err error

	// ListCalls counts ListObjects invocations (single-flight assertions).
	ListCalls atomic.Int64

	// ListDelay, when set, makes ListObjects block that long before returning.
	ListDelay time.Duration
}

var _ filestore.Store = (*Fake)(nil)

func (f *Fake) Ping(ctx context.Context) error { return f.Err }
func (f *Fake) Close() error                   { return nil }

func (f *Fake) ListProjects(ctx context.Context, bucket, basePrefix string) ([]string, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	seen := map[string]bool{}
	var projects []string
	for _, e := range f.Entries {
		if !strings.HasPrefix(e.Key, basePrefix) {
			continue
		}
		rest := strings.TrimPrefix(e.Key, basePrefix)
		name, _, ok := strings.Cut(rest, "/")
		if !ok || name == "" || seen[name] {
			continue
		}
		seen[name] = true
		projects = append(projects, name)
	}
	sort.Strings(projects)
	return projects, nil
}

func (f *Fake) ListObjects(ctx context.Context, bucket string, opts filestore.ListOptions) ([]filestore.ObjectInfo, error) {
	f.ListCalls.Add(1)
	if f.ListDelay > 0 {
		select {
		case <-time.After(f.ListDelay):
		case <-ctx.Done():
			return nil, errs.Wrap(errs.ErrKindTimeout, "listing cancelled", ctx.Err())
		}
	}
	if f.Err != nil {
		return nil, f.Err
	}

	var out []filestore.ObjectInfo
	for _, e := range f.Entries {
		if !strings.HasPrefix(e.Key, opts.Prefix) {
			continue
		}
		out = append(out, filestore.ObjectInfo{
			Key:          e.Key,
			Size:         e.size(),
			LastModified: e.LastModified,
			StorageClass: e.StorageClass,
		})
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
	}
	return out, nil
}

func (f *Fake) GetObject(ctx context.Context, bucket, key string) (filestore.Object, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	for _, e := range f.Entries {
		if e.Key == key {
			return &object{
				ReadCloser: io.NopCloser(bytes.NewReader(e.Body)),
				info: &filestore.ObjectInfo{
					Key:          e.Key,
					Size:         e.size(),
					LastModified: e.LastModified,
				},
			}, nil
		}
	}
	return nil, errs.WrapCode(errs.ErrKindNotFound, "NoSuchKey", "object missing", nil)
}

func (f *Fake) DownloadFile(ctx context.Context, bucket, key, localPath string) error {
	obj, err := f.GetObject(ctx, bucket, key)
	if err != nil {
		return err
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(localPath, data, 0o644)
}

func (f *Fake) PresignGetURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}
	return fmt.Sprintf("https://%s.example.test/%s?X-Amz-Expires=%d&X-Amz-Signature=deadbeef",
		bucket, key, int(ttl.Seconds())), nil
}

func (e Entry) size() int64 {
	if e.Size != 0 {
		return e.Size
	}
	return int64(len(e.Body))
}

type object struct {
	io.ReadCloser
	info *filestore.ObjectInfo
}

func (o *object) Info() *filestore.ObjectInfo { return o.info }
