package filestore

import (
	"io"
	"time"
)

// SizeUnknown marks an object whose byte size was not reported by the store.
const SizeUnknown int64 = -1

// ObjectInfo describes a single object stored in a bucket.
type ObjectInfo struct {
	// Key is the full object path within the bucket
	// (e.g. "vendor-data/proj1/FastQC/sample_fastqc.html").
	Key string

	// Size is the byte size of the object. SizeUnknown (-1) when the store
	// did not report one, never defaulted to zero.
	Size int64

	// ETag is the object's entity tag / hash, as returned by the backend.
	ETag string

	// LastModified is when the object was last written, in UTC.
	// Zero when the store did not report one, never defaulted to "now".
	LastModified time.Time

	// StorageClass is the provider storage tier (e.g. "STANDARD", "GLACIER").
	// Informational only.
	StorageClass string

	// IsDir is true when the entry represents a virtual directory (common
	// prefix), not an actual stored object.
	IsDir bool
}

// Object is a streaming handle to an object's content.
// The caller MUST call Close() after reading to avoid resource leaks.
type Object interface {
	io.ReadCloser

	// Info returns the metadata for this object.
	Info() *ObjectInfo
}

// ListOptions controls how ListObjects filters and bounds results.
type ListOptions struct {
	// Prefix restricts results to objects whose key starts with this string.
	// Use "" to list everything in the bucket.
	Prefix string

	// Recursive, when true, lists all objects under the prefix without
	// grouping by virtual directories. When false (default), common prefixes
	// (virtual "folders") are returned as IsDir entries.
	Recursive bool

	// Limit caps the number of results accumulated. 0 means unbounded.
	// When the cap is hit, listing stops early: the entries returned are
	// the first Limit in provider order, not in any display order.
	Limit int
}
