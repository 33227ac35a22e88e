// Package catalog builds in-memory snapshots of one prefix's object listing.
//
// A Catalog is re-created wholesale on every successful fetch and never
// mutated in place; consumers receive it as an immutable snapshot.
package catalog

import (
	"context"
	"sort"
	"time"

	"github.com/seqops/seqbrowse/internal/filestore"
	"github.com/seqops/seqbrowse/internal/logger"
)

// Record is one remote object in a Catalog. Immutable once constructed;
// produced only by the Fetcher.
type Record struct {
	// Key is the full object path, unique within one Catalog.
	Key string `json:"key"`

	// Size is the byte size, or filestore.SizeUnknown when the store did
	// not report one.
	Size int64 `json:"size"`

	// LastModified is the UTC write timestamp. Zero when unreported.
	LastModified time.Time `json:"last_modified"`

	// StorageClass is the provider storage tier. Informational.
	StorageClass string `json:"storage_class,omitempty"`
}

// Catalog is the ordered listing snapshot for one (bucket, prefix) pair.
//
// Sort order: descending LastModified, ties broken by ascending Key.
// Records without a timestamp sort after all dated records.
type Catalog struct {
	Bucket    string    `json:"bucket"`
	Prefix    string    `json:"prefix"`
	Records   []Record  `json:"records"`
	Cap       int       `json:"cap"`
	FetchedAt time.Time `json:"fetched_at"`
}

// MaybeTruncated reports whether the listing may have been cut off at the
// cap. Truncation is silent at fetch time; a count equal to the cap is the
// only observable signal.
func (c *Catalog) MaybeTruncated() bool {
	return c.Cap > 0 && len(c.Records) >= c.Cap
}

// Fetcher lists a remote prefix into a Catalog.
type Fetcher struct {
	store filestore.Store
	log   *logger.Logger
}

// NewFetcher returns a Fetcher backed by store.
func NewFetcher(store filestore.Store, log *logger.Logger) *Fetcher {
	if log == nil {
		log = logger.Nop()
	}
	return &Fetcher{store: store, log: log.Component("catalog")}
}

// Fetch lists bucket/prefix into a new Catalog, accumulating at most limit
// records (limit <= 0 means unbounded). The store stops requesting pages as
// soon as the cap is hit, so a truncated Catalog holds the first limit
// entries in provider order, not necessarily the newest by the display sort.
//
// On any store failure the error is returned and no Catalog is produced:
// the caller must never partially apply a failed fetch.
func (f *Fetcher) Fetch(ctx context.Context, bucket, prefix string, limit int) (*Catalog, error) {
	objects, err := f.store.ListObjects(ctx, bucket, filestore.ListOptions{
		Prefix:    prefix,
		Recursive: true,
		Limit:     limit,
	})
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(objects))
	for _, obj := range objects {
		if obj.IsDir {
			continue
		}
		records = append(records, Record{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
			StorageClass: obj.StorageClass,
		})
	}

	sortRecords(records)

	f.log.With().Str("prefix", prefix).Int("count", len(records)).Logger().
		Debug("catalog fetched")

	return &Catalog{
		Bucket:    bucket,
		Prefix:    prefix,
		Records:   records,
		Cap:       limit,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// sortRecords orders records descending by LastModified with ascending Key
// as the tiebreak. Zero timestamps sort last.
func sortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool {
		ti, tj := records[i].LastModified, records[j].LastModified
		switch {
		case ti.IsZero() != tj.IsZero():
			return tj.IsZero()
		case !ti.Equal(tj):
			return ti.After(tj)
		default:
			return records[i].Key < records[j].Key
		}
	})
}
