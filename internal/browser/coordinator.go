// Package browser orchestrates the browsing session: which project is
// selected, when listings refresh, and what derived state the UI layer sees.
//
// The Coordinator exclusively owns the Catalog and all refresh state. Every
// consumer observes snapshots through read accessors; nothing outside this
// package mutates shared state.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/seqops/seqbrowse/internal/catalog"
	"github.com/seqops/seqbrowse/internal/config"
	"github.com/seqops/seqbrowse/internal/errs"
	"github.com/seqops/seqbrowse/internal/filestore"
	"github.com/seqops/seqbrowse/internal/logger"
	"github.com/seqops/seqbrowse/internal/samples"
)

// State is the refresh lifecycle of one logical stream.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateErrored
)

// MinPollInterval is the floor for timer-driven refresh, enforced regardless
// of the configured value.
const MinPollInterval = 5 * time.Second

// Subfolders are the browsable areas under each project, mirroring the
// pipeline's output layout. The empty value is the project root.
var Subfolders = []string{"", "Fastq/", "FastQC/", "QC/", "Salmon_Quant/", "DESeq2/"}

// Coordinator serializes refreshes and owns all browsing state.
//
// Each stream (project list, object list) transitions Idle→Fetching only
// when not already Fetching: a refresh requested mid-flight is a no-op,
// never queued. Success swaps the catalog atomically; failure records the
// error and leaves the previous catalog untouched, so the operator keeps
// stale-but-valid data instead of a blank view.
type Coordinator struct {
	store   filestore.Store
	fetcher *catalog.Fetcher
	log     *logger.Logger

	bucket     string
	basePrefix string
	maxKeys    int

	mu            sync.Mutex
	projects      []string
	preferred     string
	projectsState State
	objectsState  State

	cat          *catalog.Catalog
	sampleView   []samples.SampleRecord
	samplesStale bool

	curProject   string
	curSubfolder string
	selectedKey  string

	lastErr error
	status  string

	pollStop chan struct{}
	pollWG   sync.WaitGroup
}

// NewCoordinator builds a Coordinator for the configured bucket and base
// prefix.
func NewCoordinator(store filestore.Store, cfg *config.Config, log *logger.Logger) *Coordinator {
	if log == nil {
		log = logger.Nop()
	}
	return &Coordinator{
		store:      store,
		fetcher:    catalog.NewFetcher(store, log),
		log:        log.Component("browser"),
		bucket:     cfg.Bucket,
		basePrefix: cfg.BasePrefix,
		maxKeys:    cfg.MaxKeys,
		status:     "Ready.",
	}
}

// --- refresh operations ---

// RefreshProjects fetches the project list. Returns false without doing
// anything when a project refresh is already in flight.
func (c *Coordinator) RefreshProjects(ctx context.Context) bool {
	c.mu.Lock()
	if c.projectsState == StateFetching {
		c.mu.Unlock()
		return false
	}
	c.projectsState = StateFetching
	c.mu.Unlock()

	projects, err := c.store.ListProjects(ctx, c.bucket, c.basePrefix)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.projectsState = StateErrored
		c.lastErr = err
		c.status = storeStatus("error loading projects", err)
		c.log.ErrorWith("project refresh failed", err)
		return true
	}

	c.projectsState = StateIdle
	c.lastErr = nil
	c.projects = projects
	c.retainPreferred()
	c.status = "Projects loaded."
	return true
}

// ListObjects fetches the object listing for project/subfolder. Returns
// false without doing anything when an object refresh is already in flight.
// On success the new catalog replaces the old one wholesale and any row
// selection is cleared.
func (c *Coordinator) ListObjects(ctx context.Context, project, subfolder string) bool {
	c.mu.Lock()
	if c.objectsState == StateFetching {
		c.mu.Unlock()
		return false
	}
	c.objectsState = StateFetching
	c.mu.Unlock()

	prefix := config.NormalizePrefix(c.basePrefix + project + "/" + subfolder)
	cat, err := c.fetcher.Fetch(ctx, c.bucket, prefix, c.maxKeys)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		// previous catalog stays visible; only the status marks it stale
		c.objectsState = StateErrored
		c.lastErr = err
		c.status = storeStatus("error listing objects", err)
		c.log.ErrorWith("object listing failed", err)
		return true
	}

	c.objectsState = StateIdle
	c.lastErr = nil
	c.cat = cat
	c.samplesStale = true
	c.curProject = project
	c.curSubfolder = subfolder
	c.selectedKey = ""
	c.status = fmt.Sprintf("%d objects found.", len(cat.Records))
	return true
}

// retainPreferred applies the preferred-project rule against the freshly
// fetched list: keep the current preference if it survived, otherwise take
// the first entry, or clear it when the list is empty.
func (c *Coordinator) retainPreferred() {
	for _, p := range c.projects {
		if p == c.preferred {
			return
		}
	}
	if len(c.projects) > 0 {
		c.preferred = c.projects[0]
		return
	}
	c.preferred = ""
}

// --- polling ---

// StartPolling begins timer-driven refresh of the current listing. Each
// attempt runs to completion before the next tick is armed, so ticks never
// overlap; intervals below MinPollInterval are raised to the floor.
func (c *Coordinator) StartPolling(ctx context.Context, interval time.Duration) {
	interval = clampInterval(interval)

	c.mu.Lock()
	if c.pollStop != nil {
		c.mu.Unlock()
		return // already polling
	}
	stop := make(chan struct{})
	c.pollStop = stop
	c.mu.Unlock()

	c.pollWG.Add(1)
	go func() {
		defer c.pollWG.Done()
		timer := time.NewTimer(interval)
		defer timer.Stop()
		for {
			select {
			case <-timer.C:
				c.pollTick(ctx)
				timer.Reset(interval)
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// clampInterval raises intervals below MinPollInterval to the floor.
func clampInterval(d time.Duration) time.Duration {
	if d < MinPollInterval {
		return MinPollInterval
	}
	return d
}

// pollTick refreshes the currently listed project, if any. The single-flight
// gate inside ListObjects makes a tick racing a manual refresh a no-op.
func (c *Coordinator) pollTick(ctx context.Context) {
	c.mu.Lock()
	project, subfolder := c.curProject, c.curSubfolder
	c.mu.Unlock()
	if project == "" {
		return
	}
	c.ListObjects(ctx, project, subfolder)
}

// StopPolling halts the poll timer and waits for an in-flight tick to finish.
func (c *Coordinator) StopPolling() {
	c.mu.Lock()
	stop := c.pollStop
	c.pollStop = nil
	c.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	c.pollWG.Wait()
}

// --- selection ---

// Select records key as the selected row. Selection paths race by design;
// the last write wins.
func (c *Coordinator) Select(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selectedKey = key
}

// SelectIndex selects the i-th row of the current catalog. It is the
// fallback picker for environments where grid click selection does not fire.
func (c *Coordinator) SelectIndex(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cat == nil || i < 0 || i >= len(c.cat.Records) {
		return errs.New(errs.ErrKindInvalidInput,
			fmt.Sprintf("row %d out of range", i))
	}
	c.selectedKey = c.cat.Records[i].Key
	c.status = fmt.Sprintf("Selected row %d.", i)
	return nil
}

// Selected returns the currently selected key, or "".
func (c *Coordinator) Selected() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedKey
}

// --- read accessors (snapshots) ---

// Projects returns the most recent project list.
func (c *Coordinator) Projects() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.projects))
	copy(out, c.projects)
	return out
}

// Preferred returns the preferred project, or "" when none is available.
func (c *Coordinator) Preferred() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.preferred
}

// Catalog returns the current listing snapshot, or nil before the first
// successful fetch. The returned catalog is never mutated.
func (c *Coordinator) Catalog() *catalog.Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cat
}

// Samples returns the derived sample view, recomputing it lazily after a
// catalog swap.
func (c *Coordinator) Samples() []samples.SampleRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.samplesStale {
		c.sampleView = samples.Aggregate(c.cat)
		c.samplesStale = false
	}
	out := make([]samples.SampleRecord, len(c.sampleView))
	copy(out, c.sampleView)
	return out
}

// Status returns the single operator-facing status message.
func (c *Coordinator) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// LastErr returns the most recent refresh error, or nil.
func (c *Coordinator) LastErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// setStatus lets the service layer record operation outcomes through the
// same single source of truth.
func (c *Coordinator) setStatus(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = msg
}

// storeStatus renders a store failure the way the operator expects: the
// provider code and message, verbatim.
func storeStatus(prefix string, err error) string {
	if code := errs.CodeOf(err); code != "" {
		return fmt.Sprintf("%s: %s: %v", prefix, code, err)
	}
	return fmt.Sprintf("%s: %v", prefix, err)
}
