// Package reclaimer implements the periodic orphan sweep: blobs whose
// refcount has reached zero are found via the metadata store and
// removed from the blob store, in bounded batches, oldest-first.
package reclaimer

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shardstore/dedupfs/internal/logger"
	"github.com/shardstore/dedupfs/pkg/blob"
	"github.com/shardstore/dedupfs/pkg/metadata"
	"github.com/shardstore/dedupfs/pkg/tenant"
)

// Collector performs periodic orphan-blob reclamation.
//
// Thread Safety: safe for concurrent use; RunNow may be called while the
// background worker is also running (e.g. an admin-triggered sweep
// between scheduled ones) since each call to collect() only reads and
// deletes, sharing no mutable state across calls beyond the stores
// themselves.
type Collector struct {
	metadataStore metadata.Store
	blobStore     blob.Store
	tenantID      tenant.ID
	config        Config
	stopCh        chan struct{}
	doneCh        chan struct{}
}

// Config configures the reclaimer.
type Config struct {
	// Enabled controls whether the background sweep runs at all.
	Enabled bool

	// Interval is how often to run a sweep.
	Interval time.Duration

	// BatchSize bounds how many orphan hashes are fetched and deleted per
	// getOrphanBlobs/deleteMany round.
	BatchSize int

	// DryRun logs what would be deleted without deleting it.
	DryRun bool
}

// NewCollector creates a reclaimer that reaches the metadata store through
// tenantID's handle. Blob records are shared across tenants, so
// GetOrphanBlobs through that handle returns every refcount-zero record in
// the store, and one Collector reclaims orphans of all tenants.
func NewCollector(metadataStore metadata.Store, blobStore blob.Store, tenantID tenant.ID, config Config) *Collector {
	if config.Interval == 0 {
		config.Interval = 24 * time.Hour
	}
	if config.BatchSize == 0 {
		config.BatchSize = 1000
	}

	return &Collector{
		metadataStore: metadataStore,
		blobStore:     blobStore,
		tenantID:      tenantID,
		config:        config,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// Start begins background reclamation on its own goroutine. Safe to call
// only once per Collector.
func (c *Collector) Start() {
	if !c.config.Enabled {
		logger.Info("orphan reclaimer disabled")
		return
	}

	logger.Info("starting orphan reclaimer: interval=%s batch_size=%d dry_run=%v",
		c.config.Interval, c.config.BatchSize, c.config.DryRun)

	go c.worker()
}

// Stop signals the background worker to stop and waits for it to finish
// its current pass, or for ctx to expire.
func (c *Collector) Stop(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	logger.Info("stopping orphan reclaimer...")
	close(c.stopCh)

	select {
	case <-c.doneCh:
		logger.Info("orphan reclaimer stopped")
		return nil
	case <-ctx.Done():
		logger.Warn("orphan reclaimer shutdown timed out")
		return ctx.Err()
	}
}

// RunNow triggers an immediate sweep, blocking until it completes or ctx
// is cancelled. Useful for admin-triggered cleanup and tests.
func (c *Collector) RunNow(ctx context.Context) (*Stats, error) {
	logger.Info("running orphan reclamation (manual trigger)...")
	return c.collect(ctx)
}

func (c *Collector) worker() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	logger.Info("orphan reclaimer worker started")

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			stats, err := c.collect(ctx)
			cancel()

			if err != nil {
				logger.Error("orphan reclamation failed: %v", err)
			} else {
				logger.Info("orphan reclamation completed: %s", stats.Summary())
			}

		case <-c.stopCh:
			logger.Info("orphan reclaimer worker stopping...")
			return
		}
	}
}

// collect fetches a bounded, oldest-first batch of refcount-zero hashes,
// deletes them from the blob store, then deletes their now-dangling
// BlobRecords so the next round's GetOrphanBlobs no longer returns them,
// and repeats while a batch comes back full, stopping once a round
// returns fewer than a full batch. Without the BlobRecord deletion step
// GetOrphanBlobs would keep returning the same hashes forever: the
// record, not the blob bytes, is what GetOrphanBlobs scans.
func (c *Collector) collect(ctx context.Context) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	ts := c.metadataStore.ForTenant(c.tenantID)

	for {
		if err := ctx.Err(); err != nil {
			stats.EndTime = time.Now()
			return stats, err
		}

		hashes, err := ts.GetOrphanBlobs(ctx, c.config.BatchSize)
		if err != nil {
			stats.EndTime = time.Now()
			return stats, fmt.Errorf("list orphan blobs: %w", err)
		}
		if len(hashes) == 0 {
			break
		}

		stats.ScannedCount += uint64(len(hashes))

		if c.config.DryRun {
			logger.Info("orphan reclaimer: dry run, would delete %s blobs",
				humanize.Comma(int64(len(hashes))))
			break
		}

		failed, err := c.blobStore.DeleteMany(ctx, hashes)
		if err != nil {
			logger.Warn("orphan reclaimer: batch delete reported failures: %v", err)
		}

		failedSet := make(map[string]struct{}, len(failed))
		for _, h := range failed {
			failedSet[h.String()] = struct{}{}
		}
		for _, h := range hashes {
			if _, stillFailed := failedSet[h.String()]; stillFailed {
				stats.FailedCount++
				continue
			}
			if _, err := ts.DeleteBlobRecord(ctx, h); err != nil {
				logger.Warn("orphan reclaimer: failed to remove blob record, will retry next pass: hash=%s err=%v", h, err)
				stats.FailedCount++
				continue
			}
			stats.DeletedCount++
		}

		if len(hashes) < c.config.BatchSize {
			break
		}
	}

	stats.EndTime = time.Now()
	return stats, nil
}

// Stats reports the outcome of one reclamation pass.
type Stats struct {
	StartTime    time.Time
	EndTime      time.Time
	ScannedCount uint64 // orphan hashes returned by getOrphanBlobs across all rounds
	DeletedCount uint64 // blobs successfully deleted
	FailedCount  uint64 // blobs that remain orphans, eligible for retry next pass
}

// Duration returns the pass's wall-clock duration.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Summary returns a human-readable one-line recap, using go-humanize to
// comma-group the scanned, deleted and failed counts. It reports no byte
// totals; the reclaimer doesn't track bytes per hash.
func (s *Stats) Summary() string {
	return fmt.Sprintf("scanned=%s deleted=%s failed=%s duration=%s",
		humanize.Comma(int64(s.ScannedCount)),
		humanize.Comma(int64(s.DeletedCount)),
		humanize.Comma(int64(s.FailedCount)),
		s.Duration())
}
