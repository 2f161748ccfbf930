package reclaimer

import (
	"context"
	"fmt"
	"testing"

	blobfs "github.com/shardstore/dedupfs/pkg/blob/fs"
	"github.com/shardstore/dedupfs/pkg/fsx"
	metadatamemory "github.com/shardstore/dedupfs/pkg/metadata/memory"
	"github.com/shardstore/dedupfs/pkg/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// orphan writes a blob and immediately drops its only reference, leaving
// a refcount-0 BlobRecord and a live object in the blob store, the state
// DeleteFile/WriteFile leave behind when their own blob delete fails after
// the refcount reached zero.
func orphan(t *testing.T, ctx context.Context, metadataStore *metadatamemory.Store, blobStore *blobfs.Store, tenantID tenant.ID, content string) fsx.ContentHash {
	hash := fsx.HashOf([]byte(content))
	require.NoError(t, blobStore.Write(ctx, hash, []byte(content)))

	ts := metadataStore.ForTenant(tenantID)
	require.NoError(t, ts.IncrementBlobRefCount(ctx, hash, uint64(len(content))))
	_, err := ts.DecrementBlobRefCount(ctx, hash)
	require.NoError(t, err)
	return hash
}

func TestRunNowReclaimsOrphanBlob(t *testing.T) {
	ctx := context.Background()
	metadataStore := metadatamemory.New()
	blobStore, err := blobfs.New(t.TempDir())
	require.NoError(t, err)
	tenantID := tenant.New()

	hash := orphan(t, ctx, metadataStore, blobStore, tenantID, "orphaned content")

	exists, err := blobStore.Exists(ctx, hash)
	require.NoError(t, err)
	require.True(t, exists, "precondition: blob bytes exist before reclamation")

	collector := NewCollector(metadataStore, blobStore, tenantID, Config{BatchSize: 10})
	stats, err := collector.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.DeletedCount)
	assert.Equal(t, uint64(0), stats.FailedCount)

	exists, err = blobStore.Exists(ctx, hash)
	require.NoError(t, err)
	assert.False(t, exists, "blob bytes must be gone after reclamation")

	ts := metadataStore.ForTenant(tenantID)
	orphans, err := ts.GetOrphanBlobs(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, orphans, "the BlobRecord must be removed, not just the bytes")
}

// TestRunNowIsSelfTerminating verifies the fix for the bug where
// GetOrphanBlobs kept returning the same batch forever because nothing
// ever removed the BlobRecord: with more orphans than BatchSize, RunNow
// must still return (not loop until ctx expires) and must reclaim every
// orphan across multiple rounds.
func TestRunNowIsSelfTerminating(t *testing.T) {
	ctx := context.Background()
	metadataStore := metadatamemory.New()
	blobStore, err := blobfs.New(t.TempDir())
	require.NoError(t, err)
	tenantID := tenant.New()

	const batchSize = 2
	const orphanCount = 5
	for i := 0; i < orphanCount; i++ {
		orphan(t, ctx, metadataStore, blobStore, tenantID, fmt.Sprintf("content-%d", i))
	}

	collector := NewCollector(metadataStore, blobStore, tenantID, Config{BatchSize: batchSize})
	stats, err := collector.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(orphanCount), stats.ScannedCount)
	assert.Equal(t, uint64(orphanCount), stats.DeletedCount)

	ts := metadataStore.ForTenant(tenantID)
	orphans, err := ts.GetOrphanBlobs(ctx, orphanCount)
	require.NoError(t, err)
	assert.Empty(t, orphans)

	// A second pass over an already-clean store must be a cheap no-op,
	// not a re-delete of stale records.
	secondStats, err := collector.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), secondStats.ScannedCount)
	assert.Equal(t, uint64(0), secondStats.DeletedCount)
}

func TestRunNowLeavesReferencedBlobsAlone(t *testing.T) {
	ctx := context.Background()
	metadataStore := metadatamemory.New()
	blobStore, err := blobfs.New(t.TempDir())
	require.NoError(t, err)
	tenantID := tenant.New()

	liveContent := "still referenced"
	liveHash := fsx.HashOf([]byte(liveContent))
	require.NoError(t, blobStore.Write(ctx, liveHash, []byte(liveContent)))
	ts := metadataStore.ForTenant(tenantID)
	require.NoError(t, ts.IncrementBlobRefCount(ctx, liveHash, uint64(len(liveContent))))

	collector := NewCollector(metadataStore, blobStore, tenantID, Config{BatchSize: 10})
	stats, err := collector.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), stats.ScannedCount)
	assert.Equal(t, uint64(0), stats.DeletedCount)

	exists, err := blobStore.Exists(ctx, liveHash)
	require.NoError(t, err)
	assert.True(t, exists, "a referenced blob must never be reclaimed")
}

func TestRunNowDryRunDeletesNothing(t *testing.T) {
	ctx := context.Background()
	metadataStore := metadatamemory.New()
	blobStore, err := blobfs.New(t.TempDir())
	require.NoError(t, err)
	tenantID := tenant.New()

	hash := orphan(t, ctx, metadataStore, blobStore, tenantID, "dry run content")

	collector := NewCollector(metadataStore, blobStore, tenantID, Config{BatchSize: 10, DryRun: true})
	stats, err := collector.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.ScannedCount)
	assert.Equal(t, uint64(0), stats.DeletedCount)

	exists, err := blobStore.Exists(ctx, hash)
	require.NoError(t, err)
	assert.True(t, exists, "dry run must not delete blob bytes")

	ts := metadataStore.ForTenant(tenantID)
	orphans, err := ts.GetOrphanBlobs(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, orphans, 1, "dry run must not delete the BlobRecord either")
}
