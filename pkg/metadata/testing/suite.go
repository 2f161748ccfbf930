// Package testing provides a shared conformance suite for metadata.Store
// implementations: a StoreSuite struct holding a store factory, with one
// sub-test per group of related behaviors that every backing must
// satisfy identically.
package testing

import (
	"context"
	"testing"
	"time"

	"github.com/shardstore/dedupfs/pkg/fsx"
	"github.com/shardstore/dedupfs/pkg/metadata"
	"github.com/shardstore/dedupfs/pkg/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreSuite runs the metadata.Store conformance suite against a
// backing produced by NewStore.
type StoreSuite struct {
	// NewStore returns a fresh, empty metadata.Store. Called once per
	// sub-test.
	NewStore func(t *testing.T) metadata.Store
}

// Run executes every conformance test group.
func (s *StoreSuite) Run(t *testing.T) {
	t.Run("NodeLifecycle", s.testNodeLifecycle)
	t.Run("CreateConflict", s.testCreateConflict)
	t.Run("UpdateMissingIsNoop", s.testUpdateMissingIsNoop)
	t.Run("DeleteMissingIsNoop", s.testDeleteMissingIsNoop)
	t.Run("ListChildrenOrderingAndDepth", s.testListChildrenOrderingAndDepth)
	t.Run("RefCountLifecycle", s.testRefCountLifecycle)
	t.Run("DecrementBelowZeroIsInvariant", s.testDecrementBelowZeroIsInvariant)
	t.Run("OrphanOrderingAndLimit", s.testOrphanOrderingAndLimit)
	t.Run("DeleteBlobRecordLifecycle", s.testDeleteBlobRecordLifecycle)
	t.Run("TenantIsolation", s.testTenantIsolation)
}

func mustPath(t *testing.T, s string) fsx.Path {
	p, err := fsx.ParsePath(s)
	require.NoError(t, err)
	return p
}

func mustHash(t *testing.T, content string) fsx.ContentHash {
	return fsx.HashOf([]byte(content))
}

func (s *StoreSuite) testNodeLifecycle(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()
	ts := store.ForTenant(tenant.New())

	root := metadata.NewDirectoryNode(fsx.Root, time.Now())
	require.NoError(t, ts.CreateNode(ctx, root))

	filePath := mustPath(t, "/a.txt")
	hash := mustHash(t, "hello")
	file := metadata.NewFileNode(filePath, hash, 5, "text/plain", time.Now())
	require.NoError(t, ts.CreateNode(ctx, file))

	got, err := ts.GetNodeByPath(ctx, filePath)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsFile())
	assert.Equal(t, hash, got.Hash)

	updated := *got
	updated.ModifiedAt = got.ModifiedAt.Add(time.Second)
	require.NoError(t, ts.UpdateNode(ctx, updated))

	got2, err := ts.GetNodeByPath(ctx, filePath)
	require.NoError(t, err)
	assert.True(t, got2.ModifiedAt.After(got.ModifiedAt) || got2.ModifiedAt.Equal(updated.ModifiedAt))

	require.NoError(t, ts.DeleteNode(ctx, filePath))
	got3, err := ts.GetNodeByPath(ctx, filePath)
	require.NoError(t, err)
	assert.Nil(t, got3)
}

func (s *StoreSuite) testCreateConflict(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()
	ts := store.ForTenant(tenant.New())

	dir := metadata.NewDirectoryNode(mustPath(t, "/d"), time.Now())
	require.NoError(t, ts.CreateNode(ctx, dir))

	err := ts.CreateNode(ctx, dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, fsx.ErrConflict)
}

func (s *StoreSuite) testUpdateMissingIsNoop(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()
	ts := store.ForTenant(tenant.New())

	node := metadata.NewDirectoryNode(mustPath(t, "/missing"), time.Now())
	require.NoError(t, ts.UpdateNode(ctx, node))

	got, err := ts.GetNodeByPath(ctx, node.Path)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func (s *StoreSuite) testDeleteMissingIsNoop(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()
	ts := store.ForTenant(tenant.New())

	require.NoError(t, ts.DeleteNode(ctx, mustPath(t, "/never-existed")))
}

func (s *StoreSuite) testListChildrenOrderingAndDepth(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()
	ts := store.ForTenant(tenant.New())

	now := time.Now()
	require.NoError(t, ts.CreateNode(ctx, metadata.NewDirectoryNode(fsx.Root, now)))
	require.NoError(t, ts.CreateNode(ctx, metadata.NewDirectoryNode(mustPath(t, "/b-dir"), now)))
	require.NoError(t, ts.CreateNode(ctx, metadata.NewFileNode(mustPath(t, "/a-file.txt"), mustHash(t, "1"), 1, "text/plain", now)))
	require.NoError(t, ts.CreateNode(ctx, metadata.NewFileNode(mustPath(t, "/z-file.txt"), mustHash(t, "2"), 1, "text/plain", now)))
	// deeper than root's children: must not appear in ListChildren("/")
	require.NoError(t, ts.CreateNode(ctx, metadata.NewFileNode(mustPath(t, "/b-dir/nested.txt"), mustHash(t, "3"), 1, "text/plain", now)))

	children, err := ts.ListChildren(ctx, fsx.Root)
	require.NoError(t, err)
	require.Len(t, children, 3)
	assert.True(t, children[0].IsDirectory())
	assert.Equal(t, "/b-dir", children[0].Path.String())
	assert.Equal(t, "/a-file.txt", children[1].Path.String())
	assert.Equal(t, "/z-file.txt", children[2].Path.String())
}

func (s *StoreSuite) testRefCountLifecycle(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()
	ts := store.ForTenant(tenant.New())

	hash := mustHash(t, "shared-content")
	require.NoError(t, ts.IncrementBlobRefCount(ctx, hash, 13))
	require.NoError(t, ts.IncrementBlobRefCount(ctx, hash, 13))

	newCount, err := ts.DecrementBlobRefCount(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), newCount)

	newCount, err = ts.DecrementBlobRefCount(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), newCount)
}

func (s *StoreSuite) testDecrementBelowZeroIsInvariant(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()
	ts := store.ForTenant(tenant.New())

	hash := mustHash(t, "never-incremented-twice")
	require.NoError(t, ts.IncrementBlobRefCount(ctx, hash, 1))
	_, err := ts.DecrementBlobRefCount(ctx, hash)
	require.NoError(t, err)

	_, err = ts.DecrementBlobRefCount(ctx, hash)
	require.Error(t, err)
	assert.ErrorIs(t, err, fsx.ErrInvariant)
}

func (s *StoreSuite) testOrphanOrderingAndLimit(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()
	ts := store.ForTenant(tenant.New())

	var hashes []fsx.ContentHash
	for i := 0; i < 3; i++ {
		h := mustHash(t, "orphan-"+string(rune('a'+i)))
		hashes = append(hashes, h)
		require.NoError(t, ts.IncrementBlobRefCount(ctx, h, 1))
		_, err := ts.DecrementBlobRefCount(ctx, h)
		require.NoError(t, err)
		time.Sleep(time.Millisecond) // force distinct LastAccessedAt ordering
	}

	orphans, err := ts.GetOrphanBlobs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, orphans, 2)
	assert.True(t, orphans[0].Equal(hashes[0]))
	assert.True(t, orphans[1].Equal(hashes[1]))
}

func (s *StoreSuite) testDeleteBlobRecordLifecycle(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()
	ts := store.ForTenant(tenant.New())

	hash := mustHash(t, "reclaimable-content")
	require.NoError(t, ts.IncrementBlobRefCount(ctx, hash, 7))
	_, err := ts.DecrementBlobRefCount(ctx, hash)
	require.NoError(t, err)

	orphansBefore, err := ts.GetOrphanBlobs(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, orphansBefore, 1)

	deleted, err := ts.DeleteBlobRecord(ctx, hash)
	require.NoError(t, err)
	assert.True(t, deleted)

	orphansAfter, err := ts.GetOrphanBlobs(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, orphansAfter, "reclaimed record must no longer appear as an orphan")

	deletedAgain, err := ts.DeleteBlobRecord(ctx, hash)
	require.NoError(t, err)
	assert.False(t, deletedAgain, "deleting an already-reclaimed record is a no-op")

	liveHash := mustHash(t, "still-referenced-content")
	require.NoError(t, ts.IncrementBlobRefCount(ctx, liveHash, 3))

	deletedLive, err := ts.DeleteBlobRecord(ctx, liveHash)
	require.NoError(t, err)
	assert.False(t, deletedLive, "a record with a nonzero refcount must survive deletion")

	orphans, err := ts.GetOrphanBlobs(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, orphans, "the live record must not be reported as an orphan")
}

func (s *StoreSuite) testTenantIsolation(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()
	t1 := store.ForTenant(tenant.New())
	t2 := store.ForTenant(tenant.New())

	path := mustPath(t, "/shared-name.txt")
	hash := mustHash(t, "tenant-1-content")

	require.NoError(t, t1.CreateNode(ctx, metadata.NewFileNode(path, hash, 1, "text/plain", time.Now())))

	got, err := t2.GetNodeByPath(ctx, path)
	require.NoError(t, err)
	assert.Nil(t, got, "tenant 2 must not see tenant 1's node at the same path")

	// tenant 2 may create its own, unrelated node at the same path.
	require.NoError(t, t2.CreateNode(ctx, metadata.NewDirectoryNode(path, time.Now())))
}
