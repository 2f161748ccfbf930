package fsservice

import (
	"context"
	"testing"

	blobfs "github.com/shardstore/dedupfs/pkg/blob/fs"
	"github.com/shardstore/dedupfs/pkg/fsx"
	metadatamemory "github.com/shardstore/dedupfs/pkg/metadata/memory"
	"github.com/shardstore/dedupfs/pkg/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	metadataStore := metadatamemory.New()
	blobStore, err := blobfs.New(t.TempDir())
	require.NoError(t, err)
	return New(metadataStore, blobStore)
}

func mustPath(t *testing.T, s string) fsx.Path {
	p, err := fsx.ParsePath(s)
	require.NoError(t, err)
	return p
}

func TestSimpleWriteRead(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	tid := tenant.New()

	require.NoError(t, svc.CreateDirectory(ctx, tid, fsx.Root))
	require.NoError(t, svc.WriteFile(ctx, tid, mustPath(t, "/hello.txt"), []byte("Hello World")))

	data, err := svc.ReadFile(ctx, tid, mustPath(t, "/hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Hello World", string(data))

	info, err := svc.GetInfo(ctx, tid, mustPath(t, "/hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a591a6d40bf420404a011733cfb7b190d62c65bf0bcda32b57b277d9ad9f146e", info.Hash.String())
}

func TestCrossTenantDedup(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	t1, t2 := tenant.New(), tenant.New()

	require.NoError(t, svc.CreateDirectory(ctx, t1, fsx.Root))
	require.NoError(t, svc.CreateDirectory(ctx, t2, fsx.Root))

	require.NoError(t, svc.WriteFile(ctx, t1, mustPath(t, "/a"), []byte("same")))
	require.NoError(t, svc.WriteFile(ctx, t2, mustPath(t, "/b"), []byte("same")))

	hash := fsx.HashOf([]byte("same"))
	exists, err := svc.blobs.Exists(ctx, hash)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, svc.DeleteFile(ctx, t1, mustPath(t, "/a")))
	exists, err = svc.blobs.Exists(ctx, hash)
	require.NoError(t, err)
	assert.True(t, exists, "blob must survive while T2 still references it")

	require.NoError(t, svc.DeleteFile(ctx, t2, mustPath(t, "/b")))
	exists, err = svc.blobs.Exists(ctx, hash)
	require.NoError(t, err)
	assert.False(t, exists, "blob must be gone once both tenants delete")
}

func TestOverwriteWithDifferentContent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	tid := tenant.New()
	require.NoError(t, svc.CreateDirectory(ctx, tid, fsx.Root))

	h1 := fsx.HashOf([]byte("v1"))
	h2 := fsx.HashOf([]byte("v2"))

	require.NoError(t, svc.WriteFile(ctx, tid, mustPath(t, "/x"), []byte("v1")))
	require.NoError(t, svc.WriteFile(ctx, tid, mustPath(t, "/x"), []byte("v2")))

	info, err := svc.GetInfo(ctx, tid, mustPath(t, "/x"))
	require.NoError(t, err)
	assert.True(t, info.Hash.Equal(h2))

	exists1, err := svc.blobs.Exists(ctx, h1)
	require.NoError(t, err)
	assert.False(t, exists1, "old blob must be reclaimed once refcount hits zero")

	exists2, err := svc.blobs.Exists(ctx, h2)
	require.NoError(t, err)
	assert.True(t, exists2)
}

func TestCopyFileIsMetadataOnly(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	tid := tenant.New()
	require.NoError(t, svc.CreateDirectory(ctx, tid, fsx.Root))

	require.NoError(t, svc.WriteFile(ctx, tid, mustPath(t, "/a"), []byte("content")))
	require.NoError(t, svc.CopyFile(ctx, tid, mustPath(t, "/a"), mustPath(t, "/b")))

	a, err := svc.GetInfo(ctx, tid, mustPath(t, "/a"))
	require.NoError(t, err)
	b, err := svc.GetInfo(ctx, tid, mustPath(t, "/b"))
	require.NoError(t, err)
	assert.True(t, a.Hash.Equal(b.Hash))
}

func TestInvalidPathRejected(t *testing.T) {
	_, err := fsx.ParsePath("/../etc/passwd")
	require.Error(t, err)
	assert.ErrorIs(t, err, fsx.ErrInvalidPath)
}

func TestNonEmptyDirectoryDeleteRefused(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	tid := tenant.New()
	require.NoError(t, svc.CreateDirectory(ctx, tid, fsx.Root))

	require.NoError(t, svc.CreateDirectory(ctx, tid, mustPath(t, "/d")))
	require.NoError(t, svc.WriteFile(ctx, tid, mustPath(t, "/d/f"), []byte("content")))

	err := svc.DeleteDirectory(ctx, tid, mustPath(t, "/d"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fsx.ErrConflict)

	require.NoError(t, svc.DeleteFile(ctx, tid, mustPath(t, "/d/f")))
	require.NoError(t, svc.DeleteDirectory(ctx, tid, mustPath(t, "/d")))
}

func TestMoveDirectory(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	tid := tenant.New()
	require.NoError(t, svc.CreateDirectory(ctx, tid, fsx.Root))

	require.NoError(t, svc.CreateDirectory(ctx, tid, mustPath(t, "/src")))
	require.NoError(t, svc.WriteFile(ctx, tid, mustPath(t, "/src/f.txt"), []byte("moved")))

	require.NoError(t, svc.MoveDirectory(ctx, tid, mustPath(t, "/src"), mustPath(t, "/dst")))

	_, err := svc.GetInfo(ctx, tid, mustPath(t, "/src"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fsx.ErrNotFound)

	data, err := svc.ReadFile(ctx, tid, mustPath(t, "/dst/f.txt"))
	require.NoError(t, err)
	assert.Equal(t, "moved", string(data))
}

func TestWriteFileIdempotentRewrite(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	tid := tenant.New()
	require.NoError(t, svc.CreateDirectory(ctx, tid, fsx.Root))

	require.NoError(t, svc.WriteFile(ctx, tid, mustPath(t, "/p"), []byte("same-bytes")))
	require.NoError(t, svc.WriteFile(ctx, tid, mustPath(t, "/p"), []byte("same-bytes")))

	children, err := svc.ListDirectory(ctx, tid, fsx.Root)
	require.NoError(t, err)
	require.Len(t, children, 1)
}
