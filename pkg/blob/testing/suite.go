// Package testing provides a shared conformance suite for blob.Store
// implementations: a StoreSuite holding a store factory, with one
// t.Run sub-test per behavior every backing must satisfy identically.
package testing

import (
	"context"
	"testing"

	"github.com/shardstore/dedupfs/pkg/blob"
	"github.com/shardstore/dedupfs/pkg/fsx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreSuite runs the blob.Store conformance suite against a backing
// produced by NewStore.
type StoreSuite struct {
	NewStore func(t *testing.T) blob.Store
}

func (s *StoreSuite) Run(t *testing.T) {
	t.Run("ReadMissingIsBlobMissing", s.testReadMissing)
	t.Run("WriteThenRead", s.testWriteThenRead)
	t.Run("WriteIsIdempotent", s.testWriteIdempotent)
	t.Run("ExistsReflectsWrites", s.testExists)
	t.Run("DeleteIsIdempotent", s.testDeleteIdempotent)
	t.Run("DeleteMany", s.testDeleteMany)
	t.Run("EmptyContent", s.testEmptyContent)
}

func (s *StoreSuite) testReadMissing(t *testing.T) {
	store := s.NewStore(t)
	hash := fsx.HashOf([]byte("never-written"))

	_, err := store.Read(context.Background(), hash)
	require.Error(t, err)
	assert.ErrorIs(t, err, fsx.ErrBlobMissing)
}

func (s *StoreSuite) testWriteThenRead(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()
	data := []byte("hello, dedup world")
	hash := fsx.HashOf(data)

	require.NoError(t, store.Write(ctx, hash, data))

	got, err := store.Read(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func (s *StoreSuite) testWriteIdempotent(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()
	data := []byte("written twice")
	hash := fsx.HashOf(data)

	require.NoError(t, store.Write(ctx, hash, data))
	require.NoError(t, store.Write(ctx, hash, data))

	got, err := store.Read(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func (s *StoreSuite) testExists(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()
	data := []byte("exists-check")
	hash := fsx.HashOf(data)

	exists, err := store.Exists(ctx, hash)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Write(ctx, hash, data))

	exists, err = store.Exists(ctx, hash)
	require.NoError(t, err)
	assert.True(t, exists)
}

func (s *StoreSuite) testDeleteIdempotent(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()
	data := []byte("to be deleted")
	hash := fsx.HashOf(data)

	require.NoError(t, store.Write(ctx, hash, data))
	require.NoError(t, store.Delete(ctx, hash))
	require.NoError(t, store.Delete(ctx, hash)) // idempotent

	exists, err := store.Exists(ctx, hash)
	require.NoError(t, err)
	assert.False(t, exists)
}

func (s *StoreSuite) testDeleteMany(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()

	var hashes []fsx.ContentHash
	for i := 0; i < 5; i++ {
		data := []byte{byte(i), byte(i + 1), byte(i + 2)}
		h := fsx.HashOf(data)
		require.NoError(t, store.Write(ctx, h, data))
		hashes = append(hashes, h)
	}

	failed, err := store.DeleteMany(ctx, hashes)
	require.NoError(t, err)
	assert.Empty(t, failed)

	for _, h := range hashes {
		exists, err := store.Exists(ctx, h)
		require.NoError(t, err)
		assert.False(t, exists)
	}
}

func (s *StoreSuite) testEmptyContent(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()
	data := []byte{}
	hash := fsx.HashOf(data)

	require.NoError(t, store.Write(ctx, hash, data))

	got, err := store.Read(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, 0, len(got))
}
