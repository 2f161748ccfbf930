package fs

import (
	"testing"

	"github.com/shardstore/dedupfs/pkg/blob"
	blobtesting "github.com/shardstore/dedupfs/pkg/blob/testing"
	"github.com/shardstore/dedupfs/pkg/fsx"
	"github.com/stretchr/testify/require"
)

func TestStoreConformance(t *testing.T) {
	suite := &blobtesting.StoreSuite{
		NewStore: func(t *testing.T) blob.Store {
			store, err := New(t.TempDir())
			require.NoError(t, err)
			return store
		},
	}
	suite.Run(t)
}

func TestShardPathUsesHashPrefixDirectories(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	hash := fsx.HashOf([]byte("shard-layout-check"))
	first, second := hash.ShardPrefix()
	path := store.shardPath(hash)

	require.Contains(t, path, first+"/"+second+"/"+hash.String())
}
