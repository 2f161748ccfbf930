package badger

import (
	"context"
	"testing"

	"github.com/shardstore/dedupfs/pkg/metadata"
	mdtesting "github.com/shardstore/dedupfs/pkg/metadata/testing"
	"github.com/stretchr/testify/require"
)

func TestStoreConformance(t *testing.T) {
	suite := &mdtesting.StoreSuite{
		NewStore: func(t *testing.T) metadata.Store {
			store, err := Open(context.Background(), Config{InMemory: true})
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close(context.Background()) })
			return store
		},
	}
	suite.Run(t)
}
