package memory

import (
	"testing"

	"github.com/shardstore/dedupfs/pkg/metadata"
	mdtesting "github.com/shardstore/dedupfs/pkg/metadata/testing"
)

func TestStoreConformance(t *testing.T) {
	suite := &mdtesting.StoreSuite{
		NewStore: func(t *testing.T) metadata.Store {
			return New()
		},
	}
	suite.Run(t)
}
