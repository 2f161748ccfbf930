package badger

import (
	"sort"

	"github.com/shardstore/dedupfs/pkg/metadata"
)

func sortChildren(nodes []metadata.Node) {
	sort.Slice(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if a.IsDirectory() != b.IsDirectory() {
			return a.IsDirectory()
		}
		return a.Path.String() < b.Path.String()
	})
}

func sortOrphansByLastAccessed(recs []metadata.BlobRecord) {
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].LastAccessedAt.Before(recs[j].LastAccessedAt)
	})
}
