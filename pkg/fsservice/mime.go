package fsservice

import (
	"github.com/gabriel-vasile/mimetype"
	"github.com/shardstore/dedupfs/pkg/fsx"
)

// detectMimeType sniffs data's content to classify it, falling back to
// pkg/fsx's path-suffix table only when sniffing can't do better than the
// generic default — a suffix like ".txt" is a weaker signal than the
// bytes themselves, so content wins whenever it has an opinion.
func detectMimeType(path fsx.Path, data []byte) string {
	sniffed := mimetype.Detect(data).String()
	if sniffed != fsx.DefaultMimeType {
		return sniffed
	}
	return fsx.MimeTypeForPath(path)
}
