package metadata

import (
	"time"

	"github.com/shardstore/dedupfs/pkg/fsx"
)

// NodeType discriminates the two variants of Node. This is a closed sum
// type with exactly two branches, not an open class hierarchy meant for
// future extension.
type NodeType int

const (
	// FileType marks a Node as a FileNode.
	FileType NodeType = iota
	// DirectoryType marks a Node as a DirectoryNode.
	DirectoryType
)

func (t NodeType) String() string {
	switch t {
	case FileType:
		return "file"
	case DirectoryType:
		return "directory"
	default:
		return "unknown"
	}
}

// Node is the tagged union of FileNode and DirectoryNode. Fields
// meaningful only to one variant (Hash, Size, MimeType) are zero on the
// other.
type Node struct {
	Type       NodeType
	Path       fsx.Path
	Hash       fsx.ContentHash // files only
	Size       uint64          // files only
	MimeType   string          // files only
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// NewFileNode builds a FileNode value.
func NewFileNode(path fsx.Path, hash fsx.ContentHash, size uint64, mimeType string, now time.Time) Node {
	return Node{
		Type:       FileType,
		Path:       path,
		Hash:       hash,
		Size:       size,
		MimeType:   mimeType,
		CreatedAt:  now,
		ModifiedAt: now,
	}
}

// NewDirectoryNode builds a DirectoryNode value.
func NewDirectoryNode(path fsx.Path, now time.Time) Node {
	return Node{
		Type:       DirectoryType,
		Path:       path,
		CreatedAt:  now,
		ModifiedAt: now,
	}
}

// IsFile reports whether n is a FileNode.
func (n Node) IsFile() bool { return n.Type == FileType }

// IsDirectory reports whether n is a DirectoryNode.
func (n Node) IsDirectory() bool { return n.Type == DirectoryType }

// BlobRecord tracks the reference count and bookkeeping for one content
// hash.
type BlobRecord struct {
	Hash           fsx.ContentHash
	RefCount       uint64
	Size           uint64
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
