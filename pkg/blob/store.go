// Package blob defines the capability interface for storing raw blob bytes
// keyed by content hash. Blob storage is deliberately ignorant of paths,
// tenants, or reference counts — those live in pkg/metadata. A blob exists
// exactly once per hash regardless of how many nodes across how many
// tenants point at it.
package blob

import (
	"context"

	"github.com/shardstore/dedupfs/pkg/fsx"
)

// Store is the capability interface every blob backing (pkg/blob/fs,
// pkg/blob/s3, ...) implements.
//
// Thread Safety: implementations must be safe for concurrent use by
// multiple goroutines. Two concurrent Write calls for the same hash carry
// identical bytes by construction (the hash is derived from the content),
// so last-write-wins is a safe outcome of a race, not a bug.
type Store interface {
	// Write persists data under hash. Writing an already-present hash is a
	// no-op success — callers performing dedup routinely call Write for
	// content that is already stored.
	Write(ctx context.Context, hash fsx.ContentHash, data []byte) error

	// Read returns the complete bytes stored under hash. Returns an error
	// wrapping fsx.ErrBlobMissing if no blob exists for hash.
	Read(ctx context.Context, hash fsx.ContentHash) ([]byte, error)

	// Exists reports whether a blob is stored under hash. It returns
	// (false, nil) for a missing blob — absence is not an error.
	Exists(ctx context.Context, hash fsx.ContentHash) (bool, error)

	// Delete removes the blob stored under hash. Deleting a missing blob
	// is idempotent and returns nil, mirroring the metadata layer's
	// TenantStore.DeleteNode semantics.
	Delete(ctx context.Context, hash fsx.ContentHash) error

	// DeleteMany removes multiple blobs in one call, which backings with
	// native batch APIs (S3's DeleteObjects) can execute far more cheaply
	// than len(hashes) calls to Delete. The operation is best-effort:
	// failed contains the hashes that could not be deleted (with the
	// aggregate err describing why), and a hash's absence from failed
	// means it was deleted (or was already absent).
	DeleteMany(ctx context.Context, hashes []fsx.ContentHash) (failed []fsx.ContentHash, err error)
}
