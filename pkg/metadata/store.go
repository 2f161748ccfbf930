// Package metadata defines the metadata-store capability interface and
// its data model: per-tenant (path → node) records plus
// (hash → BlobRecord) reference counts.
//
// This package declares the contract only. Concrete backings live in
// sibling packages (pkg/metadata/memory, pkg/metadata/badger);
// pkg/metadata/testing provides a shared conformance suite run against
// both.
package metadata

import (
	"context"

	"github.com/shardstore/dedupfs/pkg/fsx"
	"github.com/shardstore/dedupfs/pkg/tenant"
)

// Store is the top-level metadata backing. It is deliberately a
// capability interface, not a base class to extend — pluggability is a
// first-class requirement so tests can substitute an in-memory
// implementation for the reference one.
//
// Tenant Binding:
//
// A Store never carries process-global mutable tenant state and has no
// SetTenant mutator. Instead, callers obtain a short-lived TenantStore
// handle scoped to one tenant via ForTenant before issuing any
// operation. The handle is cheap to create and safe to discard after a
// single logical operation — concurrent callers for different tenants,
// or for the same tenant, never interfere with each other's binding.
type Store interface {
	// ForTenant returns a handle scoped to id. All calls through the
	// returned TenantStore act only on nodes and blob records visible
	// to that tenant.
	ForTenant(id tenant.ID) TenantStore

	// Close releases any resources held by the store (file handles,
	// database connections). Safe to call once at shutdown.
	Close(ctx context.Context) error
}

// TenantStore is the per-tenant view of a Store: createNode,
// getNodeByPath, updateNode, deleteNode, listChildren, incRef, decRef,
// getOrphanBlobs.
//
// Failure Semantics:
//
// Transient backend errors propagate wrapped in fsx.ErrStoreUnavailable;
// implementations must not retry internally, leaving that decision to
// the caller.
type TenantStore interface {
	// CreateNode inserts a new FileNode or DirectoryNode. Fails with
	// fsx.ErrConflict if a node already exists at node.Path for this
	// tenant.
	CreateNode(ctx context.Context, node Node) error

	// GetNodeByPath returns the node at path, or (nil, nil) if no node
	// exists there. A missing node is not an error at this layer — the
	// caller (pkg/fsservice) maps absence to fsx.ErrNotFound where the
	// operation requires presence.
	GetNodeByPath(ctx context.Context, path fsx.Path) (*Node, error)

	// UpdateNode replaces the mutable attributes of the node at
	// node.Path (hash/size/mimeType/modifiedAt for files; modifiedAt
	// for directories). A no-op if no row matches — callers must have
	// already verified existence via GetNodeByPath.
	UpdateNode(ctx context.Context, node Node) error

	// DeleteNode removes the node at path. Idempotent: deleting an
	// already-absent path is not an error.
	DeleteNode(ctx context.Context, path fsx.Path) error

	// ListChildren returns the nodes whose parent is exactly dir (one
	// path component deeper), ordered directories-before-files then
	// ascending path.
	ListChildren(ctx context.Context, dir fsx.Path) ([]Node, error)

	// IncrementBlobRefCount atomically increments the refcount for
	// hash, creating a BlobRecord with refcount 1 and size contentSize if
	// none exists yet. Safe under concurrent callers for the same hash — the
	// engine's dedup correctness depends on this atomicity.
	IncrementBlobRefCount(ctx context.Context, hash fsx.ContentHash, contentSize uint64) error

	// DecrementBlobRefCount atomically decrements the refcount for
	// hash and returns the resulting value. A hash with no BlobRecord
	// decrements to 0. A decrement that would drive the count below
	// zero is a bug, not an allowed transition, and must surface
	// fsx.ErrInvariant rather than clamping or swallowing it.
	DecrementBlobRefCount(ctx context.Context, hash fsx.ContentHash) (uint64, error)

	// GetOrphanBlobs returns up to limit hashes with refcount 0,
	// ordered by LastAccessedAt ascending (oldest first), so the
	// reclaimer's sweep is bounded and predictable.
	GetOrphanBlobs(ctx context.Context, limit int) ([]fsx.ContentHash, error)

	// DeleteBlobRecord removes the BlobRecord for hash, but only if its
	// refcount is still 0 at the time of deletion — a write racing the
	// reclaimer between GetOrphanBlobs and this call may have
	// incremented the refcount in the meantime, in which case the
	// record must survive. Returns (false, nil) when the record was
	// left in place because its refcount was no longer 0, or because no
	// record exists at all (already reclaimed by a concurrent pass).
	// The reclaimer calls this only after the blob's bytes have been
	// deleted from the blob store, so the record and the bytes never
	// both outlive each other.
	DeleteBlobRecord(ctx context.Context, hash fsx.ContentHash) (deleted bool, err error)
}
