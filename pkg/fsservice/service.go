// Package fsservice is the engine's core: the only component permitted to
// mutate the metadata store and blob store together, and the owner of the
// dedup invariants that relate them (every live FileNode's hash has a
// blob object; every blob's refcount equals its live-FileNode count).
package fsservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shardstore/dedupfs/internal/logger"
	"github.com/shardstore/dedupfs/pkg/blob"
	"github.com/shardstore/dedupfs/pkg/fsx"
	"github.com/shardstore/dedupfs/pkg/metadata"
	"github.com/shardstore/dedupfs/pkg/tenant"
)

// Service implements the path/hash-level file-system operations on top of
// a metadata.Store and a blob.Store.
//
// Service holds no mutable state beyond its two store references: tenant
// context is resolved fresh from the tenant.ID argument on every call via
// Store.ForTenant, never cached on the Service, so a single Service is
// safe to share across concurrently executing requests for any number of
// tenants.
type Service struct {
	metadata metadata.Store
	blobs    blob.Store
}

// New constructs a Service over the given metadata and blob backings.
func New(metadataStore metadata.Store, blobStore blob.Store) *Service {
	return &Service{metadata: metadataStore, blobs: blobStore}
}

// CreateDirectory creates a DirectoryNode at path. Root creation
// ("/") is idempotent-safe: if the root already exists this call must
// not be attempted externally more than once in normal operation, but a
// second attempt simply surfaces Conflict like any other path.
func (s *Service) CreateDirectory(ctx context.Context, tenantID tenant.ID, path fsx.Path) error {
	ts := s.metadata.ForTenant(tenantID)

	existing, err := ts.GetNodeByPath(ctx, path)
	if err != nil {
		return err
	}
	if existing != nil {
		return fsx.Wrap(fsx.ErrConflict, "path already exists: %s", path)
	}

	if !path.IsRoot() {
		if err := s.requireDirectory(ctx, ts, path.Parent()); err != nil {
			return err
		}
	}

	return ts.CreateNode(ctx, metadata.NewDirectoryNode(path, time.Now()))
}

// WriteFile writes data at path, creating a new FileNode or updating an
// existing one depending on what currently occupies path: nothing,
// a directory (conflict), a file already at this hash (no-op touch),
// or a file at a different hash (swap with refcount rebalancing).
func (s *Service) WriteFile(ctx context.Context, tenantID tenant.ID, path fsx.Path, data []byte) error {
	ts := s.metadata.ForTenant(tenantID)
	hash := fsx.HashOf(data)

	exists, err := s.blobs.Exists(ctx, hash)
	if err != nil {
		return err
	}
	if !exists {
		// Write the blob before any metadata commit: a crash here leaves
		// an unreferenced blob, never a dangling node that points nowhere.
		if err := s.blobs.Write(ctx, hash, data); err != nil {
			return err
		}
	}

	node, err := ts.GetNodeByPath(ctx, path)
	if err != nil {
		return err
	}

	now := time.Now()

	switch {
	case node == nil:
		if !path.IsRoot() {
			if err := s.requireDirectory(ctx, ts, path.Parent()); err != nil {
				return err
			}
		}
		mimeType := detectMimeType(path, data)
		newNode := metadata.NewFileNode(path, hash, uint64(len(data)), mimeType, now)
		if err := ts.CreateNode(ctx, newNode); err != nil {
			return err
		}
		return ts.IncrementBlobRefCount(ctx, hash, uint64(len(data)))

	case node.IsDirectory():
		return fsx.Wrap(fsx.ErrConflict, "path is a directory: %s", path)

	case node.Hash.Equal(hash):
		node.ModifiedAt = now
		return ts.UpdateNode(ctx, *node)

	default:
		oldHash := node.Hash
		// Increment the new hash's refcount before decrementing the old
		// one: metadata never claims fewer live references than actually
		// exist, even for the instant between the two updates.
		if err := ts.IncrementBlobRefCount(ctx, hash, uint64(len(data))); err != nil {
			return err
		}
		updated := *node
		updated.Hash = hash
		updated.Size = uint64(len(data))
		updated.MimeType = detectMimeType(path, data)
		updated.ModifiedAt = now
		if err := ts.UpdateNode(ctx, updated); err != nil {
			return err
		}
		remaining, err := ts.DecrementBlobRefCount(ctx, oldHash)
		if err != nil {
			return err
		}
		if remaining == 0 {
			if err := s.blobs.Delete(ctx, oldHash); err != nil {
				logger.Warn("orphaned blob delete failed, will be swept by reclaimer: hash=%s err=%v", oldHash, err)
			}
		}
		return nil
	}
}

// ReadFile returns the complete bytes stored at path.
func (s *Service) ReadFile(ctx context.Context, tenantID tenant.ID, path fsx.Path) ([]byte, error) {
	ts := s.metadata.ForTenant(tenantID)

	node, err := s.requireFile(ctx, ts, path)
	if err != nil {
		return nil, err
	}

	data, err := s.blobs.Read(ctx, node.Hash)
	if err != nil {
		if errors.Is(err, fsx.ErrBlobMissing) {
			return nil, fmt.Errorf("node at %s references hash %s with no backing blob: %w", path, node.Hash, err)
		}
		return nil, err
	}
	return data, nil
}

// DeleteFile removes the FileNode at path and decrements its blob's
// refcount, deleting the blob itself if the count reaches zero.
func (s *Service) DeleteFile(ctx context.Context, tenantID tenant.ID, path fsx.Path) error {
	ts := s.metadata.ForTenant(tenantID)

	node, err := s.requireFile(ctx, ts, path)
	if err != nil {
		return err
	}

	if err := ts.DeleteNode(ctx, path); err != nil {
		return err
	}

	remaining, err := ts.DecrementBlobRefCount(ctx, node.Hash)
	if err != nil {
		return err
	}
	if remaining == 0 {
		if err := s.blobs.Delete(ctx, node.Hash); err != nil {
			logger.Warn("orphaned blob delete failed, will be swept by reclaimer: hash=%s err=%v", node.Hash, err)
		}
	}
	return nil
}

// ListDirectory returns the immediate children of path.
func (s *Service) ListDirectory(ctx context.Context, tenantID tenant.ID, path fsx.Path) ([]metadata.Node, error) {
	ts := s.metadata.ForTenant(tenantID)

	if err := s.requireDirectory(ctx, ts, path); err != nil {
		return nil, err
	}
	return ts.ListChildren(ctx, path)
}

// DeleteDirectory removes an empty DirectoryNode at path. Root deletion is
// always refused.
func (s *Service) DeleteDirectory(ctx context.Context, tenantID tenant.ID, path fsx.Path) error {
	if path.IsRoot() {
		return fsx.Wrap(fsx.ErrConflict, "cannot delete root")
	}

	ts := s.metadata.ForTenant(tenantID)

	if err := s.requireDirectory(ctx, ts, path); err != nil {
		return err
	}

	children, err := ts.ListChildren(ctx, path)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return fsx.Wrap(fsx.ErrConflict, "directory not empty: %s", path)
	}

	return ts.DeleteNode(ctx, path)
}

// CopyFile creates a new FileNode at dst sharing src's hash, incrementing
// the shared blob's refcount. No blob I/O is performed — the whole point
// of content addressing.
func (s *Service) CopyFile(ctx context.Context, tenantID tenant.ID, src, dst fsx.Path) error {
	ts := s.metadata.ForTenant(tenantID)

	srcNode, err := s.requireFile(ctx, ts, src)
	if err != nil {
		return err
	}

	existing, err := ts.GetNodeByPath(ctx, dst)
	if err != nil {
		return err
	}
	if existing != nil {
		return fsx.Wrap(fsx.ErrConflict, "destination already exists: %s", dst)
	}

	if !dst.IsRoot() {
		if err := s.requireDirectory(ctx, ts, dst.Parent()); err != nil {
			return err
		}
	}

	now := time.Now()
	newNode := metadata.NewFileNode(dst, srcNode.Hash, srcNode.Size, srcNode.MimeType, now)
	if err := ts.CreateNode(ctx, newNode); err != nil {
		return err
	}
	return ts.IncrementBlobRefCount(ctx, srcNode.Hash, srcNode.Size)
}

// MoveFile relocates a file from src to dst. Implemented as CopyFile
// followed by DeleteFile so that the destination's incRef commits before
// the source's decRef runs — net refcount for the shared hash is
// unchanged, and a crash between the two steps leaves both copies live
// rather than neither.
func (s *Service) MoveFile(ctx context.Context, tenantID tenant.ID, src, dst fsx.Path) error {
	if err := s.CopyFile(ctx, tenantID, src, dst); err != nil {
		return err
	}
	return s.DeleteFile(ctx, tenantID, src)
}

// CopyDirectory recursively copies the subtree rooted at src to dst via a
// pre-order traversal. Not atomic: a failure partway through leaves
// previously created destination nodes in place.
func (s *Service) CopyDirectory(ctx context.Context, tenantID tenant.ID, src, dst fsx.Path) error {
	ts := s.metadata.ForTenant(tenantID)

	if err := s.requireDirectory(ctx, ts, src); err != nil {
		return err
	}

	if err := s.CreateDirectory(ctx, tenantID, dst); err != nil {
		return err
	}

	children, err := ts.ListChildren(ctx, src)
	if err != nil {
		return err
	}

	for _, child := range children {
		childDst, err := rewriteChildPath(child.Path, src, dst)
		if err != nil {
			return err
		}
		if child.IsDirectory() {
			if err := s.CopyDirectory(ctx, tenantID, child.Path, childDst); err != nil {
				return err
			}
		} else {
			if err := s.CopyFile(ctx, tenantID, child.Path, childDst); err != nil {
				return err
			}
		}
	}
	return nil
}

// MoveDirectory relocates the subtree rooted at src to dst: copy, then
// delete the source bottom-up (children before parent). Same
// non-atomicity caveat as CopyDirectory.
func (s *Service) MoveDirectory(ctx context.Context, tenantID tenant.ID, src, dst fsx.Path) error {
	if err := s.CopyDirectory(ctx, tenantID, src, dst); err != nil {
		return err
	}
	return s.deleteSubtreeBottomUp(ctx, tenantID, src)
}

// GetInfo returns the node (file or directory) at path.
func (s *Service) GetInfo(ctx context.Context, tenantID tenant.ID, path fsx.Path) (*metadata.Node, error) {
	ts := s.metadata.ForTenant(tenantID)

	node, err := ts.GetNodeByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, fmt.Errorf("%s: %w", path, fsx.ErrNotFound)
	}
	return node, nil
}

func (s *Service) deleteSubtreeBottomUp(ctx context.Context, tenantID tenant.ID, dir fsx.Path) error {
	ts := s.metadata.ForTenant(tenantID)

	children, err := ts.ListChildren(ctx, dir)
	if err != nil {
		return err
	}
	for _, child := range children {
		if child.IsDirectory() {
			if err := s.deleteSubtreeBottomUp(ctx, tenantID, child.Path); err != nil {
				return err
			}
		} else {
			if err := s.DeleteFile(ctx, tenantID, child.Path); err != nil {
				return err
			}
		}
	}
	return s.DeleteDirectory(ctx, tenantID, dir)
}

func (s *Service) requireFile(ctx context.Context, ts metadata.TenantStore, path fsx.Path) (*metadata.Node, error) {
	node, err := ts.GetNodeByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, fmt.Errorf("%s: %w", path, fsx.ErrFileNotFound)
	}
	if !node.IsFile() {
		return nil, fsx.Wrap(fsx.ErrConflict, "path is a directory: %s", path)
	}
	return node, nil
}

func (s *Service) requireDirectory(ctx context.Context, ts metadata.TenantStore, path fsx.Path) error {
	node, err := ts.GetNodeByPath(ctx, path)
	if err != nil {
		return err
	}
	if node == nil {
		return fmt.Errorf("%s: %w", path, fsx.ErrDirectoryNotFound)
	}
	if !node.IsDirectory() {
		return fsx.Wrap(fsx.ErrConflict, "path is a file: %s", path)
	}
	return nil
}

// rewriteChildPath rewrites childPath (a descendant of oldRoot) so that it
// is rooted under newRoot instead.
func rewriteChildPath(childPath, oldRoot, newRoot fsx.Path) (fsx.Path, error) {
	rel := strings.TrimPrefix(childPath.String(), oldRoot.String())
	rel = strings.TrimPrefix(rel, "/")

	newPrefix := newRoot.String()
	if newRoot.IsRoot() {
		newPrefix = ""
	}
	return fsx.ParsePath(newPrefix + "/" + rel)
}
