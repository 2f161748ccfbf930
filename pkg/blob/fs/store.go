// Package fs implements blob.Store on the local filesystem, sharding
// blobs two hex-prefix levels deep under a root directory
// ("<root>/<hash[0:2]>/<hash[2:4]>/<hash>") so that no single directory
// ever holds more than a small fraction of the store's content.
package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shardstore/dedupfs/internal/logger"
	"github.com/shardstore/dedupfs/pkg/blob"
	"github.com/shardstore/dedupfs/pkg/fsx"
)

// Store is a filesystem-backed blob.Store.
//
// Thread Safety: blobs are content-addressed and written exactly once per
// hash, so there is no cross-goroutine mutable state to guard here — the
// OS filesystem itself serializes concurrent writes to the same path, and
// the temp-file-then-rename write path in Write makes a concurrent writer
// and reader of the same hash see either nothing or the complete blob,
// never a partial one.
type Store struct {
	root string
}

var _ blob.Store = (*Store)(nil)

// New creates a filesystem-backed blob store rooted at root, creating the
// directory (mode 0755) if it doesn't already exist.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("%w: create blob root %s: %v", fsx.ErrStoreUnavailable, root, err)
	}
	return &Store{root: root}, nil
}

// shardPath returns the on-disk path for hash, e.g.
// "<root>/ab/cd/abcd1234...".
func (s *Store) shardPath(hash fsx.ContentHash) string {
	first, second := hash.ShardPrefix()
	return filepath.Join(s.root, first, second, hash.String())
}

// Write persists data under hash using a write-to-temp-file-then-rename
// sequence so that a concurrent Read or Exists for the same hash never
// observes a partially written file: os.Rename is atomic within the same
// filesystem, so the target path either doesn't exist yet or is already
// complete.
func (s *Store) Write(ctx context.Context, hash fsx.ContentHash, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := s.shardPath(hash)
	if _, err := os.Stat(target); err == nil {
		return nil // already stored under this hash; writes are idempotent
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: create shard dir %s: %v", fsx.ErrStoreUnavailable, dir, err)
	}

	tmp, err := os.CreateTemp(dir, hash.String()+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file in %s: %v", fsx.ErrStoreUnavailable, dir, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %v", fsx.ErrStoreUnavailable, tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", fsx.ErrStoreUnavailable, tmpPath, err)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		return fmt.Errorf("%w: publish blob %s: %v", fsx.ErrStoreUnavailable, hash, err)
	}
	return nil
}

// Read returns the complete bytes stored under hash.
func (s *Store) Read(ctx context.Context, hash fsx.ContentHash) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.shardPath(hash))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("blob %s: %w", hash, fsx.ErrBlobMissing)
		}
		return nil, fmt.Errorf("%w: read blob %s: %v", fsx.ErrStoreUnavailable, hash, err)
	}
	return data, nil
}

// Exists reports whether a blob is stored under hash.
func (s *Store) Exists(ctx context.Context, hash fsx.ContentHash) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := os.Stat(s.shardPath(hash))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%w: stat blob %s: %v", fsx.ErrStoreUnavailable, hash, err)
	}
	return true, nil
}

// Delete removes the blob stored under hash. Idempotent: deleting a
// missing blob returns nil.
func (s *Store) Delete(ctx context.Context, hash fsx.ContentHash) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := os.Remove(s.shardPath(hash))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: delete blob %s: %v", fsx.ErrStoreUnavailable, hash, err)
	}
	return nil
}

// DeleteMany deletes each hash in turn. The filesystem has no native batch
// delete, so failures are collected per-hash rather than aborting the
// whole batch on the first error — matching the orphan reclaimer's
// expectation that a batch partially succeeds rather than rolling back.
func (s *Store) DeleteMany(ctx context.Context, hashes []fsx.ContentHash) ([]fsx.ContentHash, error) {
	var failed []fsx.ContentHash

	for i, hash := range hashes {
		if i%100 == 0 {
			if err := ctx.Err(); err != nil {
				failed = append(failed, hashes[i:]...)
				return failed, err
			}
		}
		if err := s.Delete(ctx, hash); err != nil {
			logger.Warn("blob delete failed: hash=%s err=%v", hash, err)
			failed = append(failed, hash)
		}
	}

	if len(failed) > 0 {
		return failed, fmt.Errorf("%d of %d blob deletions failed", len(failed), len(hashes))
	}
	return nil, nil
}
