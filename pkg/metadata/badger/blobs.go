package badger

import (
	"context"
	"errors"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/shardstore/dedupfs/pkg/fsx"
	"github.com/shardstore/dedupfs/pkg/metadata"
)

// IncrementBlobRefCount performs the atomic upsert equivalent to a SQL
// backing's "INSERT ... ON CONFLICT DO UPDATE": a read-modify-write of
// the BlobRecord inside a single badger transaction, serialized across
// goroutines by refMu so that two concurrent increments of the same hash
// can never both observe the same starting refcount.
func (t *tenantStore) IncrementBlobRefCount(ctx context.Context, hash fsx.ContentHash, contentSize uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.store.refMu.Lock()
	defer t.store.refMu.Unlock()

	key := blobKey(hash.String())
	now := time.Now()

	err := t.store.db.Update(func(txn *badger.Txn) error {
		rec, err := getBlobRecord(txn, hash)
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if errors.Is(err, badger.ErrKeyNotFound) {
			rec = metadata.BlobRecord{
				Hash:           hash,
				RefCount:       1,
				Size:           contentSize,
				CreatedAt:      now,
				LastAccessedAt: now,
			}
		} else {
			rec.RefCount++
			rec.LastAccessedAt = now
		}
		data, err := encodeBlobRecord(rec)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
	return wrapStoreErr(err)
}

// DecrementBlobRefCount atomically decrements a BlobRecord's refcount,
// surfacing fsx.ErrInvariant rather than swallowing the violation if the
// count would go negative.
func (t *tenantStore) DecrementBlobRefCount(ctx context.Context, hash fsx.ContentHash) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	t.store.refMu.Lock()
	defer t.store.refMu.Unlock()

	key := blobKey(hash.String())
	var newCount uint64

	err := t.store.db.Update(func(txn *badger.Txn) error {
		rec, err := getBlobRecord(txn, hash)
		if errors.Is(err, badger.ErrKeyNotFound) {
			newCount = 0
			return nil // missing row decrements to 0
		}
		if err != nil {
			return err
		}
		if rec.RefCount == 0 {
			return fsx.Wrap(fsx.ErrInvariant, "refcount for %s would go negative", hash)
		}
		rec.RefCount--
		rec.LastAccessedAt = time.Now()
		newCount = rec.RefCount

		data, err := encodeBlobRecord(rec)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return 0, wrapStoreErr(err)
	}
	return newCount, nil
}

// GetOrphanBlobs scans the "b:" namespace for records with refcount 0,
// returning up to limit hashes ordered oldest-LastAccessedAt-first.
func (t *tenantStore) GetOrphanBlobs(ctx context.Context, limit int) ([]fsx.ContentHash, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var orphans []metadata.BlobRecord

	err := t.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixBlob)
		opts.PrefetchValues = true

		it := txn.NewIterator(opts)
		defer it.Close()

		processed := 0
		for it.Rewind(); it.Valid(); it.Next() {
			processed++
			if processed%1000 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}

			err := it.Item().Value(func(val []byte) error {
				rec, err := decodeBlobRecord(val)
				if err != nil {
					return err
				}
				if rec.RefCount == 0 {
					orphans = append(orphans, rec)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr(err)
	}

	sortOrphansByLastAccessed(orphans)
	if limit > 0 && len(orphans) > limit {
		orphans = orphans[:limit]
	}

	hashes := make([]fsx.ContentHash, len(orphans))
	for i, rec := range orphans {
		hashes[i] = rec.Hash
	}
	return hashes, nil
}

// DeleteBlobRecord removes the BlobRecord for hash, but only if its
// refcount is still 0 — read and delete happen inside the same badger
// transaction, serialized by refMu against a concurrent
// increment/decrement, so a write racing the reclaimer can never have
// its fresh IncrementBlobRefCount clobbered by this call.
func (t *tenantStore) DeleteBlobRecord(ctx context.Context, hash fsx.ContentHash) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	t.store.refMu.Lock()
	defer t.store.refMu.Unlock()

	key := blobKey(hash.String())
	deleted := false

	err := t.store.db.Update(func(txn *badger.Txn) error {
		rec, err := getBlobRecord(txn, hash)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil // already reclaimed by a concurrent pass
		}
		if err != nil {
			return err
		}
		if rec.RefCount != 0 {
			return nil // a write incremented it after GetOrphanBlobs ran
		}
		deleted = true
		return txn.Delete(key)
	})
	if err != nil {
		return false, wrapStoreErr(err)
	}
	return deleted, nil
}

// getBlobRecord fetches and decodes the BlobRecord for hash within an
// in-flight transaction. Returns badger.ErrKeyNotFound (unwrapped) when
// absent so callers can branch on it directly.
func getBlobRecord(txn *badger.Txn, hash fsx.ContentHash) (metadata.BlobRecord, error) {
	item, err := txn.Get(blobKey(hash.String()))
	if err != nil {
		return metadata.BlobRecord{}, err
	}
	var rec metadata.BlobRecord
	err = item.Value(func(val []byte) error {
		decoded, err := decodeBlobRecord(val)
		if err != nil {
			return err
		}
		rec = decoded
		return nil
	})
	return rec, err
}
