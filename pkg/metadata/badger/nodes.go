package badger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/shardstore/dedupfs/pkg/fsx"
	"github.com/shardstore/dedupfs/pkg/metadata"
)

func (t *tenantStore) CreateNode(ctx context.Context, node metadata.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := nodeKey(t.tenant, node.Path.String())

	err := t.store.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return fsx.Wrap(fsx.ErrConflict, "node already exists at %s", node.Path)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		data, err := encodeNode(node)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
	return wrapStoreErr(err)
}

func (t *tenantStore) GetNodeByPath(ctx context.Context, path fsx.Path) (*metadata.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var node metadata.Node
	found := false

	err := t.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(nodeKey(t.tenant, path.String()))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			decoded, err := decodeNode(val)
			if err != nil {
				return err
			}
			node = decoded
			found = true
			return nil
		})
	})
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	if !found {
		return nil, nil
	}
	return &node, nil
}

func (t *tenantStore) UpdateNode(ctx context.Context, node metadata.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := nodeKey(t.tenant, node.Path.String())

	err := t.store.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil // no-op: caller must have verified existence
		}
		if err != nil {
			return err
		}
		data, err := encodeNode(node)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
	return wrapStoreErr(err)
}

func (t *tenantStore) DeleteNode(ctx context.Context, path fsx.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := nodeKey(t.tenant, path.String())
	err := t.store.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil // idempotent
		}
		return err
	})
	return wrapStoreErr(err)
}

// ListChildren scans this tenant's whole node namespace (key prefix
// "n:<tenant>:") and keeps only nodes whose parent path equals dir, so
// only nodes exactly one path component deeper than dir are returned.
func (t *tenantStore) ListChildren(ctx context.Context, dir fsx.Path) ([]metadata.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var children []metadata.Node

	err := t.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = nodeTenantPrefix(t.tenant)
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

			item := it.Item()
			path := pathFromNodeKey(item.KeyCopy(nil), t.tenant)
			if !isImmediateChild(path, dir) {
				continue
			}

			err := item.Value(func(val []byte) error {
				node, err := decodeNode(val)
				if err != nil {
					return err
				}
				children = append(children, node)
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

	sortChildren(children)
	return children, nil
}

// isImmediateChild reports whether candidatePath is exactly one path
// component deeper than dir.
func isImmediateChild(candidatePath string, dir fsx.Path) bool {
	candidate, err := fsx.ParsePath(candidatePath)
	if err != nil {
		return false
	}
	if candidate.IsRoot() {
		return false
	}
	return candidate.Parent().Equal(dir)
}

// wrapStoreErr maps badger-internal errors that escaped a transaction
// callback to fsx.ErrStoreUnavailable, leaving sentinel errors already
// produced by this package (fsx.ErrConflict, fsx.ErrInvariant) untouched.
func wrapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, fsx.ErrConflict) || errors.Is(err, fsx.ErrInvariant) || errors.Is(err, fsx.ErrInvalidPath) || errors.Is(err, fsx.ErrInvalidHash) {
		return err
	}
	if strings.Contains(err.Error(), "context") {
		return err
	}
	return fmt.Errorf("%w: %v", fsx.ErrStoreUnavailable, err)
}
