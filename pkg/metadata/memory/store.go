// Package memory implements metadata.Store entirely in process memory.
//
// This backing exists for tests and for local/ephemeral deployments
// (pkg/config selects it via metadata.type: memory); it is not durable
// across restarts. A single mutex guards every map; unlike the badger
// backing, there is no disk-backed transaction log.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/shardstore/dedupfs/pkg/fsx"
	"github.com/shardstore/dedupfs/pkg/metadata"
	"github.com/shardstore/dedupfs/pkg/tenant"
)

// Store is an in-memory metadata.Store.
//
// Thread Safety: a single sync.RWMutex guards both the per-tenant node
// maps and the tenant-agnostic blob record map, matching the reference
// backing's role as the single serialization point for dedup
// bookkeeping.
type Store struct {
	mu sync.RWMutex

	// nodes is keyed by tenant id, then by canonical path string.
	nodes map[string]map[string]metadata.Node

	// blobs is keyed by content hash string and shared across all
	// tenants: refcounts are exact across the whole store, not
	// per-tenant.
	blobs map[string]*metadata.BlobRecord
}

// New creates an empty in-memory metadata store.
func New() *Store {
	return &Store{
		nodes: make(map[string]map[string]metadata.Node),
		blobs: make(map[string]*metadata.BlobRecord),
	}
}

// ForTenant returns a handle scoped to id.
func (s *Store) ForTenant(id tenant.ID) metadata.TenantStore {
	return &tenantStore{store: s, tenant: id.String()}
}

// Close is a no-op for the in-memory backing; there is nothing to flush
// or release.
func (s *Store) Close(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) tenantNodes(tenantKey string) map[string]metadata.Node {
	nodes, ok := s.nodes[tenantKey]
	if !ok {
		nodes = make(map[string]metadata.Node)
		s.nodes[tenantKey] = nodes
	}
	return nodes
}

// tenantStore is the per-tenant view returned by ForTenant.
type tenantStore struct {
	store  *Store
	tenant string
}

func (t *tenantStore) CreateNode(ctx context.Context, node metadata.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	nodes := s.tenantNodes(t.tenant)
	key := node.Path.String()
	if _, exists := nodes[key]; exists {
		return fsx.Wrap(fsx.ErrConflict, "node already exists at %s", key)
	}
	nodes[key] = node
	return nil
}

func (t *tenantStore) GetNodeByPath(ctx context.Context, path fsx.Path) (*metadata.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := t.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes, ok := s.nodes[t.tenant]
	if !ok {
		return nil, nil
	}
	node, ok := nodes[path.String()]
	if !ok {
		return nil, nil
	}
	copied := node
	return &copied, nil
}

func (t *tenantStore) UpdateNode(ctx context.Context, node metadata.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	nodes, ok := s.nodes[t.tenant]
	if !ok {
		return nil
	}
	key := node.Path.String()
	if _, exists := nodes[key]; !exists {
		return nil
	}
	nodes[key] = node
	return nil
}

func (t *tenantStore) DeleteNode(ctx context.Context, path fsx.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	nodes, ok := s.nodes[t.tenant]
	if !ok {
		return nil
	}
	delete(nodes, path.String())
	return nil
}

func (t *tenantStore) ListChildren(ctx context.Context, dir fsx.Path) ([]metadata.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := t.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes, ok := s.nodes[t.tenant]
	if !ok {
		return nil, nil
	}

	var children []metadata.Node
	for _, node := range nodes {
		if node.Path.IsRoot() {
			continue
		}
		if node.Path.Parent().Equal(dir) {
			children = append(children, node)
		}
	}
	sortChildren(children)
	return children, nil
}

func (t *tenantStore) IncrementBlobRefCount(ctx context.Context, hash fsx.ContentHash, contentSize uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	key := hash.String()
	rec, ok := s.blobs[key]
	if !ok {
		s.blobs[key] = &metadata.BlobRecord{
			Hash:           hash,
			RefCount:       1,
			Size:           contentSize,
			CreatedAt:      now,
			LastAccessedAt: now,
		}
		return nil
	}
	rec.RefCount++
	rec.LastAccessedAt = now
	return nil
}

func (t *tenantStore) DecrementBlobRefCount(ctx context.Context, hash fsx.ContentHash) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	key := hash.String()
	rec, ok := s.blobs[key]
	if !ok {
		return 0, nil
	}
	if rec.RefCount == 0 {
		return 0, fsx.Wrap(fsx.ErrInvariant, "refcount for %s would go negative", key)
	}
	rec.RefCount--
	rec.LastAccessedAt = time.Now()
	return rec.RefCount, nil
}

func (t *tenantStore) GetOrphanBlobs(ctx context.Context, limit int) ([]fsx.ContentHash, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := t.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var orphans []*metadata.BlobRecord
	for _, rec := range s.blobs {
		if rec.RefCount == 0 {
			orphans = append(orphans, rec)
		}
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

func (t *tenantStore) DeleteBlobRecord(ctx context.Context, hash fsx.ContentHash) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	key := hash.String()
	rec, ok := s.blobs[key]
	if !ok {
		return false, nil
	}
	if rec.RefCount != 0 {
		return false, nil
	}
	delete(s.blobs, key)
	return true, nil
}
