package badger

import "strings"

// Database Key Namespace Design
// ==============================
//
// BadgerDB is a key-value store, so keys are namespaced by prefix to
// keep the different record kinds from colliding and to make range
// scans (directory listings, orphan sweeps) cheap.
//
// Data Type         Prefix   Key Format                    Value
// ==========================================================================
// Node              "n:"     n:<tenant>:<path>             Node (JSON)
// Blob Record       "b:"     b:<hash>                      BlobRecord (JSON)
//
// Node keys are prefixed by tenant so that a full tenant scan (used by
// ListChildren's prefix-match-plus-depth-filter) never touches another
// tenant's rows — tenant isolation is structural, not just a filter
// applied after the fact.
//
// Blob record keys carry no tenant component: a BlobRecord's identity is
// the hash alone, and its refcount is the count of FileNodes across ALL
// tenants referencing that hash.

const (
	prefixNode = "n:"
	prefixBlob = "b:"
)

// nodeKey returns the storage key for a single node.
func nodeKey(tenantKey, path string) []byte {
	return []byte(prefixNode + tenantKey + ":" + path)
}

// nodeTenantPrefix returns the key prefix covering every node belonging
// to tenantKey.
func nodeTenantPrefix(tenantKey string) []byte {
	return []byte(prefixNode + tenantKey + ":")
}

// pathFromNodeKey extracts the path component from a node key produced
// by nodeKey, given the same tenant prefix.
func pathFromNodeKey(key []byte, tenantKey string) string {
	prefix := prefixNode + tenantKey + ":"
	return strings.TrimPrefix(string(key), prefix)
}

// blobKey returns the storage key for a blob record.
func blobKey(hash string) []byte {
	return []byte(prefixBlob + hash)
}
