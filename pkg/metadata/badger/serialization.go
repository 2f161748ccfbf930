package badger

import (
	"encoding/json"
	"time"

	"github.com/shardstore/dedupfs/pkg/fsx"
	"github.com/shardstore/dedupfs/pkg/metadata"
)

// nodeRecord is the on-disk representation of a metadata.Node. Path and
// ContentHash carry no exported fields (by design — they are validated
// value types, not free-form strings), so the store round-trips them
// through their canonical string form rather than exposing a
// MarshalJSON on fsx itself.
type nodeRecord struct {
	Type       int       `json:"type"`
	Path       string    `json:"path"`
	Hash       string    `json:"hash,omitempty"`
	Size       uint64    `json:"size,omitempty"`
	MimeType   string    `json:"mime_type,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

func encodeNode(n metadata.Node) ([]byte, error) {
	rec := nodeRecord{
		Type:       int(n.Type),
		Path:       n.Path.String(),
		Size:       n.Size,
		MimeType:   n.MimeType,
		CreatedAt:  n.CreatedAt,
		ModifiedAt: n.ModifiedAt,
	}
	if !n.Hash.IsZero() {
		rec.Hash = n.Hash.String()
	}
	return json.Marshal(rec)
}

func decodeNode(data []byte) (metadata.Node, error) {
	var rec nodeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return metadata.Node{}, err
	}
	path, err := fsx.ParsePath(rec.Path)
	if err != nil {
		return metadata.Node{}, err
	}
	n := metadata.Node{
		Type:       metadata.NodeType(rec.Type),
		Path:       path,
		Size:       rec.Size,
		MimeType:   rec.MimeType,
		CreatedAt:  rec.CreatedAt,
		ModifiedAt: rec.ModifiedAt,
	}
	if rec.Hash != "" {
		hash, err := fsx.ParseHash(rec.Hash)
		if err != nil {
			return metadata.Node{}, err
		}
		n.Hash = hash
	}
	return n, nil
}

type blobRecordDTO struct {
	Hash           string    `json:"hash"`
	RefCount       uint64    `json:"ref_count"`
	Size           uint64    `json:"size"`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
}

func encodeBlobRecord(rec metadata.BlobRecord) ([]byte, error) {
	return json.Marshal(blobRecordDTO{
		Hash:           rec.Hash.String(),
		RefCount:       rec.RefCount,
		Size:           rec.Size,
		CreatedAt:      rec.CreatedAt,
		LastAccessedAt: rec.LastAccessedAt,
	})
}

func decodeBlobRecord(data []byte) (metadata.BlobRecord, error) {
	var dto blobRecordDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return metadata.BlobRecord{}, err
	}
	hash, err := fsx.ParseHash(dto.Hash)
	if err != nil {
		return metadata.BlobRecord{}, err
	}
	return metadata.BlobRecord{
		Hash:           hash,
		RefCount:       dto.RefCount,
		Size:           dto.Size,
		CreatedAt:      dto.CreatedAt,
		LastAccessedAt: dto.LastAccessedAt,
	}, nil
}
