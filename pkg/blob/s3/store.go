// Package s3 implements blob.Store on Amazon S3 or an S3-compatible
// endpoint (MinIO, Localstack, Cubbit), supplementing the reference
// filesystem backing with an alternate object-store backing.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/shardstore/dedupfs/pkg/blob"
	"github.com/shardstore/dedupfs/pkg/fsx"
)

// Store is an S3-backed blob.Store. Object keys are the content hash
// itself (optionally namespaced by KeyPrefix) — there is no sharding
// directory structure to maintain, since S3 buckets are flat and its
// indexing doesn't degrade the way a local directory with millions of
// entries would.
type Store struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

var _ blob.Store = (*Store)(nil)

// Config configures the S3-backed blob store.
type Config struct {
	// Client is a pre-configured S3 client. Endpoint overrides (for
	// MinIO/Localstack) and credential resolution belong in pkg/config's
	// client construction, not here.
	Client *s3.Client

	// Bucket is the S3 bucket blobs are stored in. Must already exist.
	Bucket string

	// KeyPrefix optionally namespaces every object key, e.g. "blobs/"
	// results in keys like "blobs/<hash>".
	KeyPrefix string
}

// Open verifies bucket access and returns a ready-to-use Store.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("%w: s3 client is required", fsx.ErrStoreUnavailable)
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: s3 bucket is required", fsx.ErrStoreUnavailable)
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)})
	if err != nil {
		return nil, fmt.Errorf("%w: access bucket %s: %v", fsx.ErrStoreUnavailable, cfg.Bucket, err)
	}

	return &Store{client: cfg.Client, bucket: cfg.Bucket, keyPrefix: cfg.KeyPrefix}, nil
}

func (s *Store) key(hash fsx.ContentHash) string {
	return s.keyPrefix + hash.String()
}

// Write uploads data under hash's object key. Overwriting an
// already-present key with the same bytes is harmless since the key is
// derived from the content.
func (s *Store) Write(ctx context.Context, hash fsx.ContentHash, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(hash)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("%w: put blob %s: %v", fsx.ErrStoreUnavailable, hash, err)
	}
	return nil
}

// Read downloads and returns the complete bytes stored under hash.
func (s *Store) Read(ctx context.Context, hash fsx.ContentHash) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(hash)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("blob %s: %w", hash, fsx.ErrBlobMissing)
		}
		return nil, fmt.Errorf("%w: get blob %s: %v", fsx.ErrStoreUnavailable, hash, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read blob body %s: %v", fsx.ErrStoreUnavailable, hash, err)
	}
	return data, nil
}

// Exists reports whether a blob is stored under hash via a HEAD request.
func (s *Store) Exists(ctx context.Context, hash fsx.ContentHash) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(hash)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: head blob %s: %v", fsx.ErrStoreUnavailable, hash, err)
	}
	return true, nil
}

// Delete removes the object stored under hash. Idempotent.
func (s *Store) Delete(ctx context.Context, hash fsx.ContentHash) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(hash)),
	})
	if err != nil {
		return fmt.Errorf("%w: delete blob %s: %v", fsx.ErrStoreUnavailable, hash, err)
	}
	return nil
}

// maxBatchSize is S3's DeleteObjects limit on objects per request.
const maxBatchSize = 1000

// DeleteMany removes hashes via S3's native batch DeleteObjects API,
// chunked at S3's 1000-object-per-request limit.
func (s *Store) DeleteMany(ctx context.Context, hashes []fsx.ContentHash) ([]fsx.ContentHash, error) {
	var failed []fsx.ContentHash

	for i := 0; i < len(hashes); i += maxBatchSize {
		if err := ctx.Err(); err != nil {
			failed = append(failed, hashes[i:]...)
			return failed, err
		}

		end := min(i+maxBatchSize, len(hashes))
		batch := hashes[i:end]

		objects := make([]types.ObjectIdentifier, len(batch))
		byKey := make(map[string]fsx.ContentHash, len(batch))
		for j, h := range batch {
			k := s.key(h)
			objects[j] = types.ObjectIdentifier{Key: aws.String(k)}
			byKey[k] = h
		}

		result, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(false)},
		})
		if err != nil {
			failed = append(failed, batch...)
			continue
		}

		for _, delErr := range result.Errors {
			if delErr.Key == nil {
				continue
			}
			if h, ok := byKey[*delErr.Key]; ok {
				failed = append(failed, h)
			}
		}
	}

	if len(failed) > 0 {
		return failed, fmt.Errorf("%d of %d blob deletions failed", len(failed), len(hashes))
	}
	return nil, nil
}

func isNoSuchKey(err error) bool {
	var notFound *types.NoSuchKey
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchKeyAPI *types.NotFound
	return errors.As(err, &noSuchKeyAPI)
}
