//go:build integration

package s3

import (
	"context"
	"os"
	"testing"

	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/shardstore/dedupfs/pkg/blob"
	blobtesting "github.com/shardstore/dedupfs/pkg/blob/testing"
	"github.com/stretchr/testify/require"
)

// TestStoreConformance_Integration runs the blob.Store conformance suite
// against a real S3-compatible service (Localstack).
//
// Prerequisites:
//   - Localstack running on localhost:4566 with a "dedupfs-blobs" bucket
//   - Run with: go test -tags=integration ./pkg/blob/s3/...
func TestStoreConformance_Integration(t *testing.T) {
	ctx := context.Background()

	endpoint := os.Getenv("LOCALSTACK_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:4566"
	}
	bucket := os.Getenv("LOCALSTACK_BUCKET")
	if bucket == "" {
		bucket = "dedupfs-blobs"
	}

	cfg, err := awsConfig.LoadDefaultConfig(ctx,
		awsConfig.WithRegion("us-east-1"),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	require.NoError(t, err)

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = &endpoint
		o.UsePathStyle = true
	})

	suite := &blobtesting.StoreSuite{
		NewStore: func(t *testing.T) blob.Store {
			store, err := Open(ctx, Config{Client: client, Bucket: bucket, KeyPrefix: "conformance-test/"})
			require.NoError(t, err)
			return store
		},
	}
	suite.Run(t)
}
