package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"
	"github.com/shardstore/dedupfs/internal/logger"
	"github.com/shardstore/dedupfs/pkg/blob"
	blobfs "github.com/shardstore/dedupfs/pkg/blob/fs"
	blobs3 "github.com/shardstore/dedupfs/pkg/blob/s3"
	"github.com/shardstore/dedupfs/pkg/metadata"
	"github.com/shardstore/dedupfs/pkg/metadata/badger"
	"github.com/shardstore/dedupfs/pkg/metadata/memory"
)

// CreateMetadataStore builds a metadata.Store from cfg, decoding the
// type-specific options map into the constructor's own config struct.
func CreateMetadataStore(ctx context.Context, cfg *MetadataConfig) (metadata.Store, error) {
	switch cfg.Type {
	case "memory":
		return memory.New(), nil
	case "badger":
		return createBadgerMetadataStore(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown metadata store type: %q", cfg.Type)
	}
}

func createBadgerMetadataStore(ctx context.Context, options map[string]any) (metadata.Store, error) {
	type badgerOptions struct {
		DBPath   string `mapstructure:"db_path"`
		InMemory bool   `mapstructure:"in_memory"`
	}

	var opts badgerOptions
	if err := mapstructure.Decode(options, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode badger metadata store config: %w", err)
	}
	if opts.DBPath == "" && !opts.InMemory {
		return nil, fmt.Errorf("badger metadata store: db_path is required")
	}

	store, err := badger.Open(ctx, badger.Config{Dir: opts.DBPath, InMemory: opts.InMemory})
	if err != nil {
		return nil, fmt.Errorf("failed to open badger metadata store: %w", err)
	}

	logger.Info("badger metadata store opened: dir=%s in_memory=%v", opts.DBPath, opts.InMemory)
	return store, nil
}

// CreateBlobStore builds a blob.Store from cfg.
func CreateBlobStore(ctx context.Context, cfg *BlobConfig) (blob.Store, error) {
	switch cfg.Type {
	case "fs":
		return createFSBlobStore(cfg.FS)
	case "s3":
		return createS3BlobStore(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown blob store type: %q", cfg.Type)
	}
}

func createFSBlobStore(options map[string]any) (blob.Store, error) {
	type fsOptions struct {
		Path string `mapstructure:"path"`
	}

	var opts fsOptions
	if err := mapstructure.Decode(options, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem blob store config: %w", err)
	}
	if opts.Path == "" {
		return nil, fmt.Errorf("filesystem blob store: path is required")
	}

	store, err := blobfs.New(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem blob store: %w", err)
	}

	logger.Info("filesystem blob store initialized: root=%s", opts.Path)
	return store, nil
}

func createS3BlobStore(ctx context.Context, options map[string]any) (blob.Store, error) {
	type s3Options struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var opts s3Options
	if err := mapstructure.Decode(options, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode S3 blob store config: %w", err)
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("S3 blob store: bucket is required")
	}
	if opts.Region == "" {
		return nil, fmt.Errorf("S3 blob store: region is required")
	}

	var configOptions []func(*awsConfig.LoadOptions) error
	configOptions = append(configOptions, awsConfig.WithRegion(opts.Region))

	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := opts.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	store, err := blobs3.Open(ctx, blobs3.Config{
		Client:    client,
		Bucket:    opts.Bucket,
		KeyPrefix: opts.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open S3 blob store: %w", err)
	}

	logger.Info("S3 blob store initialized: bucket=%s region=%s prefix=%s", opts.Bucket, opts.Region, opts.KeyPrefix)
	return store, nil
}
