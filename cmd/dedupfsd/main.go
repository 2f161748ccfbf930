package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/shardstore/dedupfs/internal/logger"
	"github.com/shardstore/dedupfs/pkg/config"
	"github.com/shardstore/dedupfs/pkg/fsservice"
	"github.com/shardstore/dedupfs/pkg/reclaimer"
	"github.com/shardstore/dedupfs/pkg/tenant"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/dedupfs/config.yaml)")
	logLevel := flag.String("log-level", "", "Log level override (DEBUG, INFO, WARN, ERROR)")
	reclaimTenant := flag.String("reclaim-tenant", "", "Tenant ID to run the reclaimer against (required)")
	reclaimNow := flag.Bool("reclaim-now", false, "Run a single orphan-blob sweep for -reclaim-tenant and exit, instead of starting the background worker")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	logger.SetLevel(cfg.Logging.Level)

	fmt.Println("dedupfsd - content-addressable file store engine")
	logger.Info("log level set to: %s", cfg.Logging.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metadataStore, err := config.CreateMetadataStore(ctx, &cfg.Metadata)
	if err != nil {
		log.Fatalf("failed to create metadata store: %v", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		if err := metadataStore.Close(shutdownCtx); err != nil {
			logger.Warn("metadata store close failed: %v", err)
		}
	}()

	blobStore, err := config.CreateBlobStore(ctx, &cfg.Blob)
	if err != nil {
		log.Fatalf("failed to create blob store: %v", err)
	}

	logger.Info("metadata store: type=%s", cfg.Metadata.Type)
	logger.Info("blob store: type=%s", cfg.Blob.Type)

	svc := fsservice.New(metadataStore, blobStore)
	_ = svc // wired here for an embedding caller to drive; this binary itself only starts the reclaimer

	if *reclaimTenant == "" {
		log.Fatalf("-reclaim-tenant is required: the engine has no notion of a default tenant")
	}
	tenantID, err := tenant.Parse(*reclaimTenant)
	if err != nil {
		log.Fatalf("invalid -reclaim-tenant: %v", err)
	}

	collector := reclaimer.NewCollector(metadataStore, blobStore, tenantID, reclaimer.Config{
		Enabled:   cfg.Reclaimer.Enabled,
		Interval:  cfg.Reclaimer.Interval,
		BatchSize: cfg.Reclaimer.BatchSize,
		DryRun:    cfg.Reclaimer.DryRun,
	})

	if *reclaimNow {
		stats, err := collector.RunNow(ctx)
		if err != nil {
			log.Fatalf("reclaim failed: %v", err)
		}
		logger.Info("reclaim complete: %s", stats.Summary())
		return
	}

	collector.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("engine running for tenant %s. Press Ctrl+C to stop.", tenantID)
	<-sigChan

	logger.Info("shutdown signal received, stopping reclaimer...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := collector.Stop(shutdownCtx); err != nil {
		logger.Warn("reclaimer shutdown error: %v", err)
	}

	logger.Info("shutdown complete")
}
