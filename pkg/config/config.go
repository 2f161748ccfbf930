// Package config loads and validates process configuration: which
// metadata and blob backings to construct, the reclaimer's schedule, and
// logging. Storage selection follows a typed discriminator plus a
// backend-specific options map, decoded lazily by pkg/config's factory
// functions — the same pattern used throughout this codebase's ambient
// stack.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete process configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (DEDUPFS_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values (lowest priority)
//
// Store Configuration Pattern:
// Metadata and Blob each carry a Type discriminator plus one
// type-specific options map; only the map matching the selected type is
// consulted.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging"`

	// Metadata selects and configures the metadata store backing.
	Metadata MetadataConfig `mapstructure:"metadata"`

	// Blob selects and configures the blob store backing.
	Blob BlobConfig `mapstructure:"blob"`

	// Reclaimer configures the background orphan sweep.
	Reclaimer ReclaimerConfig `mapstructure:"reclaimer"`

	// ShutdownTimeout bounds how long the process waits for the
	// reclaimer and stores to release resources on exit.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
}

// MetadataConfig specifies metadata store configuration.
type MetadataConfig struct {
	// Type selects the metadata store implementation.
	// Valid values: memory, badger.
	Type string `mapstructure:"type" validate:"required,oneof=memory badger"`

	// Memory holds options for Type = "memory" (currently none).
	Memory map[string]any `mapstructure:"memory"`

	// Badger holds options for Type = "badger".
	Badger map[string]any `mapstructure:"badger"`
}

// BlobConfig specifies blob store configuration.
type BlobConfig struct {
	// Type selects the blob store implementation.
	// Valid values: fs, s3.
	Type string `mapstructure:"type" validate:"required,oneof=fs s3"`

	// FS holds options for Type = "fs".
	FS map[string]any `mapstructure:"fs"`

	// S3 holds options for Type = "s3".
	S3 map[string]any `mapstructure:"s3"`
}

// ReclaimerConfig configures the background orphan-blob sweep.
type ReclaimerConfig struct {
	// Enabled controls whether the background sweep runs at all.
	Enabled bool `mapstructure:"enabled"`

	// Interval is how often to run a sweep.
	Interval time.Duration `mapstructure:"interval" validate:"gt=0"`

	// BatchSize bounds how many orphan hashes are processed per round.
	BatchSize int `mapstructure:"batch_size" validate:"gt=0"`

	// DryRun logs what would be deleted without deleting it.
	DryRun bool `mapstructure:"dry_run"`
}

// Load loads configuration from file, environment, and defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("DEDUPFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}

	configDir := getConfigDir()
	v.AddConfigPath(configDir)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper, configPath string) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory, preferring
// XDG_CONFIG_HOME, then ~/.config, then the current directory.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dedupfs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "dedupfs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
