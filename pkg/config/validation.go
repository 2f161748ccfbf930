package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom
// rules that can't be expressed in tags.
//
// Note: log level normalization happens in ApplyDefaults, not here;
// validation accepts both uppercase and lowercase levels.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	if cfg.Metadata.Type == "badger" {
		if _, ok := cfg.Metadata.Badger["db_path"]; !ok {
			return fmt.Errorf("metadata.badger: db_path is required")
		}
	}
	if cfg.Blob.Type == "fs" {
		if _, ok := cfg.Blob.FS["path"]; !ok {
			return fmt.Errorf("blob.fs: path is required")
		}
	}
	if cfg.Blob.Type == "s3" {
		if _, ok := cfg.Blob.S3["bucket"]; !ok {
			return fmt.Errorf("blob.s3: bucket is required")
		}
	}
	return nil
}

func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
