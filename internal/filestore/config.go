package filestore

import (
	"github.com/koustreak/dbdeck/internal/errs"
)

// Provider identifies the file storage backend.
type Provider string

const (
	ProviderLocal Provider = "local"
	ProviderMinIO Provider = "minio"
)

// DefaultDir is where the local provider writes when no directory is set.
const DefaultDir = "exports"

// Config holds the settings for an export sink.
type Config struct {
	// Provider selects the backend. Empty means ProviderLocal.
	Provider Provider `koanf:"provider"`

	// Dir is the root directory of the local provider.
	Dir string `koanf:"dir"`

	// Endpoint is the host:port of the MinIO server, e.g. "localhost:9000".
	Endpoint string `koanf:"endpoint"`

	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	UseSSL    bool   `koanf:"use_ssl"`

	// Region is used by region-aware backends. Leave empty for MinIO.
	Region string `koanf:"region"`

	// Bucket receives every object written through the store.
	Bucket string `koanf:"bucket"`
}

// DefaultConfig returns a local sink writing to DefaultDir.
func DefaultConfig() *Config {
	return &Config{Provider: ProviderLocal, Dir: DefaultDir}
}

// Validate checks that the provider is known and has what it needs.
func (c *Config) Validate() error {
	switch c.Provider {
	case "", ProviderLocal:
		if c.Dir == "" {
			return errs.New(errs.ErrKindInvalidConfig, "export directory is required")
		}
	case ProviderMinIO:
		if c.Endpoint == "" {
			return errs.New(errs.ErrKindInvalidConfig, "minio endpoint is required")
		}
		if c.Bucket == "" {
			return errs.New(errs.ErrKindInvalidConfig, "minio bucket is required")
		}
	default:
		return errs.Newf(errs.ErrKindInvalidConfig, "unknown export provider %q", c.Provider)
	}
	return nil
}
