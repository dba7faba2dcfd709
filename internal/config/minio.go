package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// MinioConfig points the frame cache at an S3-compatible blob store.
// Leaving MINIO_ENDPOINT unset disables the cache entirely.
type MinioConfig struct {
	Endpoint string `env:"MINIO_ENDPOINT"`
	Username string `env:"MINIO_USERNAME"`
	Password string `env:"MINIO_PASSWORD"`
	Bucket   string `env:"MINIO_BUCKET, default=troubadour-frames"`
	UseSSL   bool   `env:"MINIO_USE_SSL"`
}

func NewMinioConfigFromEnv() (*MinioConfig, error) {
	var cfg MinioConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	if cfg.Endpoint != "" && (cfg.Username == "" || cfg.Password == "") {
		return nil, fmt.Errorf("MINIO_USERNAME and MINIO_PASSWORD are required when MINIO_ENDPOINT is set")
	}

	return &cfg, nil
}

// Enabled reports whether a blob store is configured at all.
func (c *MinioConfig) Enabled() bool {
	return c.Endpoint != ""
}
