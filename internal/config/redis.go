package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// RedisConfig points the resolver's result cache at Redis. Leaving
// REDIS_ADDR unset disables the cache; every reference is then resolved
// against the upstream catalog directly.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`

	// ResolveTTL bounds how long resolved references are reused. Stream
	// URLs expire upstream, so this must stay well under their lifetime.
	ResolveTTL time.Duration `env:"REDIS_RESOLVE_TTL, default=30m"`
}

func NewRedisConfigFromEnv() (*RedisConfig, error) {
	var cfg RedisConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Enabled reports whether a Redis instance is configured.
func (c *RedisConfig) Enabled() bool {
	return c.Addr != ""
}
