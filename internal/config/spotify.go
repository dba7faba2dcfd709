package config

import (
	"context"

	"github.com/sethvargo/go-envconfig"
)

// SpotifyConfig holds Web API credentials for resolving Spotify links.
// Without credentials, Spotify links degrade to plain search phrases.
type SpotifyConfig struct {
	ClientID     string `env:"SPOTIFY_CLIENT_ID"`
	ClientSecret string `env:"SPOTIFY_CLIENT_SECRET"`
}

func NewSpotifyConfigFromEnv() (*SpotifyConfig, error) {
	var cfg SpotifyConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Enabled reports whether Web API credentials are configured.
func (c *SpotifyConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}
