package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// PlayerConfig carries every tunable of the playback engine. The defaults
// are safe for Discord voice: 20ms frames of 48 kHz stereo Opus.
type PlayerConfig struct {
	// FrameDuration is the presentation length of one Opus frame.
	// Valid values are 10ms, 20ms, 40ms and 60ms.
	FrameDuration time.Duration `env:"PLAYER_FRAME_DURATION, default=20ms"`
	SampleRate    int           `env:"PLAYER_SAMPLE_RATE, default=48000"`
	Channels      int           `env:"PLAYER_CHANNELS, default=2"`
	Bitrate       int           `env:"PLAYER_BITRATE, default=96000"`

	// VolumePercent is the initial gain of new sessions. 100 is unity.
	VolumePercent int `env:"PLAYER_VOLUME_PERCENT, default=50"`

	// ResolveTimeout bounds a single reference resolution.
	ResolveTimeout time.Duration `env:"PLAYER_RESOLVE_TIMEOUT, default=15s"`
	// StallTimeout bounds how long the transcoder waits on upstream media
	// before declaring the source stalled. Backpressure from a paused
	// session does not count against it.
	StallTimeout time.Duration `env:"PLAYER_STALL_TIMEOUT, default=10s"`
	// SendTimeout bounds one frame delivery to the voice transport.
	SendTimeout time.Duration `env:"PLAYER_SEND_TIMEOUT, default=5s"`
	// IdleTTL is how long an idle session with an empty queue survives
	// before the registry evicts it. Zero disables eviction.
	IdleTTL time.Duration `env:"PLAYER_IDLE_TTL, default=5m"`

	QueueLimit int `env:"PLAYER_QUEUE_LIMIT, default=500"`
}

func NewPlayerConfigFromEnv() (*PlayerConfig, error) {
	var cfg PlayerConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the Opus codec or the engine cannot honor.
func (c *PlayerConfig) Validate() error {
	switch c.FrameDuration {
	case 10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond, 60 * time.Millisecond:
	default:
		return fmt.Errorf("invalid frame duration %v: must be 10ms, 20ms, 40ms or 60ms", c.FrameDuration)
	}
	switch c.SampleRate {
	case 8000, 12000, 16000, 24000, 48000:
	default:
		return fmt.Errorf("invalid sample rate %d: not a valid opus rate", c.SampleRate)
	}
	if c.Channels != 1 && c.Channels != 2 {
		return fmt.Errorf("invalid channel count %d: must be 1 or 2", c.Channels)
	}
	if c.Bitrate < 8000 || c.Bitrate > 512000 {
		return fmt.Errorf("invalid bitrate %d: must be between 8000 and 512000", c.Bitrate)
	}
	if c.VolumePercent < 0 || c.VolumePercent > 200 {
		return fmt.Errorf("invalid volume %d%%: must be between 0 and 200", c.VolumePercent)
	}
	if c.ResolveTimeout <= 0 {
		return fmt.Errorf("resolve timeout must be positive")
	}
	if c.StallTimeout <= 0 {
		return fmt.Errorf("stall timeout must be positive")
	}
	if c.SendTimeout <= 0 {
		return fmt.Errorf("send timeout must be positive")
	}
	if c.QueueLimit <= 0 {
		return fmt.Errorf("queue limit must be positive")
	}
	return nil
}
