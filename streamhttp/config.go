package streamhttp

import (
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
)

// Defaults for the tunables in Config. The keep-alive period only affects
// client-perceived latency versus filler overhead, never correctness; it
// should be comfortably below the shortest idle timeout of any proxy in
// front of the server.
const (
	DefaultKeepAlivePeriod   = 15 * time.Second
	DefaultBufferSize        = 64
	DefaultInvocationTimeout = 10 * time.Minute
)

// Config carries the per-handler tunables. Defaults can be loaded from the
// environment via ConfigFromEnv.
type Config struct {
	// KeepAlivePeriod is the interval between keep-alive filler bytes while
	// a computation is pending. ENV: DRIP_KEEPALIVE_PERIOD
	KeepAlivePeriod time.Duration `env:"DRIP_KEEPALIVE_PERIOD,default=15s"`
	// BufferSize bounds the output buffer between the controller and the
	// transport; a full buffer blocks the producer (backpressure) rather
	// than dropping data. ENV: DRIP_BUFFER_SIZE
	BufferSize int `env:"DRIP_BUFFER_SIZE,default=64"`
	// InvocationTimeout hard-bounds a computation's lifetime, including
	// after the client has disconnected and the result is already doomed to
	// be discarded. ENV: DRIP_INVOCATION_TIMEOUT
	InvocationTimeout time.Duration `env:"DRIP_INVOCATION_TIMEOUT,default=10m"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		KeepAlivePeriod:   DefaultKeepAlivePeriod,
		BufferSize:        DefaultBufferSize,
		InvocationTimeout: DefaultInvocationTimeout,
	}
}

// ConfigFromEnv populates a Config from the environment, falling back to
// the documented defaults.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config from env: %w", err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.KeepAlivePeriod <= 0 {
		return fmt.Errorf("keep-alive period must be positive, got %v", c.KeepAlivePeriod)
	}
	if c.BufferSize < 0 {
		return fmt.Errorf("buffer size must be non-negative, got %d", c.BufferSize)
	}
	if c.InvocationTimeout <= 0 {
		return fmt.Errorf("invocation timeout must be positive, got %v", c.InvocationTimeout)
	}
	return nil
}
